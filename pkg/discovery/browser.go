package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Service overrides the browsed service type.
	// Default: ServiceType.
	Service string

	// Domain overrides the mDNS domain.
	// Default: Domain.
	Domain string

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Service: ServiceType,
		Domain:  Domain,
	}
}

type browseFunc func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

// Browser finds topicmux servers using zeroconf.
type Browser struct {
	config BrowserConfig
	browse browseFunc
	logger *slog.Logger

	mu      sync.Mutex
	stopped bool
	cancels map[int]context.CancelFunc
	nextID  int
}

// NewBrowser creates a new mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.Service == "" {
		config.Service = ServiceType
	}
	if config.Domain == "" {
		config.Domain = Domain
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Browser{
		config: config,
		logger: logger,
		browse: func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
			return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
		},
		cancels: make(map[int]context.CancelFunc),
	}
}

// Browse streams servers as they appear. Addresses seen on several
// interfaces are merged into one Server, which is emitted once. The channel
// closes when ctx is cancelled or Stop is called.
func (b *Browser) Browse(ctx context.Context) (<-chan *Server, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, ErrBrowserStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	id := b.nextID
	b.nextID++
	b.cancels[id] = cancel
	b.mu.Unlock()

	out := make(chan *Server)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		defer b.release(id)

		b.aggregate(ctx, entries, removed, out)
	}()

	go func() {
		if err := b.browse(ctx, b.config.Service, b.config.Domain, entries, removed, b.browserOptions()...); err != nil {
			b.logger.Debug("mdns browse failed", slog.String("service", b.config.Service), slog.Any("error", err))
			cancel()
		}
	}()

	return out, nil
}

func (b *Browser) aggregate(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *Server) {
	servers := make(map[string]*Server)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			srv := entryToServer(entry)
			if srv == nil {
				continue
			}

			if existing, found := servers[srv.Instance]; found {
				existing.Addresses = mergeAddresses(existing.Addresses, srv.Addresses)
				continue
			}
			servers[srv.Instance] = srv
			b.logger.Debug("server found",
				slog.String("instance", srv.Instance),
				slog.String("url", srv.BaseURL()))

			// Emit a copy so later merges do not race with the consumer.
			emitted := *srv
			emitted.Addresses = append([]string(nil), srv.Addresses...)
			select {
			case out <- &emitted:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, found := servers[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) == 0 {
					delete(servers, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// Lookup returns the first server whose instance name matches. An empty
// instance matches any server. Without a deadline on ctx, BrowseTimeout
// applies.
func (b *Browser) Lookup(ctx context.Context, instance string) (*Server, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, BrowseTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case srv, ok := <-results:
			if !ok {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %w", ErrNotFound, ctx.Err())
				}
				return nil, ErrNotFound
			}
			if instance == "" || srv.Instance == instance {
				return srv, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrNotFound, ctx.Err())
		}
	}
}

// Stop cancels all active browse operations. Later Browse calls fail.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for id, cancel := range b.cancels {
		cancel()
		delete(b.cancels, id)
	}
}

func (b *Browser) release(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cancel, ok := b.cancels[id]; ok {
		cancel()
		delete(b.cancels, id)
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		} else {
			b.logger.Warn("unknown interface, browsing all",
				slog.String("interface", b.config.Interface), slog.Any("error", err))
		}
	}

	return opts
}

// entryToServer converts a zeroconf entry to a Server. Entries without a
// port are rejected.
func entryToServer(entry *zeroconf.ServiceEntry) *Server {
	if entry == nil || entry.Port <= 0 || entry.Port > 65535 {
		return nil
	}

	srv := &Server{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      uint16(entry.Port),
		Addresses: entryAddresses(entry),
	}
	applyServerTXT(srv, StringsToTXTRecords(entry.Text))
	return srv
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the entry's addresses from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, addr := range entryAddresses(entry) {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
