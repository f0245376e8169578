// Package interactive provides the interactive command-line interface
// for topicmux.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/topicmux/topicmux-go/pkg/client"
)

// DefaultEvent is the server event printed when subscribe names none.
const DefaultEvent = "message"

// Shell handles interactive mode for topicmux.
type Shell struct {
	conn *client.Connection
	rl   *readline.Instance
	out  io.Writer
	err  io.Writer

	closeOnce sync.Once
}

// New creates a shell reading commands from the terminal. Attach a
// connection before Run.
func New() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "topicmux> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(rl.Stdout(), rl.Stderr())
	s.rl = rl
	return s, nil
}

func newShell(out, errOut io.Writer) *Shell {
	return &Shell{out: out, err: errOut}
}

// Close releases the terminal.
func (s *Shell) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.rl != nil {
			err = s.rl.Close()
		}
	})
	return err
}

// Attach binds the shell to conn and prints its lifecycle events.
func (s *Shell) Attach(conn *client.Connection) {
	s.conn = conn

	conn.On(client.EventOpen, func(data any) {
		fmt.Fprintf(s.out, "[connection] open %s\n", conn.URL())
	})
	conn.On(client.EventReconnect, func(data any) {
		fmt.Fprintf(s.out, "[connection] reconnecting (attempt %v)\n", data)
	})
	conn.On(client.EventClose, func(any) {
		fmt.Fprintf(s.out, "[connection] closed (%s)\n", conn.State())
	})
	conn.On(client.EventError, func(data any) {
		fmt.Fprintf(s.err, "[connection] error: %v\n", data)
	})
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Stderr returns a writer that properly coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.err
}

// Run starts the interactive command loop. It returns when the user quits,
// ctx is cancelled or the connection terminates.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.Close()

	go func() {
		select {
		case <-s.conn.Done():
			fmt.Fprintln(s.out, "Connection terminated, press enter to exit")
			cancel()
		case <-ctx.Done():
		}
	}()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Execute(line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the shell should exit.
func (s *Shell) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "subscribe", "sub", "join":
		s.cmdSubscribe(args)

	case "on":
		s.cmdOn(args)

	case "emit", "e":
		s.cmdEmit(input, args)

	case "leave", "unsub":
		s.cmdLeave(args)

	case "list", "ls":
		s.cmdList()

	case "status":
		s.cmdStatus()

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
topicmux Commands:
  Topics:
    subscribe <topic> [event...]  - Join a topic and print the given events (default: message)
    on <topic> <event>            - Also print <event> on a joined topic
    emit <topic> <event> [data]   - Send an event (data is JSON if it parses, else text)
    leave <topic>                 - Leave a topic

  Connection:
    list                          - List subscriptions and their state
    status                        - Show connection status

  Other:
    help                          - Show this help
    quit                          - Close the connection and exit`)
}

func (s *Shell) cmdSubscribe(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: subscribe <topic> [event...]")
		return
	}
	topic := args[0]

	sub, err := s.conn.Subscribe(topic)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	sub.On(client.EventReady, func(any) {
		fmt.Fprintf(s.out, "[%s] ready\n", topic)
	})
	sub.On(client.EventError, func(data any) {
		var je *client.JoinError
		if err, ok := data.(error); ok && errors.As(err, &je) {
			fmt.Fprintf(s.out, "[%s] join rejected: %s\n", topic, je.Message)
			return
		}
		fmt.Fprintf(s.out, "[%s] error: %v\n", topic, data)
	})
	sub.On(client.EventLeaveError, func(data any) {
		fmt.Fprintf(s.out, "[%s] leave rejected: %v\n", topic, data)
	})
	sub.On(client.EventClose, func(any) {
		fmt.Fprintf(s.out, "[%s] closed\n", topic)
	})

	events := args[1:]
	if len(events) == 0 {
		events = []string{DefaultEvent}
	}
	for _, event := range events {
		s.listen(sub, event)
	}

	fmt.Fprintf(s.out, "Joining %s (%s)\n", topic, sub.State())
}

func (s *Shell) cmdOn(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "Usage: on <topic> <event>")
		return
	}
	sub := s.conn.Subscription(args[0])
	if sub == nil {
		fmt.Fprintf(s.out, "Not subscribed to %s\n", args[0])
		return
	}
	s.listen(sub, args[1])
}

func (s *Shell) listen(sub *client.Subscription, event string) {
	topic := sub.Topic()
	sub.On(event, func(data any) {
		fmt.Fprintf(s.out, "[%s] %s: %s\n", topic, event, formatData(data))
	})
}

func (s *Shell) cmdEmit(input string, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: emit <topic> <event> [data]")
		return
	}
	topic, event := args[0], args[1]

	sub := s.conn.Subscription(topic)
	if sub == nil {
		fmt.Fprintf(s.out, "Not subscribed to %s\n", topic)
		return
	}

	var data any
	if raw := restAfter(input, 3); raw != "" {
		data = parseData(raw)
	}

	if err := sub.Emit(event, data); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if sub.State() == client.SubscriptionPending {
		fmt.Fprintf(s.out, "Buffered until %s is joined\n", topic)
	}
}

func (s *Shell) cmdLeave(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: leave <topic>")
		return
	}
	sub := s.conn.Subscription(args[0])
	if sub == nil {
		fmt.Fprintf(s.out, "Not subscribed to %s\n", args[0])
		return
	}
	if err := sub.Close(); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Leaving %s\n", args[0])
}

func (s *Shell) cmdList() {
	topics := s.conn.Subscriptions()
	if len(topics) == 0 {
		fmt.Fprintln(s.out, "No subscriptions")
		return
	}
	for _, topic := range topics {
		sub := s.conn.Subscription(topic)
		if sub == nil {
			continue
		}
		fmt.Fprintf(s.out, "  %-24s %s", topic, sub.State())
		if n := sub.Buffered(); n > 0 {
			fmt.Fprintf(s.out, " (%d buffered)", n)
		}
		fmt.Fprintln(s.out)
	}
}

func (s *Shell) cmdStatus() {
	fmt.Fprintf(s.out, "URL:           %s\n", s.conn.URL())
	fmt.Fprintf(s.out, "State:         %s\n", s.conn.State())
	fmt.Fprintf(s.out, "Connection ID: %s\n", s.conn.ID())
	fmt.Fprintf(s.out, "Subscriptions: %d\n", len(s.conn.Subscriptions()))
	if n := s.conn.QueueLen(); n > 0 {
		fmt.Fprintf(s.out, "Queued:        %d\n", n)
	}
	if n := s.conn.ReconnectAttempts(); n > 0 {
		fmt.Fprintf(s.out, "Reconnects:    %d\n", n)
	}
	if pong := s.conn.LastPong(); !pong.IsZero() {
		fmt.Fprintf(s.out, "Last pong:     %s ago\n", time.Since(pong).Round(time.Millisecond))
	}
}

// restAfter returns input with its first n fields removed, keeping the
// spacing of the remainder.
func restAfter(input string, n int) string {
	rest := strings.TrimSpace(input)
	for i := 0; i < n; i++ {
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[idx:])
	}
	return rest
}

// parseData decodes raw as JSON, falling back to the raw string.
func parseData(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func formatData(data any) string {
	if s, ok := data.(string); ok {
		return s
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
