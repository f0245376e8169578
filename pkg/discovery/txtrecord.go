package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeServerTXT creates TXT records describing a server.
func EncodeServerTXT(s *Server) TXTRecordMap {
	txt := make(TXTRecordMap)
	if s.Path != "" {
		txt[TXTKeyPath] = s.Path
	}
	if s.Secure {
		txt[TXTKeyTLS] = "1"
	}
	if s.Encoder != "" {
		txt[TXTKeyEncoder] = s.Encoder
	}
	return txt
}

// applyServerTXT copies known TXT fields onto s. Unknown keys are ignored.
func applyServerTXT(s *Server, txt TXTRecordMap) {
	s.Path = strings.Trim(txt[TXTKeyPath], "/")
	switch txt[TXTKeyTLS] {
	case "1", "true":
		s.Secure = true
	}
	s.Encoder = strings.ToLower(txt[TXTKeyEncoder])
}

// TXTRecordsToStrings converts a TXTRecordMap to a sorted slice of
// "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}
