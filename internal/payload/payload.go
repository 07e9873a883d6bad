// Package payload implements the pure notification-payload parser:
// splitting a raw NOTIFY payload string into a routing key, an
// optional header map, and a body.
package payload

import "strings"

const (
	separator            = '|'
	headersSeparator     = ';'
	nameValueSeparator   = ':'
	headerValueSeparator = ','
)

// Parsed is the result of splitting one notification payload.
// Headers is nil when the payload has fewer than three fields; with
// three fields it is non-nil, and empty when no entry of the middle
// field parses.
type Parsed struct {
	RoutingKey string
	Headers    map[string][]string
	Body       string
}

// Parse never fails: every input string yields a well-formed Parsed
// value. One field is a bare body; two fields are routing_key|body;
// three or more are routing_key|headers|body, with the remainder
// after the second separator treated as the body verbatim.
func Parse(raw string) Parsed {
	fields := splitN(raw, separator, 3)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	switch len(fields) {
	case 3:
		return Parsed{RoutingKey: fields[0], Headers: parseHeaders(fields[1]), Body: fields[2]}
	case 2:
		return Parsed{RoutingKey: fields[0], Body: fields[1]}
	default:
		return Parsed{Body: fields[0]}
	}
}

// splitN splits s on sep into at most n fields, the way strings.SplitN
// does for a byte separator, but operating on runes so multibyte
// payloads are preserved verbatim.
func splitN(s string, sep rune, n int) []string {
	if n <= 1 {
		return []string{s}
	}

	var fields []string
	rest := s
	for len(fields) < n-1 {
		idx := strings.IndexRune(rest, sep)
		if idx < 0 {
			break
		}
		fields = append(fields, rest[:idx])
		rest = rest[idx+1:]
	}
	fields = append(fields, rest)
	return fields
}

// parseHeaders parses the "name:v[,v…]( ;name:v[,v…])*" header
// sub-grammar. Entries without a ':' are silently skipped.
func parseHeaders(segment string) map[string][]string {
	headers := make(map[string][]string)
	for _, entry := range strings.Split(segment, string(headersSeparator)) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		idx := strings.IndexRune(entry, nameValueSeparator)
		if idx < 0 {
			continue
		}

		name := strings.TrimSpace(entry[:idx])
		rawValues := strings.Split(entry[idx+1:], string(headerValueSeparator))
		values := make([]string, 0, len(rawValues))
		for _, v := range rawValues {
			values = append(values, strings.TrimSpace(v))
		}
		headers[name] = values
	}
	return headers
}
