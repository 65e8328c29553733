package span

import (
	"encoding/json"
	"strings"

	"github.com/pulsetrace/pulse/internal/jsondoc"
)

// Payload gives path-based read access to a raw hook payload.
// Paths are dot separated object keys, e.g. "context.sessionKey".
type Payload struct {
	root *jsondoc.Node
}

// ParsePayload decodes raw as a JSON object.
func ParsePayload(raw []byte) (Payload, error) {
	n, err := jsondoc.Parse(raw)
	if err != nil || n.Kind() != jsondoc.KindObject {
		return Payload{}, ErrPayloadParse
	}
	return Payload{root: n}, nil
}

// Lookup resolves a dotted path.
func (p Payload) Lookup(path string) (*jsondoc.Node, bool) {
	n := p.root
	for _, key := range strings.Split(path, ".") {
		next, ok := n.Get(key)
		if !ok {
			return nil, false
		}
		n = next
	}
	return n, true
}

// String returns the first path holding a non-blank string.
func (p Payload) String(paths ...string) (string, bool) {
	for _, path := range paths {
		n, ok := p.Lookup(path)
		if !ok {
			continue
		}
		if s, ok := n.Str(); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// Value returns the first path holding a non-null value, compacted.
func (p Payload) Value(paths ...string) (json.RawMessage, bool) {
	for _, path := range paths {
		n, ok := p.Lookup(path)
		if !ok || n.Kind() == jsondoc.KindNull {
			continue
		}
		return json.RawMessage(n.Compact()), true
	}
	return nil, false
}

// Bool returns the first path holding a boolean.
func (p Payload) Bool(paths ...string) (bool, bool) {
	for _, path := range paths {
		n, ok := p.Lookup(path)
		if !ok {
			continue
		}
		if b, ok := n.Bool(); ok {
			return b, true
		}
	}
	return false, false
}

// Number returns the source bytes of a numeric value at path.
func (p Payload) Number(path string) (json.RawMessage, bool) {
	n, ok := p.Lookup(path)
	if !ok || n.Kind() != jsondoc.KindNumber {
		return nil, false
	}
	return json.RawMessage(n.Raw()), true
}
