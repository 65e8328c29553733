// Package jsondoc is an order-preserving JSON document tree.
//
// Agent settings files are owned by the user. Editing them through
// map[string]any would reorder keys and reformat numbers, so documents are
// decoded into a Node tree that keeps member order, the exact source bytes of
// every scalar and the whitespace between tokens. Encode writes untouched
// parts back byte for byte; members added after parsing follow the layout of
// their siblings, or the indent and line ending detected from the file.
package jsondoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-faster/jx"
)

// Kind is the JSON type of a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ErrTrailingData is returned when bytes follow the root value.
var ErrTrailingData = errors.New("unexpected data after top-level value")

// Node is one JSON value.
type Node struct {
	kind Kind

	// raw holds the source bytes of scalars (strings keep their quotes and escapes).
	raw []byte
	str string

	keys  []string
	vals  []*Node
	items []*Node

	// Layout captured by Parse. Nodes added after parsing have placed unset
	// and Encode lays them out from their siblings or the Format.
	placed bool
	lead   []byte // whitespace before the value, or before the key of a member
	keyRaw []byte // source bytes of the member key
	sep    []byte // everything between the key and the value, colon included
	tail   []byte // whitespace between the value and the following comma
	close  []byte // whitespace before the closing bracket
	parsed bool   // container read from source with at least one child

	root              bool
	docLead, docTrail []byte
}

// Parse decodes data into a Node tree. The tree remembers the whitespace
// around every value, so encoding an unmodified tree reproduces data.
func Parse(data []byte) (*Node, error) {
	d := jx.DecodeBytes(data)
	if err := d.Skip(); err != nil {
		return nil, err
	}
	if d.Next() != jx.Invalid {
		return nil, ErrTrailingData
	}

	p := &parser{data: data}
	lead := p.space()
	n, err := p.value()
	if err != nil {
		return nil, err
	}
	n.root = true
	n.docLead = lead
	n.docTrail = p.space()
	if p.pos != len(data) {
		return nil, ErrTrailingData
	}
	return n, nil
}

// parser walks input that jx has already validated, recording offsets.
type parser struct {
	data []byte
	pos  int
}

func (p *parser) space() []byte {
	start := p.pos
	for p.pos < len(p.data) && isSpace(p.data[p.pos]) {
		p.pos++
	}
	return copyBytes(p.data[start:p.pos])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (p *parser) peek() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	return p.data[p.pos], nil
}

func (p *parser) expect(c byte) error {
	got, err := p.peek()
	if err != nil {
		return err
	}
	if got != c {
		return fmt.Errorf("offset %d: expected %q, found %q", p.pos, c, got)
	}
	p.pos++
	return nil
}

func (p *parser) value() (*Node, error) {
	c, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch c {
	case '{':
		return p.object()
	case '[':
		return p.array()
	default:
		return p.scalar()
	}
}

func (p *parser) object() (*Node, error) {
	n := &Node{kind: KindObject}
	p.pos++
	lead := p.space()
	if c, err := p.peek(); err == nil && c == '}' {
		p.pos++
		n.close = lead
		return n, nil
	}
	n.parsed = true
	for {
		key, err := p.scalar()
		if err != nil {
			return nil, err
		}
		if key.kind != KindString {
			return nil, fmt.Errorf("offset %d: object key is not a string", p.pos)
		}
		sepStart := p.pos
		p.space()
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		p.space()
		sep := copyBytes(p.data[sepStart:p.pos])

		v, err := p.value()
		if err != nil {
			return nil, fmt.Errorf("%q: %w", key.str, err)
		}
		v.placed, v.lead, v.keyRaw, v.sep = true, lead, key.raw, sep
		n.keys = append(n.keys, key.str)
		n.vals = append(n.vals, v)

		gap := p.space()
		c, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch c {
		case ',':
			p.pos++
			v.tail = gap
			lead = p.space()
		case '}':
			p.pos++
			n.close = gap
			return n, nil
		default:
			return nil, fmt.Errorf("offset %d: unexpected %q in object", p.pos, c)
		}
	}
}

func (p *parser) array() (*Node, error) {
	n := &Node{kind: KindArray}
	p.pos++
	lead := p.space()
	if c, err := p.peek(); err == nil && c == ']' {
		p.pos++
		n.close = lead
		return n, nil
	}
	n.parsed = true
	for {
		v, err := p.value()
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", len(n.items), err)
		}
		v.placed, v.lead = true, lead
		n.items = append(n.items, v)

		gap := p.space()
		c, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch c {
		case ',':
			p.pos++
			v.tail = gap
			lead = p.space()
		case ']':
			p.pos++
			n.close = gap
			return n, nil
		default:
			return nil, fmt.Errorf("offset %d: unexpected %q in array", p.pos, c)
		}
	}
}

func (p *parser) scalar() (*Node, error) {
	d := jx.DecodeBytes(p.data[p.pos:])
	typ := d.Next()
	raw, err := d.Raw()
	if err != nil {
		return nil, err
	}
	p.pos += len(raw)
	raw = copyBytes(raw)
	switch typ {
	case jx.String:
		s, err := jx.DecodeBytes(raw).Str()
		if err != nil {
			return nil, err
		}
		return &Node{kind: KindString, raw: raw, str: s}, nil
	case jx.Number:
		return &Node{kind: KindNumber, raw: raw}, nil
	case jx.Bool:
		return &Node{kind: KindBool, raw: raw}, nil
	case jx.Null:
		return &Node{kind: KindNull, raw: raw}, nil
	default:
		return nil, errors.New("invalid JSON value")
	}
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

// NewObject returns an empty object.
func NewObject() *Node { return &Node{kind: KindObject} }

// NewArray returns an array holding items.
func NewArray(items ...*Node) *Node {
	return &Node{kind: KindArray, items: append([]*Node(nil), items...)}
}

// NewString returns a string node.
func NewString(s string) *Node {
	var e jx.Encoder
	e.Str(s)
	return &Node{kind: KindString, raw: copyBytes(e.Bytes()), str: s}
}

// NewBool returns a boolean node.
func NewBool(b bool) *Node {
	if b {
		return &Node{kind: KindBool, raw: []byte("true")}
	}
	return &Node{kind: KindBool, raw: []byte("false")}
}

// Kind reports the node type.
func (n *Node) Kind() Kind { return n.kind }

// Str returns the decoded value of a string node.
func (n *Node) Str() (string, bool) {
	if n == nil || n.kind != KindString {
		return "", false
	}
	return n.str, true
}

// Bool returns the value of a boolean node.
func (n *Node) Bool() (value, ok bool) {
	if n == nil || n.kind != KindBool {
		return false, false
	}
	return bytes.Equal(n.raw, []byte("true")), true
}

// Raw returns the source bytes of a scalar node, or nil for containers.
func (n *Node) Raw() []byte {
	if n == nil {
		return nil
	}
	return n.raw
}

// Len is the number of object members or array items.
func (n *Node) Len() int {
	switch n.kind {
	case KindObject:
		return len(n.keys)
	case KindArray:
		return len(n.items)
	default:
		return 0
	}
}

// Keys returns object member names in document order.
func (n *Node) Keys() []string {
	return append([]string(nil), n.keys...)
}

// Get returns the first member named key.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.kind != KindObject {
		return nil, false
	}
	for i, k := range n.keys {
		if k == key {
			return n.vals[i], true
		}
	}
	return nil, false
}

// Set replaces the member named key in place, or appends it.
func (n *Node) Set(key string, v *Node) {
	for i, k := range n.keys {
		if k == key {
			if old := n.vals[i]; old != v {
				v.placed, v.lead, v.keyRaw, v.sep, v.tail = old.placed, old.lead, old.keyRaw, old.sep, old.tail
				n.vals[i] = v
			}
			return
		}
	}
	n.keys = append(n.keys, key)
	n.vals = append(n.vals, v)
}

// Delete removes every member named key and reports whether any existed.
func (n *Node) Delete(key string) bool {
	found := false
	keys := n.keys[:0]
	vals := n.vals[:0]
	for i, k := range n.keys {
		if k == key {
			found = true
			continue
		}
		keys = append(keys, k)
		vals = append(vals, n.vals[i])
	}
	n.keys, n.vals = keys, vals
	return found
}

// Items returns array items. The slice aliases the node; use SetItems to change it.
func (n *Node) Items() []*Node {
	if n == nil || n.kind != KindArray {
		return nil
	}
	return n.items
}

// Append adds v to the end of an array.
func (n *Node) Append(v *Node) { n.items = append(n.items, v) }

// SetItems replaces the array contents.
func (n *Node) SetItems(items []*Node) { n.items = items }
