package jsondoc

import (
	"bytes"

	"github.com/go-faster/jx"
)

// Format controls how Encode lays out nodes that carry no source layout.
type Format struct {
	// Indent is the per-level indentation. Empty means compact output.
	Indent string
	// Newline is the line ending. Empty means "\n".
	Newline string
	// TrailingNewline appends a line ending after a root value built in memory.
	// Parsed roots keep whatever followed them in the source.
	TrailingNewline bool
}

// DefaultFormat matches the files Claude Code writes itself.
var DefaultFormat = Format{Indent: "  ", TrailingNewline: false}

func (f Format) eol() string {
	if f.Newline == "" {
		return "\n"
	}
	return f.Newline
}

// DetectFormat infers the indentation unit, line ending and trailing newline
// of data. Documents without any line break are treated as compact. Unknown
// or empty input yields DefaultFormat.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return DefaultFormat
	}
	f := Format{TrailingNewline: bytes.HasSuffix(data, []byte("\n"))}
	if bytes.Contains(data, []byte("\r\n")) {
		f.Newline = "\r\n"
	}

	nl := bytes.IndexByte(trimmed, '\n')
	if nl < 0 {
		if len(trimmed) <= 2 {
			// "{}" carries no layout information.
			f.Indent = DefaultFormat.Indent
		}
		return f
	}
	// The first indented line is at depth one.
	for _, line := range bytes.Split(trimmed[nl+1:], []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		ws := leadingSpace(line)
		if len(ws) > 0 && len(ws) < len(line) {
			f.Indent = string(ws)
			return f
		}
	}
	f.Indent = DefaultFormat.Indent
	return f
}

func leadingSpace(line []byte) []byte {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

// Encode serializes the tree. Parsed parts are written back with their
// original whitespace; everything added since is laid out with f.
func (n *Node) Encode(f Format) []byte {
	var buf bytes.Buffer
	if n.root {
		buf.Write(n.docLead)
		n.write(&buf, f, "")
		buf.Write(n.docTrail)
		return buf.Bytes()
	}
	n.write(&buf, f, "")
	if f.TrailingNewline {
		buf.WriteString(f.eol())
	}
	return buf.Bytes()
}

// Compact serializes the tree without whitespace, ignoring source layout.
func (n *Node) Compact() []byte {
	var buf bytes.Buffer
	n.writeCompact(&buf)
	return buf.Bytes()
}

// write emits n. prefix is the indentation of the line n starts on.
func (n *Node) write(buf *bytes.Buffer, f Format, prefix string) {
	var open, shut byte
	switch n.kind {
	case KindObject:
		open, shut = '{', '}'
	case KindArray:
		open, shut = '[', ']'
	default:
		buf.Write(n.raw)
		return
	}

	children := n.children()
	buf.WriteByte(open)
	if len(children) == 0 {
		if !n.parsed {
			// Keeps "{ }" as written; a container emptied by edits collapses.
			buf.Write(n.close)
		}
		buf.WriteByte(shut)
		return
	}
	for i, c := range children {
		if i > 0 {
			buf.WriteByte(',')
		}
		lead := c.lead
		if !c.placed {
			lead = n.leadFor(i, f, prefix)
		}
		buf.Write(lead)
		if n.kind == KindObject {
			if c.placed {
				buf.Write(c.keyRaw)
				buf.Write(c.sep)
			} else {
				writeKey(buf, n.keys[i])
				buf.Write(n.sepFor(i, f))
			}
		}
		c.write(buf, f, linePrefix(lead, prefix))
		if i < len(children)-1 && c.placed {
			buf.Write(c.tail)
		}
	}
	if n.parsed {
		buf.Write(n.close)
	} else if f.Indent != "" {
		buf.WriteString(f.eol())
		buf.WriteString(prefix)
	}
	buf.WriteByte(shut)
}

func (n *Node) children() []*Node {
	if n.kind == KindObject {
		return n.vals
	}
	return n.items
}

// leadFor lays out an added child like its nearest placed sibling.
func (n *Node) leadFor(i int, f Format, prefix string) []byte {
	if s := n.placedSibling(i); s != nil {
		return s.lead
	}
	if f.Indent == "" {
		return nil
	}
	return []byte(f.eol() + prefix + f.Indent)
}

func (n *Node) sepFor(i int, f Format) []byte {
	if s := n.placedSibling(i); s != nil {
		return s.sep
	}
	if f.Indent == "" {
		return []byte(":")
	}
	return []byte(": ")
}

// placedSibling prefers the closest earlier sibling read from source, then
// falls back to the first one after i.
func (n *Node) placedSibling(i int) *Node {
	children := n.children()
	for j := i - 1; j >= 0; j-- {
		if children[j].placed {
			return children[j]
		}
	}
	for j := i + 1; j < len(children); j++ {
		if children[j].placed {
			return children[j]
		}
	}
	return nil
}

// linePrefix is the indentation of the line a value starts on after lead.
func linePrefix(lead []byte, prefix string) string {
	if nl := bytes.LastIndexByte(lead, '\n'); nl >= 0 {
		return string(lead[nl+1:])
	}
	return prefix
}

func (n *Node) writeCompact(buf *bytes.Buffer) {
	switch n.kind {
	case KindObject:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeKey(buf, k)
			buf.WriteByte(':')
			n.vals[i].writeCompact(buf)
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, v := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			v.writeCompact(buf)
		}
		buf.WriteByte(']')
	default:
		buf.Write(n.raw)
	}
}

func writeKey(buf *bytes.Buffer, k string) {
	var e jx.Encoder
	e.Str(k)
	buf.Write(e.Bytes())
}
