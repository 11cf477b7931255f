// Package frontmatter splits markdown documents into a YAML header block and
// a body, decodes the header into an ordered value tree, and renders a header
// back into the same `---` fenced form.
package frontmatter

import (
	"bytes"
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const fence = "---\n"

// blockPattern matches a leading `---` line, the header content, a closing
// `---` line and the remaining body. The closing fence must end in a newline.
var blockPattern = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n(.*)\z`)

// Document is a markdown file split into its header and body
type Document struct {
	Header *Map
	Body   string
	// HasHeader is false when no fenced block was found
	HasHeader bool
}

// Split separates the header block from the body without decoding it.
// ok is false when content does not start with a well-formed fenced block.
func Split(content string) (block, body string, ok bool) {
	m := blockPattern.FindStringSubmatch(content)
	if m == nil {
		return "", content, false
	}
	return m[1], m[2], true
}

// Parse extracts the header and body from content. A missing or malformed
// fence is not an error: the header is empty and the body is the whole
// content. Invalid YAML inside a well-formed fence is an error.
func Parse(content string) (*Document, error) {
	block, body, ok := Split(content)
	if !ok {
		return &Document{Header: NewMap(), Body: content}, nil
	}

	header, err := decodeHeader(block)
	if err != nil {
		return nil, err
	}

	return &Document{Header: header, Body: body, HasHeader: true}, nil
}

func decodeHeader(block string) (*Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(block), &root); err != nil {
		return nil, errors.Wrap(err, "failed to parse front matter")
	}

	v, err := fromNode(&root, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode front matter")
	}

	switch v.Kind() {
	case KindNull:
		return NewMap(), nil
	case KindMap:
		m, _ := v.AsMap()
		return m, nil
	default:
		return nil, errors.Errorf("front matter must be a mapping, got %s", v.Kind())
	}
}

// Render writes header as a fenced YAML block followed by body. Keys are
// emitted in lexical order at every level.
func Render(header *Map, body string) ([]byte, error) {
	if header == nil {
		header = NewMap()
	}

	data, err := Marshal(header)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(fence)*2 + len(data) + len(body))
	buf.WriteString(fence)
	buf.Write(data)
	buf.WriteString(fence)
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// Marshal encodes header as block-style YAML with two-space indentation and sorted keys
func Marshal(header *Map) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(header.Sorted()); err != nil {
		return nil, errors.Wrap(err, "failed to encode front matter")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode front matter")
	}
	return buf.Bytes(), nil
}

// String renders the document back into file form
func (d *Document) String() string {
	out, err := Render(d.Header, d.Body)
	if err != nil {
		return d.Body
	}
	return string(out)
}
