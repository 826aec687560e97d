package content

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrUnsupported is returned for files whose extension has no decoder.
var ErrUnsupported = errors.New("unsupported content format")

// DefaultExtensions are the record formats scanned when none are configured.
var DefaultExtensions = []string{".json", ".yaml", ".yml", ".md", ".mdx"}

// Supported reports whether ext (with leading dot) has a decoder.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".json", ".yaml", ".yml", ".md", ".mdx":
		return true
	}
	return false
}

// DecodeFile reads and decodes the record at path, choosing the decoder by
// extension.
func DecodeFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	n, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Decode parses data according to ext.
func Decode(ext string, data []byte) (*Node, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return DecodeJSON(data)
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".md", ".mdx":
		return DecodeFrontmatter(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

// DecodeJSON parses a JSON document. Syntax errors are returned as is.
// Object keys come back sorted since JSON objects carry no order.
func DecodeJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to parse JSON: unexpected data after top-level value")
	}
	return fromJSON(v), nil
}

// fromJSON is the only place the decoded value's dynamic type is inspected.
func fromJSON(v any) *Node {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case json.Number:
		return Number(t.String())
	case []any:
		n := &Node{Kind: KindSequence, Items: make([]*Node, 0, len(t))}
		for _, item := range t {
			n.Items = append(n.Items, fromJSON(item))
		}
		return n
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &Node{Kind: KindMapping, Entries: make([]Entry, 0, len(t))}
		for _, k := range keys {
			n.Entries = append(n.Entries, Entry{Key: k, Value: fromJSON(t[k])})
		}
		return n
	}
	return Null()
}

// DecodeYAML parses a YAML document, keeping mapping order. An empty
// document decodes to an empty mapping.
func DecodeYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind == 0 {
		return &Node{Kind: KindMapping}, nil
	}
	return fromYAML(&doc), nil
}

func fromYAML(y *yaml.Node) *Node {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &Node{Kind: KindMapping}
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		if y.Alias == nil {
			return Null()
		}
		return fromYAML(y.Alias)
	case yaml.SequenceNode:
		n := &Node{Kind: KindSequence, Items: make([]*Node, 0, len(y.Content))}
		for _, c := range y.Content {
			n.Items = append(n.Items, fromYAML(c))
		}
		return n
	case yaml.MappingNode:
		n := &Node{Kind: KindMapping, Entries: make([]Entry, 0, len(y.Content)/2)}
		for i := 0; i+1 < len(y.Content); i += 2 {
			n.Entries = append(n.Entries, Entry{Key: y.Content[i].Value, Value: fromYAML(y.Content[i+1])})
		}
		return n
	case yaml.ScalarNode:
		switch y.ShortTag() {
		case "!!null":
			return Null()
		case "!!bool":
			return &Node{Kind: KindBool, Text: y.Value}
		case "!!int", "!!float":
			return Number(y.Value)
		}
		return String(y.Value)
	}
	return Null()
}

var fence = []byte("---")

// DecodeFrontmatter parses the YAML frontmatter of a Markdown file. A file
// without frontmatter is an empty record, and so is one whose opening ---
// is never closed, since that is a horizontal rule rather than a fence.
func DecodeFrontmatter(data []byte) (*Node, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(data, fence) {
		return &Node{Kind: KindMapping}, nil
	}

	rest := data[len(fence):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return &Node{Kind: KindMapping}, nil
	}
	rest = rest[nl+1:]

	end := closingFence(rest)
	if end < 0 {
		return &Node{Kind: KindMapping}, nil
	}
	n, err := DecodeYAML(rest[:end])
	if err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return n, nil
}

// closingFence returns the offset of the line holding the closing ---.
func closingFence(b []byte) int {
	offset := 0
	for offset <= len(b) {
		line := b[offset:]
		nl := bytes.IndexByte(line, '\n')
		if nl >= 0 {
			line = line[:nl]
		}
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), fence) {
			return offset
		}
		if nl < 0 {
			return -1
		}
		offset += nl + 1
	}
	return -1
}
