// Package content decodes structured content records into a small tagged
// union so that scanners can walk any JSON-like shape without reflecting on
// dynamic types.
package content

import "strconv"

// Kind tags a Node.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Entry is one key/value pair of a mapping.
type Entry struct {
	Key   string
	Value *Node
}

// Node is a mapping, a sequence, or a scalar. Scalars keep their textual
// form in Text.
type Node struct {
	Kind    Kind
	Text    string
	Entries []Entry
	Items   []*Node
}

// String returns a string scalar node.
func String(s string) *Node { return &Node{Kind: KindString, Text: s} }

// Number returns a number scalar node.
func Number(text string) *Node { return &Node{Kind: KindNumber, Text: text} }

// Bool returns a bool scalar node.
func Bool(b bool) *Node { return &Node{Kind: KindBool, Text: strconv.FormatBool(b)} }

// Null returns a null node.
func Null() *Node { return &Node{Kind: KindNull} }

// Seq returns a sequence node.
func Seq(items ...*Node) *Node { return &Node{Kind: KindSequence, Items: items} }

// Map returns a mapping node. Keys and values alternate in kv; a non-string
// key panics, so use it only with literals.
func Map(kv ...any) *Node {
	n := &Node{Kind: KindMapping}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Entries = append(n.Entries, Entry{Key: kv[i].(string), Value: kv[i+1].(*Node)})
	}
	return n
}

// StringValue returns the text of a string scalar.
func (n *Node) StringValue() (string, bool) {
	if n == nil || n.Kind != KindString {
		return "", false
	}
	return n.Text, true
}

// Get returns the value for key in a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindMapping {
		return nil, false
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Visitor is called for every key/value pair found while walking a tree.
type Visitor interface {
	VisitEntry(key string, value *Node)
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(key string, value *Node)

// VisitEntry calls f.
func (f VisitorFunc) VisitEntry(key string, value *Node) { f(key, value) }

// Walk visits every mapping entry in the tree rooted at n, depth first, and
// descends into every container whether or not the visitor used it.
func Walk(n *Node, v Visitor) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindMapping:
		for _, e := range n.Entries {
			v.VisitEntry(e.Key, e.Value)
			Walk(e.Value, v)
		}
	case KindSequence:
		for _, item := range n.Items {
			Walk(item, v)
		}
	}
}
