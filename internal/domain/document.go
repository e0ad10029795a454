// internal/domain/document.go
package domain

import "sort"

// Document is the in-memory mirror of the persisted ledger: a tree of named
// nodes whose leaves hold scalar string values. Paths are given as segments,
// e.g. ("069a79f4-44e9-4726-a5be-fca90e38aaf5", "dollar-balance").
//
// A Document is not safe for concurrent use; the ledger guards its own copy.
type Document struct {
	root *docNode
}

type docNode struct {
	value    string
	leaf     bool
	children map[string]*docNode
}

// NewDocument creates an empty Document.
func NewDocument() *Document {
	return &Document{root: &docNode{}}
}

func (d *Document) find(path []string) *docNode {
	n := d.root
	for _, key := range path {
		if n.leaf || n.children == nil {
			return nil
		}
		next, ok := n.children[key]
		if !ok {
			return nil
		}
		n = next
	}
	return n
}

// Get returns the scalar stored at path.
func (d *Document) Get(path ...string) (string, bool) {
	n := d.find(path)
	if n == nil || !n.leaf {
		return "", false
	}
	return n.value, true
}

// Has reports whether any node, scalar or not, exists at path.
func (d *Document) Has(path ...string) bool {
	if len(path) == 0 {
		return true
	}
	return d.find(path) != nil
}

// Set stores value at path, creating intermediate nodes. A scalar found on the
// way is replaced by an inner node.
func (d *Document) Set(value string, path ...string) {
	if len(path) == 0 {
		return
	}
	n := d.root
	for _, key := range path {
		if n.leaf {
			n.leaf, n.value = false, ""
		}
		if n.children == nil {
			n.children = make(map[string]*docNode)
		}
		next, ok := n.children[key]
		if !ok {
			next = &docNode{}
			n.children[key] = next
		}
		n = next
	}
	n.leaf, n.value, n.children = true, value, nil
}

// Keys returns the sorted child names under path.
func (d *Document) Keys(path ...string) []string {
	n := d.find(path)
	if n == nil || n.leaf {
		return nil
	}
	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	return len(d.root.children)
}

// Walk visits every scalar in key order. The path slice is only valid during the call.
func (d *Document) Walk(fn func(path []string, value string)) {
	var walk func(n *docNode, path []string)
	walk = func(n *docNode, path []string) {
		if n.leaf {
			fn(path, n.value)
			return
		}
		keys := make([]string, 0, len(n.children))
		for k := range n.children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(n.children[k], append(path, k))
		}
	}
	walk(d.root, nil)
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	return &Document{root: d.root.clone()}
}

func (n *docNode) clone() *docNode {
	c := &docNode{value: n.value, leaf: n.leaf}
	if n.children != nil {
		c.children = make(map[string]*docNode, len(n.children))
		for k, child := range n.children {
			c.children[k] = child.clone()
		}
	}
	return c
}
