// Package yamlfile stores the ledger document in a human-editable YAML file.
//
// The parsed yaml.Node tree is kept between Load and Save and updated in place,
// so comments and key order written by server owners survive every save.
// Writes go to a temporary file that is renamed over the original, which keeps
// the previous file intact if the process dies mid-write.
package yamlfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/repository"
	"economy-ledger/internal/util"
)

const (
	tagMap  = "!!map"
	tagStr  = "!!str"
	tagBool = "!!bool"
	tagNull = "!!null"
)

// Store implements repository.DocumentStore on a YAML file.
type Store struct {
	path string

	mu   sync.Mutex
	root *yaml.Node // document node from the last Load or Save
}

// New creates a Store for the file at path. Nothing is read until Load.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Load parses the file. A missing file is created empty; a file that exists but
// cannot be read or parsed is reported and left untouched.
func (s *Store) Load(_ context.Context) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.root = emptyRoot()
		if err := s.write(); err != nil {
			return nil, err
		}
		return domain.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", util.ErrStorageUnavailable, s.path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", util.ErrStorageUnavailable, s.path, err)
	}
	if root.Kind == 0 { // empty file
		root = *emptyRoot()
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 || !isMapping(root.Content[0]) {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping", util.ErrStorageUnavailable, s.path)
	}
	if root.Content[0].Kind == yaml.ScalarNode { // explicit null document
		root.Content[0] = &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
	}

	doc := domain.NewDocument()
	decodeMapping(root.Content[0], doc, nil)
	s.root = &root
	return doc, nil
}

// Save merges doc into the retained node tree and rewrites the file.
func (s *Store) Save(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == nil {
		s.root = emptyRoot()
	}
	mapping := s.root.Content[0]
	doc.Walk(func(path []string, value string) {
		setScalar(mapping, path, value)
	})
	return s.write()
}

// write encodes the node tree and atomically replaces the file.
func (s *Store) write() error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s.root); err != nil {
		return fmt.Errorf("%w: failed to encode %s: %w", util.ErrStorageUnavailable, s.path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: failed to encode %s: %w", util.ErrStorageUnavailable, s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory for %s: %w", util.ErrStorageUnavailable, s.path, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", util.ErrStorageUnavailable, tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: failed to replace %s: %w", util.ErrStorageUnavailable, s.path, err)
	}
	return nil
}

func emptyRoot() *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: tagMap}},
	}
}

func isMapping(n *yaml.Node) bool {
	return n.Kind == yaml.MappingNode || (n.Kind == yaml.ScalarNode && n.Tag == tagNull)
}

// decodeMapping copies every scalar below n into doc. Nulls and sequences are skipped.
func decodeMapping(n *yaml.Node, doc *domain.Document, path []string) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i].Value, resolve(n.Content[i+1])
		childPath := append(append([]string(nil), path...), key)
		switch value.Kind {
		case yaml.MappingNode:
			decodeMapping(value, doc, childPath)
		case yaml.ScalarNode:
			if value.Tag != tagNull {
				doc.Set(value.Value, childPath...)
			}
		}
	}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// lookup returns the value node for key in mapping n.
func lookup(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// setScalar writes value at path, keeping existing nodes (and their comments) in place.
func setScalar(mapping *yaml.Node, path []string, value string) {
	cur := mapping
	for i, key := range path {
		last := i == len(path)-1
		child := lookup(cur, key)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
			if last {
				child = newScalar(value)
			}
			cur.Content = append(cur.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: key}, child)
		}
		if last {
			updateScalar(child, value)
			return
		}
		if child.Kind != yaml.MappingNode {
			*child = yaml.Node{Kind: yaml.MappingNode, Tag: tagMap, HeadComment: child.HeadComment, LineComment: child.LineComment}
		}
		cur = child
	}
}

func newScalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagFor(value), Value: value}
}

func updateScalar(n *yaml.Node, value string) {
	if n.Kind != yaml.ScalarNode {
		*n = yaml.Node{Kind: yaml.ScalarNode, HeadComment: n.HeadComment, LineComment: n.LineComment}
	}
	if tag := tagFor(value); n.Tag != tag {
		n.Tag = tag
		n.Style = 0
	}
	n.Value = value
}

// tagFor keeps flags as YAML booleans and everything else, balances included, as strings.
func tagFor(value string) string {
	if value == "true" || value == "false" {
		return tagBool
	}
	return tagStr
}

// Compile-time check: ensure Store implements DocumentStore interface
var _ repository.DocumentStore = (*Store)(nil)
