// Package index holds the two sparse inverted indices of a corpus: category
// to documents and term to documents. Keys keep their discovery order, which
// is the tie-break order of every ranked query.
package index

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Pair is one raw (key, document) observation from a collaborator stream.
type Pair struct {
	Key   string
	DocID string
}

// Inverted maps a key (category id or term id) to the set of documents that
// carry it. It is built once and only read afterwards.
type Inverted struct {
	universe *Universe
	keys     []string
	sets     map[string]*roaring.Bitmap
}

func newInverted(universe *Universe) *Inverted {
	return &Inverted{
		universe: universe,
		sets:     make(map[string]*roaring.Bitmap),
	}
}

func (ix *Inverted) add(key, docID string) {
	set, ok := ix.sets[key]
	if !ok {
		set = roaring.New()
		ix.sets[key] = set
		ix.keys = append(ix.keys, key)
	}
	set.Add(ix.universe.Intern(docID))
}

func (ix *Inverted) seal() {
	for _, set := range ix.sets {
		set.RunOptimize()
	}
}

// Keys returns keys in discovery order. The slice must not be modified.
func (ix *Inverted) Keys() []string {
	return ix.keys
}

func (ix *Inverted) Len() int {
	return len(ix.keys)
}

// Set returns the document set of key.
func (ix *Inverted) Set(key string) (*roaring.Bitmap, bool) {
	set, ok := ix.sets[key]
	return set, ok
}

// Cardinality returns the number of distinct documents under key.
func (ix *Inverted) Cardinality(key string) int {
	if set, ok := ix.sets[key]; ok {
		return int(set.GetCardinality())
	}
	return 0
}

// Contains reports whether docID is in key's set.
func (ix *Inverted) Contains(key, docID string) bool {
	set, ok := ix.sets[key]
	if !ok {
		return false
	}
	ord, known := ix.universe.Lookup(docID)
	return known && set.Contains(ord)
}

// Documents returns the document identifiers of key in ordinal order.
func (ix *Inverted) Documents(key string) []string {
	set, ok := ix.sets[key]
	if !ok {
		return nil
	}
	docs := make([]string, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		docs = append(docs, ix.universe.Name(it.Next()))
	}
	return docs
}

// DocCount is the number of distinct documents carrying at least one key.
func (ix *Inverted) DocCount() int {
	sets := make([]*roaring.Bitmap, 0, len(ix.sets))
	for _, set := range ix.sets {
		sets = append(sets, set)
	}
	return int(roaring.FastOr(sets...).GetCardinality())
}

func (ix *Inverted) Universe() *Universe {
	return ix.universe
}

// Flatten reconstructs the de-duplicated pair stream, keys in discovery order.
func (ix *Inverted) Flatten() []Pair {
	pairs := make([]Pair, 0, ix.pairCount())
	for _, key := range ix.keys {
		for _, doc := range ix.Documents(key) {
			pairs = append(pairs, Pair{Key: key, DocID: doc})
		}
	}
	return pairs
}

func (ix *Inverted) pairCount() int {
	n := 0
	for _, set := range ix.sets {
		n += int(set.GetCardinality())
	}
	return n
}

// MarshalJSON writes {"key": ["doc", ...], ...} with keys in discovery order.
func (ix *Inverted) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range ix.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		docs, err := json.Marshal(ix.Documents(key))
		if err != nil {
			return nil, fmt.Errorf("marshaling documents of %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(docs)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromJSON restores an index written by MarshalJSON into universe. JSON
// objects carry no key order guarantee once decoded into a map, so keys are
// read with a streaming decoder to keep the written order.
func FromJSON(data []byte, universe *Universe) (*Inverted, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading index object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("index JSON must be an object, got %v", tok)
	}
	ix := newInverted(universe)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading index key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("index key must be a string, got %v", tok)
		}
		var docs []string
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("reading documents of %q: %w", key, err)
		}
		if len(docs) == 0 {
			continue
		}
		for _, doc := range docs {
			ix.add(key, doc)
		}
	}
	ix.seal()
	return ix, nil
}
