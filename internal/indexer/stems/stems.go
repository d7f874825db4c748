// Package stems holds the term id to stem lookup table. Position i of the
// table is the stem of term id i+1.
package stems

import (
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

type Table struct {
	stems []string
	first map[string]int
}

// New builds a table from stems in term-id order.
func New(stems []string) *Table {
	t := &Table{
		stems: stems,
		first: make(map[string]int, len(stems)),
	}
	for i, s := range stems {
		if _, seen := t.first[s]; !seen {
			t.first[s] = i + 1
		}
	}
	return t
}

func (t *Table) Len() int {
	return len(t.stems)
}

// Stem returns the display stem of a term id.
func (t *Table) Stem(termID int) (string, error) {
	if termID < 1 || termID > len(t.stems) {
		return "", apperrors.UnknownTerm(termID)
	}
	return t.stems[termID-1], nil
}

// StemOf resolves a term index key (decimal term id) to its stem.
func (t *Table) StemOf(key string) (string, error) {
	id, err := strconv.Atoi(key)
	if err != nil {
		return "", fmt.Errorf("term key %q: %w", key, apperrors.ErrUnknownTerm)
	}
	return t.Stem(id)
}

// TermID returns the id of the first position holding stem. Later duplicates
// of the same stem are never returned.
func (t *Table) TermID(stem string) (int, error) {
	id, ok := t.first[stem]
	if !ok {
		return 0, apperrors.UnknownStem(stem)
	}
	return id, nil
}

func (t *Table) MarshalJSON() ([]byte, error) {
	if t.stems == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.stems)
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var stems []string
	if err := json.Unmarshal(data, &stems); err != nil {
		return fmt.Errorf("decoding stem table: %w", err)
	}
	*t = *New(stems)
	return nil
}
