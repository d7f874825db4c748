package index

import (
	"iter"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

// Record is one parsed line (or one expanded pair of a line) from a corpus
// collaborator. Source and Line locate it for error messages.
type Record struct {
	Source string
	Line   int
	Fields []string
}

// Stream yields records in file order. A non-nil error ends the stream.
type Stream = iter.Seq2[Record, error]

// BuildCategories builds the category index from (category, document)
// records. Any malformed record aborts the build and no index is returned.
func BuildCategories(records Stream, universe *Universe) (*Inverted, error) {
	return Build(records, universe)
}

// Build builds an index from generic (key, document) records.
func Build(records Stream, universe *Universe) (*Inverted, error) {
	ix := newInverted(universe)
	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		key, doc, err := pairFields(rec)
		if err != nil {
			return nil, err
		}
		ix.add(key, doc)
	}
	ix.seal()
	return ix, nil
}

// BuildTerms builds the term index from (document, term id) records. Term
// ids must be positive integers; when maxTermID > 0 they must also be within
// [1, maxTermID]. Keys are the canonical decimal form of the id.
func BuildTerms(records Stream, universe *Universe, maxTermID int) (*Inverted, error) {
	ix := newInverted(universe)
	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		doc, term, err := pairFields(rec)
		if err != nil {
			return nil, err
		}
		id, err := strconv.Atoi(term)
		if err != nil || id < 1 {
			return nil, apperrors.Malformed(rec.Source, rec.Line, "term id %q is not a positive integer", term)
		}
		if maxTermID > 0 && id > maxTermID {
			return nil, apperrors.Malformed(rec.Source, rec.Line, "term id %d outside stem table range [1, %d]", id, maxTermID)
		}
		ix.add(strconv.Itoa(id), doc)
	}
	ix.seal()
	return ix, nil
}

func pairFields(rec Record) (string, string, error) {
	if len(rec.Fields) != 2 {
		return "", "", apperrors.Malformed(rec.Source, rec.Line, "expected 2 fields, got %d", len(rec.Fields))
	}
	first := strings.TrimSpace(rec.Fields[0])
	second := strings.TrimSpace(rec.Fields[1])
	if first == "" || second == "" {
		return "", "", apperrors.Malformed(rec.Source, rec.Line, "empty field in %q", strings.Join(rec.Fields, " "))
	}
	return first, second, nil
}

// Pairs adapts an in-memory pair slice into a Stream, mostly for callers
// that already hold parsed pairs.
func Pairs(source string, pairs [][]string) Stream {
	return func(yield func(Record, error) bool) {
		for i, fields := range pairs {
			if !yield(Record{Source: source, Line: i + 1, Fields: fields}, nil) {
				return
			}
		}
	}
}
