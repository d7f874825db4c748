package executor

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/stems"
)

// benchCorpus builds 50 categories and 500 terms over 20 000 documents.
func benchCorpus(b *testing.B) *indexer.Corpus {
	b.Helper()
	const (
		docs       = 20000
		categories = 50
		terms      = 500
	)
	universe := index.NewUniverse()
	var catPairs, termPairs [][]string
	for d := 1; d <= docs; d++ {
		doc := strconv.Itoa(d)
		catPairs = append(catPairs, []string{fmt.Sprintf("C%02d", d%categories), doc})
		for j := 0; j < 5; j++ {
			termPairs = append(termPairs, []string{doc, strconv.Itoa((d*7+j*13)%terms + 1)})
		}
	}
	cats, err := index.BuildCategories(index.Pairs("qrels", catPairs), universe)
	if err != nil {
		b.Fatal(err)
	}
	ts, err := index.BuildTerms(index.Pairs("vectors", termPairs), universe, terms)
	if err != nil {
		b.Fatal(err)
	}
	list := make([]string, terms)
	for i := range list {
		list[i] = fmt.Sprintf("stem%d", i+1)
	}
	c, err := indexer.NewCorpus(cats, ts, stems.New(list))
	if err != nil {
		b.Fatal(err)
	}
	return c
}

func BenchmarkPair(b *testing.B) {
	e := New(benchCorpus(b))
	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := e.Pair("stem8", "C07"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTopTerms(b *testing.B) {
	e := New(benchCorpus(b))
	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := e.TopTerms("C07", 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMatrix(b *testing.B) {
	c := benchCorpus(b)
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			e := New(c, WithWorkers(workers))
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if _, err := e.Matrix(context.Background(), func(export.MatrixRow) error { return nil }); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
