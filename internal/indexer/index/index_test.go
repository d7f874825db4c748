package index

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

func TestBuildCategoriesKeepsDiscoveryOrder(t *testing.T) {
	u := NewUniverse()
	ix, err := BuildCategories(Pairs("qrels", [][]string{
		{"E21", "2"}, {"E14", "1"}, {"E21", "3"}, {"E14", "2"}, {"E21", "4"}, {"E14", "3"},
	}), u)
	if err != nil {
		t.Fatalf("BuildCategories: %v", err)
	}
	if got := ix.Keys(); !reflect.DeepEqual(got, []string{"E21", "E14"}) {
		t.Errorf("Keys() = %v, want [E21 E14]", got)
	}
	if got := ix.Cardinality("E14"); got != 3 {
		t.Errorf("Cardinality(E14) = %d, want 3", got)
	}
	if !ix.Contains("E21", "4") || ix.Contains("E14", "4") {
		t.Error("Contains returned wrong membership for document 4")
	}
	if ix.Contains("E14", "never-seen") {
		t.Error("Contains(unknown document) = true")
	}
}

func TestBuildDeduplicatesWithinKey(t *testing.T) {
	ix, err := BuildCategories(Pairs("qrels", [][]string{
		{"C11", "9"}, {"C11", "9"}, {"C11", "10"},
	}), NewUniverse())
	if err != nil {
		t.Fatal(err)
	}
	if got := ix.Cardinality("C11"); got != 2 {
		t.Errorf("Cardinality(C11) = %d, want 2 (duplicate counted once)", got)
	}
}

func TestBuildRejectsMalformedRecord(t *testing.T) {
	tests := []struct {
		name  string
		pairs [][]string
	}{
		{"too few", [][]string{{"E14", "1"}, {"E14"}}},
		{"too many", [][]string{{"E14", "1", "extra"}}},
		{"empty field", [][]string{{"", "1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := BuildCategories(Pairs("qrels", tt.pairs), NewUniverse())
			if !errors.Is(err, apperrors.ErrMalformedRecord) {
				t.Fatalf("err = %v, want ErrMalformedRecord", err)
			}
			if ix != nil {
				t.Error("partial index returned alongside MalformedRecord")
			}
		})
	}
}

func TestBuildTermsValidatesIDs(t *testing.T) {
	u := NewUniverse()
	ix, err := BuildTerms(Pairs("vectors", [][]string{{"1", "05"}, {"2", "5"}, {"3", "6"}}), u, 6)
	if err != nil {
		t.Fatalf("BuildTerms: %v", err)
	}
	if got := ix.Keys(); !reflect.DeepEqual(got, []string{"5", "6"}) {
		t.Errorf("Keys() = %v, want canonical [5 6]", got)
	}
	if got := ix.Cardinality("5"); got != 2 {
		t.Errorf("Cardinality(5) = %d, want 2", got)
	}

	for _, bad := range []string{"abc", "0", "-3", "7"} {
		_, err := BuildTerms(Pairs("vectors", [][]string{{"1", bad}}), NewUniverse(), 6)
		if !errors.Is(err, apperrors.ErrMalformedRecord) {
			t.Errorf("term %q: err = %v, want ErrMalformedRecord", bad, err)
		}
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	input := [][]string{{"E14", "1"}, {"E14", "2"}, {"E21", "2"}, {"E14", "1"}, {"E21", "3"}}
	ix, err := BuildCategories(Pairs("qrels", input), NewUniverse())
	if err != nil {
		t.Fatal(err)
	}
	got := ix.Flatten()
	want := []Pair{{"E14", "1"}, {"E14", "2"}, {"E21", "2"}, {"E21", "3"}}
	sortPairs(got)
	sortPairs(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}

	rebuilt, err := BuildCategories(pairStream(got), NewUniverse())
	if err != nil {
		t.Fatal(err)
	}
	again := rebuilt.Flatten()
	sortPairs(again)
	if !reflect.DeepEqual(again, want) {
		t.Errorf("rebuilt Flatten() = %v, want %v", again, want)
	}
}

func TestJSONRoundTripPreservesOrder(t *testing.T) {
	ix, err := BuildCategories(Pairs("qrels", [][]string{{"Z1", "a"}, {"A1", "b"}, {"Z1", "c"}}), NewUniverse())
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(ix)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"Z1":["a","c"],"A1":["b"]}` {
		t.Errorf("Marshal = %s", data)
	}
	back, err := FromJSON(data, NewUniverse())
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !reflect.DeepEqual(back.Keys(), []string{"Z1", "A1"}) {
		t.Errorf("Keys() after round trip = %v", back.Keys())
	}
	if !reflect.DeepEqual(back.Documents("Z1"), []string{"a", "c"}) {
		t.Errorf("Documents(Z1) = %v", back.Documents("Z1"))
	}
}

func TestUniverseSharedAcrossIndices(t *testing.T) {
	u := NewUniverse()
	cats, _ := BuildCategories(Pairs("qrels", [][]string{{"E14", "1"}, {"E14", "2"}}), u)
	terms, _ := BuildTerms(Pairs("vectors", [][]string{{"2", "5"}, {"3", "5"}}), u, 0)
	cs, _ := cats.Set("E14")
	ts, _ := terms.Set("5")
	if got := cs.AndCardinality(ts); got != 1 {
		t.Errorf("intersection = %d, want 1", got)
	}
	if u.Len() != 3 {
		t.Errorf("Universe.Len() = %d, want 3", u.Len())
	}
}

func pairStream(pairs []Pair) Stream {
	fields := make([][]string, len(pairs))
	for i, p := range pairs {
		fields[i] = []string{p.Key, p.DocID}
	}
	return Pairs("flattened", fields)
}

func sortPairs(p []Pair) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Key != p[j].Key {
			return p[i].Key < p[j].Key
		}
		return p[i].DocID < p[j].DocID
	})
}

func TestDocCount(t *testing.T) {
	ix, err := BuildCategories(Pairs("qrels", [][]string{
		{"E14", "1"}, {"E14", "2"}, {"E21", "2"}, {"E21", "3"}, {"C11", "3"},
	}), NewUniverse())
	if err != nil {
		t.Fatal(err)
	}
	if got := ix.DocCount(); got != 3 {
		t.Errorf("DocCount() = %d, want 3", got)
	}
}
