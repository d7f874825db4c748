package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(t *testing.T, s index.Stream) [][]string {
	t.Helper()
	var out [][]string
	for rec, err := range s {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		out = append(out, rec.Fields)
	}
	return out
}

func TestCategoriesStripsRelevanceFlag(t *testing.T) {
	path := writeFile(t, "qrels.txt", "E14 1 1\nE21 2 1\n\nE14 3 1\n")
	got := collect(t, Categories(path, -1))
	want := [][]string{{"E14", "1"}, {"E21", "2"}, {"E14", "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
}

func TestCategoriesLineLimit(t *testing.T) {
	path := writeFile(t, "qrels.txt", "E14 1 1\nE21 2 1\nE14 3 1\n")
	if got := collect(t, Categories(path, 2)); len(got) != 2 {
		t.Errorf("Categories(limit=2) returned %d records, want 2", len(got))
	}
	if got := collect(t, Categories(path, 0)); len(got) != 0 {
		t.Errorf("Categories(limit=0) returned %d records, want 0", len(got))
	}
}

func TestCategoriesMalformedLineAbortsBuild(t *testing.T) {
	path := writeFile(t, "qrels.txt", "E14 1 1\nE21 2 3 4\n")
	_, err := index.BuildCategories(Categories(path, -1), index.NewUniverse())
	if !errors.Is(err, apperrors.ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestTermsExpandsLinesAcrossParts(t *testing.T) {
	p0 := writeFile(t, "pt0.txt", "1  5:0.12 6:0.33\n2  5:0.5\n")
	p1 := writeFile(t, "pt1.txt", "3  6:0.9\n")
	got := collect(t, Terms([]string{p0, p1}, -1))
	want := [][]string{{"1", "5"}, {"1", "6"}, {"2", "5"}, {"3", "6"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
}

func TestTermsMissingFile(t *testing.T) {
	var sawErr bool
	for _, err := range Terms([]string{filepath.Join(t.TempDir(), "missing")}, -1) {
		if err != nil {
			sawErr = true
		}
	}
	if !sawErr {
		t.Error("Terms(missing file) yielded no error")
	}
}

func TestStems(t *testing.T) {
	path := writeFile(t, "stems.txt", "alpha 1 3.2\nbeta 2 1.1\ngamma 3 0.4\n")
	got, err := Stems(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"alpha", "beta", "gamma"}) {
		t.Errorf("Stems() = %v", got)
	}
}
