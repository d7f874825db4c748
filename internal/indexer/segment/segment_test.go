package segment

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/index"
)

func buildIndex(t *testing.T) *index.Inverted {
	t.Helper()
	ix, err := index.BuildCategories(index.Pairs("qrels", [][]string{
		{"E21", "2"}, {"E14", "1"}, {"E21", "3"}, {"E14", "2"}, {"C11", "9"},
	}), index.NewUniverse())
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ix := buildIndex(t)

	path, err := NewWriter(dir).Write("categories.spdx", ix)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if r.Keys() != 3 {
		t.Errorf("Keys() = %d, want 3", r.Keys())
	}
	if r.DocCount() != 4 {
		t.Errorf("DocCount() = %d, want 4", r.DocCount())
	}
	restored, err := r.Load(index.NewUniverse())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(restored.Keys(), ix.Keys()) {
		t.Errorf("restored Keys() = %v, want %v", restored.Keys(), ix.Keys())
	}
	for _, key := range ix.Keys() {
		if restored.Cardinality(key) != ix.Cardinality(key) {
			t.Errorf("Cardinality(%s) = %d, want %d", key, restored.Cardinality(key), ix.Cardinality(key))
		}
	}
}

func TestOpenReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir).Write("c.spdx", buildIndex(t))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the dictionary, just before the footer.
	data[len(data)-FooterSize-2] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(path); err == nil {
		t.Fatal("OpenReader(corrupt) = nil error")
	}
}

func TestOpenReaderBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.spdx")
	if err := os.WriteFile(path, make([]byte, HeaderSize+FooterSize), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(path); err == nil {
		t.Fatal("OpenReader(bad magic) = nil error")
	}
}

func TestWriteEmptyIndex(t *testing.T) {
	empty, err := index.BuildCategories(index.Pairs("qrels", nil), index.NewUniverse())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewWriter(t.TempDir()).Write("e.spdx", empty); err == nil {
		t.Fatal("Write(empty) = nil error")
	}
}

func TestLoadRejectsHeaderCountMismatch(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir).Write("c.spdx", buildIndex(t))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// The header document count sits at bytes 12..16 and is not covered by
	// the dictionary checksum.
	binary.LittleEndian.PutUint32(data[12:16], 7)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	if _, err := r.Load(index.NewUniverse()); err == nil {
		t.Error("Load with a wrong header document count returned nil error")
	}
}
