package stems

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

func TestStemLookup(t *testing.T) {
	tab := New([]string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"})

	stem, err := tab.Stem(5)
	if err != nil || stem != "epsilon" {
		t.Errorf("Stem(5) = %q, %v; want epsilon", stem, err)
	}
	id, err := tab.TermID("zeta")
	if err != nil || id != 6 {
		t.Errorf("TermID(zeta) = %d, %v; want 6", id, err)
	}
	if _, err := tab.Stem(0); !errors.Is(err, apperrors.ErrUnknownTerm) {
		t.Errorf("Stem(0) err = %v, want ErrUnknownTerm", err)
	}
	if _, err := tab.Stem(7); !errors.Is(err, apperrors.ErrUnknownTerm) {
		t.Errorf("Stem(7) err = %v, want ErrUnknownTerm", err)
	}
	if _, err := tab.TermID("omega"); !errors.Is(err, apperrors.ErrUnknownStem) {
		t.Errorf("TermID(omega) err = %v, want ErrUnknownStem", err)
	}
	if _, err := tab.StemOf("x"); !errors.Is(err, apperrors.ErrUnknownTerm) {
		t.Errorf("StemOf(x) err = %v, want ErrUnknownTerm", err)
	}
}

func TestTermIDFirstMatchOnDuplicates(t *testing.T) {
	tab := New([]string{"bank", "river", "bank", "money"})
	id, err := tab.TermID("bank")
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("TermID(bank) = %d, want first position 1", id)
	}
	stem, _ := tab.Stem(3)
	if stem != "bank" {
		t.Errorf("Stem(3) = %q, want bank", stem)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	tab := New([]string{"a", "b", "a"})
	data, err := json.Marshal(tab)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["a","b","a"]` {
		t.Errorf("Marshal = %s", data)
	}
	var back Table
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Len() != 3 {
		t.Errorf("Len() = %d, want 3", back.Len())
	}
	if id, _ := back.TermID("a"); id != 1 {
		t.Errorf("TermID(a) = %d, want 1", id)
	}
}
