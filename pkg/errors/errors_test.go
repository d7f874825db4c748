package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("running query: %w", UnknownCategory("E99"))
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("errors.Is(%v, ErrUnknownCategory) = false", err)
	}
	if !strings.Contains(err.Error(), "E99") {
		t.Errorf("error %q does not name the category", err)
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown stem", UnknownStem("winnie"), http.StatusNotFound},
		{"unknown term", UnknownTerm(7), http.StatusNotFound},
		{"invalid command", Invalid("@ E14", "expected 2 arguments"), http.StatusBadRequest},
		{"malformed", Malformed("qrels.txt", 3, "expected 2 fields, got 1"), http.StatusBadRequest},
		{"bare division", ErrDivisionUndefined, http.StatusUnprocessableEntity},
		{"wrapped bare", fmt.Errorf("x: %w", ErrUnknownTerm), http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if got := Kind(nil); got != "ok" {
		t.Errorf("Kind(nil) = %q, want ok", got)
	}
	if got := Kind(Malformed("f", 1, "bad")); got != "malformed_record" {
		t.Errorf("Kind(malformed) = %q", got)
	}
	if got := Kind(fmt.Errorf("w: %w", ErrDivisionUndefined)); got != "division_undefined" {
		t.Errorf("Kind(division) = %q", got)
	}
}
