package ranker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

// Decimals is the fixed rounding of every reported score.
const Decimals = 5

// Scored is one ranked entry: a stem or category and its formatted score.
// It encodes as a two-element JSON array, e.g. ["epsilon","0.66667"].
type Scored struct {
	Key   string
	Score string
}

func (s Scored) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{s.Key, s.Score})
}

func (s *Scored) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decoding scored pair: %w", err)
	}
	s.Key, s.Score = pair[0], pair[1]
	return nil
}

// Jaccard returns |A∩B| / (|A| + |B| - |A∩B|) from the two cardinalities and
// the intersection size.
func Jaccard(sizeA, sizeB, intersection int) (float64, error) {
	if intersection < 0 || intersection > sizeA || intersection > sizeB {
		return 0, apperrors.Newf(apperrors.ErrInternal, http.StatusInternalServerError,
			"intersection %d inconsistent with set sizes %d and %d", intersection, sizeA, sizeB)
	}
	union := sizeA + sizeB - intersection
	if union == 0 {
		return 0, apperrors.Newf(apperrors.ErrDivisionUndefined, http.StatusUnprocessableEntity,
			"both document sets are empty (|A|=%d, |B|=%d)", sizeA, sizeB)
	}
	return float64(intersection) / float64(union), nil
}

// Format renders a score with the fixed five-decimal rounding.
func Format(score float64) string {
	return strconv.FormatFloat(score, 'f', Decimals, 64)
}

// Score is Jaccard followed by Format.
func Score(sizeA, sizeB, intersection int) (string, error) {
	j, err := Jaccard(sizeA, sizeB, intersection)
	if err != nil {
		return "", err
	}
	return Format(j), nil
}

// TopK sorts entries by ascending formatted score, keeping scan order among
// equal scores, and returns the trailing k: the highest k scores with the
// best one last. k larger than the candidate count returns everything.
func TopK(entries []Scored, k int) []Scored {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
	if k < len(entries) {
		entries = entries[len(entries)-k:]
	}
	return entries
}
