package executor

import (
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/ranker"
)

// Kind names the shape of a Result.
type Kind string

const (
	KindRanked  Kind = "ranked"
	KindScore   Kind = "score"
	KindMembers Kind = "members"
	KindCount   Kind = "count"
	KindExport  Kind = "export"
)

// Result is the envelope returned for every command. Count is the number of
// entries for lists, 1 for a pair score, the membership count for C, and the
// rows stored for a matrix export.
type Result struct {
	Command string          `json:"command"`
	Symbol  parser.Symbol   `json:"symbol"`
	Kind    Kind            `json:"kind"`
	Ranked  []ranker.Scored `json:"ranked,omitempty"`
	Score   string          `json:"score,omitempty"`
	Members []string        `json:"members,omitempty"`
	Count   int             `json:"count"`
	Export  *ExportSummary  `json:"export,omitempty"`
}

// ExportSummary describes a finished matrix export.
type ExportSummary struct {
	Destination string `json:"destination"`
	Sink        string `json:"sink"`
	Rows        int    `json:"rows"`
	Written     int    `json:"written"`
	Dropped     int    `json:"dropped"`
}

// Payload is the bare result value: the ranked (key, score) list, the score,
// the membership list, the count, or the export summary.
func (r *Result) Payload() any {
	switch r.Kind {
	case KindRanked:
		if r.Ranked == nil {
			return []ranker.Scored{}
		}
		return r.Ranked
	case KindScore:
		return r.Score
	case KindMembers:
		if r.Members == nil {
			return []string{}
		}
		return r.Members
	case KindExport:
		return r.Export
	default:
		return r.Count
	}
}
