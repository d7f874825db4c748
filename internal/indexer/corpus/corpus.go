// Package corpus reads the raw RCV1/LYRL2004 files and turns them into
// record streams for index construction: topic qrels become (category,
// document) records, vector files become (document, term id) records, and
// the stem map becomes the ordered stem list.
package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/index"
)

const maxLineSize = 16 * 1024 * 1024

// relevanceFlag is the trailing column of every qrels line.
const relevanceFlag = "1"

// Categories streams (category, document) records from a qrels file with
// lines of the form "E14 2286 1". limit < 0 reads every line.
func Categories(path string, limit int) index.Stream {
	return func(yield func(index.Record, error) bool) {
		err := scanLines(path, limit, func(lineNo int, line string) bool {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				return true
			}
			if len(fields) == 3 && fields[2] == relevanceFlag {
				fields = fields[:2]
			}
			return yield(index.Record{Source: path, Line: lineNo, Fields: fields}, nil)
		})
		if err != nil {
			yield(index.Record{}, err)
		}
	}
}

// Terms streams (document, term id) records from one or more vector files.
// Each line "2286  864:0.0497 1523:0.0621" expands to one record per term.
func Terms(paths []string, limit int) index.Stream {
	return func(yield func(index.Record, error) bool) {
		for _, path := range paths {
			stopped := false
			err := scanLines(path, limit, func(lineNo int, line string) bool {
				fields := strings.Fields(line)
				if len(fields) == 0 {
					return true
				}
				doc := fields[0]
				for _, weighted := range fields[1:] {
					term, _, _ := strings.Cut(weighted, ":")
					if !yield(index.Record{Source: path, Line: lineNo, Fields: []string{doc, term}}, nil) {
						stopped = true
						return false
					}
				}
				return true
			})
			if err != nil {
				yield(index.Record{}, err)
				return
			}
			if stopped {
				return
			}
		}
	}
}

// Stems reads a stem map with lines "stem termid idf" and returns the stems
// in file order; the stem on line n is the stem of term id n.
func Stems(path string) ([]string, error) {
	var stems []string
	err := scanLines(path, -1, func(lineNo int, line string) bool {
		stem, _, _ := strings.Cut(strings.TrimRight(line, "\r"), " ")
		stems = append(stems, stem)
		return true
	})
	if err != nil {
		return nil, err
	}
	return stems, nil
}

func scanLines(path string, limit int, fn func(lineNo int, line string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		if limit >= 0 && lineNo >= limit {
			return nil
		}
		lineNo++
		if !fn(lineNo, scanner.Text()) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
