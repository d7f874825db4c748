package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/indexer/index"
)

type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		f.Close()
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", magic)
	}
	header := SegmentHeader{
		Magic:      magic,
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		KeyCount:   binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
	}
	if header.Version != FormatVersion {
		f.Close()
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(dictBytes); want != got {
		f.Close()
		return nil, fmt.Errorf("dictionary checksum mismatch: stored %08x, computed %08x", want, got)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		f.Close()
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
	}, nil
}

func (r *Reader) postings(entry DictEntry) ([]string, error) {
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings of %q: %w", entry.Key, err)
	}
	var docs []string
	if err := json.Unmarshal(postingsBytes, &docs); err != nil {
		return nil, fmt.Errorf("parsing postings of %q: %w", entry.Key, err)
	}
	return docs, nil
}

// Records streams every (key, document) pair with keys in their original
// discovery order, ready for index.Build.
func (r *Reader) Records() index.Stream {
	ordered := make([]DictEntry, len(r.dict))
	copy(ordered, r.dict)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Pos < ordered[j].Pos
	})
	return func(yield func(index.Record, error) bool) {
		for _, entry := range ordered {
			docs, err := r.postings(entry)
			if err != nil {
				yield(index.Record{}, err)
				return
			}
			for _, doc := range docs {
				if !yield(index.Record{Source: r.filePath, Line: entry.Pos + 1, Fields: []string{entry.Key, doc}}, nil) {
					return
				}
			}
		}
	}
}

// Load restores the full index into universe and checks it against the key
// and document counts recorded in the header.
func (r *Reader) Load(universe *index.Universe) (*index.Inverted, error) {
	ix, err := index.Build(r.Records(), universe)
	if err != nil {
		return nil, fmt.Errorf("restoring segment %s: %w", r.filePath, err)
	}
	if ix.Len() != r.Keys() || uint32(ix.DocCount()) != r.DocCount() {
		return nil, fmt.Errorf("segment %s is inconsistent: header has %d keys and %d documents, restored %d and %d",
			r.filePath, r.Keys(), r.DocCount(), ix.Len(), ix.DocCount())
	}
	return ix, nil
}

func (r *Reader) Keys() int {
	return int(r.header.KeyCount)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Close() error {
	return r.file.Close()
}
