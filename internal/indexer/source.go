package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/config"
)

// SourceManifest records which corpus files a snapshot was built from.
const SourceManifest = "source.json"

// SourceFile identifies one input file by location, size and modification
// time.
type SourceFile struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time_ns"`
}

// Source describes every input of a build. Two builds with equal sources
// produce the same corpus.
type Source struct {
	Qrels     SourceFile   `json:"qrels"`
	Vectors   []SourceFile `json:"vectors"`
	Stems     SourceFile   `json:"stems"`
	LineLimit int          `json:"line_limit"`
}

type manifest struct {
	Fingerprint string `json:"fingerprint"`
	Source      Source `json:"source"`
}

// Describe stats the files named by cfg.
func Describe(cfg config.CorpusConfig) (Source, error) {
	src := Source{LineLimit: cfg.LineLimit}
	if cfg.LineLimit < 0 {
		src.LineLimit = -1
	}
	var err error
	if src.Qrels, err = statSource(cfg.QrelsPath); err != nil {
		return Source{}, err
	}
	if src.Stems, err = statSource(cfg.StemsPath); err != nil {
		return Source{}, err
	}
	for _, path := range cfg.VectorPaths {
		f, err := statSource(path)
		if err != nil {
			return Source{}, err
		}
		src.Vectors = append(src.Vectors, f)
	}
	return src, nil
}

// Fingerprint is a short stable hash of s.
func (s Source) Fingerprint() string {
	data, _ := json.Marshal(s)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func statSource(path string) (SourceFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return SourceFile{}, fmt.Errorf("reading corpus source: %w", err)
	}
	return SourceFile{Path: abs, Size: info.Size(), ModTime: info.ModTime().UnixNano()}, nil
}

func writeManifest(dir string, src Source) error {
	return export.SaveJSON(filepath.Join(dir, SourceManifest), manifest{Fingerprint: src.Fingerprint(), Source: src})
}

// readManifest returns the sources recorded with the snapshot in dir, or nil
// when the snapshot carries no manifest.
func readManifest(dir string) *Source {
	var m manifest
	if err := export.LoadJSON(filepath.Join(dir, SourceManifest), &m); err != nil {
		return nil
	}
	return &m.Source
}
