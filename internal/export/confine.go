package export

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

// Confined opens sinks for remote callers. File destinations must be local
// paths and land under dir; PostgreSQL destinations must use the configured
// connection through "pg:<table>".
type Confined struct {
	registry *Registry
	dir      string
}

// Confine restricts r to file destinations under dir.
func (r *Registry) Confine(dir string) *Confined {
	return &Confined{registry: r, dir: dir}
}

// Open resolves destination inside the export directory and opens its sink.
func (c *Confined) Open(ctx context.Context, destination string) (RowSink, bool, error) {
	kind, ok := Detect(destination)
	if !ok {
		return nil, false, nil
	}
	if kind == KindPostgres {
		if !strings.HasPrefix(strings.ToLower(destination), "pg:") {
			return nil, true, refused(destination, "database URLs are not accepted, use pg:<table>")
		}
		return c.registry.Open(ctx, destination)
	}
	if !filepath.IsLocal(destination) {
		return nil, true, refused(destination, "file exports must be relative paths inside the export directory")
	}
	return c.registry.Open(ctx, filepath.Join(c.dir, destination))
}

func refused(destination, reason string) error {
	return apperrors.Newf(apperrors.ErrInvalidCommand, http.StatusBadRequest, "export to %q refused: %s", destination, reason)
}
