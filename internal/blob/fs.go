// Filesystem blob store for development and tests. Objects land under a
// base directory and URLs are built from a configurable base, typically
// the server's own static file route.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store on the local filesystem.
type FSStore struct {
	dir  string
	base string
}

var _ Store = (*FSStore)(nil)

// NewFS returns a store writing under dir and serving from baseURL.
func NewFS(dir, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: %w", err)
	}
	return &FSStore{dir: dir, base: strings.TrimSuffix(baseURL, "/")}, nil
}

// Upload implements Store.
func (s *FSStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	rel := strings.TrimPrefix(path, "/")
	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("blob: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("blob: write %s: %w", rel, err)
	}
	return s.base + "/" + rel, nil
}
