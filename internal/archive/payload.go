package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PayloadArchive writes verbatim 200 response bodies to disk, one file per
// fetched page, for audit and replay.
type PayloadArchive struct {
	dir string
	now func() time.Time
}

func NewPayloadArchive(dir string) (*PayloadArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &PayloadArchive{dir: dir, now: time.Now}, nil
}

// Save writes one page body and returns the file path. pageLabel identifies
// the page (the request cursor, or "start" for the first page).
func (a *PayloadArchive) Save(pageLabel string, body []byte) (string, error) {
	name := fmt.Sprintf("page-%s-%s-%s.json",
		sanitizeLabel(pageLabel),
		a.now().UTC().Format("20060102T150405Z"),
		uuid.New().String()[:8],
	)
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}
	return path, nil
}

// sanitizeLabel keeps cursor-derived filenames filesystem-safe; cursors are
// opaque and may contain anything.
func sanitizeLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('.')
		}
	}
	const maxLabel = 48
	s := b.String()
	if len(s) > maxLabel {
		s = s[:maxLabel]
	}
	return s
}
