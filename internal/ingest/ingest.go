package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
)

// File is one selected e-KTP image on the local filesystem.
type File struct {
	Path string
	Ext  string

	mu      sync.Mutex
	hashHex string
}

// NewFile returns a File for path; the extension is not checked.
func NewFile(path string) *File {
	return &File{Path: path, Ext: constants.NormalizeExt(filepath.Ext(path))}
}

func (f *File) Name() string { return f.Path }

// Bytes reads the image and records its sha256 digest.
func (f *File) Bytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	sum := sha256.Sum256(data)
	f.mu.Lock()
	f.hashHex = hex.EncodeToString(sum[:])
	f.mu.Unlock()
	return data, nil
}

// HashHex is the sha256 of the last read, or "" before the first read.
func (f *File) HashHex() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hashHex
}

// Collect expands paths into image Files in selection order. Directories are
// walked lexically with hidden entries skipped and non-image files ignored.
// An explicitly named file with another extension is rejected.
func Collect(paths []string) ([]*File, error) {
	var out []*File
	seen := make(map[string]struct{})
	add := func(path string) {
		clean := filepath.Clean(path)
		if _, dup := seen[clean]; dup {
			return
		}
		seen[clean] = struct{}{}
		out = append(out, NewFile(clean))
	}

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if !AllowedExt(filepath.Ext(p)) {
				return nil, fmt.Errorf("%w: unsupported file type %q (%s)", common.ErrInvalidInput, filepath.Ext(p), p)
			}
			add(p)
			continue
		}

		root := p
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no images selected", common.ErrInvalidInput)
	}
	return out, nil
}
