// Package staging writes uploads to local disk, checks their size and
// content type, and removes them once they have been forwarded.
package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/filex"
	"github.com/dmitrijs2005/bookdrive/internal/logging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// AllowedTypes are the content types accepted for books.
var AllowedTypes = common.BookContentTypes

// File is an upload sitting in the staging directory.
type File struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// Stager writes uploads to a local directory until they are forwarded to the blob host.
type Stager struct {
	dir     string
	maxSize int64
	log     logging.Logger
}

// NewStager makes sure dir exists. maxSize is in bytes.
func NewStager(dir string, maxSize int64, log logging.Logger) (*Stager, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &Stager{dir: abs, maxSize: maxSize, log: log.With("module", "staging")}, nil
}

// MaxSize is the largest accepted upload in bytes.
func (s *Stager) MaxSize() int64 {
	return s.maxSize
}

// Stage copies r to a new file named file-<unixnano>-<uuid><ext>. Oversized
// or disallowed content is removed again and reported as common.ErrBadRequest.
func (s *Stager) Stage(ctx context.Context, r io.Reader, originalName string) (*File, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.dir, fmt.Sprintf("file-%d-%s%s", time.Now().UnixNano(), uuid.NewString(), ext))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()

	staged := &File{Path: path, Name: originalName, Size: n}

	if copyErr != nil {
		s.Release(ctx, staged)
		return nil, fmt.Errorf("write staged file: %w", copyErr)
	}
	if closeErr != nil {
		s.Release(ctx, staged)
		return nil, fmt.Errorf("close staged file: %w", closeErr)
	}

	if n > s.maxSize {
		s.Release(ctx, staged)
		return nil, fmt.Errorf("file exceeds %d bytes: %w", s.maxSize, common.ErrBadRequest)
	}
	if n == 0 {
		s.Release(ctx, staged)
		return nil, fmt.Errorf("file is empty: %w", common.ErrBadRequest)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		s.Release(ctx, staged)
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if !mimetype.EqualsAny(mtype.String(), AllowedTypes...) {
		s.Release(ctx, staged)
		return nil, fmt.Errorf("only PDF and EPUB files are allowed, got %s: %w", mtype.String(), common.ErrBadRequest)
	}
	staged.ContentType = mtype.String()

	s.log.Debug(ctx, "file staged", "path", path, "size", n, "content_type", staged.ContentType)
	return staged, nil
}

// Release removes the staged file. Failures are logged, never returned.
func (s *Stager) Release(ctx context.Context, f *File) {
	if f == nil {
		return
	}
	if err := filex.RemoveIfExists(f.Path); err != nil {
		s.log.Warn(ctx, "failed to remove staged file", "path", f.Path, "error", err)
	}
}
