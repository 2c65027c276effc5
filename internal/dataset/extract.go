package dataset

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
)

// Extractor unpacks an archive into dest on fs.
type Extractor interface {
	Extract(archive string, fs afero.Fs, dest string) error
}

// ArchiveExtractor reads any format archiver recognizes by file extension
// (zip, tar, tar.gz, ...) and writes the entries into an afero.Fs.
type ArchiveExtractor struct {
	Logger *zap.Logger
}

// Extract writes every regular file of archive below dest, keeping the
// archive's directory structure. Entries that would land outside dest are
// rejected.
func (e ArchiveExtractor) Extract(archive string, fs afero.Fs, dest string) error {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	target := afero.Afero{Fs: fs}
	if err := target.MkdirAll(dest, 0o755); err != nil {
		return apperr.E(apperr.IOFailure, "mkdir "+dest, err)
	}

	files := 0
	err := archiver.Walk(archive, func(f archiver.File) error {
		name, err := entryName(f)
		if err != nil {
			return err
		}
		if f.IsDir() {
			return target.MkdirAll(filepath.Join(dest, name), 0o755)
		}
		if !f.Mode().IsRegular() {
			logger.Debug("skipping non-regular entry", zap.String("entry", name))
			return nil
		}
		if err := target.WriteReader(filepath.Join(dest, name), f); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		return apperr.E(apperr.IOFailure, "extract "+archive, err)
	}
	logger.Info("archive extracted", zap.String("archive", archive), zap.Int("files", files))
	return nil
}

// entryName returns the entry's full path inside the archive, relative and
// slash-cleaned.
func entryName(f archiver.File) (string, error) {
	name := f.Name()
	switch h := f.Header.(type) {
	case zip.FileHeader:
		name = h.Name
	case *tar.Header:
		name = h.Name
	}
	clean := path.Clean(filepath.ToSlash(name))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("entry %q escapes the destination", name)
	}
	return filepath.FromSlash(clean), nil
}
