package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
)

// createExcl refuses to open an existing file, so a copy never overwrites
// another item.
const createExcl = os.O_WRONLY | os.O_CREATE | os.O_EXCL

// Report summarizes a materialized split tree.
type Report struct {
	Counts  map[Split]map[Label]int
	Bytes   int64
	Renamed int
}

func newReport() Report {
	r := Report{Counts: make(map[Split]map[Label]int)}
	for _, s := range Splits {
		r.Counts[s] = make(map[Label]int)
	}
	return r
}

// Total is the number of files copied.
func (r Report) Total() int {
	n := 0
	for _, byLabel := range r.Counts {
		for _, c := range byLabel {
			n += c
		}
	}
	return n
}

// Materializer copies assigned items into root/{split}/{class}/{name}.
type Materializer struct {
	Fs     afero.Fs
	Logger *zap.Logger
}

// Apply clears root, recreates the split tree and copies every item of a in
// order train, val, test. A name already taken in the destination directory
// gets a _1, _2, ... suffix on its stem. The first failed copy aborts the
// run.
func (m Materializer) Apply(a Assignment, root string) (Report, error) {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	report := newReport()

	if err := m.Fs.RemoveAll(root); err != nil {
		return report, apperr.E(apperr.IOFailure, "clear "+root, err)
	}
	for _, s := range Splits {
		for _, l := range Labels {
			dir := filepath.Join(root, string(s), l.ClassName())
			if err := m.Fs.MkdirAll(dir, 0o755); err != nil {
				return report, apperr.E(apperr.IOFailure, "mkdir "+dir, err)
			}
		}
	}

	for _, s := range Splits {
		items := a.Items(s)
		logger.Info("copying split", zap.String("split", string(s)), zap.Int("items", len(items)))
		for _, it := range items {
			dir := filepath.Join(root, string(s), it.Label.ClassName())
			dst, renamed, err := m.freeName(dir, it.Name)
			if err != nil {
				return report, err
			}
			n, err := m.copyFile(it.Path, dst)
			if err != nil {
				return report, err
			}
			if renamed {
				report.Renamed++
				logger.Debug("renamed duplicate", zap.String("item", it.ID), zap.String("dst", dst))
			}
			report.Counts[s][it.Label]++
			report.Bytes += n
		}
	}
	return report, nil
}

// freeName returns the first unused destination path for name in dir.
func (m Materializer) freeName(dir, name string) (string, bool, error) {
	candidate := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		if i > 0 {
			candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		}
		exists, err := afero.Exists(m.Fs, candidate)
		if err != nil {
			return "", false, apperr.E(apperr.IOFailure, "stat "+candidate, err)
		}
		if !exists {
			return candidate, i > 0, nil
		}
	}
}

func (m Materializer) copyFile(src, dst string) (int64, error) {
	in, err := m.Fs.Open(src)
	if err != nil {
		return 0, apperr.E(apperr.IOFailure, "open "+src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, apperr.E(apperr.IOFailure, "stat "+src, err)
	}

	out, err := m.Fs.OpenFile(dst, createExcl, info.Mode().Perm())
	if err != nil {
		return 0, apperr.E(apperr.IOFailure, "create "+dst, err)
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, apperr.E(apperr.IOFailure, "copy "+src, err)
	}
	mtime := info.ModTime()
	if err := m.Fs.Chtimes(dst, mtime, mtime); err != nil {
		return n, apperr.E(apperr.IOFailure, "chtimes "+dst, err)
	}
	return n, nil
}
