package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
)

// Pipeline turns a raw archive into the train/val/test split tree. It runs
// once, synchronously, to completion.
type Pipeline struct {
	// Fs holds the raw and split directories.
	Fs afero.Fs
	// Extractor unpacks ArchivePath, which is read from the local disk.
	// Defaults to ArchiveExtractor.
	Extractor   Extractor
	ArchivePath string
	RawDir      string
	SplitDir    string
	Partitioner Partitioner
	Logger      *zap.Logger
}

var errStopWalk = errors.New("stop walk")

// Run extracts the archive unless RawDir already holds files, scans for
// images, partitions them and materializes the result under SplitDir.
func (p *Pipeline) Run() (Report, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := p.Partitioner.Ratios.Validate(); err != nil {
		return Report{}, err
	}
	if err := CheckDirs(p.RawDir, p.SplitDir); err != nil {
		return Report{}, err
	}

	populated, err := hasFiles(p.Fs, p.RawDir)
	if err != nil {
		return Report{}, apperr.E(apperr.IOFailure, "inspect "+p.RawDir, err)
	}
	if populated {
		logger.Info("raw directory already populated, skipping extraction", zap.String("raw_dir", p.RawDir))
	} else {
		if _, err := os.Stat(p.ArchivePath); err != nil {
			return Report{}, apperr.E(apperr.IOFailure, "dataset archive "+p.ArchivePath, err)
		}
		extractor := p.Extractor
		if extractor == nil {
			extractor = ArchiveExtractor{Logger: logger}
		}
		logger.Info("extracting archive", zap.String("archive", p.ArchivePath), zap.String("raw_dir", p.RawDir))
		if err := extractor.Extract(p.ArchivePath, p.Fs, p.RawDir); err != nil {
			return Report{}, err
		}
	}

	items, err := Scan(p.Fs, p.RawDir, p.Partitioner.Rule)
	if err != nil {
		return Report{}, err
	}
	if len(items) == 0 {
		return Report{}, apperr.Errorf(apperr.EmptyDataset, "scan", "no images found under %s", p.RawDir)
	}
	logger.Info("collected images", zap.String("total", humanize.Comma(int64(len(items)))))

	assignment, err := p.Partitioner.Partition(items)
	if err != nil {
		return Report{}, err
	}
	logger.Info("partitioned dataset",
		zap.Int("train", len(assignment.Train)),
		zap.Int("val", len(assignment.Val)),
		zap.Int("test", len(assignment.Test)),
		zap.Int64("seed", p.Partitioner.Seed))

	m := Materializer{Fs: p.Fs, Logger: logger}
	report, err := m.Apply(assignment, p.SplitDir)
	if err != nil {
		return report, err
	}
	for _, s := range Splits {
		logger.Info("split summary",
			zap.String("split", string(s)),
			zap.Int(LabelReal.ClassName(), report.Counts[s][LabelReal]),
			zap.Int(LabelScreen.ClassName(), report.Counts[s][LabelScreen]))
	}
	logger.Info("data preparation completed",
		zap.String("split_dir", p.SplitDir),
		zap.Int("files", report.Total()),
		zap.Int("renamed", report.Renamed),
		zap.String("size", humanize.Bytes(uint64(report.Bytes))))
	return report, nil
}

// CheckDirs rejects a split directory that equals, contains or sits inside
// the raw directory. Materializing clears the split directory, so any
// overlap would delete raw images or rescan earlier copies.
func CheckDirs(rawDir, splitDir string) error {
	raw, err := filepath.Abs(rawDir)
	if err != nil {
		return apperr.E(apperr.InvalidConfig, "resolve "+rawDir, err)
	}
	split, err := filepath.Abs(splitDir)
	if err != nil {
		return apperr.E(apperr.InvalidConfig, "resolve "+splitDir, err)
	}
	if within(raw, split) || within(split, raw) {
		return apperr.Errorf(apperr.InvalidConfig, "check dirs",
			"split dir %s overlaps raw dir %s", splitDir, rawDir)
	}
	return nil
}

// within reports whether path is dir or below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// hasFiles reports whether dir contains at least one regular file at any
// depth. A missing dir counts as empty.
func hasFiles(fs afero.Fs, dir string) (bool, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil || !exists {
		return false, err
	}
	found := false
	err = afero.Walk(fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			found = true
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return false, err
	}
	return found, nil
}
