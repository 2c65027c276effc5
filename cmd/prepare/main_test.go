package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPrepare(t *testing.T) {
	t.Setenv("DATASET_ARCHIVE", "")
	t.Setenv("DATASET_SEED", "")
	dir := t.TempDir()

	archive := filepath.Join(dir, "files.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("photos/photo_%02d.jpg", i)
		if i%2 == 0 {
			name = fmt.Sprintf("photos/IMG_original_%02d.jpg", i)
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(name))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	configPath = filepath.Join(dir, "config.yaml")
	defer func() { configPath = "" }()
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
dataset:
  archive_path: %q
  raw_dir: %q
  split_dir: %q
logging:
  level: error
`, archive, filepath.Join(dir, "raw"), filepath.Join(dir, "split"))), 0o644))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runPrepare(cmd, nil))
	assert.Contains(t, out.String(), "prepared 20 images")

	train, err := os.ReadDir(filepath.Join(dir, "split", "train", "screen"))
	require.NoError(t, err)
	trainReal, err := os.ReadDir(filepath.Join(dir, "split", "train", "real"))
	require.NoError(t, err)
	assert.Equal(t, 14, len(train)+len(trainReal))
}

func TestRunPrepareMissingArchive(t *testing.T) {
	t.Setenv("DATASET_ARCHIVE", filepath.Join(t.TempDir(), "absent.zip"))
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	defer func() { configPath = "" }()
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf("dataset:\n  raw_dir: %q\n  split_dir: %q\n",
		filepath.Join(dir, "raw"), filepath.Join(dir, "split"))), 0o644))

	assert.Error(t, runPrepare(&cobra.Command{}, nil))
}
