package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
)

// ImageExtensions is the allow-list of file extensions treated as images.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

// Item is one labeled image.
type Item struct {
	// ID is the slash-separated path relative to the scanned root. It is the
	// item's identity.
	ID string
	// Name is the base file name, kept when the item is materialized.
	Name string
	// Path locates the item's bytes in the store it was scanned from.
	Path  string
	Label Label
}

// IsImage reports whether name has an allow-listed extension, ignoring case.
func IsImage(name string) bool {
	return ImageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Scan walks root recursively and returns every image file as an Item
// labeled by rule.
func Scan(fs afero.Fs, root string, rule LabelRule) ([]Item, error) {
	if rule == nil {
		rule = DefaultLabelRule
	}
	var items []Item
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !IsImage(info.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		items = append(items, Item{
			ID:    filepath.ToSlash(rel),
			Name:  info.Name(),
			Path:  p,
			Label: rule(info.Name()),
		})
		return nil
	})
	if err != nil {
		return nil, apperr.E(apperr.IOFailure, "scan "+root, err)
	}
	return items, nil
}
