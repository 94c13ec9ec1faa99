package dataset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

const labelExt = ".txt"

// Entry pairs an image file with its sidecar label file. LabelPath is empty
// when no label file exists.
type Entry struct {
	Key       string
	ImagePath string
	LabelPath string
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Discover returns every image beneath root, paired with the label file that
// shares its directory and stem. Entries are sorted by key.
func Discover(root string) ([]Entry, error) {
	pending := make(map[string]*Entry)
	labels := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		key := strings.TrimSuffix(path, filepath.Ext(path))
		switch {
		case isImageExt(ext):
			if prev, ok := pending[key]; ok {
				return fmt.Errorf("discover: %s and %s share a label", prev.ImagePath, path)
			}
			pending[key] = &Entry{ImagePath: path}
		case ext == labelExt:
			labels[key] = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover samples: %w", err)
	}

	entries := make([]Entry, 0, len(pending))
	for key, e := range pending {
		rel, err := filepath.Rel(root, key)
		if err != nil {
			rel = key
		}
		e.Key = filepath.ToSlash(rel)
		e.LabelPath = labels[key]
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}
