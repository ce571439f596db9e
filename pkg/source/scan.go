package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// extensions lists the file extensions treated as photos when scanning.
var extensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// Scan lists the photos directly inside dir, newest first.
// Hidden files and subdirectories are skipped. Ties on modification time are
// broken by name so the order is stable across runs.
func Scan(dir string) ([]Photo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var photos []Photo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !IsImageFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if info.Mode()&fs.ModeType != 0 {
			continue
		}
		photos = append(photos, Photo{
			URI:       filepath.Join(dir, e.Name()),
			Timestamp: info.ModTime(),
		})
	}

	sort.SliceStable(photos, func(i, j int) bool {
		if !photos[i].Timestamp.Equal(photos[j].Timestamp) {
			return photos[i].Timestamp.After(photos[j].Timestamp)
		}
		return photos[i].URI < photos[j].URI
	})
	for i := range photos {
		photos[i].ID = int64(i + 1)
	}
	return photos, nil
}
