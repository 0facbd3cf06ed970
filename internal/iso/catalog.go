// Package iso lists the installer images offered on the create form.
package iso

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kdomanski/iso9660"
)

// Image is an installer ISO found in the catalog directory.
type Image struct {
	// Name is the file name, which is what the script expects.
	Name string `json:"name" yaml:"name"`
	// Label is the ISO9660 volume identifier, empty if unreadable.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Size  int64  `json:"size" yaml:"size"`
}

// Catalog reads ISO images from one directory. It does not cache; the
// directory is read on every call.
type Catalog struct {
	dir string
}

// NewCatalog creates a catalog for dir. An empty dir yields an empty
// catalog.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// List returns the *.iso files in the directory sorted by name. A missing
// directory is not an error.
func (c *Catalog) List() ([]Image, error) {
	if c.dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ISO directory %s: %w", c.dir, err)
	}

	var images []Image
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ".iso") {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		img := Image{Name: e.Name(), Size: info.Size()}
		if label, err := ReadLabel(filepath.Join(c.dir, e.Name())); err == nil {
			img.Label = label
		}
		images = append(images, img)
	}

	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images, nil
}

// ReadLabel returns the volume identifier of an ISO9660 image.
func ReadLabel(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open ISO: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := iso9660.OpenImage(f)
	if err != nil {
		return "", fmt.Errorf("failed to read ISO image %s: %w", path, err)
	}

	label, err := img.Label()
	if err != nil {
		return "", fmt.Errorf("failed to read volume label: %w", err)
	}

	return strings.TrimSpace(label), nil
}
