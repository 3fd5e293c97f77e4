package memory

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/pawmart/api/internal/domain"
	"github.com/pawmart/api/internal/platform/imaging"
)

// ImageStore keeps re-encoded product images in memory with a write-through
// copy under the images directory. Reads check memory first and fall back to
// disk so images shipped with the catalog document stay servable.
type ImageStore struct {
	mu     sync.Mutex
	dir    string
	images map[string]domain.EncodedImage
}

// NewImageStore constructs an image store rooted at dir. The directory is
// created on demand by Save; it does not need to exist up front.
func NewImageStore(dir string) (*ImageStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("image store requires a directory")
	}
	return &ImageStore{
		dir:    dir,
		images: make(map[string]domain.EncodedImage),
	}, nil
}

// Save stores the image in memory and writes it to the images directory.
func (s *ImageStore) Save(_ context.Context, image domain.EncodedImage) error {
	fileName, err := imaging.ValidateFileName(image.FileName)
	if err != nil {
		return invalidError("image store: save", err.Error())
	}
	if len(image.Data) == 0 {
		return invalidError("image store: save", "image data is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return invalidError("image store: save", "create images directory: "+err.Error())
	}
	if err := os.WriteFile(filepath.Join(s.dir, fileName), image.Data, 0o644); err != nil {
		return invalidError("image store: save", "write image file: "+err.Error())
	}

	stored := image.Clone()
	stored.FileName = fileName
	s.images[fileName] = stored
	return nil
}

// Get returns the stored image, reading from disk when it is not in memory.
func (s *ImageStore) Get(_ context.Context, fileName string) (domain.EncodedImage, error) {
	name, err := imaging.ValidateFileName(fileName)
	if err != nil {
		return domain.EncodedImage{}, invalidError("image store: get", err.Error())
	}

	s.mu.Lock()
	image, ok := s.images[name]
	s.mu.Unlock()
	if ok {
		return image.Clone(), nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.EncodedImage{}, notFoundError("image store: get", "image "+name+" not found")
		}
		return domain.EncodedImage{}, invalidError("image store: get", "read image file: "+err.Error())
	}
	return domain.EncodedImage{FileName: name, Data: data}, nil
}

// List returns every stored image, merging the images directory with the
// in-memory entries. Memory wins on file name collisions.
func (s *ImageStore) List(_ context.Context) ([]domain.EncodedImage, error) {
	merged := make(map[string]domain.EncodedImage)

	entries, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, invalidError("image store: list", "read images directory: "+err.Error())
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := imaging.ValidateFileName(name); err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		info, err := entry.Info()
		updatedAt := time.Time{}
		if err == nil {
			updatedAt = info.ModTime().UTC()
		}
		merged[name] = domain.EncodedImage{FileName: name, Data: data, UpdatedAt: updatedAt}
	}

	s.mu.Lock()
	for name, image := range s.images {
		merged[name] = image.Clone()
	}
	s.mu.Unlock()

	out := make([]domain.EncodedImage, 0, len(merged))
	for _, image := range merged {
		out = append(out, image)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}

// Clear empties the store, removing both the in-memory entries and the files
// under the images directory. Unrecognized file names in the directory are
// left alone.
func (s *ImageStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]struct{}, len(s.images))
	for name := range s.images {
		removed[name] = struct{}{}
	}
	s.images = make(map[string]domain.EncodedImage)

	entries, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return len(removed), invalidError("image store: clear", "read images directory: "+err.Error())
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := imaging.ValidateFileName(name); err != nil {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return len(removed), invalidError("image store: clear", "remove image file: "+err.Error())
		}
		removed[name] = struct{}{}
	}
	return len(removed), nil
}

// Delete removes the image from memory and from the images directory.
func (s *ImageStore) Delete(_ context.Context, fileName string) error {
	name, err := imaging.ValidateFileName(fileName)
	if err != nil {
		return invalidError("image store: delete", err.Error())
	}

	s.mu.Lock()
	delete(s.images, name)
	s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return invalidError("image store: delete", "remove image file: "+err.Error())
	}
	return nil
}
