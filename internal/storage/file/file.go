package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DMarby/bluromatic/internal/storage"
)

// Provider implements a file-based image storage rooted at a directory
type Provider struct {
	path string
}

// New returns a new Provider instance
func New(root string) (*Provider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	return &Provider{
		abs,
	}, nil
}

// Get returns the image data stored at key
func (p *Provider) Get(ctx context.Context, key string) ([]byte, error) {
	filePath, err := p.filePath(key)
	if err != nil {
		return nil, err
	}

	imageData, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return imageData, nil
}

// Put writes the image data to key.
// The data is written to a temporary file first so that a partially written image never exists at key.
func (p *Provider) Put(ctx context.Context, key string, data []byte) error {
	filePath, err := p.filePath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Chmod(tmp.Name(), 0644)
	}

	if err == nil {
		err = os.Rename(tmp.Name(), filePath)
	}

	if err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return nil
}

// Delete removes the image stored at key
func (p *Provider) Delete(ctx context.Context, key string) error {
	filePath, err := p.filePath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.ErrNotFound
		}

		return err
	}

	return nil
}

// List returns the keys of the files directly inside of dir
func (p *Provider) List(ctx context.Context, dir string) ([]string, error) {
	dirPath, err := p.filePath(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}

		keys = append(keys, path.Join(dir, entry.Name()))
	}

	sort.Strings(keys)
	return keys, nil
}

// URI returns the file:// reference for a key
func (p *Provider) URI(key string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(filepath.Join(p.path, filepath.FromSlash(key))),
	}

	return u.String()
}

// Key returns the key for file:// references, and absolute paths, inside of the root directory
func (p *Provider) Key(ref *url.URL) (string, bool) {
	if ref.Scheme != "file" && ref.Scheme != "" {
		return "", false
	}

	if ref.Host != "" && ref.Host != "localhost" {
		return "", false
	}

	refPath := filepath.FromSlash(ref.Path)
	if !filepath.IsAbs(refPath) {
		return "", false
	}

	rel, err := filepath.Rel(p.path, filepath.Clean(refPath))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

// filePath returns the path of a key, making sure that it can't escape the root directory
func (p *Provider) filePath(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" && key != "" && key != "." {
		return "", storage.ErrInvalidKey
	}

	return filepath.Join(p.path, filepath.FromSlash(cleaned)), nil
}
