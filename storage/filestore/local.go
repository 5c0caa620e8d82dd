// Package filestore keeps uploaded documents on the local disk.
package filestore

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/projhub/portal/core"
)

var errInvalidName = core.NewValidationError(nil, core.FieldError{Field: "name", Error: "invalid file name"})

// Local stores files flat in a single directory.
type Local struct {
	dir string
}

var _ core.FileStore = (*Local)(nil)

// NewLocal creates `dir` if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &Local{dir: dir}, nil
}

func (fs *Local) Dir() string { return fs.dir }

// path resolves `name` inside the store directory; names never escape it.
func (fs *Local) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	base := filepath.Base(name)
	if name == "" || base != name || base == "." || base == ".." || strings.HasPrefix(base, ".") {
		return "", errInvalidName
	}
	return filepath.Join(fs.dir, base), nil
}

// Save writes through a temporary file then renames it over `name`.
func (fs *Local) Save(name string, r io.Reader) error {
	dst, err := fs.path(name)
	if err != nil {
		return err
	}
	tmp, err := ioutil.TempFile(fs.dir, ".upload-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), dst), "renaming file")
}

func (fs *Local) Open(name string) (io.ReadCloser, error) {
	p, err := fs.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, core.ErrFileNotFound
	}
	return f, err
}

func (fs *Local) Stat(name string) (core.FileInfo, error) {
	p, err := fs.path(name)
	if err != nil {
		return core.FileInfo{}, err
	}
	fi, err := os.Stat(p)
	if os.IsNotExist(err) || (err == nil && fi.IsDir()) {
		return core.FileInfo{}, core.ErrFileNotFound
	}
	if err != nil {
		return core.FileInfo{}, err
	}
	return core.FileInfo{Name: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime().UTC()}, nil
}

// List returns regular files sorted by name. Temporary files are hidden.
func (fs *Local) List() ([]core.FileInfo, error) {
	entries, err := ioutil.ReadDir(fs.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", fs.dir)
	}
	files := make([]core.FileInfo, 0, len(entries))
	for _, fi := range entries {
		if !fi.Mode().IsRegular() || strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		files = append(files, core.FileInfo{Name: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime().UTC()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (fs *Local) Delete(name string) error {
	p, err := fs.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return core.ErrFileNotFound
		}
		return err
	}
	return nil
}
