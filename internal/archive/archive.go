// Package archive enumerates compiled classes in jars and class directories.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zip"

	"depusage/internal/classfile"
	apperrors "depusage/internal/errors"
)

// ErrUnreadable is wrapped by every failure to open or read an input.
var ErrUnreadable = errors.New("unreadable archive")

// DefaultMaxOpenArchives bounds how many jar readers an Opener keeps open.
const DefaultMaxOpenArchives = 64

const (
	classSuffix      = ".class"
	moduleInfo       = "module-info"
	multiReleaseRoot = "META-INF/versions/"
)

// ClassEntry is one class found in an archive or directory.
type ClassEntry struct {
	// Name is the binary class name (com.example.Foo$Bar).
	Name string
	// Path is the entry path inside the jar, or the file path for directories.
	Path string
	// Source is the jar or directory the entry was found in.
	Source string

	read func() ([]byte, error)
}

// Read returns the class-file bytes.
func (e ClassEntry) Read() ([]byte, error) {
	data, err := e.read()
	if err != nil {
		return nil, unreadable(e.Source+"!"+e.Path, err)
	}
	return data, nil
}

// ClassNameFromEntry maps a jar entry or relative file path to a binary class
// name. It returns false for anything that is not a class, and for
// module-info descriptors. Multi-release prefixes are stripped.
func ClassNameFromEntry(entry string) (string, bool) {
	entry = filepath.ToSlash(entry)
	if !strings.HasSuffix(entry, classSuffix) {
		return "", false
	}
	if strings.HasPrefix(entry, multiReleaseRoot) {
		rest := strings.TrimPrefix(entry, multiReleaseRoot)
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return "", false
		}
		entry = rest[slash+1:]
	}
	internal := strings.TrimSuffix(entry, classSuffix)
	if internal == moduleInfo || strings.HasSuffix(internal, "/"+moduleInfo) {
		return "", false
	}
	return classfile.BinaryName(internal), true
}

// Opener walks jars and class directories, keeping recently used jar readers
// open so repeated walks of the same jar within one run do not reopen it.
// An Opener is not safe for concurrent use.
type Opener struct {
	readers *lru.Cache[string, *zip.ReadCloser]
}

// NewOpener creates an Opener holding at most maxOpen jar readers.
func NewOpener(maxOpen int) (*Opener, error) {
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenArchives
	}
	cache, err := lru.NewWithEvict[string, *zip.ReadCloser](maxOpen, func(_ string, rc *zip.ReadCloser) {
		_ = rc.Close()
	})
	if err != nil {
		return nil, err
	}
	return &Opener{readers: cache}, nil
}

// Close closes every cached reader.
func (o *Opener) Close() error {
	o.readers.Purge()
	return nil
}

// Walk calls fn for every class in path, which may be a jar/zip file, a
// directory tree or a single class file. Directory entries are visited in
// lexical order, jar entries in archive order. A non-existent path yields an
// error wrapping fs.ErrNotExist.
func (o *Opener) Walk(path string, fn func(ClassEntry) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return unreadable(path, err)
	}
	switch {
	case info.IsDir():
		return walkDir(path, fn)
	case strings.HasSuffix(path, classSuffix):
		return walkClassFile(path, fn)
	default:
		return o.walkJar(path, fn)
	}
}

// walkClassFile yields a lone class file. Its package is unknown from the
// path, so the name comes from the class itself; a class that does not parse
// keeps its file name and is left for the caller to reject.
func walkClassFile(path string, fn func(ClassEntry) error) error {
	name, ok := ClassNameFromEntry(filepath.Base(path))
	if !ok {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return unreadable(path, err)
	}
	if cf, err := classfile.Parse(data); err == nil {
		if cf.IsModuleInfo() {
			return nil
		}
		name = cf.Name()
	}
	return fn(ClassEntry{
		Name:   name,
		Path:   path,
		Source: path,
		read: func() ([]byte, error) {
			return data, nil
		},
	})
}

func (o *Opener) walkJar(path string, fn func(ClassEntry) error) error {
	rc, err := o.open(path)
	if err != nil {
		return err
	}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, ok := ClassNameFromEntry(f.Name)
		if !ok {
			continue
		}
		zf := f
		entry := ClassEntry{
			Name:   name,
			Path:   f.Name,
			Source: path,
			read: func() ([]byte, error) {
				r, err := zf.Open()
				if err != nil {
					return nil, err
				}
				defer func() { _ = r.Close() }()
				return io.ReadAll(r)
			},
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

func (o *Opener) open(path string) (*zip.ReadCloser, error) {
	if rc, ok := o.readers.Get(path); ok {
		return rc, nil
	}
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, unreadable(path, err)
	}
	o.readers.Add(path, rc)
	return rc, nil
}

func walkDir(root string, fn func(ClassEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return unreadable(path, err)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return unreadable(path, err)
		}
		name, ok := ClassNameFromEntry(rel)
		if !ok {
			return nil
		}
		file := path
		return fn(ClassEntry{
			Name:   name,
			Path:   file,
			Source: root,
			read: func() ([]byte, error) {
				return os.ReadFile(file)
			},
		})
	})
}

func unreadable(path string, err error) error {
	var ae *apperrors.AnalysisError
	if errors.As(err, &ae) {
		return err
	}
	return apperrors.New(apperrors.ArchiveUnreadable,
		fmt.Sprintf("cannot read %s", path),
		fmt.Errorf("%w: %w", ErrUnreadable, err))
}
