/*
Package public presents the public asset folder in a form that is safe to
hand to http.FileServer.

Files and folders whose name starts with "." are hidden, as are the story
source files (story.txt). Images next to the story files stay visible
because the pages link to them. Hidden names behave as if they did not
exist: Open returns fs.ErrNotExist and directory listings leave them out.
*/
package public

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/humblebanana/StoryofUS/story"
)

var hiddenFiles = []string{
	story.StoryFile,
}

// FS is a read-only view of a public asset folder with special files
// removed.
type FS struct {
	fs fs.FS
}

// New returns an FS showing innerFS without its special files.
func New(innerFS fs.FS) *FS {
	return &FS{fs: innerFS}
}

// Open opens the named file.
func (pfs *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if Hidden(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	f, err := pfs.fs.Open(name)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	// directories are wrapped so listings skip hidden entries
	if fi.IsDir() {
		return &dir{File: f, name: name}, nil
	}
	return f, nil
}

// Hidden reports whether the slash-separated name must not be served.
func Hidden(name string) bool {
	if name == "." {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	base := path.Base(name)
	for _, s := range hiddenFiles {
		if base == s {
			return true
		}
	}
	return false
}

// dir is an open directory whose listing omits hidden entries.
type dir struct {
	fs.File
	name string
}

// ReadDir reads the directory like fs.ReadDirFile does, leaving out hidden
// entries. With n > 0 it keeps reading until it has n visible entries or
// the directory is exhausted.
func (d *dir) ReadDir(n int) ([]fs.DirEntry, error) {
	rd, ok := d.File.(fs.ReadDirFile)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: d.name, Err: errors.ErrUnsupported}
	}
	if n <= 0 {
		entries, err := rd.ReadDir(n)
		return visible(entries), err
	}
	var r []fs.DirEntry
	for len(r) < n {
		entries, err := rd.ReadDir(n - len(r))
		r = append(r, visible(entries)...)
		if err != nil {
			if errors.Is(err, io.EOF) && len(r) > 0 {
				return r, nil
			}
			return r, err
		}
	}
	return r, nil
}

func visible(entries []fs.DirEntry) []fs.DirEntry {
	var r []fs.DirEntry
	for _, e := range entries {
		if !Hidden(e.Name()) {
			r = append(r, e)
		}
	}
	return r
}
