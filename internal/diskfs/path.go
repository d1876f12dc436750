package diskfs

import (
	"fmt"
	"strings"
)

// Ref is the result of parsing a path into the two-level namespace: the
// root, a top-level directory, or a file within a directory.
type Ref interface {
	isRef()
}

// RootRef refers to the filesystem root.
type RootRef struct{}

// DirRef refers to a top-level directory.
type DirRef struct {
	Name string
}

// FileRef refers to a file within a top-level directory.
type FileRef struct {
	Dir  string
	Name string
	Ext  string
}

func (RootRef) isRef() {}
func (DirRef) isRef()  {}
func (FileRef) isRef() {}

// ParsePath decomposes a path into a Ref. It never mutates its input: the
// original project tokenised (and so destroyed) the caller's path string
// in place with strtok; this operates on substrings of a local copy
// instead.
func ParsePath(p string) (Ref, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, fmt.Errorf("path %q: %w", p, ErrNotPermitted)
	}
	if p == "/" {
		return RootRef{}, nil
	}

	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	switch len(parts) {
	case 1:
		dir := parts[0]
		if dir == "" || len(dir) > MaxFilename {
			if len(dir) > MaxFilename {
				return nil, fmt.Errorf("directory %q: %w", dir, ErrNameTooLong)
			}
			return nil, fmt.Errorf("path %q: %w", p, ErrNotPermitted)
		}
		return DirRef{Name: dir}, nil

	case 2:
		dir := parts[0]
		if dir == "" || len(dir) > MaxFilename {
			if len(dir) > MaxFilename {
				return nil, fmt.Errorf("directory %q: %w", dir, ErrNameTooLong)
			}
			return nil, fmt.Errorf("path %q: %w", p, ErrNotPermitted)
		}

		name, ext := splitNameExt(parts[1])
		if len(name) > MaxFilename || len(ext) > MaxExtension {
			return nil, fmt.Errorf("file %q: %w", parts[1], ErrNameTooLong)
		}
		return FileRef{Dir: dir, Name: name, Ext: ext}, nil

	default:
		return nil, fmt.Errorf("path %q: %w", p, ErrNotPermitted)
	}
}

// splitNameExt splits "name.ext" into ("name", "ext"); an absent
// extension yields an empty string, matching §4.3.
func splitNameExt(s string) (name, ext string) {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}
