package diskfs

import (
	"errors"
	"reflect"
	"testing"
)

func TestMkdirAndGetAttr(t *testing.T) {
	fs := New(newMemDevice(32))

	if err := fs.Mkdir("/photos"); err != nil {
		t.Fatalf("Mkdir: %s", err)
	}

	attr, err := fs.GetAttr("/photos")
	if err != nil {
		t.Fatalf("GetAttr: %s", err)
	}
	if !attr.IsDir || attr.Mode != dirMode || attr.NLink != 2 {
		t.Errorf("GetAttr(/photos) = %+v, want dir mode %o nlink 2", attr, dirMode)
	}

	rootAttr, err := fs.GetAttr("/")
	if err != nil {
		t.Fatalf("GetAttr(/): %s", err)
	}
	if !rootAttr.IsDir || rootAttr.NLink != 2 {
		t.Errorf("GetAttr(/) = %+v, want directory attrs", rootAttr)
	}
}

func TestMkdirAlreadyExists(t *testing.T) {
	fs := New(newMemDevice(32))
	if err := fs.Mkdir("/photos"); err != nil {
		t.Fatalf("first Mkdir: %s", err)
	}
	if err := fs.Mkdir("/photos"); !errors.Is(err, ErrExists) {
		t.Errorf("second Mkdir: got %v, want ErrExists", err)
	}
}

func TestMkdirNested(t *testing.T) {
	fs := New(newMemDevice(32))
	if err := fs.Mkdir("/a/b"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("Mkdir(/a/b): got %v, want ErrNotPermitted", err)
	}
}

func TestReaddirRootAndDirectory(t *testing.T) {
	fs := New(newMemDevice(32))
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %s", err)
	}
	if err := fs.Mknod("/d/hello.txt"); err != nil {
		t.Fatalf("Mknod: %s", err)
	}

	rootNames, err := fs.ReadDir("/")
	if err != nil {
		t.Fatalf("ReadDir(/): %s", err)
	}
	if !reflect.DeepEqual(rootNames, []string{".", "..", "d"}) {
		t.Errorf("ReadDir(/) = %v", rootNames)
	}

	dirNames, err := fs.ReadDir("/d")
	if err != nil {
		t.Fatalf("ReadDir(/d): %s", err)
	}
	if !reflect.DeepEqual(dirNames, []string{".", "..", "hello.txt"}) {
		t.Errorf("ReadDir(/d) = %v", dirNames)
	}
}

func TestMknodAndAttr(t *testing.T) {
	fs := New(newMemDevice(32))
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %s", err)
	}
	if err := fs.Mknod("/d/hello.txt"); err != nil {
		t.Fatalf("Mknod: %s", err)
	}

	attr, err := fs.GetAttr("/d/hello.txt")
	if err != nil {
		t.Fatalf("GetAttr: %s", err)
	}
	if attr.IsDir || attr.Mode != fileMode || attr.Size != 0 {
		t.Errorf("GetAttr(/d/hello.txt) = %+v, want file mode %o size 0", attr, fileMode)
	}
}

func TestMknodAlreadyExists(t *testing.T) {
	fs := New(newMemDevice(32))
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %s", err)
	}
	if err := fs.Mknod("/d/hello.txt"); err != nil {
		t.Fatalf("first Mknod: %s", err)
	}
	if err := fs.Mknod("/d/hello.txt"); !errors.Is(err, ErrExists) {
		t.Errorf("second Mknod: got %v, want ErrExists", err)
	}
}

func TestMknodMissingParent(t *testing.T) {
	fs := New(newMemDevice(32))
	if err := fs.Mknod("/missing/hello.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Mknod with missing parent: got %v, want ErrNotFound", err)
	}
}

// TestResolveDirUsesCacheAfterFirstLookup confirms dirIndex is actually
// consulted: once populated (by Mkdir or a prior resolveDir call), a
// root block that has since been corrupted on disk no longer matters
// because resolveDir skips the root scan on a cache hit.
func TestResolveDirUsesCacheAfterFirstLookup(t *testing.T) {
	fs := New(newMemDevice(32))
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %s", err)
	}

	entry, err := fs.resolveDir("d")
	if err != nil {
		t.Fatalf("resolveDir: %s", err)
	}

	// Zero out the root block directly on the device, bypassing FileSystem.
	// A cache miss would now find no directories at all.
	if err := fs.dev.WriteBlock(RootBlockIndex, make([]byte, BlockSize)); err != nil {
		t.Fatalf("WriteBlock: %s", err)
	}

	cached, err := fs.resolveDir("d")
	if err != nil {
		t.Fatalf("resolveDir after root corruption: %s", err)
	}
	if cached.StartBlock != entry.StartBlock {
		t.Errorf("resolveDir after cache population = %+v, want StartBlock %d", cached, entry.StartBlock)
	}
}

func TestGetAttrNotFound(t *testing.T) {
	fs := New(newMemDevice(32))
	if _, err := fs.GetAttr("/nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAttr(/nope): got %v, want ErrNotFound", err)
	}
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %s", err)
	}
	if _, err := fs.GetAttr("/d/nope.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAttr(/d/nope.txt): got %v, want ErrNotFound", err)
	}
}
