package diskfs

import (
	"bytes"
	"errors"
	"testing"
)

func setupFile(t *testing.T, nblocks int) *FileSystem {
	t.Helper()
	fs := New(newMemDevice(nblocks))
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %s", err)
	}
	if err := fs.Mknod("/d/hello.txt"); err != nil {
		t.Fatalf("Mknod: %s", err)
	}
	return fs
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	fs := setupFile(t, 32)

	data := []byte("ABCDEFGHIJ")
	n, err := fs.Write("/d/hello.txt", data, 0)
	if err != nil {
		t.Fatalf("Write: %s", err)
	}
	if n != len(data) {
		t.Fatalf("Write returned %d, want %d", n, len(data))
	}

	attr, err := fs.GetAttr("/d/hello.txt")
	if err != nil {
		t.Fatalf("GetAttr: %s", err)
	}
	if attr.Size != uint64(len(data)) {
		t.Errorf("Size = %d, want %d", attr.Size, len(data))
	}

	buf := make([]byte, len(data))
	n, err = fs.Read("/d/hello.txt", buf, 0)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	if n != len(data) || !bytes.Equal(buf, data) {
		t.Errorf("Read returned %q (%d bytes), want %q", buf[:n], n, data)
	}
}

func TestWriteSpanningMultipleBlocks(t *testing.T) {
	fs := setupFile(t, 32)

	data := bytes.Repeat([]byte{'X'}, 1024)
	n, err := fs.Write("/d/hello.txt", data, 0)
	if err != nil {
		t.Fatalf("Write: %s", err)
	}
	if n != len(data) {
		t.Fatalf("Write returned %d, want %d", n, len(data))
	}

	buf := make([]byte, len(data))
	n, err = fs.Read("/d/hello.txt", buf, 0)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	if n != len(data) || !bytes.Equal(buf, data) {
		t.Errorf("Read returned %d bytes matching: %v", n, bytes.Equal(buf, data))
	}
}

func TestWriteOffsetBeyondEOF(t *testing.T) {
	fs := setupFile(t, 32)

	if _, err := fs.Write("/d/hello.txt", []byte("hi"), 10); !errors.Is(err, ErrFileTooBig) {
		t.Errorf("Write past EOF: got %v, want ErrFileTooBig", err)
	}
}

func TestWriteAppendExtendsSize(t *testing.T) {
	fs := setupFile(t, 32)

	if _, err := fs.Write("/d/hello.txt", []byte("hello"), 0); err != nil {
		t.Fatalf("first Write: %s", err)
	}
	if _, err := fs.Write("/d/hello.txt", []byte(" world"), 5); err != nil {
		t.Fatalf("second Write: %s", err)
	}

	attr, err := fs.GetAttr("/d/hello.txt")
	if err != nil {
		t.Fatalf("GetAttr: %s", err)
	}
	if attr.Size != 11 {
		t.Errorf("Size = %d, want 11", attr.Size)
	}

	buf := make([]byte, 11)
	n, err := fs.Read("/d/hello.txt", buf, 0)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	if string(buf[:n]) != "hello world" {
		t.Errorf("Read = %q, want %q", buf[:n], "hello world")
	}
}

// TestWriteOverwriteInPlaceDoesNotShrink exercises the §4.7 edge case: a
// write whose data fits entirely within the current block's remaining
// capacity zero-pads the rest of that block, even if that overwrites
// bytes from a previous, larger write to the same block. fsize itself is
// never reduced by a write.
func TestWriteOverwriteInPlaceDoesNotShrink(t *testing.T) {
	fs := setupFile(t, 32)

	if _, err := fs.Write("/d/hello.txt", []byte("hello world"), 0); err != nil {
		t.Fatalf("first Write: %s", err)
	}
	if _, err := fs.Write("/d/hello.txt", []byte("HELLO"), 0); err != nil {
		t.Fatalf("second Write: %s", err)
	}

	attr, err := fs.GetAttr("/d/hello.txt")
	if err != nil {
		t.Fatalf("GetAttr: %s", err)
	}
	if attr.Size != 11 {
		t.Errorf("Size = %d, want 11 (overwrite must not shrink fsize)", attr.Size)
	}

	buf := make([]byte, 11)
	n, err := fs.Read("/d/hello.txt", buf, 0)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	want := "HELLO" + "\x00\x00\x00\x00\x00\x00"
	if string(buf[:n]) != want {
		t.Errorf("Read = %q, want %q", buf[:n], want)
	}
}

func TestWriteMissingFileReturnsZero(t *testing.T) {
	fs := New(newMemDevice(32))
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %s", err)
	}

	n, err := fs.Write("/d/nope.txt", []byte("hi"), 0)
	if err != nil {
		t.Fatalf("Write: %s", err)
	}
	if n != 0 {
		t.Errorf("Write to missing file = %d, want 0", n)
	}
}

func TestWriteChainAllocation(t *testing.T) {
	fs := setupFile(t, 32)

	data := bytes.Repeat([]byte{'X'}, 1024)
	if _, err := fs.Write("/d/hello.txt", data, 0); err != nil {
		t.Fatalf("Write: %s", err)
	}

	root, err := fs.loadRoot()
	if err != nil {
		t.Fatalf("loadRoot: %s", err)
	}
	_, rootEntry, _ := findDirectory(root, "d")
	dirBlock, err := fs.loadDirBlock(rootEntry.StartBlock)
	if err != nil {
		t.Fatalf("loadDirBlock: %s", err)
	}
	_, file, _ := findFile(dirBlock, "hello", "txt")

	table, err := loadAllocTable(fs.dev)
	if err != nil {
		t.Fatalf("loadAllocTable: %s", err)
	}

	block := file.StartBlock
	chainLen := 1
	for {
		next, eof := table.Successor(block)
		if eof {
			break
		}
		block = next
		chainLen++
	}
	if chainLen < 2 {
		t.Errorf("chain length = %d, want >= 2 for a 1024-byte file", chainLen)
	}
}
