// Package diskfs implements the on-disk block layout and allocation engine
// for a two-level hierarchical filesystem backed by a single fixed-size
// disk image: a root directory block, per-directory entry blocks, and
// per-file block chains threaded through a single free/chain table block.
package diskfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Fixed on-disk geometry. The image has no superblock: block size and
// entry capacities are compile-time constants baked into every image,
// matching the original project's fixed-length .disk convention.
const (
	BlockSize = 512

	MaxFilename  = 8
	MaxExtension = 3

	RootBlockIndex  = 0
	TableBlockIndex = 1
	FirstDataBlock  = 2

	// EOFSentinel marks the terminal block of a chain in the table.
	EOFSentinel int16 = -1

	tableSlots = BlockSize / 2
)

// byteOrder is fixed for the lifetime of an image; it is not stored on
// disk, so images are only portable between hosts sharing this order.
var byteOrder = binary.LittleEndian

// RootEntry is one slot in the root directory block.
type RootEntry struct {
	Name       [MaxFilename + 1]byte
	StartBlock int64
}

// DirFileEntry is one slot in a directory entry block.
type DirFileEntry struct {
	Name       [MaxFilename + 1]byte
	Ext        [MaxExtension + 1]byte
	Size       uint64
	StartBlock int64
}

var (
	rootEntrySize = binary.Size(RootEntry{})
	dirEntrySize  = binary.Size(DirFileEntry{})

	maxDirsInRoot = (BlockSize - 4) / rootEntrySize
	maxFilesInDir = (BlockSize - 4) / dirEntrySize
)

// RootBlock is the in-memory mirror of block 0. Directories always has
// maxDirsInRoot elements; the fixed capacity is enforced by newRootBlock
// and UnmarshalBinary, not by the Go type, since maxDirsInRoot is computed
// at init time from BlockSize.
type RootBlock struct {
	NDirectories int32
	Directories  []RootEntry
}

// DirBlock is the in-memory mirror of a per-directory entry block. Files
// always has maxFilesInDir elements, for the same reason as RootBlock.
type DirBlock struct {
	NFiles int32
	Files  []DirFileEntry
}

// AllocTable is the in-memory mirror of the single free/chain table block.
type AllocTable struct {
	Slots [tableSlots]int16
}

func nameBytes(s string, width int) ([]byte, error) {
	if len(s) > width {
		return nil, fmt.Errorf("%q: %w", s, ErrNameTooLong)
	}
	b := make([]byte, width+1)
	copy(b, s)
	return b, nil
}

func nameString(b []byte) string {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

// newRootBlock returns a zeroed root block ready to be written to disk.
func newRootBlock() *RootBlock {
	return &RootBlock{Directories: make([]RootEntry, maxDirsInRoot)}
}

// newDirBlock returns a zeroed directory entry block.
func newDirBlock() *DirBlock {
	return &DirBlock{Files: make([]DirFileEntry, maxFilesInDir)}
}

// MarshalBinary serializes the root block to exactly BlockSize bytes.
func (r *RootBlock) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, byteOrder, r.NDirectories); err != nil {
		return nil, err
	}
	for i := range r.Directories {
		if err := binary.Write(&buf, byteOrder, &r.Directories[i]); err != nil {
			return nil, err
		}
	}
	return padBlock(buf.Bytes()), nil
}

// UnmarshalBinary parses a root block from exactly BlockSize bytes.
func (r *RootBlock) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	if err := binary.Read(rd, byteOrder, &r.NDirectories); err != nil {
		return err
	}
	r.Directories = make([]RootEntry, maxDirsInRoot)
	for i := range r.Directories {
		if err := binary.Read(rd, byteOrder, &r.Directories[i]); err != nil {
			return err
		}
	}
	return nil
}

// MarshalBinary serializes the directory block to exactly BlockSize bytes.
func (d *DirBlock) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, byteOrder, d.NFiles); err != nil {
		return nil, err
	}
	for i := range d.Files {
		if err := binary.Write(&buf, byteOrder, &d.Files[i]); err != nil {
			return nil, err
		}
	}
	return padBlock(buf.Bytes()), nil
}

// UnmarshalBinary parses a directory block from exactly BlockSize bytes.
func (d *DirBlock) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	if err := binary.Read(rd, byteOrder, &d.NFiles); err != nil {
		return err
	}
	d.Files = make([]DirFileEntry, maxFilesInDir)
	for i := range d.Files {
		if err := binary.Read(rd, byteOrder, &d.Files[i]); err != nil {
			return err
		}
	}
	return nil
}

// MarshalBinary serializes the table block to exactly BlockSize bytes.
func (t *AllocTable) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, byteOrder, &t.Slots); err != nil {
		return nil, err
	}
	return padBlock(buf.Bytes()), nil
}

// UnmarshalBinary parses a table block from exactly BlockSize bytes.
func (t *AllocTable) UnmarshalBinary(data []byte) error {
	return binary.Read(bytes.NewReader(data), byteOrder, &t.Slots)
}

func padBlock(b []byte) []byte {
	if len(b) >= BlockSize {
		return b[:BlockSize]
	}
	out := make([]byte, BlockSize)
	copy(out, b)
	return out
}
