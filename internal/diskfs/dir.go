package diskfs

import (
	"fmt"
	"sync"
)

// Attr is the subset of file attributes the core reports to a host bridge.
// Reported attributes are fixed: this core does not implement permission
// enforcement.
type Attr struct {
	IsDir bool
	Mode  uint32
	NLink uint32
	Size  uint64
}

const (
	dirMode  = 0755
	fileMode = 0666
)

// FileSystem owns a backing BlockIO and implements the directory, read,
// and write operations of the two-level namespace described in §4.5–§4.7.
// Per §5, every exported method here is only ever called one at a time by
// the host bridge; the mutex below guards only the in-memory lookup cache
// against a future, not-yet-specified concurrent host.
type FileSystem struct {
	dev BlockIO

	mu       sync.RWMutex
	dirIndex map[string]int64 // directory name -> start block
}

// New wraps dev (already pointing at a pre-initialised image, per §6) in a
// FileSystem.
func New(dev BlockIO) *FileSystem {
	return &FileSystem{dev: dev, dirIndex: make(map[string]int64)}
}

func (f *FileSystem) loadRoot() (*RootBlock, error) {
	data, err := f.dev.ReadBlock(RootBlockIndex)
	if err != nil {
		return nil, err
	}
	r := newRootBlock()
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode root block: %w", err)
	}
	return r, nil
}

func (f *FileSystem) saveRoot(r *RootBlock) error {
	data, err := r.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode root block: %w", err)
	}
	return f.dev.WriteBlock(RootBlockIndex, data)
}

func (f *FileSystem) loadDirBlock(block int64) (*DirBlock, error) {
	data, err := f.dev.ReadBlock(block)
	if err != nil {
		return nil, err
	}
	d := newDirBlock()
	if err := d.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode directory block %d: %w", block, err)
	}
	return d, nil
}

func (f *FileSystem) saveDirBlock(block int64, d *DirBlock) error {
	data, err := d.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode directory block %d: %w", block, err)
	}
	return f.dev.WriteBlock(block, data)
}

// findDirectory scans root for name, returning its slot index and entry.
func findDirectory(root *RootBlock, name string) (idx int, entry RootEntry, found bool) {
	for i := range root.Directories {
		if nameString(root.Directories[i].Name[:]) == name && root.Directories[i].Name[0] != 0 {
			return i, root.Directories[i], true
		}
	}
	return -1, RootEntry{}, false
}

// firstEmptyDirSlot returns the index of the first root slot with an
// empty name, or -1 if the root is full.
func firstEmptyDirSlot(root *RootBlock) int {
	for i := range root.Directories {
		if root.Directories[i].Name[0] == 0 {
			return i
		}
	}
	return -1
}

// findFile scans a directory block for (name, ext), returning its slot
// index and entry.
func findFile(dir *DirBlock, name, ext string) (idx int, entry DirFileEntry, found bool) {
	for i := range dir.Files {
		f := &dir.Files[i]
		if f.Name[0] == 0 {
			continue
		}
		if nameString(f.Name[:]) == name && nameString(f.Ext[:]) == ext {
			return i, *f, true
		}
	}
	return -1, DirFileEntry{}, false
}

// firstEmptyFileSlot returns the index of the first empty file slot, or
// -1 if the directory is full.
func firstEmptyFileSlot(dir *DirBlock) int {
	for i := range dir.Files {
		if dir.Files[i].Name[0] == 0 {
			return i
		}
	}
	return -1
}

// resolveDir locates a top-level directory's root entry by name, consulting
// dirIndex before scanning the root block. A cache hit skips loadRoot and
// findDirectory entirely; a miss falls back to the full scan and populates
// the cache for the next lookup. No caller needs the root block itself, only
// the resolved entry, so resolveDir doesn't return one.
func (f *FileSystem) resolveDir(name string) (RootEntry, error) {
	f.mu.RLock()
	block, cached := f.dirIndex[name]
	f.mu.RUnlock()
	if cached {
		logf("dirIndex hit for %q", name)
		return RootEntry{StartBlock: block}, nil
	}

	root, err := f.loadRoot()
	if err != nil {
		return RootEntry{}, err
	}
	_, entry, found := findDirectory(root, name)
	if !found {
		return RootEntry{}, ErrNotFound
	}

	f.mu.Lock()
	f.dirIndex[name] = entry.StartBlock
	f.mu.Unlock()

	return entry, nil
}

// GetAttr implements §4.5 getattr.
func (f *FileSystem) GetAttr(path string) (Attr, error) {
	logf("getattr %s", path)
	ref, err := ParsePath(path)
	if err != nil {
		return Attr{}, err
	}

	switch r := ref.(type) {
	case RootRef:
		return Attr{IsDir: true, Mode: dirMode, NLink: 2}, nil

	case DirRef:
		if _, err := f.resolveDir(r.Name); err != nil {
			return Attr{}, err
		}
		return Attr{IsDir: true, Mode: dirMode, NLink: 2}, nil

	case FileRef:
		entry, err := f.resolveDir(r.Dir)
		if err != nil {
			return Attr{}, err
		}
		dirBlock, err := f.loadDirBlock(entry.StartBlock)
		if err != nil {
			return Attr{}, err
		}
		_, file, found := findFile(dirBlock, r.Name, r.Ext)
		if !found {
			return Attr{}, ErrNotFound
		}
		return Attr{IsDir: false, Mode: fileMode, NLink: 1, Size: file.Size}, nil
	}

	return Attr{}, ErrNotFound
}

// ReadDir implements §4.5 readdir. Entry order matches on-disk array
// order, which is insertion order (first-free-slot placement).
func (f *FileSystem) ReadDir(path string) ([]string, error) {
	logf("readdir %s", path)
	ref, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	switch r := ref.(type) {
	case RootRef:
		root, err := f.loadRoot()
		if err != nil {
			return nil, err
		}
		names := []string{".", ".."}
		for i := range root.Directories {
			if root.Directories[i].Name[0] != 0 {
				names = append(names, nameString(root.Directories[i].Name[:]))
			}
		}
		return names, nil

	case DirRef:
		entry, err := f.resolveDir(r.Name)
		if err != nil {
			return nil, err
		}
		dirBlock, err := f.loadDirBlock(entry.StartBlock)
		if err != nil {
			return nil, err
		}
		names := []string{".", ".."}
		for i := range dirBlock.Files {
			fe := &dirBlock.Files[i]
			if fe.Name[0] == 0 {
				continue
			}
			name := nameString(fe.Name[:])
			if ext := nameString(fe.Ext[:]); ext != "" {
				name = name + "." + ext
			}
			names = append(names, name)
		}
		return names, nil

	default:
		return nil, ErrNotFound
	}
}

// Mkdir implements §4.5 mkdir.
func (f *FileSystem) Mkdir(path string) error {
	logf("mkdir %s", path)
	ref, err := ParsePath(path)
	if err != nil {
		return err
	}
	dirRef, ok := ref.(DirRef)
	if !ok {
		return ErrNotPermitted
	}

	root, err := f.loadRoot()
	if err != nil {
		return err
	}
	if _, _, found := findDirectory(root, dirRef.Name); found {
		return ErrExists
	}

	slot := firstEmptyDirSlot(root)
	if slot < 0 {
		return ErrNoSpace
	}

	table, err := loadAllocTable(f.dev)
	if err != nil {
		return err
	}
	block, err := table.Allocate()
	if err != nil {
		return err
	}

	empty := newDirBlock()
	if err := f.saveDirBlock(block, empty); err != nil {
		return err
	}
	if err := table.save(f.dev); err != nil {
		return err
	}

	nameBuf, err := nameBytes(dirRef.Name, MaxFilename)
	if err != nil {
		return err
	}
	copy(root.Directories[slot].Name[:], nameBuf)
	root.Directories[slot].StartBlock = block
	root.NDirectories++

	if err := f.saveRoot(root); err != nil {
		return err
	}

	f.mu.Lock()
	f.dirIndex[dirRef.Name] = block
	f.mu.Unlock()

	return nil
}

// Mknod implements §4.5 mknod. A missing parent directory is reported as
// ErrNotFound (§9 open question, resolved in DESIGN.md): the original
// source returned success with no effect, which this port treats as a bug
// rather than a behavior to preserve.
func (f *FileSystem) Mknod(path string) error {
	logf("mknod %s", path)
	ref, err := ParsePath(path)
	if err != nil {
		return err
	}
	fileRef, ok := ref.(FileRef)
	if !ok {
		return ErrNotPermitted
	}

	entry, err := f.resolveDir(fileRef.Dir)
	if err != nil {
		return err
	}

	dirBlock, err := f.loadDirBlock(entry.StartBlock)
	if err != nil {
		return err
	}
	if _, _, found := findFile(dirBlock, fileRef.Name, fileRef.Ext); found {
		return ErrExists
	}

	slot := firstEmptyFileSlot(dirBlock)
	if slot < 0 {
		return ErrNoSpace
	}

	table, err := loadAllocTable(f.dev)
	if err != nil {
		return err
	}
	block, err := table.Allocate()
	if err != nil {
		return err
	}
	if err := table.save(f.dev); err != nil {
		return err
	}

	nameBuf, err := nameBytes(fileRef.Name, MaxFilename)
	if err != nil {
		return err
	}
	extBuf, err := nameBytes(fileRef.Ext, MaxExtension)
	if err != nil {
		return err
	}

	copy(dirBlock.Files[slot].Name[:], nameBuf)
	copy(dirBlock.Files[slot].Ext[:], extBuf)
	dirBlock.Files[slot].Size = 0
	dirBlock.Files[slot].StartBlock = block
	dirBlock.NFiles++

	if err := f.saveDirBlock(entry.StartBlock, dirBlock); err != nil {
		return err
	}

	// Root is rewritten even though unchanged, matching the observable
	// on-disk write ordering of §5 (data block, table, parent dir, root).
	root, err := f.loadRoot()
	if err != nil {
		return err
	}
	return f.saveRoot(root)
}
