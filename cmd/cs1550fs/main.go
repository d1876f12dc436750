// Command cs1550fs mounts a cs1550fs backing image as a FUSE filesystem,
// wiring internal/diskfs into github.com/hanwen/go-fuse/v2/fs node
// callbacks in the manner of the teacher's inode_fuse.go, adapted from
// squashfs's read-only inode-number model to this core's path-based,
// mutating two-level namespace.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brandonp728/cs1550fs/internal/diskfs"
)

func main() {
	diskPath := flag.String("disk", ".disk", "path to the backing image")
	debug := flag.Bool("debug", false, "enable FUSE protocol debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cs1550fs [-disk path] <mountpoint>")
		os.Exit(1)
	}
	mountpoint := flag.Arg(0)

	dev, err := diskfs.OpenBlockDevice(*diskPath)
	if err != nil {
		log.Fatalf("cs1550fs: opening backing image %s: %s", *diskPath, err)
	}
	defer dev.Close()

	fsys := diskfs.New(dev)
	root := &node{fsys: fsys, path: "/"}

	server, err := fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:      *debug,
			FsName:     "cs1550fs",
			Name:       "cs1550fs",
			AllowOther: false,
		},
	})
	if err != nil {
		log.Fatalf("cs1550fs: mount: %s", err)
	}

	log.Printf("cs1550fs: mounted %s at %s", *diskPath, mountpoint)
	server.Wait()
}

// node is a single cs1550fs tree node, identified by its full path within
// the two-level namespace ("/", "/dir", or "/dir/name.ext"). Every
// operation delegates to the shared *diskfs.FileSystem, which owns the
// actual on-disk state; the node itself holds no cached data.
type node struct {
	fs.Inode

	fsys *diskfs.FileSystem
	path string
}

var (
	_ fs.InodeEmbedder = (*node)(nil)
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeMkdirer   = (*node)(nil)
	_ fs.NodeCreater   = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeReader    = (*node)(nil)
	_ fs.NodeWriter    = (*node)(nil)
	_ fs.NodeRmdirer   = (*node)(nil)
	_ fs.NodeUnlinker  = (*node)(nil)
	_ fs.NodeSetattrer = (*node)(nil)
	_ fs.NodeFlusher   = (*node)(nil)
)

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// errnoFor maps a diskfs error to the FUSE errno the kernel expects, per
// §7's error-kind-to-host-code mapping.
func errnoFor(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case isErr(err, diskfs.ErrNotFound):
		return syscall.ENOENT
	case isErr(err, diskfs.ErrExists):
		return syscall.EEXIST
	case isErr(err, diskfs.ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case isErr(err, diskfs.ErrNotPermitted):
		return syscall.EPERM
	case isErr(err, diskfs.ErrIsADirectory):
		return syscall.EISDIR
	case isErr(err, diskfs.ErrFileTooBig):
		return syscall.EFBIG
	case isErr(err, diskfs.ErrNoSpace):
		return syscall.ENOSPC
	default:
		return syscall.EIO
	}
}

func isErr(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func attrToFuse(a diskfs.Attr, out *fuse.Attr) {
	out.Mode = a.Mode
	out.Nlink = a.NLink
	out.Size = a.Size
	if a.IsDir {
		out.Mode |= syscall.S_IFDIR
	} else {
		out.Mode |= syscall.S_IFREG
	}
	out.Blksize = diskfs.BlockSize
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.fsys.GetAttr(n.path)
	if err != nil {
		return errnoFor(err)
	}
	attrToFuse(attr, &out.Attr)
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childP := childPath(n.path, name)
	attr, err := n.fsys.GetAttr(childP)
	if err != nil {
		return nil, errnoFor(err)
	}

	attrToFuse(attr, &out.Attr)
	mode := uint32(syscall.S_IFREG)
	if attr.IsDir {
		mode = syscall.S_IFDIR
	}
	child := &node{fsys: n.fsys, path: childP}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode}), 0
}

// dirStream implements fs.DirStream over the names returned by ReadDir.
type dirStream struct {
	names []string
	i     int
}

func (d *dirStream) HasNext() bool { return d.i < len(d.names) }

func (d *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	name := d.names[d.i]
	d.i++
	mode := uint32(syscall.S_IFREG)
	if name == "." || name == ".." {
		mode = syscall.S_IFDIR
	}
	return fuse.DirEntry{Name: name, Mode: mode}, 0
}

func (d *dirStream) Close() {}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.fsys.ReadDir(n.path)
	if err != nil {
		return nil, errnoFor(err)
	}
	return &dirStream{names: names}, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childP := childPath(n.path, name)
	if err := n.fsys.Mkdir(childP); err != nil {
		return nil, errnoFor(err)
	}
	attr, err := n.fsys.GetAttr(childP)
	if err != nil {
		return nil, errnoFor(err)
	}
	attrToFuse(attr, &out.Attr)
	child := &node{fsys: n.fsys, path: childP}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

// Create implements open-with-O_CREAT: it creates the file via Mknod if
// absent, or simply opens it if it already exists (opening an existing
// file without O_EXCL is not itself an error at the host boundary, even
// though the core's Mknod reports ErrExists for a bare mknod(2) call).
func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	childP := childPath(n.path, name)
	err := n.fsys.Mknod(childP)
	if err != nil && !isErr(err, diskfs.ErrExists) {
		return nil, nil, 0, errnoFor(err)
	}

	attr, err := n.fsys.GetAttr(childP)
	if err != nil {
		return nil, nil, 0, errnoFor(err)
	}
	attrToFuse(attr, &out.Attr)
	child := &node{fsys: n.fsys, path: childP}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG}), nil, fuse.FOPEN_KEEP_CACHE, 0
}

// Open always succeeds; the backing image has no file-descriptor state to
// track beyond what FileSystem already manages per call (§6: open always
// succeeds).
func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	nRead, err := n.fsys.Read(n.path, dest, off)
	if err != nil {
		return nil, errnoFor(err)
	}
	return fuse.ReadResultData(dest[:nRead]), 0
}

func (n *node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.fsys.Write(n.path, data, off)
	if err != nil {
		return uint32(written), errnoFor(err)
	}
	return uint32(written), 0
}

// Rmdir, Unlink and the truncate path of Setattr are accepted and return
// success without effect, per §6: this core does not reclaim blocks.
func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return 0
}

func (n *node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.fsys.GetAttr(n.path)
	if err != nil {
		return errnoFor(err)
	}
	attrToFuse(attr, &out.Attr)
	return 0
}

func (n *node) Flush(ctx context.Context, f fs.FileHandle) syscall.Errno {
	return 0
}
