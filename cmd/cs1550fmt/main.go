// Command cs1550fmt creates and inspects cs1550fs backing images without
// requiring a FUSE mount, in the style of the teacher's cmd/sqfs CLI.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/brandonp728/cs1550fs/internal/diskfs"
)

const usage = `cs1550fmt - cs1550fs image tool

Usage:
  cs1550fmt mkfs <disk_file> <nblocks>        Create a new, empty backing image
  cs1550fmt ls <disk_file> [<dir>]            List a directory (root if omitted)
  cs1550fmt stat <disk_file> <dir>/<file>     Show attributes of a file or directory
  cs1550fmt info <disk_file>                  Show root directory summary
  cs1550fmt help                              Show this help message

Examples:
  cs1550fmt mkfs test.disk 64
  cs1550fmt ls test.disk
  cs1550fmt ls test.disk photos
  cs1550fmt stat test.disk photos/cat.jpg
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "mkfs":
		err = runMkfs(os.Args[2:])
	case "ls":
		err = runLs(os.Args[2:])
	case "stat":
		err = runStat(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "help":
		fmt.Println(usage)
		return
	default:
		fmt.Printf("Error: unknown command %q\n", os.Args[1])
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runMkfs(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: cs1550fmt mkfs <disk_file> <nblocks>")
	}
	nblocks, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid block count %q: %w", args[1], err)
	}
	return diskfs.CreateImage(args[0], nblocks)
}

func openFS(diskPath string) (*diskfs.FileSystem, func(), error) {
	dev, err := diskfs.OpenBlockDevice(diskPath)
	if err != nil {
		return nil, nil, err
	}
	return diskfs.New(dev), func() { dev.Close() }, nil
}

func runLs(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: cs1550fmt ls <disk_file> [<dir>]")
	}
	fs, closeFS, err := openFS(args[0])
	if err != nil {
		return err
	}
	defer closeFS()

	path := "/"
	if len(args) > 1 {
		path = "/" + args[1]
	}

	names, err := fs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func runStat(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: cs1550fmt stat <disk_file> <path>")
	}
	fs, closeFS, err := openFS(args[0])
	if err != nil {
		return err
	}
	defer closeFS()

	attr, err := fs.GetAttr("/" + args[1])
	if err != nil {
		return err
	}

	kind := "file"
	if attr.IsDir {
		kind = "directory"
	}
	fmt.Printf("%s: %s mode=%o nlink=%d size=%d\n", args[1], kind, attr.Mode, attr.NLink, attr.Size)
	return nil
}

func runInfo(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cs1550fmt info <disk_file>")
	}
	fs, closeFS, err := openFS(args[0])
	if err != nil {
		return err
	}
	defer closeFS()

	names, err := fs.ReadDir("/")
	if err != nil {
		return err
	}
	fmt.Printf("directories: %d\n", len(names)-2)
	for _, n := range names[2:] {
		fmt.Printf("  %s\n", n)
	}
	return nil
}
