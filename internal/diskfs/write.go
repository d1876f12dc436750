package diskfs

// Write implements §4.7: resolves a file, walks or grows its chain, places
// bytes at offset, and updates file size. No implicit file creation: a
// missing parent or file returns 0 bytes written with no error, matching
// §4.7 steps 1–2.
func (f *FileSystem) Write(path string, buf []byte, offset int64) (int, error) {
	logf("write %s offset=%d len=%d", path, offset, len(buf))
	ref, err := ParsePath(path)
	if err != nil {
		return 0, err
	}
	fileRef, ok := ref.(FileRef)
	if !ok {
		return 0, ErrIsADirectory
	}

	entry, err := f.resolveDir(fileRef.Dir)
	if err != nil {
		return 0, nil
	}

	dirBlock, err := f.loadDirBlock(entry.StartBlock)
	if err != nil {
		return 0, err
	}
	slot, file, found := findFile(dirBlock, fileRef.Name, fileRef.Ext)
	if !found {
		return 0, nil
	}

	if offset > int64(file.Size) {
		return 0, ErrFileTooBig
	}

	total := len(buf)
	if total == 0 {
		return 0, nil
	}

	table, err := loadAllocTable(f.dev)
	if err != nil {
		return 0, err
	}

	blockOrdinal := int(offset / BlockSize)
	withinBlock := int(offset % BlockSize)

	current, err := table.WalkExtend(file.StartBlock, blockOrdinal)
	if err != nil {
		return 0, err
	}

	written := 0
	first := true
	for written < total {
		existing, err := f.dev.ReadBlock(current)
		if err != nil {
			return written, err
		}

		offsetInBlock := 0
		if first {
			offsetInBlock = withinBlock
		}
		capacity := BlockSize - offsetInBlock
		remaining := total - written

		n := remaining
		pad := false
		if first && remaining <= capacity {
			pad = true
		}
		if n > capacity {
			n = capacity
		}

		copy(existing[offsetInBlock:offsetInBlock+n], buf[written:written+n])
		if pad {
			for i := offsetInBlock + n; i < BlockSize; i++ {
				existing[i] = 0
			}
		}
		if err := f.dev.WriteBlock(current, existing); err != nil {
			return written, err
		}

		written += n
		first = false

		if written >= total {
			break
		}

		next, eof := table.Successor(current)
		if eof {
			logf("write %s extending chain past block %d", path, current)
			nb, err := table.Allocate()
			if err != nil {
				return written, err
			}
			table.SetSuccessor(current, nb)
			next = nb
		}
		current = next
	}

	if highWater := uint64(offset) + uint64(written); highWater > file.Size {
		file.Size = highWater
	}
	dirBlock.Files[slot] = file

	// Persist order per §5: data blocks already written above, then
	// table, then parent directory, then root.
	if err := table.save(f.dev); err != nil {
		return written, err
	}
	if err := f.saveDirBlock(entry.StartBlock, dirBlock); err != nil {
		return written, err
	}
	root, err := f.loadRoot()
	if err != nil {
		return written, err
	}
	if err := f.saveRoot(root); err != nil {
		return written, err
	}

	return written, nil
}
