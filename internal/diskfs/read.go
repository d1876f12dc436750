package diskfs

// Read implements §4.6: resolves a file, walks its chain from offset, and
// copies bytes into buf. It never extends the file or mutates the chain;
// per §9, the original source's cosmetic rewrite of root and table on a
// successful read is a no-op and is intentionally omitted here.
func (f *FileSystem) Read(path string, buf []byte, offset int64) (int, error) {
	logf("read %s offset=%d len=%d", path, offset, len(buf))
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
		// Absent parent: return 0 bytes, no error (§4.6 step 2).
		return 0, nil
	}

	dirBlock, err := f.loadDirBlock(entry.StartBlock)
	if err != nil {
		return 0, err
	}
	_, file, found := findFile(dirBlock, fileRef.Name, fileRef.Ext)
	if !found {
		return 0, nil
	}

	if offset >= int64(file.Size) {
		return 0, nil
	}

	table, err := loadAllocTable(f.dev)
	if err != nil {
		return 0, err
	}

	blockOrdinal := int(offset / BlockSize)
	withinBlock := int(offset % BlockSize)

	block, steps := table.Walk(file.StartBlock, blockOrdinal)
	if steps < blockOrdinal {
		// Chain shorter than the requested offset implies.
		return 0, nil
	}

	remaining := int(file.Size) - int(offset)
	if remaining > len(buf) {
		remaining = len(buf)
	}

	total := 0
	first := true
	for remaining > 0 {
		data, err := f.dev.ReadBlock(block)
		if err != nil {
			return total, err
		}

		start := 0
		if first {
			start = withinBlock
			first = false
		}
		chunk := data[start:]
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		n := copy(buf[total:], chunk)
		total += n
		remaining -= n

		if remaining <= 0 {
			break
		}

		next, eof := table.Successor(block)
		if eof {
			break
		}
		block = next
	}

	return total, nil
}
