package diskfs

import "fmt"

// loadAllocTable reads and parses the table block (block 1).
func loadAllocTable(dev BlockIO) (*AllocTable, error) {
	data, err := dev.ReadBlock(TableBlockIndex)
	if err != nil {
		return nil, err
	}
	t := &AllocTable{}
	if err := t.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode alloc table: %w", err)
	}
	return t, nil
}

// save persists the table block back to disk.
func (t *AllocTable) save(dev BlockIO) error {
	data, err := t.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode alloc table: %w", err)
	}
	return dev.WriteBlock(TableBlockIndex, data)
}

// Allocate scans the table from FirstDataBlock upward, deterministically
// returning the first free (zero) slot, marks it EOFSentinel, and returns
// its index. It returns ErrNoSpace if no free slot remains.
func (t *AllocTable) Allocate() (int64, error) {
	for i := FirstDataBlock; i < len(t.Slots); i++ {
		if t.Slots[i] == 0 {
			t.Slots[i] = EOFSentinel
			logf("allocated block %d", i)
			return int64(i), nil
		}
	}
	logf("allocation failed, no free blocks")
	return 0, ErrNoSpace
}

// Successor returns the chain successor of block b, and whether b is the
// terminal block of its chain (EOFSentinel).
func (t *AllocTable) Successor(b int64) (next int64, eof bool) {
	v := t.Slots[b]
	if v == EOFSentinel {
		return 0, true
	}
	return int64(v), false
}

// SetSuccessor threads block b's table slot to point at next.
func (t *AllocTable) SetSuccessor(b, next int64) {
	t.Slots[b] = int16(next)
}

// IsFree reports whether block b is currently unallocated.
func (t *AllocTable) IsFree(b int64) bool {
	return t.Slots[b] == 0
}

// Walk follows successors from start by k steps. If the chain ends before
// k steps, it returns the last block reached and the number of steps
// actually taken; the caller decides whether to extend the chain.
func (t *AllocTable) Walk(start int64, k int) (block int64, steps int) {
	block = start
	for steps = 0; steps < k; steps++ {
		next, eof := t.Successor(block)
		if eof {
			logf("chain %d ends at step %d short of %d", start, steps, k)
			return block, steps
		}
		block = next
	}
	return block, steps
}

// WalkExtend follows successors from start by k steps, allocating and
// linking new blocks whenever the chain ends early. Used by the write
// path, which (unlike read) must be able to grow a chain to reach a
// requested offset.
func (t *AllocTable) WalkExtend(start int64, k int) (int64, error) {
	block := start
	for i := 0; i < k; i++ {
		next, eof := t.Successor(block)
		if eof {
			logf("chain %d ends at step %d, extending", start, i)
			nb, err := t.Allocate()
			if err != nil {
				return 0, err
			}
			t.SetSuccessor(block, nb)
			next = nb
		}
		block = next
	}
	return block, nil
}
