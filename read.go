// Read path (spec §4.4).
package logdb

// Read fills entries (reusing their Metadata/Data backing arrays when
// large enough, per Design Notes "pointer aliasing in Entry memory
// reuse") with up to len(entries) consecutive records starting at
// seqnum. It returns the number of entries filled and ErrNotFound if
// seqnum is outside the live range (seqnum 0 is never valid).
func (st *Store) Read(seqnum uint64, entries []Entry) (int, error) {
	if st.closed.Load() {
		return 0, ErrClosed
	}
	if seqnum == 0 {
		return 0, ErrNotFound
	}

	st.fileMu.RLock()
	defer st.fileMu.RUnlock()

	s := st.snapshot()
	if s.empty() || seqnum < s.Seqnum1 || seqnum > s.Seqnum2 {
		return 0, ErrNotFound
	}

	n := 0
	for i := range entries {
		want := seqnum + uint64(i)
		if want > s.Seqnum2 {
			break
		}

		idxPos := idxRecordOffset(s.Seqnum1, want)
		if want == s.Seqnum1 {
			idxPos = IdxHeaderSize // short-circuit to the known first record.
		}
		idx, err := readIdxRecordAt(st.idxReader, idxPos)
		if err != nil {
			return n, newErr(CodeReadIndex, err)
		}

		hdr, metadata, data, err := readFullRecordAt(st.datReader, idx.Pos, st.config.MaxRecordSize)
		if err != nil {
			return n, err
		}
		if hdr.Seqnum != want {
			return n, newErr(CodeReadData, nil)
		}

		e := &entries[i]
		e.Seqnum = hdr.Seqnum
		e.Timestamp = hdr.Timestamp
		e.Metadata = reuse(e.Metadata, metadata)
		e.Data = reuse(e.Data, data)
		n++
	}

	return n, nil
}

// reuse copies src into dst's backing array when it has enough
// capacity, otherwise allocates a fresh slice. This lets a caller reuse
// the same []Entry across repeated Read calls without an allocation
// per call once the buffers have grown to the largest record seen.
func reuse(dst, src []byte) []byte {
	if cap(dst) >= len(src) {
		dst = dst[:len(src)]
		copy(dst, src)
		return dst
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out
}
