// Lazy enumeration of the live range, adapted from the teacher's
// all.go label/content scan: here the sequential walk follows seqnum
// order directly rather than rescanning the data file for data-typed
// lines, since the index already gives positional access to every
// live record.
package logdb

import "iter"

// All yields every live record from Seqnum1 through Seqnum2 in order.
// Callers consume it lazily via range and may break early to stop the
// walk; fileMu is held (shared) for the duration of iteration, so a
// long-running consumer will delay a pending Rollback/Purge.
func (st *Store) All() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if st.closed.Load() {
			yield(Entry{}, ErrClosed)
			return
		}

		st.fileMu.RLock()
		defer st.fileMu.RUnlock()

		s := st.snapshot()
		if s.empty() {
			return
		}

		for seqnum := s.Seqnum1; seqnum <= s.Seqnum2; seqnum++ {
			idxPos := idxRecordOffset(s.Seqnum1, seqnum)
			if seqnum == s.Seqnum1 {
				idxPos = IdxHeaderSize
			}
			idx, err := readIdxRecordAt(st.idxReader, idxPos)
			if err != nil {
				yield(Entry{}, newErr(CodeReadIndex, err))
				return
			}

			hdr, metadata, data, err := readFullRecordAt(st.datReader, idx.Pos, st.config.MaxRecordSize)
			if err != nil {
				yield(Entry{}, err)
				return
			}

			e := Entry{Seqnum: hdr.Seqnum, Timestamp: hdr.Timestamp, Metadata: metadata, Data: data}
			if !yield(e, nil) {
				return
			}
		}
	}
}
