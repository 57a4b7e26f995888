// Rollback: top-trim the live range (spec §4.7).
package logdb

// Rollback discards every record with Seqnum > seqnum, shrinking the
// live range to [Seqnum1, seqnum]. It returns the number of records
// removed (0 if seqnum >= Seqnum2, a no-op). Rollback takes fileMu
// exclusively, excluding readers for its duration (spec §5).
func (st *Store) Rollback(seqnum uint64) (int, error) {
	if st.closed.Load() {
		return 0, ErrClosed
	}

	st.fileMu.Lock()
	defer st.fileMu.Unlock()

	s := st.snapshot()
	if s.empty() || seqnum >= s.Seqnum2 {
		return 0, nil
	}

	removed := int(s.Seqnum2 - seqnum)

	if seqnum < s.Seqnum1 {
		// Rolling back before the first live record empties the store.
		removed = int(s.count())
		if err := st.datWriter.Truncate(int64(DatHeaderSize)); err != nil {
			return 0, newErr(CodeWriteData, err)
		}
		if err := st.idxWriter.Truncate(int64(IdxHeaderSize)); err != nil {
			return 0, newErr(CodeWriteIndex, err)
		}
		if st.config.ForceFsync {
			if err := st.datWriter.Sync(); err != nil {
				return 0, newErr(CodeWriteData, err)
			}
			if err := st.idxWriter.Sync(); err != nil {
				return 0, newErr(CodeWriteIndex, err)
			}
		}
		st.publish(State{DatEnd: int64(DatHeaderSize), Milestone: s.Milestone})
		return removed, nil
	}

	cutRec, err := readIdxRecordAt(st.idxReader, idxRecordOffset(s.Seqnum1, seqnum))
	if err != nil {
		return 0, newErr(CodeReadIndex, err)
	}
	hdr, err := readDatRecHeaderAt(st.datReader, cutRec.Pos)
	if err != nil {
		return 0, newErr(CodeReadData, err)
	}
	newDatEnd := cutRec.Pos + DatRecHeaderSize + int64(hdr.MetadataLen) + int64(hdr.DataLen)

	// Bytes beyond the new end are vacuously zero once truncated, which
	// satisfies the "tail is all zero" invariant without an explicit
	// zero-fill pass.
	if err := st.datWriter.Truncate(newDatEnd); err != nil {
		return 0, newErr(CodeWriteData, err)
	}
	newIdxEnd := idxRecordOffset(s.Seqnum1, seqnum) + IdxRecordSize
	if err := st.idxWriter.Truncate(newIdxEnd); err != nil {
		return 0, newErr(CodeWriteIndex, err)
	}
	if st.config.ForceFsync {
		if err := st.datWriter.Sync(); err != nil {
			return 0, newErr(CodeWriteData, err)
		}
		if err := st.idxWriter.Sync(); err != nil {
			return 0, newErr(CodeWriteIndex, err)
		}
	}

	st.publish(State{
		Seqnum1:    s.Seqnum1,
		Timestamp1: s.Timestamp1,
		Seqnum2:    cutRec.Seqnum,
		Timestamp2: cutRec.Timestamp,
		Milestone:  s.Milestone,
		DatEnd:     newDatEnd,
	})
	return removed, nil
}
