// Append path (spec §4.3).
//
// Append does not take fileMu: it only extends both files and
// publishes state at the end, so a concurrent reader is never blocked
// by a writer that is merely growing the log (spec §5, "append not
// blocked").
package logdb

import "time"

// Append writes entries in order, assigning seqnum/timestamp to any
// entry that has zero in either field. It returns the number of
// entries durably written and the first error encountered, if any.
// Append is not atomic across the batch: entries before the failing
// one are flushed and durable; entries at and after it are not written.
func (st *Store) Append(entries []Entry) (int, error) {
	if st.closed.Load() {
		return 0, ErrClosed
	}

	s := st.snapshot()
	written := 0
	var firstErr error

	for i := range entries {
		e := &entries[i]

		if e.Seqnum == 0 {
			if s.empty() {
				e.Seqnum = 1
			} else {
				e.Seqnum = s.Seqnum2 + 1
			}
		}
		if e.Timestamp == 0 {
			now := uint64(time.Now().UnixMilli())
			if now < s.Timestamp2 {
				now = s.Timestamp2
			}
			e.Timestamp = now
		}

		if !s.empty() && e.Seqnum != s.Seqnum2+1 {
			firstErr = newErr(CodeBadEntrySeqnum, nil)
			break
		}
		if !s.empty() && e.Timestamp < s.Timestamp2 {
			firstErr = newErr(CodeBadEntryTimestamp, nil)
			break
		}
		total := int64(len(e.Metadata)) + int64(len(e.Data))
		if total > int64(st.config.MaxRecordSize) {
			firstErr = newErr(CodeInvalidArg, nil)
			break
		}

		pos := s.DatEnd
		sum := checksum(e.Seqnum, e.Timestamp, uint32(len(e.Metadata)), uint32(len(e.Data)), e.Metadata, e.Data)
		hdr := datRecHeader{
			Seqnum:      e.Seqnum,
			Timestamp:   e.Timestamp,
			MetadataLen: uint32(len(e.Metadata)),
			DataLen:     uint32(len(e.Data)),
			Checksum:    sum,
		}

		buf := make([]byte, DatRecHeaderSize+len(e.Metadata)+len(e.Data))
		hdr.encode(buf)
		copy(buf[DatRecHeaderSize:], e.Metadata)
		copy(buf[DatRecHeaderSize+len(e.Metadata):], e.Data)

		if _, err := st.datWriter.WriteAt(buf, pos); err != nil {
			firstErr = newErr(CodeWriteData, err)
			break
		}

		idxPos := idxRecordOffset(s.Seqnum1, e.Seqnum)
		if s.empty() {
			idxPos = IdxHeaderSize
		}
		if err := st.writeIdxRecordAt(idxPos, idxRecord{Seqnum: e.Seqnum, Timestamp: e.Timestamp, Pos: pos}); err != nil {
			firstErr = err
			break
		}

		if s.empty() {
			s.Seqnum1, s.Timestamp1 = e.Seqnum, e.Timestamp
		}
		s.Seqnum2, s.Timestamp2 = e.Seqnum, e.Timestamp
		s.DatEnd = pos + int64(len(buf))
		written++
	}

	// Writes already went straight to the OS via WriteAt (no user-space
	// buffering layer to flush); ForceFsync additionally requests a
	// durable sync of the underlying storage for both files.
	if st.config.ForceFsync {
		if err := st.datWriter.Sync(); err != nil && firstErr == nil {
			firstErr = newErr(CodeWriteData, err)
		}
		if err := st.idxWriter.Sync(); err != nil && firstErr == nil {
			firstErr = newErr(CodeWriteIndex, err)
		}
	}

	st.publish(s)
	return written, firstErr
}
