// Range statistics (spec §4.5).
package logdb

// Stats summarizes the live records in [seqnumLo, seqnumHi].
type Stats struct {
	MinSeqnum    uint64
	MaxSeqnum    uint64
	MinTimestamp uint64
	MaxTimestamp uint64
	NumEntries   uint64
	IndexSize    int64
	DataSize     int64
}

// Stats clamps [seqnumLo, seqnumHi] to the live range and reports size
// and timestamp bounds over it. A range disjoint from the live region
// yields a zeroed Stats with a nil error, not ErrNotFound.
func (st *Store) Stats(seqnumLo, seqnumHi uint64) (Stats, error) {
	if st.closed.Load() {
		return Stats{}, ErrClosed
	}

	st.fileMu.RLock()
	defer st.fileMu.RUnlock()

	s := st.snapshot()
	if s.empty() || seqnumHi < s.Seqnum1 || seqnumLo > s.Seqnum2 {
		return Stats{}, nil
	}

	lo, hi := seqnumLo, seqnumHi
	if lo < s.Seqnum1 {
		lo = s.Seqnum1
	}
	if hi > s.Seqnum2 {
		hi = s.Seqnum2
	}

	loIdxPos := idxRecordOffset(s.Seqnum1, lo)
	if lo == s.Seqnum1 {
		loIdxPos = IdxHeaderSize
	}
	lowIdx, err := readIdxRecordAt(st.idxReader, loIdxPos)
	if err != nil {
		return Stats{}, newErr(CodeReadIndex, err)
	}
	hiIdx, err := readIdxRecordAt(st.idxReader, idxRecordOffset(s.Seqnum1, hi))
	if err != nil {
		return Stats{}, newErr(CodeReadIndex, err)
	}

	upperHdr, err := readDatRecHeaderAt(st.datReader, hiIdx.Pos)
	if err != nil {
		return Stats{}, newErr(CodeReadData, err)
	}

	numEntries := hi - lo + 1
	return Stats{
		MinSeqnum:    lowIdx.Seqnum,
		MaxSeqnum:    hiIdx.Seqnum,
		MinTimestamp: lowIdx.Timestamp,
		MaxTimestamp: hiIdx.Timestamp,
		NumEntries:   numEntries,
		IndexSize:    int64(numEntries) * IdxRecordSize,
		DataSize:     (hiIdx.Pos - lowIdx.Pos) + DatRecHeaderSize + int64(upperHdr.MetadataLen) + int64(upperHdr.DataLen),
	}, nil
}
