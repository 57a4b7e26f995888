// Timestamp search over the index (spec §4.6).
package logdb

// SearchMode selects which boundary Search returns when timestamp plateaus
// (multiple consecutive records sharing the same timestamp) are present.
type SearchMode int

const (
	// SearchLower returns the seqnum of the first record with
	// Timestamp >= the target.
	SearchLower SearchMode = iota
	// SearchUpper returns the seqnum of the first record with
	// Timestamp > the target.
	SearchUpper
)

// Search locates a seqnum by timestamp via binary search over the dense
// index. It returns ErrNotFound if the store is empty, if mode is
// SearchLower and target is after every record (target > Timestamp2),
// or if mode is SearchUpper and target is at or after the last record
// (target >= Timestamp2, since no record then has a strictly greater
// timestamp).
func (st *Store) Search(target uint64, mode SearchMode) (uint64, error) {
	if st.closed.Load() {
		return 0, ErrClosed
	}

	st.fileMu.RLock()
	defer st.fileMu.RUnlock()

	s := st.snapshot()
	if s.empty() {
		return 0, ErrNotFound
	}

	switch mode {
	case SearchLower:
		if target > s.Timestamp2 {
			return 0, ErrNotFound
		}
		if target <= s.Timestamp1 {
			return s.Seqnum1, nil
		}
	case SearchUpper:
		if target >= s.Timestamp2 {
			return 0, ErrNotFound
		}
		if target < s.Timestamp1 {
			return s.Seqnum1, nil
		}
	}

	lo, hi := s.Seqnum1, s.Seqnum2
	for lo < hi {
		mid := lo + (hi-lo)/2
		rec, err := readIdxRecordAt(st.idxReader, idxRecordOffset(s.Seqnum1, mid))
		if err != nil {
			return 0, newErr(CodeReadIndex, err)
		}

		switch mode {
		case SearchLower:
			if rec.Timestamp >= target {
				hi = mid
			} else {
				lo = mid + 1
			}
		case SearchUpper:
			if rec.Timestamp > target {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
	}

	return lo, nil
}
