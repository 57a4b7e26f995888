package logdb

import "testing"

func seedTimestamps(t *testing.T, st *Store, timestamps []uint64) {
	t.Helper()
	entries := make([]Entry, len(timestamps))
	for i, ts := range timestamps {
		entries[i] = Entry{Timestamp: ts, Data: []byte("d")}
	}
	mustAppend(t, st, entries)
}

func TestSearchLowerExactMatch(t *testing.T) {
	st := openTestStore(t, "journal", true, Config{})
	seedTimestamps(t, st, []uint64{10, 20, 30, 40, 50})

	seqnum, err := st.Search(30, SearchLower)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if seqnum != 3 {
		t.Errorf("seqnum = %d, want 3", seqnum)
	}
}

func TestSearchLowerBetweenRecords(t *testing.T) {
	st := openTestStore(t, "journal", true, Config{})
	seedTimestamps(t, st, []uint64{10, 20, 30, 40, 50})

	seqnum, err := st.Search(25, SearchLower)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if seqnum != 3 { // first record with timestamp >= 25 is seqnum 3 (ts=30)
		t.Errorf("seqnum = %d, want 3", seqnum)
	}
}

func TestSearchUpperBetweenRecords(t *testing.T) {
	st := openTestStore(t, "journal", true, Config{})
	seedTimestamps(t, st, []uint64{10, 20, 30, 40, 50})

	seqnum, err := st.Search(25, SearchUpper)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if seqnum != 3 { // first record with timestamp > 25 is seqnum 3 (ts=30)
		t.Errorf("seqnum = %d, want 3", seqnum)
	}
}

func TestSearchPlateau(t *testing.T) {
	st := openTestStore(t, "journal", true, Config{})
	seedTimestamps(t, st, []uint64{10, 20, 20, 20, 30})

	lo, err := st.Search(20, SearchLower)
	if err != nil {
		t.Fatalf("Search lower: %v", err)
	}
	if lo != 2 {
		t.Errorf("SearchLower on plateau = %d, want 2 (first matching)", lo)
	}

	hi, err := st.Search(20, SearchUpper)
	if err != nil {
		t.Fatalf("Search upper: %v", err)
	}
	if hi != 5 {
		t.Errorf("SearchUpper on plateau = %d, want 5 (first record past the plateau)", hi)
	}
}

func TestSearchOutOfBounds(t *testing.T) {
	st := openTestStore(t, "journal", true, Config{})
	seedTimestamps(t, st, []uint64{10, 20, 30})

	first, err := st.Search(5, SearchLower)
	if err != nil {
		t.Fatalf("SearchLower before range: %v", err)
	}
	if first != 1 {
		t.Errorf("SearchLower(5) = %d, want 1 (seqnum1, the first timestamp >= target)", first)
	}
	if _, err := st.Search(100, SearchLower); err != ErrNotFound {
		t.Errorf("SearchLower after range = %v, want ErrNotFound", err)
	}
	seqnum, err := st.Search(5, SearchUpper)
	if err != nil {
		t.Fatalf("SearchUpper before range: %v", err)
	}
	if seqnum != 1 {
		t.Errorf("SearchUpper(5) = %d, want 1 (seqnum1, since its timestamp already exceeds target)", seqnum)
	}

	if _, err := st.Search(100, SearchUpper); err != ErrNotFound {
		t.Errorf("SearchUpper at/after last timestamp = %v, want ErrNotFound", err)
	}
	if _, err := st.Search(30, SearchUpper); err != ErrNotFound {
		t.Errorf("SearchUpper(Timestamp2) = %v, want ErrNotFound", err)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	st := openTestStore(t, "journal", true, Config{})
	if _, err := st.Search(10, SearchLower); err != ErrNotFound {
		t.Errorf("Search on empty store = %v, want ErrNotFound", err)
	}
}
