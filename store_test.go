package logdb

import "testing"

// openTestStore opens a fresh store in a temp directory, cleaning up
// on test completion.
func openTestStore(t *testing.T, name string, check bool, cfg Config) *Store {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(dir, name, check, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func mustAppend(t *testing.T, st *Store, entries []Entry) {
	t.Helper()
	n, err := st.Append(entries)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != len(entries) {
		t.Fatalf("Append wrote %d entries, want %d", n, len(entries))
	}
}

func entry(seqnum, timestamp uint64, meta, data string) Entry {
	return Entry{Seqnum: seqnum, Timestamp: timestamp, Metadata: []byte(meta), Data: []byte(data)}
}

// seedSpecLog builds the spec §8 seeded test vector: seqnums 20..314
// with timestamp ts(S) = S - (S mod 10).
func seedSpecLog(t *testing.T, st *Store) {
	t.Helper()
	entries := make([]Entry, 0, 295)
	for seqnum := uint64(20); seqnum <= 314; seqnum++ {
		ts := seqnum - (seqnum % 10)
		entries = append(entries, entry(seqnum, ts, "m", "d"))
	}
	mustAppend(t, st, entries)
}
