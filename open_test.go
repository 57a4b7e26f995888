// Open/recovery tests: a fresh store, a reopened store, and the
// crash-tail scenarios the spec calls out explicitly.
package logdb

import (
	"os"
	"path/filepath"
	"testing"
)

// encodeDatRecord builds the raw bytes of one DataRecord, for tests that
// need to inject a record directly into a data file bypassing Append.
func encodeDatRecord(t *testing.T, seqnum, timestamp uint64, metadata, data string) []byte {
	t.Helper()
	m, d := []byte(metadata), []byte(data)
	hdr := datRecHeader{
		Seqnum:      seqnum,
		Timestamp:   timestamp,
		MetadataLen: uint32(len(m)),
		DataLen:     uint32(len(d)),
	}
	hdr.Checksum = checksum(hdr.Seqnum, hdr.Timestamp, hdr.MetadataLen, hdr.DataLen, m, d)
	buf := make([]byte, DatRecHeaderSize+len(m)+len(d))
	hdr.encode(buf)
	copy(buf[DatRecHeaderSize:], m)
	copy(buf[DatRecHeaderSize+len(m):], d)
	return buf
}

func TestOpenCreatesFreshFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if _, err := os.Stat(filepath.Join(dir, "journal.dat")); err != nil {
		t.Errorf("data file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "journal.idx")); err != nil {
		t.Errorf("index file missing: %v", err)
	}

	s := st.snapshot()
	if !s.empty() {
		t.Errorf("fresh store should be empty, got %+v", s)
	}
}

func TestOpenRejectsBadName(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, "has a space", true, Config{}); err == nil {
		t.Error("expected error for invalid name")
	}
	if _, err := Open(dir, "../escape", true, Config{}); err == nil {
		t.Error("expected error for path-like name")
	}
}

func TestReopenPreservesState(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustAppend(t, st, []Entry{entry(0, 0, "m1", "d1"), entry(0, 0, "m2", "d2")})
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	s := st2.snapshot()
	if s.Seqnum1 != 1 || s.Seqnum2 != 2 {
		t.Errorf("reopened range = [%d,%d], want [1,2]", s.Seqnum1, s.Seqnum2)
	}

	entries := make([]Entry, 2)
	n, err := st2.Read(1, entries)
	if err != nil || n != 2 {
		t.Fatalf("Read after reopen: n=%d err=%v", n, err)
	}
	if string(entries[0].Data) != "d1" || string(entries[1].Data) != "d2" {
		t.Errorf("unexpected payload after reopen: %+v", entries)
	}
}

func TestOpenTruncatesIncompleteTail(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustAppend(t, st, []Entry{entry(0, 0, "m1", "d1")})
	s := st.snapshot()
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate a crash mid-write: append a truncated record header past
	// the last good record.
	datPath := filepath.Join(dir, "journal.dat")
	f, err := os.OpenFile(datPath, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open dat: %v", err)
	}
	if _, err := f.WriteAt([]byte{1, 2, 3, 4}, s.DatEnd); err != nil {
		t.Fatalf("write garbage tail: %v", err)
	}
	f.Close()

	st2, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("reopen after simulated crash: %v", err)
	}
	defer st2.Close()

	s2 := st2.snapshot()
	if s2.Seqnum1 != 1 || s2.Seqnum2 != 1 {
		t.Errorf("recovered range = [%d,%d], want [1,1]", s2.Seqnum1, s2.Seqnum2)
	}
	if s2.DatEnd != s.DatEnd {
		t.Errorf("DatEnd after recovery = %d, want %d (garbage tail truncated)", s2.DatEnd, s.DatEnd)
	}
}

func TestOpenRebuildsMissingIndex(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustAppend(t, st, []Entry{
		entry(0, 0, "m1", "d1"),
		entry(0, 0, "m2", "d2"),
		entry(0, 0, "m3", "d3"),
	})
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "journal.idx")); err != nil {
		t.Fatalf("remove index: %v", err)
	}

	st2, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("reopen without index: %v", err)
	}
	defer st2.Close()

	s := st2.snapshot()
	if s.Seqnum1 != 1 || s.Seqnum2 != 3 {
		t.Errorf("rebuilt range = [%d,%d], want [1,3]", s.Seqnum1, s.Seqnum2)
	}

	entries := make([]Entry, 3)
	n, err := st2.Read(1, entries)
	if err != nil || n != 3 {
		t.Fatalf("Read after index rebuild: n=%d err=%v", n, err)
	}
}

// TestOpenFastPathWellFormedFile exercises check=false on a cleanly
// closed store: the fast-open path must reconstruct the same state as
// check=true without scanning the whole data file.
func TestOpenFastPathWellFormedFile(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustAppend(t, st, []Entry{
		entry(0, 0, "m1", "d1"),
		entry(0, 0, "m2", "d2"),
		entry(0, 0, "m3", "d3"),
	})
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(dir, "journal", false, Config{})
	if err != nil {
		t.Fatalf("reopen with check=false: %v", err)
	}
	defer st2.Close()

	s := st2.snapshot()
	if s.Seqnum1 != 1 || s.Seqnum2 != 3 {
		t.Errorf("fast-open range = [%d,%d], want [1,3]", s.Seqnum1, s.Seqnum2)
	}

	entries := make([]Entry, 3)
	n, err := st2.Read(1, entries)
	if err != nil || n != 3 {
		t.Fatalf("Read after fast open: n=%d err=%v", n, err)
	}
	if string(entries[2].Data) != "d3" {
		t.Errorf("unexpected payload after fast open: %+v", entries)
	}
}

// TestOpenFastPathRecoversUnindexedTail simulates a crash after a data
// record was flushed but before its index entry was written: even with
// check=false, openIndex's catch-up scan (not recover's forward scan)
// must pick up the trailing unindexed record.
func TestOpenFastPathRecoversUnindexedTail(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, "journal", true, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustAppend(t, st, []Entry{entry(0, 0, "m1", "d1"), entry(0, 0, "m2", "d2")})
	s := st.snapshot()
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Append a third, fully valid data record directly, without an
	// index entry, simulating a crash between the data flush and the
	// index flush.
	datPath := filepath.Join(dir, "journal.dat")
	f, err := os.OpenFile(datPath, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open dat: %v", err)
	}
	rec3 := encodeDatRecord(t, 3, s.Timestamp2, "m3", "d3")
	if _, err := f.WriteAt(rec3, s.DatEnd); err != nil {
		t.Fatalf("write unindexed record: %v", err)
	}
	f.Close()

	st2, err := Open(dir, "journal", false, Config{})
	if err != nil {
		t.Fatalf("reopen with check=false: %v", err)
	}
	defer st2.Close()

	s2 := st2.snapshot()
	if s2.Seqnum1 != 1 || s2.Seqnum2 != 3 {
		t.Errorf("recovered range = [%d,%d], want [1,3]", s2.Seqnum1, s2.Seqnum2)
	}

	entries := make([]Entry, 3)
	n, err := st2.Read(1, entries)
	if err != nil || n != 3 {
		t.Fatalf("Read after fast-open recovery: n=%d err=%v", n, err)
	}
	if string(entries[2].Data) != "d3" {
		t.Errorf("unexpected payload for recovered record: %+v", entries)
	}
}
