// Core store type and lifecycle operations (Open/Close).
//
// Store manages the data and index file handles and the in-memory state
// used for concurrency control. Recovery logic lives in open.go; this
// file covers handle setup/teardown and the public Config surface.
package logdb

import (
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds per-store configuration options.
type Config struct {
	// ForceFsync requests a durable sync of the underlying storage after
	// every user-space flush (append batch, rollback, purge, milestone
	// update), in addition to the flush itself.
	ForceFsync bool

	// ReadBuffer is defaulted to 64KiB when zero but is not read by any
	// code path: open recovery reads each record with its own exact-size
	// positional read.
	ReadBuffer int

	// MaxRecordSize bounds metadata_len+data_len for a single record,
	// guarding against absurd allocations from a corrupt length field.
	// Default 16MiB.
	MaxRecordSize int

	// FingerprintAlgorithm selects the cosmetic banner fingerprint
	// algorithm (FingerprintXXH3, FingerprintFNV1a, FingerprintBlake2b).
	// Default FingerprintXXH3. Never affects any on-disk invariant.
	FingerprintAlgorithm int
}

func (c Config) withDefaults() Config {
	if c.ReadBuffer == 0 {
		c.ReadBuffer = 64 * 1024
	}
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = 16 * 1024 * 1024
	}
	if c.FingerprintAlgorithm == 0 {
		c.FingerprintAlgorithm = FingerprintXXH3
	}
	return c
}

// nameRe validates store names: 1-32 chars from [A-Za-z0-9_].
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,32}$`)

// Store represents an open record log: a pair of files (<name>.dat and
// <name>.idx) under dir, plus the in-memory state used to coordinate a
// single writer with concurrent readers.
type Store struct {
	root *os.Root
	dir  string
	name string

	datReader *os.File
	datWriter *os.File
	idxReader *os.File
	idxWriter *os.File

	config Config

	stateMu sync.Mutex
	state   State

	fileMu sync.RWMutex // exclusive: Rollback/Purge. shared: Read/Stats/Search. Append takes neither.

	closed atomic.Bool
}

func datFileName(name string) string { return name + ".dat" }
func idxFileName(name string) string { return name + ".idx" }
func tmpFileName(name string) string { return name + ".tmp" }

// Open opens or creates the record log named name under dir (dir == ""
// means the current directory). When check is true, the full data file
// is forward-scanned and cross-validated against the index on open;
// when false, only the first record is verified and the index tail is
// trusted (see Design Notes, Open Question 1).
func Open(dir, name string, check bool, config Config) (*Store, error) {
	if !nameRe.MatchString(name) {
		return nil, newErr(CodeInvalidName, nil)
	}
	config = config.withDefaults()

	rootDir := dir
	if rootDir == "" {
		rootDir = "."
	}
	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, newErr(CodeInvalidPath, err)
	}

	st := &Store{root: root, dir: dir, name: name, config: config}

	if err := st.openFiles(check); err != nil {
		root.Close()
		return nil, err
	}
	return st, nil
}

// openFiles creates missing files, opens all four handles, and runs
// recovery. On any failure every handle opened so far is released.
func (st *Store) openFiles(check bool) error {
	datName := datFileName(st.name)
	idxName := idxFileName(st.name)

	if _, err := st.root.Stat(datName); os.IsNotExist(err) {
		if err := st.createDatFile(datName); err != nil {
			return err
		}
		// A data file with no history cannot have a meaningful index;
		// drop any leftover index from a previous store at this name.
		st.root.Remove(idxName)
	}

	if _, err := st.root.Stat(idxName); os.IsNotExist(err) {
		if err := st.createIdxFile(idxName); err != nil {
			return err
		}
	}

	datReader, err := st.root.OpenFile(datName, os.O_RDONLY, 0644)
	if err != nil {
		return newErr(CodeOpenData, err)
	}
	datWriter, err := st.root.OpenFile(datName, os.O_RDWR, 0644)
	if err != nil {
		datReader.Close()
		return newErr(CodeOpenData, err)
	}
	idxReader, err := st.root.OpenFile(idxName, os.O_RDONLY, 0644)
	if err != nil {
		datReader.Close()
		datWriter.Close()
		return newErr(CodeOpenIndex, err)
	}
	idxWriter, err := st.root.OpenFile(idxName, os.O_RDWR, 0644)
	if err != nil {
		datReader.Close()
		datWriter.Close()
		idxReader.Close()
		return newErr(CodeOpenIndex, err)
	}

	st.datReader, st.datWriter = datReader, datWriter
	st.idxReader, st.idxWriter = idxReader, idxWriter

	if err := st.recover(check); err != nil {
		st.closeHandles()
		return err
	}
	return nil
}

func (st *Store) createDatFile(datName string) error {
	f, err := st.root.Create(datName)
	if err != nil {
		return newErr(CodeOpenData, err)
	}
	defer f.Close()

	b := banner(st.dir, st.name, time.Now().UnixMilli(), st.config.FingerprintAlgorithm)
	hdr := freshDatHeader(b)
	if _, err := f.Write(hdr.encode()); err != nil {
		return newErr(CodeWriteData, err)
	}
	if err := f.Sync(); err != nil {
		return newErr(CodeWriteData, err)
	}
	return nil
}

func (st *Store) createIdxFile(idxName string) error {
	f, err := st.root.Create(idxName)
	if err != nil {
		return newErr(CodeOpenIndex, err)
	}
	defer f.Close()

	b := banner(st.dir, st.name, time.Now().UnixMilli(), st.config.FingerprintAlgorithm)
	hdr := freshIdxHeader(b)
	if _, err := f.Write(hdr.encode()); err != nil {
		return newErr(CodeWriteIndex, err)
	}
	if err := f.Sync(); err != nil {
		return newErr(CodeWriteIndex, err)
	}
	return nil
}

func (st *Store) closeHandles() {
	if st.datReader != nil {
		st.datReader.Close()
	}
	if st.datWriter != nil {
		st.datWriter.Close()
	}
	if st.idxReader != nil {
		st.idxReader.Close()
	}
	if st.idxWriter != nil {
		st.idxWriter.Close()
	}
	st.datReader, st.datWriter, st.idxReader, st.idxWriter = nil, nil, nil, nil
}

// Close flushes outstanding buffered writes and releases all file
// handles. The store must not be used afterward.
func (st *Store) Close() error {
	if !st.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	st.fileMu.Lock()
	defer st.fileMu.Unlock()

	var first error
	if st.datWriter != nil {
		if err := st.datWriter.Sync(); err != nil && first == nil {
			first = newErr(CodeWriteData, err)
		}
	}
	if st.idxWriter != nil {
		if err := st.idxWriter.Sync(); err != nil && first == nil {
			first = newErr(CodeWriteIndex, err)
		}
	}

	st.closeHandles()
	if err := st.root.Close(); err != nil && first == nil {
		first = newErr(CodeGeneric, err)
	}
	return first
}

// Version returns the package's semantic version string.
func Version() string { return "1.0.0" }
