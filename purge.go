// Purge: bottom-trim the live range (spec §4.8).
//
// Purge rewrites both files into <name>.tmp.dat and <name>.tmp.idx,
// then renames each into place,
// following the teacher's own temp-file-plus-atomic-rename protocol
// for destructive reorganisation (compact/repair.go).
package logdb

import (
	"os"
	"time"
)

// Purge discards every record with Seqnum < seqnum, shrinking the live
// range to [seqnum, Seqnum2]. It returns the number of records removed
// (0 if seqnum <= Seqnum1, a no-op). If seqnum > Seqnum2, every live
// record is discarded and both files are recreated empty. Purge takes
// fileMu exclusively, excluding readers for its duration (spec §5).
func (st *Store) Purge(seqnum uint64) (int, error) {
	if st.closed.Load() {
		return 0, ErrClosed
	}

	st.fileMu.Lock()
	defer st.fileMu.Unlock()

	s := st.snapshot()
	if s.empty() || seqnum <= s.Seqnum1 {
		return 0, nil
	}

	if seqnum > s.Seqnum2 {
		removed := int(s.Seqnum2 - s.Seqnum1 + 1)
		if err := st.purgeAll(s.Milestone); err != nil {
			return 0, err
		}
		return removed, nil
	}

	removed := int(seqnum - s.Seqnum1)
	if err := st.purgeRange(s, seqnum); err != nil {
		return 0, err
	}
	return removed, nil
}

// purgeAll drops every live record, recreating both files empty rather
// than copying zero records through a temp file.
func (st *Store) purgeAll(milestone uint64) error {
	datName, idxName := datFileName(st.name), idxFileName(st.name)

	st.closeHandles()
	if err := st.root.Remove(datName); err != nil {
		return newErr(CodeWriteData, err)
	}
	if err := st.root.Remove(idxName); err != nil {
		return newErr(CodeWriteIndex, err)
	}
	if err := st.createDatFile(datName); err != nil {
		return err
	}
	if err := st.createIdxFile(idxName); err != nil {
		return err
	}
	if err := st.reopenHandles(); err != nil {
		return err
	}
	if err := writeMilestone(st.datWriter, milestone); err != nil {
		return newErr(CodeWriteData, err)
	}
	if st.config.ForceFsync {
		if err := st.datWriter.Sync(); err != nil {
			return newErr(CodeWriteData, err)
		}
	}

	st.publish(State{DatEnd: int64(DatHeaderSize), Milestone: milestone})
	return nil
}

// purgeRange copies the surviving [seqnum, Seqnum2] records into a temp
// data file and rebuilds a fresh index alongside it, then swaps both
// into place with an atomic rename.
func (st *Store) purgeRange(s State, seqnum uint64) error {
	cutRec, err := readIdxRecordAt(st.idxReader, idxRecordOffset(s.Seqnum1, seqnum))
	if err != nil {
		return newErr(CodeReadIndex, err)
	}

	datTmpName := tmpFileName(st.name) + ".dat"
	idxTmpName := tmpFileName(st.name) + ".idx"
	st.root.Remove(datTmpName)
	st.root.Remove(idxTmpName)

	datTmp, err := st.root.Create(datTmpName)
	if err != nil {
		return newErr(CodeOpenData, err)
	}
	defer datTmp.Close()
	idxTmp, err := st.root.Create(idxTmpName)
	if err != nil {
		return newErr(CodeOpenIndex, err)
	}
	defer idxTmp.Close()

	b := banner(st.dir, st.name, time.Now().UnixMilli(), st.config.FingerprintAlgorithm)
	datHdr := freshDatHeader(b)
	datHdr.Milestone = s.Milestone
	if _, err := datTmp.Write(datHdr.encode()); err != nil {
		return newErr(CodeWriteData, err)
	}
	idxHdr := freshIdxHeader(b)
	if _, err := idxTmp.Write(idxHdr.encode()); err != nil {
		return newErr(CodeWriteIndex, err)
	}

	writePos := int64(DatHeaderSize)
	idxPos := int64(IdxHeaderSize)
	pos := cutRec.Pos
	for {
		hdr, metadata, data, err := readFullRecordAt(st.datReader, pos, st.config.MaxRecordSize)
		if err != nil {
			return newErr(CodeReadData, err)
		}

		buf := make([]byte, DatRecHeaderSize+len(metadata)+len(data))
		hdr.encode(buf)
		copy(buf[DatRecHeaderSize:], metadata)
		copy(buf[DatRecHeaderSize+len(metadata):], data)
		if _, err := datTmp.WriteAt(buf, writePos); err != nil {
			return newErr(CodeWriteData, err)
		}

		rec := idxRecord{Seqnum: hdr.Seqnum, Timestamp: hdr.Timestamp, Pos: writePos}
		b := make([]byte, IdxRecordSize)
		rec.encode(b)
		if _, err := idxTmp.WriteAt(b, idxPos); err != nil {
			return newErr(CodeWriteIndex, err)
		}

		writePos += int64(len(buf))
		idxPos += IdxRecordSize

		if hdr.Seqnum == s.Seqnum2 {
			break
		}
		pos += int64(len(buf))
	}

	if err := datTmp.Sync(); err != nil {
		return newErr(CodeWriteData, err)
	}
	if err := idxTmp.Sync(); err != nil {
		return newErr(CodeWriteIndex, err)
	}
	datTmp.Close()
	idxTmp.Close()

	st.closeHandles()

	datName, idxName := datFileName(st.name), idxFileName(st.name)
	if err := st.root.Rename(datTmpName, datName); err != nil {
		st.reopenHandles()
		return newErr(CodeTempFile, err)
	}
	if err := st.root.Rename(idxTmpName, idxName); err != nil {
		st.reopenHandles()
		return newErr(CodeTempFile, err)
	}

	if err := st.reopenHandles(); err != nil {
		return err
	}

	st.publish(State{
		Seqnum1:    cutRec.Seqnum,
		Timestamp1: cutRec.Timestamp,
		Seqnum2:    s.Seqnum2,
		Timestamp2: s.Timestamp2,
		Milestone:  s.Milestone,
		DatEnd:     writePos,
	})
	return nil
}

// reopenHandles reopens all four handles after a rename/recreate swap,
// matching the teacher's reader/writer reopen in repair.go.
func (st *Store) reopenHandles() error {
	datName, idxName := datFileName(st.name), idxFileName(st.name)

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
	return nil
}
