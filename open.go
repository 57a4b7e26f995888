// Crash recovery / self-healing open procedure (spec §4.2).
//
// recover validates both file headers, scans the data file for the
// live prefix of valid, checksummed, contiguously-sequenced records,
// cross-checks (or rebuilds) the index against it, and truncates both
// files' tails so that every byte beyond the live region is simply
// absent — the concrete realization of spec invariant 6 ("bytes beyond
// dat_end ... are all zero"): truncating to the live boundary makes
// "beyond" vacuously zero without a separate zero-fill pass.
package logdb

import (
	"errors"
	"io"
	"os"
)

// scannedRecord is one validated DataRecord found during a forward scan.
type scannedRecord struct {
	pos int64
	hdr datRecHeader
}

// scanForward walks DataRecords starting at pos, validating checksum,
// payload bounds, and (once a previous record is known) contiguous
// seqnums and non-decreasing timestamps. It stops at the first anomaly
// without consuming it, returning the position where the tail should
// be truncated. When fatalOnOrder is true, a seqnum/timestamp ordering
// violation is returned as an error instead of silently truncating
// (spec §4.2 step 7: "format violations detected mid-stream ... are
// fatal", contrasted with zero/short/bad-CRC records which merely end
// the scan).
func (st *Store) scanForward(pos int64, prevSeqnum, prevTimestamp uint64, havePrev bool, fatalOnOrder bool) ([]scannedRecord, int64, error) {
	var out []scannedRecord
	maxPayload := st.config.MaxRecordSize

	for {
		hdr, err := readDatRecHeaderAt(st.datReader, pos)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return out, pos, nil // header absent or mid-header: clean stop.
			}
			return out, pos, newErr(CodeReadData, err)
		}
		if hdr.Seqnum == 0 {
			return out, pos, nil // zero/rolled-back slot: clean stop.
		}

		total := int(hdr.MetadataLen) + int(hdr.DataLen)
		if total < 0 || total > maxPayload {
			return out, pos, nil // absurd lengths: treat as corrupt tail.
		}
		payload, err := readAt(st.datReader, pos+DatRecHeaderSize, total)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return out, pos, nil // incomplete payload: clean stop.
			}
			return out, pos, newErr(CodeReadData, err)
		}
		metadata := payload[:hdr.MetadataLen:hdr.MetadataLen]
		data := payload[hdr.MetadataLen:total:total]
		if checksum(hdr.Seqnum, hdr.Timestamp, hdr.MetadataLen, hdr.DataLen, metadata, data) != hdr.Checksum {
			return out, pos, nil // bad CRC: clean stop.
		}

		if havePrev {
			if hdr.Seqnum != prevSeqnum+1 {
				if fatalOnOrder {
					return out, pos, newErr(CodeBadDataFormat, nil)
				}
				return out, pos, nil
			}
			if hdr.Timestamp < prevTimestamp {
				if fatalOnOrder {
					return out, pos, newErr(CodeBadDataFormat, nil)
				}
				return out, pos, nil
			}
		}

		out = append(out, scannedRecord{pos: pos, hdr: hdr})
		pos += int64(DatRecHeaderSize + total)
		prevSeqnum, prevTimestamp, havePrev = hdr.Seqnum, hdr.Timestamp, true
	}
}

// readFirstRecord validates only the single DataRecord at pos, without
// scanning any further. Used by the non-check open path (spec §4.2 step
// 5): only the first record is ever read there, leaving discovery of the
// live tail to the index (step 9 "Without check") instead of a full scan.
func (st *Store) readFirstRecord(pos int64) (*scannedRecord, int64, error) {
	hdr, err := readDatRecHeaderAt(st.datReader, pos)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, pos, nil // header absent or mid-header: empty file.
		}
		return nil, pos, newErr(CodeReadData, err)
	}
	if hdr.Seqnum == 0 {
		return nil, pos, nil // zero/rolled-back slot: empty file.
	}

	total := int(hdr.MetadataLen) + int(hdr.DataLen)
	if total < 0 || total > st.config.MaxRecordSize {
		return nil, pos, nil // absurd lengths: treat as corrupt/empty.
	}
	payload, err := readAt(st.datReader, pos+DatRecHeaderSize, total)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, pos, nil // incomplete payload: treat as empty.
		}
		return nil, pos, newErr(CodeReadData, err)
	}
	metadata := payload[:hdr.MetadataLen:hdr.MetadataLen]
	data := payload[hdr.MetadataLen:total:total]
	if checksum(hdr.Seqnum, hdr.Timestamp, hdr.MetadataLen, hdr.DataLen, metadata, data) != hdr.Checksum {
		return nil, pos, nil // bad CRC: treat as empty.
	}

	return &scannedRecord{pos: pos, hdr: hdr}, pos + int64(DatRecHeaderSize+total), nil
}

// recover runs the full open/recovery procedure described in spec §4.2.
func (st *Store) recover(check bool) error {
	if _, err := readDatHeader(st.datWriter); err != nil {
		return err
	}

	var fullRecords []scannedRecord
	var haveFull bool
	var firstRec *scannedRecord
	datEnd := int64(DatHeaderSize)
	empty := true

	if check {
		recs, endPos, err := st.scanForward(DatHeaderSize, 0, 0, false, true)
		if err != nil {
			return err
		}
		fullRecords, haveFull, datEnd = recs, true, endPos
		if len(recs) > 0 {
			empty = false
			firstRec = &recs[0]
		}
		if err := st.datWriter.Truncate(datEnd); err != nil {
			return newErr(CodeWriteData, err)
		}
	} else {
		rec, endPos, err := st.readFirstRecord(DatHeaderSize)
		if err != nil {
			return err
		}
		if rec != nil {
			empty = false
			firstRec = rec
			datEnd = endPos // only the first record's extent is known so far;
			// openIndex (or rebuildFromScratch, if the index can't be
			// trusted) determines the true tail without a full scan.
		} else {
			datEnd = endPos
			if err := st.datWriter.Truncate(datEnd); err != nil {
				return newErr(CodeWriteData, err)
			}
		}
	}

	if _, err := readIdxHeader(st.idxWriter); err != nil {
		return st.rebuildFromScratch(check, empty, firstRec, fullRecords, haveFull)
	}

	s, ok, err := st.openIndex(check, empty, firstRec, fullRecords, haveFull)
	if err != nil || !ok {
		return st.rebuildFromScratch(check, empty, firstRec, fullRecords, haveFull)
	}

	st.publish(s)
	return nil
}

// openIndex implements spec §4.2 steps 8-12 assuming the index header
// itself parsed successfully. Returns ok=false (triggering the rebuild
// path) on any disagreement between index and data.
func (st *Store) openIndex(check, empty bool, firstRec *scannedRecord, fullRecords []scannedRecord, haveFull bool) (State, bool, error) {
	idxSize, err := st.idxFileSize()
	if err != nil {
		return State{}, false, err
	}
	hasFirstIdx := idxSize >= IdxHeaderSize+IdxRecordSize

	if empty != !hasFirstIdx {
		return State{}, false, nil
	}
	if empty {
		return State{}, true, nil
	}

	firstIdx, err := readIdxRecordAt(st.idxReader, IdxHeaderSize)
	if err != nil {
		return State{}, false, nil
	}
	if firstIdx.Seqnum != firstRec.hdr.Seqnum || firstIdx.Timestamp != firstRec.hdr.Timestamp || firstIdx.Pos != firstRec.pos {
		return State{}, false, nil
	}

	var lastIdx idxRecord
	var lastIdxEndPos int64 // slot offset one past the last live index record

	if check {
		if !haveFull {
			return State{}, false, nil // caller must supply a full scan when check is requested
		}
		prev := firstIdx
		lastIdx = firstIdx
		lastIdxEndPos = IdxHeaderSize + IdxRecordSize
		for i := 1; i < len(fullRecords); i++ {
			rec := fullRecords[i]
			pos := IdxHeaderSize + int64(i)*IdxRecordSize
			if pos+IdxRecordSize > idxSize {
				break // index is shorter than the data: pick up the rest below.
			}
			idx, err := readIdxRecordAt(st.idxReader, pos)
			if err != nil {
				return State{}, false, nil
			}
			if idx.Seqnum != prev.Seqnum+1 || idx.Timestamp < prev.Timestamp || idx.Pos < prev.Pos+DatRecHeaderSize {
				return State{}, false, nil
			}
			dhdr, _, _, err := readFullRecordAt(st.datReader, idx.Pos, st.config.MaxRecordSize)
			if err != nil || dhdr.Seqnum != idx.Seqnum || dhdr.Timestamp != idx.Timestamp {
				return State{}, false, nil
			}
			if idx.Seqnum != rec.hdr.Seqnum || idx.Pos != rec.pos {
				return State{}, false, nil
			}
			prev = idx
			lastIdx = idx
			lastIdxEndPos = pos + IdxRecordSize
			_ = dhdr
		}
	} else {
		aligned := IdxHeaderSize + ((idxSize-IdxHeaderSize)/IdxRecordSize)*IdxRecordSize
		pos := aligned
		lastIdxEndPos = IdxHeaderSize + IdxRecordSize // at minimum the first record is live.
		lastIdx = firstIdx
		for pos > IdxHeaderSize {
			pos -= IdxRecordSize
			idx, err := readIdxRecordAt(st.idxReader, pos)
			if err != nil {
				return State{}, false, nil
			}
			if idx.isZero() {
				continue
			}
			lastIdx = idx
			lastIdxEndPos = pos + IdxRecordSize
			break
		}
	}

	if err := st.idxWriter.Truncate(lastIdxEndPos); err != nil {
		return State{}, false, newErr(CodeWriteIndex, err)
	}

	// Step 12: pick up any data records appended but not yet indexed
	// (writer crashed after a data flush but before the index flush).
	lastDatHdr, _, _, err := readFullRecordAt(st.datReader, lastIdx.Pos, st.config.MaxRecordSize)
	if err != nil {
		return State{}, false, nil
	}
	resumePos := lastIdx.Pos + DatRecHeaderSize + int64(lastDatHdr.MetadataLen) + int64(lastDatHdr.DataLen)

	catchup, newEnd, err := st.scanForward(resumePos, lastIdx.Seqnum, lastIdx.Timestamp, true, false)
	if err != nil {
		return State{}, false, err
	}
	if err := st.datWriter.Truncate(newEnd); err != nil {
		return State{}, false, newErr(CodeWriteData, err)
	}

	nextSlot := lastIdxEndPos
	for _, rec := range catchup {
		if err := st.writeIdxRecordAt(nextSlot, idxRecord{Seqnum: rec.hdr.Seqnum, Timestamp: rec.hdr.Timestamp, Pos: rec.pos}); err != nil {
			return State{}, false, err
		}
		nextSlot += IdxRecordSize
		lastIdx = idxRecord{Seqnum: rec.hdr.Seqnum, Timestamp: rec.hdr.Timestamp, Pos: rec.pos}
	}
	if err := st.idxWriter.Sync(); err != nil {
		return State{}, false, newErr(CodeWriteIndex, err)
	}

	return State{
		Seqnum1:    firstIdx.Seqnum,
		Timestamp1: firstIdx.Timestamp,
		Seqnum2:    lastIdx.Seqnum,
		Timestamp2: lastIdx.Timestamp,
		Milestone:  mustMilestone(st.datWriter),
		DatEnd:     newEnd,
	}, true, nil
}

// rebuildFromScratch discards the index file and rebuilds it by
// scanning the data file in full (spec §4.2 step 13, the index-rebuild
// path: triggered by an unreadable/structurally-invalid index header,
// or by openIndex finding any disagreement).
func (st *Store) rebuildFromScratch(check, empty bool, firstRec *scannedRecord, fullRecords []scannedRecord, haveFull bool) error {
	if !haveFull {
		recs, endPos, err := st.scanForward(DatHeaderSize, 0, 0, false, true)
		if err != nil {
			return err
		}
		fullRecords = recs
		empty = len(recs) == 0
		if !empty {
			firstRec = &recs[0]
		} else {
			firstRec = nil
		}
		if err := st.datWriter.Truncate(endPos); err != nil {
			return newErr(CodeWriteData, err)
		}
	}
	_ = check
	_ = firstRec

	idxName := idxFileName(st.name)
	st.idxReader.Close()
	st.idxWriter.Close()
	if err := st.root.Remove(idxName); err != nil && !os.IsNotExist(err) {
		return newErr(CodeWriteIndex, err)
	}
	if err := st.createIdxFile(idxName); err != nil {
		return err
	}
	idxReader, err := st.root.OpenFile(idxName, os.O_RDONLY, 0644)
	if err != nil {
		return newErr(CodeOpenIndex, err)
	}
	idxWriter, err := st.root.OpenFile(idxName, os.O_RDWR, 0644)
	if err != nil {
		idxReader.Close()
		return newErr(CodeOpenIndex, err)
	}
	st.idxReader, st.idxWriter = idxReader, idxWriter

	if len(fullRecords) == 0 {
		st.publish(State{DatEnd: int64(DatHeaderSize), Milestone: mustMilestone(st.datWriter)})
		return nil
	}

	pos := int64(IdxHeaderSize)
	for _, rec := range fullRecords {
		if err := st.writeIdxRecordAt(pos, idxRecord{Seqnum: rec.hdr.Seqnum, Timestamp: rec.hdr.Timestamp, Pos: rec.pos}); err != nil {
			return err
		}
		pos += IdxRecordSize
	}
	if err := st.idxWriter.Sync(); err != nil {
		return newErr(CodeWriteIndex, err)
	}

	last := fullRecords[len(fullRecords)-1]
	datEnd := last.pos + DatRecHeaderSize + int64(last.hdr.MetadataLen) + int64(last.hdr.DataLen)
	st.publish(State{
		Seqnum1:    fullRecords[0].hdr.Seqnum,
		Timestamp1: fullRecords[0].hdr.Timestamp,
		Seqnum2:    last.hdr.Seqnum,
		Timestamp2: last.hdr.Timestamp,
		Milestone:  mustMilestone(st.datWriter),
		DatEnd:     datEnd,
	})
	return nil
}

func (st *Store) idxFileSize() (int64, error) {
	info, err := st.idxWriter.Stat()
	if err != nil {
		return 0, newErr(CodeReadIndex, err)
	}
	return info.Size(), nil
}

func (st *Store) writeIdxRecordAt(pos int64, rec idxRecord) error {
	var buf [IdxRecordSize]byte
	rec.encode(buf[:])
	if _, err := st.idxWriter.WriteAt(buf[:], pos); err != nil {
		return newErr(CodeWriteIndex, err)
	}
	return nil
}

// mustMilestone reads the milestone field straight from the data
// header; it is advisory metadata with no checksum, so a read failure
// here simply yields 0 rather than failing open.
func mustMilestone(f *os.File) uint64 {
	hdr, err := readDatHeader(f)
	if err != nil {
		return 0
	}
	return hdr.Milestone
}
