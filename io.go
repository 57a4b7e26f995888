// Low-level positional record I/O shared by recovery, read, and the
// rewriting protocols (rollback/purge).
//
// Every read here is positional (io.ReaderAt via *os.File.ReadAt), so a
// reader handle never needs to share or restore a seek position with
// the writer — the portable equivalent of the teacher's dual
// file-descriptor trick (Design Notes, "dual file handles per file").
package logdb

import "io"

// readAt reads exactly n bytes at pos. A short read (including a clean
// EOF before n bytes) is reported as io.ErrUnexpectedEOF so callers can
// treat it uniformly as "incomplete tail".
func readAt(f readerAt, pos int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := f.ReadAt(buf, pos)
	if read < n {
		return buf[:read], io.ErrUnexpectedEOF
	}
	return buf, nil
}

// readerAt is satisfied by *os.File; narrowed for testability.
type readerAt interface {
	ReadAt(p []byte, off int64) (int, error)
}

// readDatRecHeaderAt reads the fixed DataRecord header at pos.
func readDatRecHeaderAt(f readerAt, pos int64) (datRecHeader, error) {
	buf, err := readAt(f, pos, DatRecHeaderSize)
	if err != nil {
		return datRecHeader{}, err
	}
	return decodeDatRecHeader(buf), nil
}

// readFullRecordAt reads and checksum-verifies the complete DataRecord
// (header + payload) at pos. maxPayload bounds metadata_len+data_len
// against Config.MaxRecordSize so a corrupt length field cannot drive
// an unbounded allocation.
func readFullRecordAt(f readerAt, pos int64, maxPayload int) (datRecHeader, []byte, []byte, error) {
	hdr, err := readDatRecHeaderAt(f, pos)
	if err != nil {
		return datRecHeader{}, nil, nil, err
	}
	total := int(hdr.MetadataLen) + int(hdr.DataLen)
	if total < 0 || total > maxPayload {
		return hdr, nil, nil, newErr(CodeBadDataFormat, nil)
	}
	payload, err := readAt(f, pos+DatRecHeaderSize, total)
	if err != nil {
		return hdr, nil, nil, err
	}
	metadata := payload[:hdr.MetadataLen:hdr.MetadataLen]
	data := payload[hdr.MetadataLen:total:total]
	sum := checksum(hdr.Seqnum, hdr.Timestamp, hdr.MetadataLen, hdr.DataLen, metadata, data)
	if sum != hdr.Checksum {
		return hdr, metadata, data, newErr(CodeChecksumMismatch, nil)
	}
	return hdr, metadata, data, nil
}

// readIdxRecordAt reads the fixed IndexRecord at pos.
func readIdxRecordAt(f readerAt, pos int64) (idxRecord, error) {
	buf, err := readAt(f, pos, IdxRecordSize)
	if err != nil {
		return idxRecord{}, err
	}
	return decodeIdxRecord(buf), nil
}
