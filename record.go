// On-disk record formats and their checksum.
//
// A DataRecord is a fixed-size header followed inline by its metadata
// and data payload bytes, no padding. An IndexRecord is a fixed-size
// triple {seqnum, timestamp, pos} giving random access into the data
// file by seqnum. Both are serialized as explicit little-endian fields
// (never a raw struct memcpy) so the format is portable.
package logdb

import (
	"encoding/binary"
	"hash/crc32"
)

// DatRecHeaderSize is the fixed size of a DataRecord's header:
// seqnum(8) + timestamp(8) + metadata_len(4) + data_len(4) + checksum(4).
const DatRecHeaderSize = 8 + 8 + 4 + 4 + 4

// IdxRecordSize is the fixed size of an IndexRecord: seqnum(8) +
// timestamp(8) + pos(8).
const IdxRecordSize = 8 + 8 + 8

// Entry is the application-facing view of a record: a seqnum, a
// timestamp, and two independently-owned opaque byte blobs. Either
// Metadata or Data may be nil/empty; both empty is legal.
type Entry struct {
	Seqnum    uint64
	Timestamp uint64
	Metadata  []byte
	Data      []byte
}

// datRecHeader is the fixed header preceding a DataRecord's payload.
type datRecHeader struct {
	Seqnum      uint64
	Timestamp   uint64
	MetadataLen uint32
	DataLen     uint32
	Checksum    uint32
}

// encode serializes the header fields (not the payload) into buf[:DatRecHeaderSize].
func (h datRecHeader) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], h.Seqnum)
	binary.LittleEndian.PutUint64(buf[8:16], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[16:20], h.MetadataLen)
	binary.LittleEndian.PutUint32(buf[20:24], h.DataLen)
	binary.LittleEndian.PutUint32(buf[24:28], h.Checksum)
}

func decodeDatRecHeader(buf []byte) datRecHeader {
	return datRecHeader{
		Seqnum:      binary.LittleEndian.Uint64(buf[0:8]),
		Timestamp:   binary.LittleEndian.Uint64(buf[8:16]),
		MetadataLen: binary.LittleEndian.Uint32(buf[16:20]),
		DataLen:     binary.LittleEndian.Uint32(buf[20:24]),
		Checksum:    binary.LittleEndian.Uint32(buf[24:28]),
	}
}

// isZero reports whether every field of the header is zero, the
// all-zero encoding of an empty/rolled-back slot (spec §4.1).
func (h datRecHeader) isZero() bool {
	return h.Seqnum == 0 && h.Timestamp == 0 && h.MetadataLen == 0 && h.DataLen == 0 && h.Checksum == 0
}

// idxRecord is the fixed on-disk index entry.
type idxRecord struct {
	Seqnum    uint64
	Timestamp uint64
	Pos       int64
}

func (r idxRecord) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], r.Seqnum)
	binary.LittleEndian.PutUint64(buf[8:16], r.Timestamp)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(r.Pos))
}

func decodeIdxRecord(buf []byte) idxRecord {
	return idxRecord{
		Seqnum:    binary.LittleEndian.Uint64(buf[0:8]),
		Timestamp: binary.LittleEndian.Uint64(buf[8:16]),
		Pos:       int64(binary.LittleEndian.Uint64(buf[16:24])),
	}
}

func (r idxRecord) isZero() bool {
	return r.Seqnum == 0 && r.Timestamp == 0 && r.Pos == 0
}

// checksum computes the CRC-32/ISO-HDLC (AUTODIN-II, polynomial
// 0xEDB88320 reflected, a.k.a. the standard zlib/gzip CRC-32) over the
// four header fields in wire order followed by metadata then data.
func checksum(seqnum, timestamp uint64, metadataLen, dataLen uint32, metadata, data []byte) uint32 {
	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[0:8], seqnum)
	binary.LittleEndian.PutUint64(hdr[8:16], timestamp)
	var lens [8]byte
	binary.LittleEndian.PutUint32(lens[0:4], metadataLen)
	binary.LittleEndian.PutUint32(lens[4:8], dataLen)

	crc := crc32.NewIEEE()
	crc.Write(hdr[:])
	crc.Write(lens[:])
	crc.Write(metadata)
	crc.Write(data)
	return crc.Sum32()
}

// idxRecordOffset returns the offset of the index record for seqnum S,
// given the live range's first seqnum (spec §4.1).
func idxRecordOffset(seqnum1, seqnum uint64) int64 {
	return IdxHeaderSize + int64(seqnum-seqnum1)*IdxRecordSize
}
