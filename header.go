// Fixed-size binary headers for the data and index files.
//
// Both headers are written and read as explicit little-endian field
// sequences (never as a raw struct memcpy — field order and padding are
// pinned here, not left to the platform's struct layout) so the file
// format is portable across architectures.
package logdb

import (
	"encoding/binary"
	"os"
)

// Format is the on-disk format version. Only FormatCurrent is accepted;
// earlier (pre-checksum) formats are refused at open rather than
// silently trusted — see Design Notes, Open Question 2.
type Format uint32

const (
	FormatCurrent Format = 2
)

const (
	dataMagic uint64 = 0x4C4F474442444154 // "LOGDBDAT"
	idxMagic  uint64 = 0x4C4F474442494458 // "LOGDBIDX"

	bannerSize = 128

	// DatHeaderSize is the fixed size of the data file header:
	// magic(8) + format(4) + pad(4) + banner(128) + milestone(8).
	DatHeaderSize = 8 + 4 + 4 + bannerSize + 8

	// IdxHeaderSize is the fixed size of the index file header:
	// magic(8) + format(4) + pad(4) + banner(128).
	IdxHeaderSize = 8 + 4 + 4 + bannerSize
)

// DatHeader is the fixed header at the start of the data file.
type DatHeader struct {
	Magic     uint64
	Format    Format
	Banner    [bannerSize]byte
	Milestone uint64
}

// IdxHeader is the fixed header at the start of the index file.
type IdxHeader struct {
	Magic  uint64
	Format Format
	Banner [bannerSize]byte
}

func freshDatHeader(banner [bannerSize]byte) DatHeader {
	return DatHeader{Magic: dataMagic, Format: FormatCurrent, Banner: banner}
}

func freshIdxHeader(banner [bannerSize]byte) IdxHeader {
	return IdxHeader{Magic: idxMagic, Format: FormatCurrent, Banner: banner}
}

func (h DatHeader) encode() []byte {
	buf := make([]byte, DatHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.Magic)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.Format))
	// buf[12:16] reserved padding, left zero.
	copy(buf[16:16+bannerSize], h.Banner[:])
	binary.LittleEndian.PutUint64(buf[16+bannerSize:16+bannerSize+8], h.Milestone)
	return buf
}

func decodeDatHeader(buf []byte) (DatHeader, error) {
	if len(buf) < DatHeaderSize {
		return DatHeader{}, newErr(CodeBadDataFormat, nil)
	}
	var h DatHeader
	h.Magic = binary.LittleEndian.Uint64(buf[0:8])
	h.Format = Format(binary.LittleEndian.Uint32(buf[8:12]))
	copy(h.Banner[:], buf[16:16+bannerSize])
	h.Milestone = binary.LittleEndian.Uint64(buf[16+bannerSize : 16+bannerSize+8])
	if h.Magic != dataMagic {
		return DatHeader{}, newErr(CodeBadDataFormat, nil)
	}
	if h.Format != FormatCurrent {
		return DatHeader{}, newErr(CodeBadDataFormat, nil)
	}
	return h, nil
}

func (h IdxHeader) encode() []byte {
	buf := make([]byte, IdxHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.Magic)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.Format))
	copy(buf[16:16+bannerSize], h.Banner[:])
	return buf
}

func decodeIdxHeader(buf []byte) (IdxHeader, error) {
	if len(buf) < IdxHeaderSize {
		return IdxHeader{}, newErr(CodeBadIndexFormat, nil)
	}
	var h IdxHeader
	h.Magic = binary.LittleEndian.Uint64(buf[0:8])
	h.Format = Format(binary.LittleEndian.Uint32(buf[8:12]))
	copy(h.Banner[:], buf[16:16+bannerSize])
	if h.Magic != idxMagic {
		return IdxHeader{}, newErr(CodeBadIndexFormat, nil)
	}
	if h.Format != FormatCurrent {
		return IdxHeader{}, newErr(CodeBadIndexFormat, nil)
	}
	return h, nil
}

// readDatHeader reads and validates the data file header.
func readDatHeader(f *os.File) (DatHeader, error) {
	buf := make([]byte, DatHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return DatHeader{}, newErr(CodeReadData, err)
	}
	return decodeDatHeader(buf)
}

// readIdxHeader reads and validates the index file header.
func readIdxHeader(f *os.File) (IdxHeader, error) {
	buf := make([]byte, IdxHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return IdxHeader{}, newErr(CodeReadIndex, err)
	}
	return decodeIdxHeader(buf)
}

// writeMilestone patches only the milestone field of an already-written
// data header, at its fixed offset. No checksum protects this field —
// it is advisory application metadata (spec: milestone is opaque).
func writeMilestone(w *os.File, milestone uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], milestone)
	_, err := w.WriteAt(buf[:], 16+bannerSize)
	return err
}
