package bootrecord

import (
	"encoding/binary"
	"hash/crc32"
)

// Field offsets within the packed, little-endian wire format. There is no
// padding between fields — this mirrors the original C
// `struct BootRecord __attribute__((packed))` byte-for-byte.
const (
	offVersion     = 0x00 // uint32
	offTier        = 0x04 // uint8
	offTriesT2     = 0x05 // uint8
	offTriesT3     = 0x06 // uint8
	offRollbackIdx = 0x07 // uint8
	offFlags       = 0x08 // uint32
	offBootCount   = 0x0C // uint64
	offTimestamp   = 0x14 // uint64
	offCRC32       = 0x1C // uint32
	offTrailer     = 0x20 // uint32

	// Size is the fixed on-disk size of one BootRecord, and therefore the
	// size of one journal page.
	Size = offTrailer + 4
)

// crcTable is the IEEE 802.3 table (polynomial 0xEDB88320, the reflected
// form of 0x04C11DB7), matching spec's CRC engine exactly. [hash/crc32]
// builds and caches this table lazily on first use, which is the "lazily
// initialized once per process" table the spec calls for — there is no
// reason to hand-roll a second copy of the same table the standard library
// already provides.
var crcTable = crc32.IEEETable

// crcPrefix computes the CRC-32 (IEEE, init 0xFFFFFFFF, final XOR
// 0xFFFFFFFF — exactly what [crc32.Checksum] with the IEEE table does) over
// the byte prefix preceding the CRC32 field, i.e. bytes[0:offCRC32].
func crcPrefix(buf []byte) uint32 {
	return crc32.Checksum(buf[:offCRC32], crcTable)
}

// Marshal encodes r into a new Size-byte buffer in wire format. It does not
// recompute CRC32 or Trailer; callers that want a self-consistent buffer
// should call Finalize (directly, or via CreateDefault or the journal's
// write path) first.
func Marshal(r *Record) []byte {
	buf := make([]byte, Size)

	binary.LittleEndian.PutUint32(buf[offVersion:], r.Version)
	buf[offTier] = r.Tier
	buf[offTriesT2] = r.TriesT2
	buf[offTriesT3] = r.TriesT3
	buf[offRollbackIdx] = r.RollbackIdx
	binary.LittleEndian.PutUint32(buf[offFlags:], r.Flags)
	binary.LittleEndian.PutUint64(buf[offBootCount:], r.BootCount)
	binary.LittleEndian.PutUint64(buf[offTimestamp:], r.Timestamp)
	binary.LittleEndian.PutUint32(buf[offCRC32:], r.CRC32)
	binary.LittleEndian.PutUint32(buf[offTrailer:], r.Trailer)

	return buf
}

// Unmarshal decodes a Size-byte wire buffer into a Record. It does not
// validate the result; call Validate separately.
func Unmarshal(buf []byte) (Record, bool) {
	if len(buf) < Size {
		return Record{}, false
	}

	var r Record

	r.Version = binary.LittleEndian.Uint32(buf[offVersion:])
	r.Tier = buf[offTier]
	r.TriesT2 = buf[offTriesT2]
	r.TriesT3 = buf[offTriesT3]
	r.RollbackIdx = buf[offRollbackIdx]
	r.Flags = binary.LittleEndian.Uint32(buf[offFlags:])
	r.BootCount = binary.LittleEndian.Uint64(buf[offBootCount:])
	r.Timestamp = binary.LittleEndian.Uint64(buf[offTimestamp:])
	r.CRC32 = binary.LittleEndian.Uint32(buf[offCRC32:])
	r.Trailer = binary.LittleEndian.Uint32(buf[offTrailer:])

	return r, true
}

// Validate reports whether r is a well-formed, internally consistent
// record. Order is intentional: trailer first (cheapest), CRC second
// (requires re-encoding), semantic fields last.
func Validate(r *Record) bool {
	if r.Trailer != Magic {
		return false
	}

	buf := Marshal(r)
	if r.CRC32 != crcPrefix(buf) {
		return false
	}

	if r.Version != Version {
		return false
	}

	switch r.Tier {
	case Tier1, Tier2, Tier3:
	default:
		return false
	}

	return true
}

// CreateDefault returns a fresh Record in the safest boot state: Tier 1,
// full try counters, no flags, boot_count 0, timestamped now and
// self-consistent (trailer and CRC32 computed).
func CreateDefault(now func() uint64) Record {
	r := Record{
		Version:     Version,
		Tier:        Tier1,
		TriesT2:     DefaultTries,
		TriesT3:     DefaultTries,
		RollbackIdx: 0,
		Flags:       0,
		BootCount:   0,
		Timestamp:   now(),
	}

	Finalize(&r)

	return r
}

// Finalize stamps r.Trailer with Magic and recomputes r.CRC32 from the rest
// of the record. Callers that mutate a record in memory and want it to pass
// Validate again must call Finalize (the journal's Write path does this
// for every commit; it is exported so tests and callers constructing
// records directly can do the same).
func Finalize(r *Record) {
	r.Trailer = Magic
	buf := Marshal(r)
	r.CRC32 = crcPrefix(buf)
}
