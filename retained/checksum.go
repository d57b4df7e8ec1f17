package retained

import (
	"fmt"

	"github.com/klauspost/crc32"
)

// ChecksumPolicy selects how a page checksum is computed.
// Changing it makes existing pages read as invalid.
type ChecksumPolicy uint16

const (
	// ByteSum is the complemented 32-bit sum of all record bytes plus
	// the high and low byte of the sequence number
	ByteSum ChecksumPolicy = iota
	// CRC32 is IEEE CRC-32 over record bytes followed by the sequence number
	// (big endian)
	CRC32
	// CRC32C is like CRC32 with the Castagnoli polynomial
	CRC32C
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

func (p ChecksumPolicy) String() string {
	switch p {
	case ByteSum:
		return "bytesum"
	case CRC32:
		return "crc32"
	case CRC32C:
		return "crc32c"
	}
	return fmt.Sprintf("ChecksumPolicy(%d)", uint16(p))
}

func (p ChecksumPolicy) valid() bool {
	return p <= CRC32C
}

// Sum computes the checksum of a record with a given sequence number
func (p ChecksumPolicy) Sum(data []byte, seqNum uint16) uint32 {
	switch p {
	case CRC32:
		return crcSum(crc32.IEEETable, data, seqNum)
	case CRC32C:
		return crcSum(castagnoliTable, data, seqNum)
	}
	return byteSum(data, seqNum)
}

func byteSum(data []byte, seqNum uint16) uint32 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	// high and low byte are added separately, not as a 16-bit word
	sum += uint32(seqNum >> 8)
	sum += uint32(seqNum & 0xff)
	return ^sum
}

func crcSum(tab *crc32.Table, data []byte, seqNum uint16) uint32 {
	crc := crc32.Update(0, tab, data)
	seq := [2]byte{byte(seqNum >> 8), byte(seqNum)}
	return crc32.Update(crc, tab, seq[:])
}
