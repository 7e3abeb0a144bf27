package fse

import (
	"encoding/binary"
	"fmt"
)

// ReadNCount parses a normalized count distribution header as emitted by a
// zstd encoder: a 4-bit table_log-5 prefix followed by variable-length
// signed counts, with a run-of-zeros escape (spec.md §4.2). maxSymbol is
// the largest symbol index the caller is willing to accept.
//
// Returns the normalized counts for symbols 0 through the largest symbol
// actually present (so len(norm)-1 is that symbol), the table log, and
// the number of header bytes consumed.
func ReadNCount(src []byte, maxSymbol int) (norm []int16, tableLog uint8, consumed int, err error) {
	if len(src) < 4 {
		return nil, 0, 0, fmt.Errorf("fse: NCount header shorter than 4 bytes")
	}

	bitStream := binary.LittleEndian.Uint32(src)
	nbBits := int(bitStream&0xF) + MinTableLog
	if nbBits > maxTableLogAbsolute {
		return nil, 0, 0, fmt.Errorf("fse: table_log %d exceeds format maximum", nbBits)
	}
	bitStream >>= 4
	bitCount := 4

	remaining := (1 << nbBits) + 1
	threshold := 1 << nbBits
	nbBits++
	tableLogOut := uint8(nbBits - 1)

	norm = make([]int16, maxSymbol+1)
	charnum := 0
	previous0 := false

	ip := 0
	iend := len(src)

	reload32 := func(bitCount int) uint32 {
		if ip+4 <= iend {
			return binary.LittleEndian.Uint32(src[ip:]) >> uint(bitCount&31)
		}
		var tmp [4]byte
		copy(tmp[:], src[ip:])
		return binary.LittleEndian.Uint32(tmp[:]) >> uint(bitCount&31)
	}

	for remaining > 1 && charnum <= maxSymbol {
		if previous0 {
			n0 := charnum
			for bitStream&0xFFFF == 0xFFFF {
				n0 += 24
				if ip < iend-5 {
					ip += 2
					bitStream = reload32(bitCount)
				} else {
					bitStream >>= 16
					bitCount += 16
				}
			}
			for bitStream&3 == 3 {
				n0 += 3
				bitStream >>= 2
				bitCount += 2
			}
			n0 += int(bitStream & 3)
			bitCount += 2
			if n0 > maxSymbol {
				return nil, 0, 0, fmt.Errorf("fse: zero run overflows maxSymbol (%d > %d)", n0, maxSymbol)
			}
			for charnum < n0 {
				norm[charnum] = 0
				charnum++
			}
			if ip <= iend-7 || ip+(bitCount>>3) <= iend-4 {
				ip += bitCount >> 3
				bitCount &= 7
				bitStream = reload32(bitCount)
			} else {
				bitStream >>= 2
			}
		}

		max := int16((2*threshold - 1) - remaining)
		var count int16
		if int(bitStream&uint32(threshold-1)) < int(max) {
			count = int16(bitStream & uint32(threshold-1))
			bitCount += nbBits - 1
		} else {
			count = int16(bitStream & uint32(2*threshold-1))
			if count >= int16(threshold) {
				count -= max
			}
			bitCount += nbBits
		}
		count--
		if count < 0 {
			remaining -= int(-count)
		} else {
			remaining -= int(count)
		}
		norm[charnum] = count
		charnum++
		previous0 = count == 0
		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}

		if ip <= iend-7 || ip+(bitCount>>3) <= iend-4 {
			ip += bitCount >> 3
			bitCount &= 7
		} else {
			bitCount -= 8 * (iend - 4 - ip)
			ip = iend - 4
		}
		bitStream = reload32(bitCount)
	}
	if remaining != 1 {
		return nil, 0, 0, fmt.Errorf("fse: normalized counter total mismatch")
	}

	consumed = ip + (bitCount+7)/8
	if consumed > len(src) {
		return nil, 0, 0, fmt.Errorf("fse: NCount header overruns input")
	}

	return norm[:charnum], tableLogOut, consumed, nil
}
