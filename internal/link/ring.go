package link

import (
	"fmt"
)

// ringLayout is a TPACKET_V3 ring geometry.
type ringLayout struct {
	frameSize int
	blockSize int
	numBlocks int
}

// computeRing derives a ring layout that satisfies PACKET_MMAP alignment
// within a memory budget:
//  1. frameSize is a multiple of TPACKET_ALIGNMENT
//  2. blockSize is a multiple of pageSize, and of frameSize unless that
//     would exceed 4 MB
//  3. blockSize * numBlocks approximates ringBufferMB
func computeRing(ringBufferMB, snapLen, pageSize int) (ringLayout, error) {
	const tpacketAlignment = 16
	const tpacketHdrLen = 52 // TPACKET3_HDRLEN, approximate
	const maxBlockSize = 4 * 1024 * 1024

	if ringBufferMB <= 0 {
		return ringLayout{}, fmt.Errorf("ring buffer size must be positive, got %d MB", ringBufferMB)
	}
	if snapLen <= 0 {
		return ringLayout{}, fmt.Errorf("snap length must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return ringLayout{}, fmt.Errorf("page size must be positive and a multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	var r ringLayout
	r.frameSize = (tpacketHdrLen + snapLen + tpacketAlignment - 1) / tpacketAlignment * tpacketAlignment

	r.blockSize = lcm(pageSize, r.frameSize)
	if r.blockSize > maxBlockSize {
		r.blockSize = maxBlockSize / pageSize * pageSize
	}

	r.numBlocks = ringBufferMB * 1024 * 1024 / r.blockSize
	if r.numBlocks < 1 {
		r.numBlocks = 1
	}
	return r, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
