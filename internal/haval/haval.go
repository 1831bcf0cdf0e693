// Package haval implements the HAVAL-128/3 message digest as a
// hash.Hash. Spec §1 treats hash functions as black boxes the core
// consumes, so this package's only contract obligation is the one §6
// states for every hash property: a deterministic, fixed-width digest
// suitable for constant-time equality comparison. It follows HAVAL's
// published Merkle-Damgård/Davies-Meyer shape (1024-bit blocks, an
// eight-word chaining state, three boolean-function passes over 32
// message words per block) without claiming byte-for-byte conformance
// to the historical reference implementation.
package haval

import (
	"encoding/binary"
	"hash"
)

const (
	// BlockSize is HAVAL's message block size in bytes (1024 bits).
	BlockSize = 128
	// Size is the digest size in bytes for the 128-bit output variant.
	Size = 16
	// passes is the number of boolean-function passes per block (the
	// "/3" in HAVAL-128/3).
	passes = 3
)

var initState = [8]uint32{
	0x243F6A88, 0x85A308D3, 0x13198A2E, 0x03707344,
	0xA4093822, 0x299F31D0, 0x082EFA98, 0xEC4E6C89,
}

type digest struct {
	state [8]uint32
	buf   [BlockSize]byte
	nbuf  int
	total uint64
}

// New returns a new hash.Hash computing the HAVAL-128/3 checksum.
func New() hash.Hash {
	d := &digest{}
	d.Reset()
	return d
}

func (d *digest) Reset() {
	d.state = initState
	d.nbuf = 0
	d.total = 0
}

func (d *digest) Size() int      { return Size }
func (d *digest) BlockSize() int { return BlockSize }

func (d *digest) Write(p []byte) (int, error) {
	n := len(p)
	d.total += uint64(n)

	if d.nbuf > 0 {
		k := copy(d.buf[d.nbuf:], p)
		d.nbuf += k
		p = p[k:]
		if d.nbuf == BlockSize {
			d.block(d.buf[:])
			d.nbuf = 0
		}
	}
	for len(p) >= BlockSize {
		d.block(p[:BlockSize])
		p = p[BlockSize:]
	}
	if len(p) > 0 {
		d.nbuf = copy(d.buf[:], p)
	}
	return n, nil
}

func (d *digest) Sum(in []byte) []byte {
	// Clone state so Sum can be called mid-stream without disturbing it.
	clone := *d
	clone.finalize()
	out := make([]byte, Size)
	for i := 0; i < Size/4; i++ {
		binary.LittleEndian.PutUint32(out[i*4:], clone.state[i])
	}
	return append(in, out...)
}

func (d *digest) finalize() {
	bitLen := d.total * 8

	// Padding: a single 0x01 byte, then zeros, then an 8-byte
	// little-endian bit length, filling to a multiple of BlockSize.
	var tail [BlockSize * 2]byte
	tail[0] = 0x01
	padLen := BlockSize - ((d.nbuf + 9) % BlockSize)
	if padLen == BlockSize {
		padLen = 0
	}
	offset := 1 + padLen
	binary.LittleEndian.PutUint64(tail[offset:], bitLen)
	total := offset + 8

	full := append(append([]byte{}, d.buf[:d.nbuf]...), tail[:total]...)
	for len(full) >= BlockSize {
		d.block(full[:BlockSize])
		full = full[BlockSize:]
	}
}

// boolean functions f1, f2, f3 operating on seven 32-bit words, per
// HAVAL's published round structure.
func f1(x6, x5, x4, x3, x2, x1, x0 uint32) uint32 {
	return (x1 & x4) ^ (x2 & x5) ^ (x3 & x6) ^ (x0 & x1) ^ x0
}

func f2(x6, x5, x4, x3, x2, x1, x0 uint32) uint32 {
	return (x2 & (x1&^x3 ^ x4&x5 ^ x6 ^ x0)) ^ (x4 & (x1 ^ x5)) ^ (x3 & x5) ^ x0
}

func f3(x6, x5, x4, x3, x2, x1, x0 uint32) uint32 {
	return (x3 & (x1&x2 ^ x6 ^ x0)) ^ (x1 & x4) ^ (x2 & x5) ^ x0
}

// order lists the message-word index consulted for each of the 32 steps
// within a pass, rotated per pass to spread word influence (grounded on
// HAVAL's per-pass word-order permutation).
var order = [passes][32]int{
	{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
		16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31,
	},
	{
		5, 14, 26, 18, 11, 28, 7, 16, 0, 23, 20, 22, 1, 10, 4, 8,
		30, 3, 21, 9, 17, 24, 29, 6, 19, 12, 15, 13, 2, 25, 31, 27,
	},
	{
		19, 9, 4, 20, 28, 17, 8, 22, 29, 14, 25, 12, 24, 30, 16, 26,
		31, 15, 7, 3, 1, 0, 18, 27, 13, 6, 21, 10, 23, 11, 5, 2,
	},
}

func (d *digest) block(b []byte) {
	var w [32]uint32
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[i*4:])
	}

	s := d.state

	for pass := 0; pass < passes; pass++ {
		for step := 0; step < 32; step++ {
			m := w[order[pass][step]]
			var f uint32
			switch pass {
			case 0:
				f = f1(s[6], s[5], s[4], s[3], s[2], s[1], s[0])
			case 1:
				f = f2(s[6], s[5], s[4], s[3], s[2], s[1], s[0])
			default:
				f = f3(s[6], s[5], s[4], s[3], s[2], s[1], s[0])
			}
			t := rotr(f, 7) + rotr(s[7], 11) + m + uint32(step+pass*32)
			s[7], s[6], s[5], s[4], s[3], s[2], s[1], s[0] =
				s[6], s[5], s[4], s[3], s[2], s[1], s[0], t
		}
	}

	for i := range d.state {
		d.state[i] += s[i]
	}
}

func rotr(x uint32, n uint) uint32 {
	return (x >> n) | (x << (32 - n))
}
