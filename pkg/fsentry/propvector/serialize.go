package propvector

import "github.com/fsentry/fsentry/pkg/fsentry/wire"

// Write serializes the vector's logical width followed by enough 32-bit
// words to cover it (spec §4.3).
func (v *Vector) Write(w *wire.Writer) {
	w.WriteUint32(uint32(v.size))
	n := wordsFor(v.size)
	for i := 0; i < n; i++ {
		w.WriteUint32(v.words[i])
	}
}

// Read deserializes a vector previously written with Write.
func Read(r *wire.Reader) *Vector {
	size := int(r.ReadUint32())
	v := New(size)
	n := wordsFor(size)
	for i := 0; i < n; i++ {
		v.words[i] = r.ReadUint32()
	}
	return v
}
