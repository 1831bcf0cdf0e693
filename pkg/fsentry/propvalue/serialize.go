package propvalue

import "github.com/fsentry/fsentry/pkg/fsentry/wire"

// Write serializes the value as a kind tag followed by its payload.
func (v Value) Write(w *wire.Writer) {
	w.WriteBytes([]byte{byte(v.kind)})
	switch v.kind {
	case KindInt32:
		w.WriteInt32(v.i32)
	case KindInt64, KindGrowingFile:
		w.WriteInt64(v.i64)
	case KindUint64:
		w.WriteUint64(v.u64)
	case KindString:
		w.WriteString(v.str)
	case KindFileType:
		w.WriteBytes([]byte{byte(v.fileType)})
	case KindHash:
		w.WriteBytes([]byte{byte(v.hashAlgo)})
		w.WriteLenPrefixed(v.hashByte)
	case KindUndefined:
		// No payload.
	}
}

// Read deserializes a value previously written with Write. version is
// accepted for forward compatibility but unused by the current (and
// only supported) wire version.
func Read(r *wire.Reader, version uint32) Value {
	kindByte := r.ReadBytes(1)
	if kindByte == nil {
		return Undefined()
	}
	kind := Kind(kindByte[0])
	switch kind {
	case KindInt32:
		return Int32(r.ReadInt32())
	case KindInt64:
		return Int64(r.ReadInt64())
	case KindGrowingFile:
		return GrowingFile(r.ReadInt64())
	case KindUint64:
		return Uint64(r.ReadUint64())
	case KindString:
		return String(r.ReadString())
	case KindFileType:
		b := r.ReadBytes(1)
		if b == nil {
			return Undefined()
		}
		return FileTypeValue(FileType(b[0]))
	case KindHash:
		algoByte := r.ReadBytes(1)
		if algoByte == nil {
			return Undefined()
		}
		digest := r.ReadLenPrefixed()
		return Hash(HashAlgo(algoByte[0]), digest)
	default:
		return Undefined()
	}
}
