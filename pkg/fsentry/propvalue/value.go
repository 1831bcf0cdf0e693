// Package propvalue implements the tagged-variant property value type
// (component C2): a single sum type over int32/int64/uint64/string/
// filetype/hash/growing-file/undefined, replacing the "iFCOProp plus
// derived classes registered at startup" polymorphism of the system this
// design is grounded on with a tag dispatch (design notes §9).
package propvalue

import (
	"crypto/subtle"
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindInt32
	KindInt64
	KindUint64
	KindString
	KindFileType
	KindHash
	KindGrowingFile
)

// String renders the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindString:
		return "string"
	case KindFileType:
		return "filetype"
	case KindHash:
		return "hash"
	case KindGrowingFile:
		return "growing-file"
	default:
		return "undefined"
	}
}

// CmpOp identifies a comparison operator.
type CmpOp int

const (
	OpEQ CmpOp = iota
	OpNE
	OpLT
	OpGT
	OpLE
	OpGE
)

// CmpResult is the outcome of a Value comparison.
type CmpResult int

const (
	False CmpResult = iota
	True
	WrongType
	Unsupported
)

// Value is a single tagged property value.
type Value struct {
	kind     Kind
	i32      int32
	i64      int64
	u64      uint64
	str      string
	fileType FileType
	hashAlgo HashAlgo
	hashByte []byte
}

// undefinedValue is the shared Undefined sentinel.
var undefinedValue = Value{kind: KindUndefined}

// Undefined returns the Undefined sentinel value.
func Undefined() Value { return undefinedValue }

// Int32 constructs an Int32 value.
func Int32(v int32) Value { return Value{kind: KindInt32, i32: v} }

// Int64 constructs an Int64 value.
func Int64(v int64) Value { return Value{kind: KindInt64, i64: v} }

// Uint64 constructs a Uint64 value.
func Uint64(v uint64) Value { return Value{kind: KindUint64, u64: v} }

// String constructs a String value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// FileTypeValue constructs a FileType value.
func FileTypeValue(v FileType) Value { return Value{kind: KindFileType, fileType: v} }

// Hash constructs a Hash value for the given algorithm and digest bytes.
func Hash(algo HashAlgo, digest []byte) Value {
	cp := make([]byte, len(digest))
	copy(cp, digest)
	return Value{kind: KindHash, hashAlgo: algo, hashByte: cp}
}

// GrowingFile constructs a GrowingFile value, an Int64 whose EQ
// comparison is redefined as LE (spec §4.2, §4.3).
func GrowingFile(v int64) Value { return Value{kind: KindGrowingFile, i64: v} }

// Kind returns the value's variant tag.
func (v Value) Kind() Kind { return v.kind }

// Int32Value returns the underlying int32, valid only when Kind() ==
// KindInt32.
func (v Value) Int32Value() int32 { return v.i32 }

// Int64Value returns the underlying int64, valid for KindInt64 and
// KindGrowingFile.
func (v Value) Int64Value() int64 { return v.i64 }

// Uint64Value returns the underlying uint64, valid only for KindUint64.
func (v Value) Uint64Value() uint64 { return v.u64 }

// StringValue returns the underlying string, valid only for KindString.
func (v Value) StringValue() string { return v.str }

// FileType returns the underlying file type, valid only for
// KindFileType.
func (v Value) FileType() FileType { return v.fileType }

// HashAlgo returns the hash algorithm, valid only for KindHash.
func (v Value) HashAlgo() HashAlgo { return v.hashAlgo }

// HashBytes returns the digest bytes, valid only for KindHash.
func (v Value) HashBytes() []byte { return v.hashByte }

// AsString renders the value for display.
func (v Value) AsString() string {
	switch v.kind {
	case KindInt32:
		return strconv.FormatInt(int64(v.i32), 10)
	case KindInt64, KindGrowingFile:
		return strconv.FormatInt(v.i64, 10)
	case KindUint64:
		return strconv.FormatUint(v.u64, 10)
	case KindString:
		return v.str
	case KindFileType:
		return v.fileType.String()
	case KindHash:
		return fmt.Sprintf("%x", v.hashByte)
	default:
		return "<undefined>"
	}
}

// CopyFrom overwrites the receiver with other's contents.
func (v *Value) CopyFrom(other Value) { *v = other }

// evalOrder maps a three-way comparison result to a CmpResult for the
// given operator.
func evalOrder(cmp int, op CmpOp) CmpResult {
	switch op {
	case OpEQ:
		return boolResult(cmp == 0)
	case OpNE:
		return boolResult(cmp != 0)
	case OpLT:
		return boolResult(cmp < 0)
	case OpGT:
		return boolResult(cmp > 0)
	case OpLE:
		return boolResult(cmp <= 0)
	case OpGE:
		return boolResult(cmp >= 0)
	default:
		return Unsupported
	}
}

func boolResult(b bool) CmpResult {
	if b {
		return True
	}
	return False
}

// signedCompare returns a three-way comparison of two int64s.
func signedCompare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func unsignedCompare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Compare compares the receiver to other under the given operator.
// Comparison against Undefined yields False for EQ, True for NE, and
// WrongType for every ordering operator (spec §4.2, testable property
// 4). GrowingFile reduces EQ to LE, leaving every other operator
// unchanged (testable property 5).
func (v Value) Compare(other Value, op CmpOp) CmpResult {
	if v.kind == KindUndefined || other.kind == KindUndefined {
		switch op {
		case OpEQ:
			return False
		case OpNE:
			return True
		default:
			return WrongType
		}
	}

	// GrowingFile redefines EQ as LE; every other operator behaves as a
	// normal signed-integer comparison against an Int64/GrowingFile peer.
	if v.kind == KindGrowingFile {
		peer, ok := asInt64(other)
		if !ok {
			return WrongType
		}
		if op == OpEQ {
			return evalOrder(signedCompare(v.i64, peer), OpLE)
		}
		return evalOrder(signedCompare(v.i64, peer), op)
	}

	if v.kind != other.kind {
		return WrongType
	}

	switch v.kind {
	case KindInt32:
		return evalOrder(signedCompare(int64(v.i32), int64(other.i32)), op)
	case KindInt64:
		return evalOrder(signedCompare(v.i64, other.i64), op)
	case KindUint64:
		return evalOrder(unsignedCompare(v.u64, other.u64), op)
	case KindString:
		switch {
		case v.str < other.str:
			return evalOrder(-1, op)
		case v.str > other.str:
			return evalOrder(1, op)
		default:
			return evalOrder(0, op)
		}
	case KindFileType:
		if op != OpEQ && op != OpNE {
			return Unsupported
		}
		return evalOrder(intFromBool(v.fileType != other.fileType), op)
	case KindHash:
		if op != OpEQ && op != OpNE {
			return Unsupported
		}
		if len(v.hashByte) != len(other.hashByte) || v.hashAlgo != other.hashAlgo {
			return evalOrder(1, op)
		}
		equal := subtle.ConstantTimeCompare(v.hashByte, other.hashByte) == 1
		return evalOrder(intFromBool(!equal), op)
	default:
		return Unsupported
	}
}

func intFromBool(b bool) int {
	if b {
		return 1
	}
	return 0
}

// asInt64 extracts a signed 64-bit view of a peer value for GrowingFile
// comparisons, accepting Int64, Uint64, and GrowingFile peers.
func asInt64(v Value) (int64, bool) {
	switch v.kind {
	case KindInt64, KindGrowingFile:
		return v.i64, true
	case KindUint64:
		return int64(v.u64), true
	default:
		return 0, false
	}
}
