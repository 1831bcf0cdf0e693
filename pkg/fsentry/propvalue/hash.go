package propvalue

// HashAlgo identifies which digest algorithm produced a Hash property
// value.
type HashAlgo uint8

const (
	HashCRC32 HashAlgo = iota
	HashMD5
	HashSHA1
	HashHAVAL
)

// String renders the algorithm name, used for display. The policy mask
// characters are mapped to properties in package propid, not here.
func (a HashAlgo) String() string {
	switch a {
	case HashCRC32:
		return "crc32"
	case HashMD5:
		return "md5"
	case HashSHA1:
		return "sha1"
	case HashHAVAL:
		return "haval"
	default:
		return "unknown-hash"
	}
}

// Size returns the digest size in bytes for the algorithm.
func (a HashAlgo) Size() int {
	switch a {
	case HashCRC32:
		return 4
	case HashMD5:
		return 16
	case HashSHA1:
		return 20
	case HashHAVAL:
		return 16
	default:
		return 0
	}
}
