package scan

import (
	"hash"
	"hash/crc32"
	"crypto/md5"
	"crypto/sha1"
	"io"
	"os"

	"github.com/fsentry/fsentry/internal/haval"
	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
)

// hashIndices lists every property the mask might request that is
// computed by reading file content rather than by stat(2).
var hashIndices = []struct {
	idx  propid.Index
	algo propvalue.HashAlgo
	new  func() hash.Hash
}{
	{propid.CRC32, propvalue.HashCRC32, func() hash.Hash { return crc32.NewIEEE() }},
	{propid.MD5, propvalue.HashMD5, md5.New},
	{propid.SHA1, propvalue.HashSHA1, sha1.New},
	{propid.HAVAL, propvalue.HashHAVAL, haval.New},
}

// buildHashers returns the io.Writer fan-out and the corresponding
// hash.Hash instances for every hash property mask requests.
func buildHashers(mask *propvector.Vector) ([]io.Writer, map[propid.Index]hash.Hash) {
	writers := make([]io.Writer, 0, len(hashIndices))
	hashers := make(map[propid.Index]hash.Hash, len(hashIndices))
	for _, h := range hashIndices {
		if !mask.Contains(int(h.idx)) {
			continue
		}
		instance := h.new()
		writers = append(writers, instance)
		hashers[h.idx] = instance
	}
	return writers, hashers
}

// computeFCO builds an FCO for name, populating exactly the properties
// named by mask. FileType is always computed first (spec §4.6: file
// type must be known before any other property can be interpreted);
// when the object cannot be stat'd, FileType itself becomes Undefined
// and so does every other requested property, and the stat failure is
// returned to the caller for error-queue recording.
func computeFCO(name fconame.Name, mask *propvector.Vector) (*fco.FCO, error) {
	object := fco.New(name)
	path := fconame.OSPath(name)

	st, err := lstat(path)
	if err != nil {
		object.MarkUndefined(propid.FileType)
		markAllUndefined(object, mask)
		return object, err
	}

	object.Set(propid.FileType, propvalue.FileTypeValue(st.fileType))

	setIfRequested := func(idx propid.Index, v propvalue.Value) {
		if mask.Contains(int(idx)) {
			object.Set(idx, v)
		}
	}
	setIfRequested(propid.Size, propvalue.Int64(st.size))
	setIfRequested(propid.MTime, propvalue.Int64(st.mtime))
	setIfRequested(propid.ATime, propvalue.Int64(st.atime))
	setIfRequested(propid.CTime, propvalue.Int64(st.ctime))
	setIfRequested(propid.UID, propvalue.Int64(st.uid))
	setIfRequested(propid.GID, propvalue.Int64(st.gid))
	setIfRequested(propid.Device, propvalue.Int64(st.device))
	setIfRequested(propid.Inode, propvalue.Int64(st.inode))
	setIfRequested(propid.BlockCount, propvalue.Int64(st.blockCount))
	setIfRequested(propid.LinkCount, propvalue.Int64(st.linkCount))
	setIfRequested(propid.Mode, propvalue.Int32(st.mode))
	setIfRequested(propid.GrowingSize, propvalue.GrowingFile(st.size))

	if st.fileType != propvalue.FileTypeFile {
		markHashesUndefined(object, mask)
		return object, nil
	}
	if !anyHashRequested(mask) {
		return object, nil
	}

	f, err := os.Open(path)
	if err != nil {
		markHashesUndefined(object, mask)
		return object, err
	}
	defer f.Close()

	digests, err := digestStream(f, mask)
	if err != nil {
		markHashesUndefined(object, mask)
		return object, err
	}
	for _, h := range hashIndices {
		if sum, ok := digests[h.idx]; ok {
			object.Set(h.idx, propvalue.Hash(h.algo, sum))
		}
	}
	return object, nil
}

func anyHashRequested(mask *propvector.Vector) bool {
	for _, h := range hashIndices {
		if mask.Contains(int(h.idx)) {
			return true
		}
	}
	return false
}

func markHashesUndefined(object *fco.FCO, mask *propvector.Vector) {
	for _, h := range hashIndices {
		if mask.Contains(int(h.idx)) {
			object.MarkUndefined(h.idx)
		}
	}
}

// markAllUndefined marks every property mask requests (other than
// FileType, handled separately) as Undefined.
func markAllUndefined(object *fco.FCO, mask *propvector.Vector) {
	for _, idx := range mask.Bits() {
		if propid.Index(idx) == propid.FileType {
			continue
		}
		object.MarkUndefined(propid.Index(idx))
	}
}
