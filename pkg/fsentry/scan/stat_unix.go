//go:build !windows

package scan

import (
	"golang.org/x/sys/unix"

	"github.com/fsentry/fsentry/pkg/fsentry/propvalue"
)

// rawStat holds the POSIX stat fields a computeFCO call needs, read via
// golang.org/x/sys/unix.Stat_t rather than the os.FileInfo abstraction,
// since several requested properties (device, inode, link count) have
// no portable exposure through os.FileInfo (spec §4.6).
type rawStat struct {
	fileType   propvalue.FileType
	size       int64
	mtime      int64
	atime      int64
	ctime      int64
	uid        int64
	gid        int64
	device     int64
	inode      int64
	blockCount int64
	linkCount  int64
	mode       int32
}

// lstat populates a rawStat for path without following a trailing
// symbolic link, matching the scanner's default of treating a symlink
// as an object in its own right.
func lstat(path string) (rawStat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return rawStat{}, err
	}
	return rawStat{
		fileType:   fileTypeFromMode(st.Mode),
		size:       int64(st.Size),
		mtime:      int64(st.Mtim.Sec),
		atime:      int64(st.Atim.Sec),
		ctime:      int64(st.Ctim.Sec),
		uid:        int64(st.Uid),
		gid:        int64(st.Gid),
		device:     int64(st.Dev),
		inode:      int64(st.Ino),
		blockCount: int64(st.Blocks),
		linkCount:  int64(st.Nlink),
		mode:       int32(st.Mode),
	}, nil
}

// fileTypeFromMode classifies a raw POSIX mode word into the spec's
// FileType enumeration (spec §4.2). Types with no POSIX mode bit
// (Door, Port, Named, Native, MessageQueue, Semaphore, SharedMemory)
// are genre-specific extensions this scanner never produces; they
// exist in propvalue so the database and viewer can round-trip
// artifacts produced by a genre this build doesn't scan.
func fileTypeFromMode(mode uint32) propvalue.FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return propvalue.FileTypeFile
	case unix.S_IFDIR:
		return propvalue.FileTypeDir
	case unix.S_IFBLK:
		return propvalue.FileTypeBlockDev
	case unix.S_IFCHR:
		return propvalue.FileTypeCharDev
	case unix.S_IFLNK:
		return propvalue.FileTypeSymlink
	case unix.S_IFIFO:
		return propvalue.FileTypeFifo
	case unix.S_IFSOCK:
		return propvalue.FileTypeSocket
	default:
		return propvalue.FileTypeInvalid
	}
}
