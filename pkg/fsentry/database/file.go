package database

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"

	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/fco"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

// Block types. Each block is self-describing with a type tag and a
// trailing CRC (spec §4.7); there is no block-level encryption here —
// that is applied by the container envelope (C11) that wraps the whole
// block-file image as one opaque payload.
const (
	blockHeader uint32 = 1
	blockNode   uint32 = 2
)

// headerBlockSize is the exact encoded size of a header block: 8 bytes
// of type+length, a 12-byte payload (u64 root offset + u32 node
// count), and a 4-byte trailing CRC. It never varies, which lets Save
// reserve the header's position before the root node's offset is
// known.
const headerBlockSize = 8 + 12 + 4

// writeBlock appends a self-describing block (type, length-prefixed
// payload, CRC32 over type+length+payload) to buf.
func writeBlock(buf *bytes.Buffer, blockType uint32, payload []byte) {
	var head [8]byte
	binary.LittleEndian.PutUint32(head[0:4], blockType)
	binary.LittleEndian.PutUint32(head[4:8], uint32(len(payload)))

	buf.Write(head[:])
	buf.Write(payload)

	crc := crc32.NewIEEE()
	crc.Write(head[:])
	crc.Write(payload)

	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc.Sum32())
	buf.Write(crcBuf[:])
}

// readBlock parses one block at data[offset:], verifying its CRC. It
// returns the block's type, its payload, and the offset immediately
// following it. A CRC mismatch is fatal for the open (spec §4.7: no
// silent best-effort repair).
func readBlock(data []byte, offset uint64) (blockType uint32, payload []byte, next uint64, err error) {
	if offset+8 > uint64(len(data)) {
		return 0, nil, 0, ferr.Internal("database file truncated reading a block header")
	}
	blockType = binary.LittleEndian.Uint32(data[offset : offset+4])
	length := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
	payloadStart := offset + 8
	payloadEnd := payloadStart + uint64(length)
	crcEnd := payloadEnd + 4
	if crcEnd > uint64(len(data)) {
		return 0, nil, 0, ferr.Internal("database file truncated reading a block payload")
	}

	payload = data[payloadStart:payloadEnd]

	crc := crc32.NewIEEE()
	crc.Write(data[offset:payloadEnd])
	want := binary.LittleEndian.Uint32(data[payloadEnd:crcEnd])
	if crc.Sum32() != want {
		return 0, nil, 0, ferr.Internal("database block failed CRC check; refusing to continue loading a possibly corrupt file")
	}

	return blockType, payload, crcEnd, nil
}

// marshalNodePayload encodes a node's own fields (not its children, which are
// written first so their offsets are known) as a block payload.
func marshalNodePayload(n treeNode, childOffsets []uint64) []byte {
	var payload bytes.Buffer
	pw := wire.NewWriter(&payload)
	pw.WriteString(n.component)
	pw.WriteBool(n.hasObject)
	if n.hasObject {
		var fcoBytes bytes.Buffer
		n.object.Write(wire.NewWriter(&fcoBytes))
		pw.WriteLenPrefixed(fcoBytes.Bytes())
	}
	pw.WriteUint32(uint32(len(childOffsets)))
	for _, off := range childOffsets {
		pw.WriteUint64(off)
	}
	return payload.Bytes()
}

// Serialize encodes tree as a sequence of self-describing blocks
// (header block, then one node block per node reachable from the root;
// arena slots detached by RemoveEmptySubtree are not written), returning the
// resulting byte image. This is the block-file body the container
// envelope (C11) wraps as its payload; Save is a thin convenience that
// serializes and writes the result directly to disk for callers (tests,
// and any caller not going through the signed-container path) that want
// a bare, unwrapped database file.
//
// Nodes are written post-order into a body buffer so that, by the time
// a node's own block is written, every child's offset is already
// known; the header block (fixed size, so its final position never
// shifts) is written last but logically precedes the body on disk.
func Serialize(tree *Tree) []byte {
	var body bytes.Buffer
	var nodeCount uint32

	var writeNode func(idx nodeIndex) uint64
	writeNode = func(idx nodeIndex) uint64 {
		children := tree.sortedChildren(idx)
		childOffsets := make([]uint64, len(children))
		for i, c := range children {
			childOffsets[i] = writeNode(c)
		}
		offset := headerBlockSize + uint64(body.Len())
		nodeCount++
		writeBlock(&body, blockNode, marshalNodePayload(tree.nodes[idx], childOffsets))
		return offset
	}
	rootOffset := writeNode(0)

	var headerPayload bytes.Buffer
	hw := wire.NewWriter(&headerPayload)
	hw.WriteUint64(rootOffset)
	hw.WriteUint32(nodeCount)

	var out bytes.Buffer
	writeBlock(&out, blockHeader, headerPayload.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

// Save serializes tree and replaces the file at path in one atomic
// rename, matching the database-update commit model of spec §4.9: the
// new image is fully built in memory, and only a complete, valid image
// ever becomes visible at path.
func Save(path string, tree *Tree) error {
	out := Serialize(tree)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return errors.Wrap(err, "unable to write database temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "unable to commit database file")
	}
	return nil
}

// Deserialize parses a block-file image previously produced by
// Serialize, interning every name against table. A CRC failure
// anywhere in the image is fatal and Deserialize returns an error
// rather than attempting partial recovery (spec §4.7).
func Deserialize(data []byte, table *fconame.Table) (*Tree, error) {
	headerType, headerPayload, _, err := readBlock(data, 0)
	if err != nil {
		return nil, err
	}
	if headerType != blockHeader {
		return nil, ferr.Internal("database file does not begin with a header block")
	}

	hr := wire.NewReader(bytes.NewReader(headerPayload))
	rootOffset := hr.ReadUint64()
	_ = hr.ReadUint32() // nodeCount: informational only, not needed to reconstruct the tree.
	if hr.Err() != nil {
		return nil, errors.Wrap(hr.Err(), "malformed database header")
	}

	tree := &Tree{table: table}
	root, err := parseNode(data, rootOffset, tree)
	if err != nil {
		return nil, err
	}
	if root != 0 {
		return nil, ferr.Internal("database root node did not parse into arena index 0")
	}
	return tree, nil
}

// Load reads and validates a database file previously written with
// Save, interning every name against table. A CRC failure anywhere in
// the file is fatal and Load returns an error rather than attempting
// partial recovery (spec §4.7).
func Load(path string, table *fconame.Table) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read database file")
	}
	return Deserialize(data, table)
}

// parseNode decodes the node block at offset and every block it
// transitively references, appending new arena slots to tree as it
// goes. It returns the arena index assigned to this node.
func parseNode(data []byte, offset uint64, tree *Tree) (nodeIndex, error) {
	blockType, payload, _, err := readBlock(data, offset)
	if err != nil {
		return 0, err
	}
	if blockType != blockNode {
		return 0, ferr.Internal("expected a database node block")
	}

	pr := wire.NewReader(bytes.NewReader(payload))
	component := pr.ReadString()
	hasObject := pr.ReadBool()
	var object *fco.FCO
	if hasObject {
		fcoBytes := pr.ReadLenPrefixed()
		object = fco.Read(wire.NewReader(bytes.NewReader(fcoBytes)), tree.table, 0)
	}
	childCount := pr.ReadUint32()
	childOffsets := make([]uint64, childCount)
	for i := range childOffsets {
		childOffsets[i] = pr.ReadUint64()
	}
	if pr.Err() != nil {
		return 0, errors.Wrap(pr.Err(), "malformed database node block")
	}

	idx := nodeIndex(len(tree.nodes))
	tree.nodes = append(tree.nodes, treeNode{
		component: component,
		parent:    noParent,
		children:  make(map[string]nodeIndex),
		object:    object,
		hasObject: hasObject,
	})

	for _, childOff := range childOffsets {
		childIdx, err := parseNode(data, childOff, tree)
		if err != nil {
			return 0, err
		}
		tree.nodes[childIdx].parent = idx
		tree.nodes[idx].children[tree.nodes[childIdx].component] = childIdx
	}

	return idx, nil
}
