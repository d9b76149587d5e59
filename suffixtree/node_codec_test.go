package suffixtree

import (
	"SuffixDB/errs"
	"SuffixDB/storage_engine/page"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInternal(c *nodeCodec) *Node {
	n := c.newNode(7, NodeInternal)
	n.start, n.end = 3, 9
	n.depth = 12
	n.suffixLink = 4
	n.leaves = 31
	n.mask[0] = 0b1011
	n.children[0] = 11
	n.children[2] = 12
	n.children[len(n.children)-1] = 13
	return n
}

func TestNodeCodecRoundTrip(t *testing.T) {
	c := newNodeCodec(4, 70)
	payload := make([]byte, c.Size())

	internal := sampleInternal(c)
	internal.mask[1] = 1 << 5
	require.NoError(t, c.Encode(internal, payload))
	got, err := c.Decode(7, payload)
	require.NoError(t, err)
	assert.Equal(t, internal, got)

	leaf := c.newNode(20, NodeLeaf)
	leaf.start, leaf.end = 40, OpenEnd
	leaf.slot, leaf.suffix, leaf.depth = 69, 5, 36
	require.NoError(t, c.Encode(leaf, payload))
	got, err = c.Decode(20, payload)
	require.NoError(t, err)
	assert.Equal(t, leaf, got)
	assert.Equal(t, OpenEnd, got.end)
}

func TestNodeCodecDetectsCorruption(t *testing.T) {
	c := newNodeCodec(4, 8)
	base := make([]byte, c.Size())
	require.NoError(t, c.Encode(sampleInternal(c), base))
	childOff := nodeFixed + 8*c.maskWords

	tests := []struct {
		name   string
		pageID int64
		mutate func(p []byte)
	}{
		{"unknown kind", 7, func(p []byte) { p[0] = 9 }},
		{"end before start", 7, func(p []byte) { binary.LittleEndian.PutUint32(p[8:], 1) }},
		{"negative child", 7, func(p []byte) { binary.LittleEndian.PutUint64(p[childOff+8:], ^uint64(0)) }},
		{"child points to itself", 7, func(p []byte) { binary.LittleEndian.PutUint64(p[childOff+8:], 7) }},
		{"suffix link to itself", 7, func(p []byte) { binary.LittleEndian.PutUint64(p[24:], 7) }},
		{"leaf with children", 7, func(p []byte) { p[0] = byte(NodeLeaf) }},
		{"leaf slot out of range", 7, func(p []byte) {
			p[0] = byte(NodeLeaf)
			for i := childOff; i < len(p); i++ {
				p[i] = 0
			}
			binary.LittleEndian.PutUint32(p[16:], 8)
		}},
		{"short payload", 7, func(p []byte) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := append([]byte(nil), base...)
			tt.mutate(p)
			if tt.name == "short payload" {
				p = p[:c.Size()-1]
			}
			_, err := c.Decode(tt.pageID, p)
			assert.True(t, errs.Is(err, errs.ErrCorruption), "got %v", err)
		})
	}
}

func TestNodeCodecFits(t *testing.T) {
	assert.NoError(t, newNodeCodec(4, 64).fits(1024))
	err := newNodeCodec(4, 200).fits(512)
	assert.True(t, errs.Is(err, errs.ErrCapacityExceeded))
	assert.LessOrEqual(t, newNodeCodec(26, 256).Size(), page.PayloadSize(4096))
}
