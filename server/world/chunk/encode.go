package chunk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/willf/bitset"
)

// diskVersion is bumped whenever the serialised layout changes. Decoding
// refuses versions it does not know rather than guessing.
const diskVersion = 1

// DiskEncode serialises the chunk for storage. The format is a small header
// (version, range, section-presence bitmap) followed by a zlib-compressed
// stream of the non-empty sections' block and biome arrays, bottom to top.
func DiskEncode(c *Chunk) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(diskVersion)
	_ = binary.Write(buf, binary.LittleEndian, int32(c.r[0]))
	_ = binary.Write(buf, binary.LittleEndian, int32(c.r[1]))

	present := bitset.New(uint(len(c.sub)))
	for i, s := range c.sub {
		if sectionStored(s) {
			present.Set(uint(i))
		}
	}
	pb, err := present.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal section bitmap: %w", err)
	}
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(pb)))
	buf.Write(pb)

	w := zlib.NewWriter(buf)
	for _, s := range c.sub {
		if !sectionStored(s) {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, s.blocks[:]); err != nil {
			return nil, fmt.Errorf("write section blocks: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, s.biomes[:]); err != nil {
			return nil, fmt.Errorf("write section biomes: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flush section payload: %w", err)
	}
	return buf.Bytes(), nil
}

// sectionStored reports whether a section carries content that must survive
// serialisation. All-air sections still count when they hold biome data.
func sectionStored(s *Section) bool {
	if s == nil {
		return false
	}
	if s.count > 0 {
		return true
	}
	for _, b := range s.biomes {
		if b != 0 {
			return true
		}
	}
	return false
}

// DiskDecode deserialises a chunk previously produced by DiskEncode.
func DiskDecode(data []byte) (*Chunk, error) {
	buf := bytes.NewBuffer(data)
	ver, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if ver != diskVersion {
		return nil, fmt.Errorf("unsupported chunk version %v", ver)
	}
	var minY, maxY int32
	if err := binary.Read(buf, binary.LittleEndian, &minY); err != nil {
		return nil, fmt.Errorf("read range: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &maxY); err != nil {
		return nil, fmt.Errorf("read range: %w", err)
	}
	c := New(Range{int(minY), int(maxY)})

	var bl uint16
	if err := binary.Read(buf, binary.LittleEndian, &bl); err != nil {
		return nil, fmt.Errorf("read section bitmap length: %w", err)
	}
	pb := make([]byte, bl)
	if _, err := io.ReadFull(buf, pb); err != nil {
		return nil, fmt.Errorf("read section bitmap: %w", err)
	}
	present := bitset.New(uint(len(c.sub)))
	if err := present.UnmarshalBinary(pb); err != nil {
		return nil, fmt.Errorf("unmarshal section bitmap: %w", err)
	}

	r, err := zlib.NewReader(buf)
	if err != nil {
		return nil, fmt.Errorf("open section payload: %w", err)
	}
	defer r.Close()
	for i := range c.sub {
		if !present.Test(uint(i)) {
			continue
		}
		s := &Section{}
		if err := binary.Read(r, binary.LittleEndian, s.blocks[:]); err != nil {
			return nil, fmt.Errorf("read section blocks: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, s.biomes[:]); err != nil {
			return nil, fmt.Errorf("read section biomes: %w", err)
		}
		for _, rid := range s.blocks {
			if rid != 0 {
				s.count++
			}
		}
		c.sub[i] = s
	}
	return c, nil
}
