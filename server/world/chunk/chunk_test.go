package chunk

import (
	"testing"
)

func TestChunkSetBlock(t *testing.T) {
	c := New(Range{-64, 319})
	if err := c.SetBlock(3, 70, 5, 7); err != nil {
		t.Fatalf("set block: %v", err)
	}
	rid, err := c.Block(3, 70, 5)
	if err != nil {
		t.Fatalf("read block: %v", err)
	}
	if rid != 7 {
		t.Fatalf("read back %v, want 7", rid)
	}
	if err := c.SetBlock(0, 512, 0, 1); err != ErrOutOfBounds {
		t.Fatalf("set above range: err = %v, want ErrOutOfBounds", err)
	}
	if _, err := c.Block(0, -65, 0); err != ErrOutOfBounds {
		t.Fatalf("read below range: err = %v, want ErrOutOfBounds", err)
	}
}

func TestChunkSparseSections(t *testing.T) {
	c := New(Range{0, 255})
	// Writing air into untouched space must not materialise sections.
	if err := c.SetBlock(0, 100, 0, 0); err != nil {
		t.Fatalf("set air: %v", err)
	}
	for i, s := range c.Sub() {
		if s != nil {
			t.Fatalf("section %v materialised by air write", i)
		}
	}
	_ = c.SetBlock(0, 100, 0, 3)
	if s := c.Sub()[c.SubIndex(100)]; s.Empty() {
		t.Fatalf("section still empty after block write")
	}
	// Overwriting the only block with air empties the section again.
	_ = c.SetBlock(0, 100, 0, 0)
	if s := c.Sub()[c.SubIndex(100)]; !s.Empty() {
		t.Fatalf("section not empty after block removed")
	}
}

func TestChunkHighestBlock(t *testing.T) {
	c := New(Range{-64, 319})
	_ = c.SetBlock(4, -30, 4, 2)
	_ = c.SetBlock(4, 88, 4, 2)
	if h := c.HighestBlock(4, 4); h != 88 {
		t.Fatalf("highest block = %v, want 88", h)
	}
	if h := c.HighestBlock(5, 5); h != -64 {
		t.Fatalf("highest block of empty column = %v, want -64", h)
	}
}

func TestDiskEncodeRoundTrip(t *testing.T) {
	c := New(Range{-64, 319})
	_ = c.SetBlock(1, -64, 2, 9)
	_ = c.SetBlock(15, 319, 15, 4)
	_ = c.SetBiome(0, 0, 0, 6)

	data, err := DiskEncode(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := DiskDecode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, pos := range [][3]int{{1, -64, 2}, {15, 319, 15}, {8, 100, 8}} {
		want, _ := c.Block(uint8(pos[0]), pos[1], uint8(pos[2]))
		got, err := dec.Block(uint8(pos[0]), pos[1], uint8(pos[2]))
		if err != nil {
			t.Fatalf("read decoded block: %v", err)
		}
		if got != want {
			t.Fatalf("block at %v = %v, want %v", pos, got, want)
		}
	}
	if b, _ := dec.Biome(0, 0, 0); b != 6 {
		t.Fatalf("biome = %v, want 6", b)
	}
}

func TestChunkClone(t *testing.T) {
	c := New(Range{0, 63})
	_ = c.SetBlock(0, 0, 0, 5)
	cl := c.Clone()
	_ = c.SetBlock(0, 0, 0, 9)
	if rid, _ := cl.Block(0, 0, 0); rid != 5 {
		t.Fatalf("clone shares state with original: read %v, want 5", rid)
	}
}
