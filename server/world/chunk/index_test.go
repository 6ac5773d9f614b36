package chunk

import (
	"testing"
)

func TestPackIndexRoundTrip(t *testing.T) {
	for x := uint8(0); x < 16; x++ {
		for y := uint8(0); y < 16; y++ {
			for z := uint8(0); z < 16; z++ {
				gx, gy, gz := PackIndex(x, y, z).Unpack()
				if gx != x || gy != y || gz != z {
					t.Fatalf("unpack(pack(%v,%v,%v)) = (%v,%v,%v)", x, y, z, gx, gy, gz)
				}
			}
		}
	}
}

func TestPackIndexLiteral(t *testing.T) {
	if got := PackIndex(3, 5, 2); got != 1315 {
		t.Fatalf("PackIndex(3,5,2) = %v, want 1315", got)
	}
}

func TestLocalPosFloorSemantics(t *testing.T) {
	// Negative global coordinates reduce with floor semantics: -1 maps to 15,
	// not to 1 as magnitude reduction would give.
	lx, ly, lz := LocalPos(-1, -1, -1)
	if lx != 15 || ly != 15 || lz != 15 {
		t.Fatalf("LocalPos(-1,-1,-1) = (%v,%v,%v), want (15,15,15)", lx, ly, lz)
	}
	lx, ly, lz = LocalPos(17, 33, -17)
	if lx != 1 || ly != 1 || lz != 15 {
		t.Fatalf("LocalPos(17,33,-17) = (%v,%v,%v), want (1,1,15)", lx, ly, lz)
	}
}
