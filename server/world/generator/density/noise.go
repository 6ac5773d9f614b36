package density

import (
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// NoiseParameters describes one named noise sampler: a stack of perlin
// octaves combined with the usual persistence/lacunarity fractal scheme.
type NoiseParameters struct {
	Octaves     int     `json:"octaves"`
	Frequency   float64 `json:"frequency"`
	Amplitude   float64 `json:"amplitude"`
	Persistence float64 `json:"persistence"`
	Lacunarity  float64 `json:"lacunarity"`
}

func (p NoiseParameters) withDefaults() NoiseParameters {
	if p.Octaves <= 0 {
		p.Octaves = 4
	}
	if p.Frequency == 0 {
		p.Frequency = 1.0 / 64.0
	}
	if p.Amplitude == 0 {
		p.Amplitude = 1
	}
	if p.Persistence == 0 {
		p.Persistence = 0.5
	}
	if p.Lacunarity == 0 {
		p.Lacunarity = 2
	}
	return p
}

// Noise is a deterministic fractal noise sampler. Two Noise instances created
// with the same world seed and key produce identical samples, which the chunk
// generator relies on for bitwise-reproducible terrain.
type Noise struct {
	params  NoiseParameters
	octaves []*perlin
	norm    float64
}

// NewNoise creates a noise sampler for the world seed and sampler key passed.
// The per-sampler seed is derived by hashing the key into the world seed, so
// distinct samplers of one world decorrelate while staying reproducible.
func NewNoise(seed int64, key string, p NoiseParameters) *Noise {
	p = p.withDefaults()

	h := xxhash.New()
	var b [8]byte
	putInt64(b[:], seed)
	_, _ = h.Write(b[:])
	_, _ = h.WriteString(key)
	s := h.Sum64()

	r := rand.New(rand.NewPCG(s, s^0xd1b54a32d192ed03))
	n := &Noise{params: p, octaves: make([]*perlin, p.Octaves)}
	amp := 1.0
	for i := range n.octaves {
		n.octaves[i] = newPerlin(r)
		n.norm += amp
		amp *= p.Persistence
	}
	return n
}

// Sample returns the noise value at the position passed, in the range
// [-MaxValue, MaxValue].
func (n *Noise) Sample(x, y, z float64) float64 {
	var (
		sum  float64
		amp  = 1.0
		freq = n.params.Frequency
	)
	for _, o := range n.octaves {
		sum += o.at(x*freq, y*freq, z*freq) * amp
		amp *= n.params.Persistence
		freq *= n.params.Lacunarity
	}
	return sum / n.norm * n.params.Amplitude
}

// MaxValue returns the static bound of the sampler's absolute value.
func (n *Noise) MaxValue() float64 {
	return n.params.Amplitude
}

// perlin is a classic permutation-table gradient noise producing values in
// [-1, 1].
type perlin struct {
	p [512]uint8
}

func newPerlin(r *rand.Rand) *perlin {
	var n perlin
	for i := 0; i < 256; i++ {
		n.p[i] = uint8(i)
	}
	r.Shuffle(256, func(i, j int) {
		n.p[i], n.p[j] = n.p[j], n.p[i]
	})
	copy(n.p[256:], n.p[:256])
	return &n
}

func (n *perlin) at(x, y, z float64) float64 {
	xi, yi, zi := int(math.Floor(x))&255, int(math.Floor(y))&255, int(math.Floor(z))&255
	xf, yf, zf := x-math.Floor(x), y-math.Floor(y), z-math.Floor(z)
	u, v, w := fade(xf), fade(yf), fade(zf)

	p := &n.p
	a := int(p[xi]) + yi
	aa, ab := int(p[a])+zi, int(p[a+1])+zi
	b := int(p[xi+1]) + yi
	ba, bb := int(p[b])+zi, int(p[b+1])+zi

	return lerp(w,
		lerp(v,
			lerp(u, grad(p[aa], xf, yf, zf), grad(p[ba], xf-1, yf, zf)),
			lerp(u, grad(p[ab], xf, yf-1, zf), grad(p[bb], xf-1, yf-1, zf))),
		lerp(v,
			lerp(u, grad(p[aa+1], xf, yf, zf-1), grad(p[ba+1], xf-1, yf, zf-1)),
			lerp(u, grad(p[ab+1], xf, yf-1, zf-1), grad(p[bb+1], xf-1, yf-1, zf-1))))
}

func fade(t float64) float64 { return t * t * t * (t*(t*6-15) + 10) }

func lerp(t, a, b float64) float64 { return a + t*(b-a) }

func grad(hash uint8, x, y, z float64) float64 {
	h := hash & 15
	u := x
	if h >= 8 {
		u = y
	}
	v := y
	if h >= 4 {
		v = z
		if h == 12 || h == 14 {
			v = x
		}
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
