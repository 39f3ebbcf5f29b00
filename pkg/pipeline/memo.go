package pipeline

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/philipparndt/goslm/internal/cache"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/layer"
)

// MemoKey identifies the per-layer work of one part at one height. The
// parameter fingerprint fixes the layer index of a height.
type MemoKey struct {
	Mesh   uint64
	Height float64
	Params uint64
	Styles uint64
}

// partial is the part of a layer computed before supports are known
type partial struct {
	boundary geometry.Boundary
	contours []layer.ScanVector
	hatches  []layer.ScanVector
}

// Memo caches sliced, contoured and hatched layers across runs. A Memo may
// be shared by concurrent runs.
type Memo struct {
	cache *cache.ShardedCache[MemoKey, *partial]
}

// NewMemo creates a memo holding up to capacity layers per shard
func NewMemo(capacity int) *Memo {
	return &Memo{cache: cache.NewSharded[MemoKey, *partial](capacity, hashKey)}
}

func (m *Memo) get(key MemoKey) (*partial, bool) {
	if m == nil {
		return nil, false
	}
	return m.cache.Get(key)
}

func (m *Memo) put(key MemoKey, p *partial) {
	if m == nil {
		return
	}
	m.cache.Set(key, p)
}

// Stats returns hit and miss counters
func (m *Memo) Stats() cache.Stats {
	if m == nil {
		return cache.Stats{}
	}
	return m.cache.Stats()
}

// Clear drops every cached layer
func (m *Memo) Clear() {
	if m != nil {
		m.cache.Clear()
	}
}

func hashKey(k MemoKey) uint64 {
	return mix(k.Mesh ^ mix(k.Params) ^ mix(math.Float64bits(k.Height)) ^ mix(k.Styles))
}

// mix is the splitmix64 finaliser
func mix(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func stylesFingerprint(s layer.Styles) uint64 {
	h := fnv.New64a()
	for _, style := range []*layer.BuildStyle{s.Contour, s.Hatch, s.Support} {
		if style == nil {
			fmt.Fprint(h, "-;")
			continue
		}
		fmt.Fprintf(h, "%+v;", style.Record())
	}
	return h.Sum64()
}
