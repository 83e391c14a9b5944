package frame

import "sync"

// Pool is an arena of Pairs sized once from the stream geometry.
type Pool struct {
	geom Geometry
	pool sync.Pool
}

// NewPool creates a Pool for pairs of geometry g.
func NewPool(g Geometry) *Pool {
	p := &Pool{geom: g}
	p.pool.New = func() interface{} { return NewPair(g) }
	return p
}

// Geometry returns the geometry of pairs handed out by the pool.
func (p *Pool) Geometry() Geometry {
	return p.geom
}

// Get returns a Pair whose buffers are sized for the pool geometry.
// Buffer contents are whatever the previous owner left behind.
func (p *Pool) Get() *Pair {
	f := p.pool.Get().(*Pair)
	f.reset()
	return f
}

// Put hands a Pair back. Pairs of a different geometry are left to the GC.
func (p *Pool) Put(f *Pair) {
	if f == nil || f.Geometry != p.geom {
		return
	}
	if len(f.Color) != p.geom.ColorLen() || len(f.Depth) != p.geom.DepthLen() {
		return
	}
	p.pool.Put(f)
}
