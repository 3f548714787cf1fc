// Package mempool keeps sized pools of []float64 scratch buffers for the
// per-point energy matrices built on every relaxation pass.
package mempool

import (
	"sync"
)

var float64Pools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next power of two, with a floor of 64.
func sizeClass(n int) int {
	cls := 64
	for cls < n {
		cls <<= 1
	}
	return cls
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := float64Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float64, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return nil
	}
	return p
}

// GetFloat64 retrieves a zeroed []float64 of length n from the pool.
// The caller must return it via PutFloat64 when done.
func GetFloat64(n int) []float64 {
	cls := sizeClass(n)
	p := poolFor(cls)
	if p == nil {
		return make([]float64, n)
	}
	buf, ok := p.Get().([]float64)
	if !ok || cap(buf) < cls {
		buf = make([]float64, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// PutFloat64 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat64(buf []float64) {
	if buf == nil {
		return
	}
	// Buffers whose capacity is not an exact class came from elsewhere.
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		return
	}
	p := poolFor(cls)
	if p == nil {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}
