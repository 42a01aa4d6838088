// Package mempool recycles the float32 buffers that back model input tensors.
package mempool

import (
	"sync"
)

const sizeStep = 1024

// sizeClass rounds n up to the next multiple of 1024, with 1024 as minimum.
func sizeClass(n int) int {
	if n <= sizeStep {
		return sizeStep
	}
	return (n + sizeStep - 1) / sizeStep * sizeStep
}

// sizedPool keeps one sync.Pool per size class.
type sizedPool[T any] struct {
	pools sync.Map // size class -> *sync.Pool
}

func (sp *sizedPool[T]) pool(cls int) *sync.Pool {
	p, _ := sp.pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return p.(*sync.Pool) //nolint:forcetypeassert // only *sync.Pool is stored
}

func (sp *sizedPool[T]) get(n int) []T {
	cls := sizeClass(n)
	buf, ok := sp.pool(cls).Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	return buf[:n]
}

func (sp *sizedPool[T]) put(buf []T) {
	if buf == nil {
		return
	}
	// a buffer is filed under the largest class it can fully serve
	cls := cap(buf) / sizeStep * sizeStep
	if cls < sizeStep {
		return
	}
	sp.pool(cls).Put(buf[:cap(buf)]) //nolint:staticcheck // slices are small headers
}

var float32s sizedPool[float32]

// GetFloat32 returns a buffer of length n. Contents are not zeroed; callers
// overwrite every element. Return it with PutFloat32 when done.
func GetFloat32(n int) []float32 {
	return float32s.get(n)
}

// PutFloat32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat32(buf []float32) {
	float32s.put(buf)
}
