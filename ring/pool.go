package ring

import (
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/tuneinsight/rnsct/utils"
	"github.com/tuneinsight/rnsct/utils/structs"
)

// Allocator is the interface of the storage providers backing a [Buffer].
//
// Allocate must return a zeroed slice of length n, or an error wrapping
// [utils.ErrResourceExhausted] if the storage cannot be provided. The capacity
// of the returned slice may exceed n and is usable by the caller.
// Release hands back a slice obtained from Allocate; the slice must not be
// used afterwards. Release must accept nil.
type Allocator interface {
	Allocate(n int) ([]uint64, error)
	Release(buff []uint64)
}

// MaxPoolClass is the log2 of the largest slice a [Pool] can hand out.
const MaxPoolClass = 40

// Pool is an [Allocator] recycling []uint64 backing arrays in power-of-two
// size classes, each class being drawn from a [structs.SyncPool].
// A Pool can be bounded by a maximum number of outstanding elements, beyond
// which allocations fail with [utils.ErrResourceExhausted].
// It is safe for concurrent use.
type Pool struct {
	limit   int64
	inUse   atomic.Int64
	classes [MaxPoolClass + 1]*structs.SyncPool[*[]uint64]
}

// DefaultPool is the unbounded Pool used by buffers created without an explicit [Allocator].
var DefaultPool = NewPool(0)

// NewPool returns a new Pool. A limit of zero or less means unbounded.
func NewPool(limit int64) (p *Pool) {
	p = &Pool{limit: limit}
	for i := range p.classes {
		p.classes[i] = structs.NewSyncPoolUint64(1 << i)
	}
	return
}

// Limit returns the maximum number of outstanding elements, or zero if unbounded.
func (p *Pool) Limit() int64 {
	if p.limit <= 0 {
		return 0
	}
	return p.limit
}

// InUse returns the number of elements currently handed out by the pool,
// counted with the capacity of the returned slices.
func (p *Pool) InUse() int64 {
	return p.inUse.Load()
}

// Allocate returns a zeroed slice of n elements whose capacity is the
// smallest power of two greater or equal to n.
func (p *Pool) Allocate(n int) ([]uint64, error) {

	if n < 0 {
		return nil, fmt.Errorf("ring.Pool.Allocate: %w: negative size %d", utils.ErrInvalidArgument, n)
	}

	if n == 0 {
		return nil, nil
	}

	class := bits.Len(uint(n - 1))

	if class > MaxPoolClass {
		return nil, fmt.Errorf("ring.Pool.Allocate: %w: %d elements exceeds the largest class 2^%d", utils.ErrResourceExhausted, n, MaxPoolClass)
	}

	size := int64(1) << class

	if inUse := p.inUse.Add(size); p.limit > 0 && inUse > p.limit {
		p.inUse.Add(-size)
		return nil, fmt.Errorf("ring.Pool.Allocate: %w: %d elements requested, %d of %d in use", utils.ErrResourceExhausted, size, inUse-size, p.limit)
	}

	buff := *p.classes[class].Get()

	// Recycled arrays hold the data of their previous owner.
	clear(buff)

	return buff[:n], nil
}

// Release returns buff to the pool. Slices whose capacity is not a power
// of two, and thus were not handed out by the pool, are left to the
// garbage collector.
func (p *Pool) Release(buff []uint64) {

	c := cap(buff)

	if c == 0 || c&(c-1) != 0 {
		return
	}

	class := bits.TrailingZeros(uint(c))

	if class > MaxPoolClass {
		return
	}

	buff = buff[:c]
	p.classes[class].Put(&buff)
	p.inUse.Add(-int64(c))
}
