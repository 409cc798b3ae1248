package queues

import (
	"math/rand/v2"
)

// Allocator accounts for the storage a Queue obtains and gives back.
// Alloc reports whether a block of n bytes may be obtained; every granted
// block is later handed back with Release using the same size.
type Allocator interface {
	Alloc(n int) bool
	Release(n int)
}

// HeapAllocator grants every request. It is the default for New.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(int) bool { return true }

func (HeapAllocator) Release(int) {}

// CountingAllocator tracks outstanding blocks and bytes and can refuse a
// percentage of requests to simulate allocation failure.
// Attention, it's not thread-safe.
type CountingAllocator struct {
	rnd             *rand.Rand
	failProbability int // percent of Alloc calls refused, 0..100

	blocks     int
	bytes      int
	failures   int
	noAllocate bool
	violations int
}

// NewCountingAllocator creates an allocator refusing failProbability percent
// of requests. Refusals are drawn from a PCG source seeded with seed so runs
// are reproducible.
func NewCountingAllocator(failProbability int, seed uint64) *CountingAllocator {
	a := &CountingAllocator{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	a.SetFailProbability(failProbability)
	return a
}

// SetFailProbability changes the refusal percentage, clamped to [0, 100].
func (a *CountingAllocator) SetFailProbability(p int) {
	a.failProbability = min(max(p, 0), 100)
}

// FailProbability returns the refusal percentage.
func (a *CountingAllocator) FailProbability() int {
	return a.failProbability
}

// SetNoAllocate marks a section in which no allocation is expected.
// Requests made while it is set are still served but counted as violations.
func (a *CountingAllocator) SetNoAllocate(on bool) {
	a.noAllocate = on
}

func (a *CountingAllocator) Alloc(n int) bool {
	if a.noAllocate {
		a.violations++
	}
	if a.failProbability > 0 && a.rnd.IntN(100) < a.failProbability {
		a.failures++
		return false
	}
	a.blocks++
	a.bytes += n
	return true
}

func (a *CountingAllocator) Release(n int) {
	if a.noAllocate {
		a.violations++
	}
	a.blocks--
	a.bytes -= n
}

// Blocks returns the number of granted blocks not yet released.
func (a *CountingAllocator) Blocks() int { return a.blocks }

// Bytes returns the number of granted bytes not yet released.
func (a *CountingAllocator) Bytes() int { return a.bytes }

// Failures returns how many requests were refused.
func (a *CountingAllocator) Failures() int { return a.failures }

// Violations returns how many Alloc or Release calls happened while
// SetNoAllocate was on.
func (a *CountingAllocator) Violations() int { return a.violations }

// ResetViolations clears the violation counter.
func (a *CountingAllocator) ResetViolations() { a.violations = 0 }

// ResetBlocks forgets the outstanding blocks and bytes, so storage reported
// as leaked once is not reported again.
func (a *CountingAllocator) ResetBlocks() {
	a.blocks = 0
	a.bytes = 0
}
