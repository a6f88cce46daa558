// Package threadpool implements the pool spec §4.4 describes: a pool sized
// to hardware parallelism that the CPU NTT uses to fan out butterfly
// sub-transforms, plus the unscoped Execute range fan-out that msm uses for
// its per-window occupancy scan.
//
// Two shapes are grounded on the teacher's own
// Execute(nbIterations, work, maxCpus...) helper in
// backend/groth16/bn254/goicicle_wrapper.go. Scope/Execute is a scoped
// fork-join primitive built alongside it, not on top of it: a caller can borrow stack-local
// data (e.g. a coefficient sub-slice) into a closure and is guaranteed every
// task finishes before Scope returns, with no reference counting or locking
// standing in for that guarantee. Execute itself stays in the package
// unchanged in shape, for callers like msm's per-window occupancy scan that
// just need [0, n) split into contiguous ranges and have no closures to
// borrow stack locals into.
package threadpool

import (
	"math/bits"
	"runtime"
	"sync"
)

// Pool is a pool of a fixed size P. P sets LogNumThreads and the chunk size
// Scope hands its callback; Pool keeps no long-lived worker goroutines, and
// Scope.Execute starts one goroutine per task, so the number of tasks
// running at once is not bounded by P. The zero value is not usable; build
// one with New.
type Pool struct {
	size int
}

// New returns a Pool sized to runtime.NumCPU().
func New() *Pool {
	return &Pool{size: runtime.NumCPU()}
}

// NewSized returns a Pool with an explicit worker count, clamped to at
// least 1. Used by tests that want a deterministic, small pool.
func NewSized(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{size: n}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return p.size }

// LogNumThreads returns floor(log2(P)) where P is the pool size, used by
// the CPU NTT to choose its decomposition depth (spec §4.4).
func (p *Pool) LogNumThreads() uint32 {
	if p.size <= 1 {
		return 0
	}
	return uint32(bits.Len(uint(p.size)) - 1)
}

// Scope is the scoped fork-join primitive. hintLen is used only to compute
// a reasonable chunk size for callers that want to iterate in Pool.Size()
// chunks of a slice of that length; fn receives a *Scope and that chunk
// size. Scope returns only once every task submitted via Scope.Execute has
// completed — no task may outlive the call.
func (p *Pool) Scope(hintLen int, fn func(s *Scope, chunkSize int)) {
	chunk := chunkSize(hintLen, p.size)
	s := &Scope{}
	fn(s, chunk)
	s.wg.Wait()
}

// Scope collects tasks submitted during a single Pool.Scope call.
type Scope struct {
	wg sync.WaitGroup
}

// Execute runs task on a new goroutine, tracked by the enclosing Scope. The
// enclosing Pool.Scope call will not return until task (and every other
// task submitted to this Scope) has finished, so task may safely close over
// stack-local data owned by the caller of Pool.Scope.
func (s *Scope) Execute(task func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		task()
	}()
}

func chunkSize(total, workers int) int {
	if workers < 1 {
		workers = 1
	}
	if total <= 0 {
		return 0
	}
	chunk := total / workers
	if total%workers != 0 {
		chunk++
	}
	if chunk < 1 {
		chunk = 1
	}
	return chunk
}

// Execute is the unscoped chunked fan-out helper: it splits [0, n) into at
// most maxCPUs contiguous ranges and runs work(start, end) for each range on
// its own goroutine, blocking until all finish. It is a direct port of the
// teacher's Execute(nbIterations, work, maxCpus...) in
// backend/groth16/bn254/goicicle_wrapper.go, for callers that want plain
// range fan-out without a Scope to borrow closures into.
func Execute(n int, work func(start, end int), maxCPUs ...int) {
	nbTasks := runtime.NumCPU()
	if len(maxCPUs) == 1 {
		nbTasks = maxCPUs[0]
		if nbTasks < 1 {
			nbTasks = 1
		} else if nbTasks > 512 {
			nbTasks = 512
		}
	}

	if nbTasks == 1 || n <= 1 {
		work(0, n)
		return
	}

	nbIterationsPerCPU := n / nbTasks
	if nbIterationsPerCPU < 1 {
		nbIterationsPerCPU = 1
		nbTasks = n
	}

	var wg sync.WaitGroup
	extraTasks := n - (nbTasks * nbIterationsPerCPU)
	extraTasksOffset := 0

	for i := 0; i < nbTasks; i++ {
		start := i*nbIterationsPerCPU + extraTasksOffset
		end := start + nbIterationsPerCPU
		if extraTasks > 0 {
			end++
			extraTasks--
			extraTasksOffset++
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			work(start, end)
		}(start, end)
	}
	wg.Wait()
}
