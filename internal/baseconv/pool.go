package baseconv

import (
	"context"
	"fmt"

	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PoolSize is the number of conversion units provisioned side by side.
const PoolSize = 4

// Pool is a fixed-size array of independent conversion units, addressed by
// index. The optimizer pipeline never dispatches into the pool; it exists
// for hosts that want several conversions in flight at once.
type Pool struct {
	units [PoolSize]Unit
}

// NewPool constructs a pool of idle units sharing one logger.
func NewPool(logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{}
	for i := range p.units {
		p.units[i].logger = logger.With(zap.Int("converter", i))
	}
	return p
}

// Unit returns the unit at the given slot. The pointer stays valid for the
// pool's lifetime; slots are fixed and never reallocated.
func (p *Pool) Unit(i int) *Unit {
	return &p.units[i]
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return PoolSize
}

// StepAll advances every unit by one step.
func (p *Pool) StepAll() {
	for i := range p.units {
		p.units[i].Step()
	}
}

// Reset forces every unit to IDLE and clears all sticky error flags.
func (p *Pool) Reset() {
	for i := range p.units {
		p.units[i].Reset()
	}
}

// ConvertBatch runs a set of jobs across the pool, one goroutine per slot,
// each slot handling its jobs strictly in order. Results are positional.
// The first unsupported conversion cancels the remaining work.
func (p *Pool) ConvertBatch(ctx context.Context, jobs []Job) ([]fixed.Price, error) {
	results := make([]fixed.Price, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for slot := 0; slot < PoolSize; slot++ {
		slot := slot
		g.Go(func() error {
			unit := &p.units[slot]
			for j := slot; j < len(jobs); j += PoolSize {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := unit.Run(jobs[j])
				if err != nil {
					return fmt.Errorf("job %d: %w", j, err)
				}
				results[j] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
