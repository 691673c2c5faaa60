package monitor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"netguard/internal/registry"
)

const (
	simOfflineCut = 0.95
	simSlowCut    = 0.85
	simStickiness = 0.7
)

// SimulatedProber produces synthetic results for demos and load tests. Each
// draw is 85% online (1-50ms), 10% slow (151-450ms) and 5% offline, and an
// address that was last reported offline stays offline 70% of the time.
type SimulatedProber struct {
	mu     sync.Mutex
	rng    *rand.Rand
	last   map[string]registry.Status
	logger zerolog.Logger
}

// NewSimulatedProber draws from rng; a nil rng is seeded from the clock.
func NewSimulatedProber(rng *rand.Rand, logger zerolog.Logger) *SimulatedProber {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedProber{
		rng:    rng,
		last:   make(map[string]registry.Status),
		logger: logger.With().Str("component", "sim-prober").Logger(),
	}
}

func (p *SimulatedProber) Probe(ctx context.Context, address string) Result {
	if err := ctx.Err(); err != nil {
		return Offline(classifyProbeError(err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var res Result
	switch roll := p.rng.Float64(); {
	case roll > simOfflineCut:
		res = Offline("simulated")
	case roll > simSlowCut:
		res = Classify(time.Duration(p.rng.Intn(300)+151) * time.Millisecond)
	default:
		res = Classify(time.Duration(p.rng.Intn(50)+1) * time.Millisecond)
	}

	if p.last[address] == registry.StatusOffline && p.rng.Float64() < simStickiness {
		res = Offline("simulated")
	}
	p.last[address] = res.Status

	p.logger.Trace().Str("address", address).Str("status", string(res.Status)).Int("latency", res.Latency).Msg("simulated")
	return res
}
