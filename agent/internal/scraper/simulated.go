package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/signalguard/signalguard/agent/internal/config"
	"github.com/signalguard/signalguard/pkg/simulator"
	"github.com/signalguard/signalguard/pkg/types"
)

// simScraper advances the simulator once per Scrape.
type simScraper struct {
	mu  sync.Mutex
	sim *simulator.Simulator
}

func newSimulated(src config.Source, cfg simulator.Config) (*simScraper, error) {
	seed := src.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim, err := simulator.New(cfg, simulator.NewRand(seed))
	if err != nil {
		return nil, err
	}
	return &simScraper{sim: sim}, nil
}

func (s *simScraper) Scrape(ctx context.Context) (types.Summary, error) {
	if err := ctx.Err(); err != nil {
		return types.Summary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Tick(), nil
}
