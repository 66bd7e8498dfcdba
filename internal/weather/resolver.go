// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/state"
	"github.com/wneessen/clockdash/internal/telemetry"
)

type Config struct {
	Providers []Provider
	Sink      telemetry.Sink
	Logger    *logger.Logger
}

// Resolver asks its providers in order until one returns a complete record. The outcome is
// exposed as observable state.
type Resolver struct {
	providers []Provider
	sink      telemetry.Sink
	log       *logger.Logger
	state     *state.Holder[Record]
	wg        sync.WaitGroup

	coordLock sync.RWMutex
	coord     *geolocation.Coordinate
}

func New(conf Config) (*Resolver, error) {
	if len(conf.Providers) == 0 {
		return nil, errors.New("weather resolver requires at least one provider")
	}
	if conf.Logger == nil {
		return nil, errors.New("weather resolver requires a logger")
	}
	sink := conf.Sink
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Resolver{
		providers: conf.Providers,
		sink:      sink,
		log:       conf.Logger,
		state:     state.New[Record](),
	}, nil
}

// Resolve fetches the weather for coord and remembers coord for later retries. A nil coord
// returns ErrMissingCoordinate and leaves the state untouched.
func (r *Resolver) Resolve(ctx context.Context, coord *geolocation.Coordinate) (Record, error) {
	if coord == nil {
		return Record{}, ErrMissingCoordinate
	}
	target := *coord

	gen := r.state.Begin()
	if err := target.Validate(); err != nil {
		r.fail(gen, err)
		return Record{}, err
	}
	r.SetCoordinate(target)

	var failures []*ProviderError
	for _, provider := range r.providers {
		record, err := provider.Fetch(ctx, target)
		if err == nil {
			if !r.state.Succeed(gen, record) {
				r.log.Debug("discarding outdated weather result", slog.Uint64("generation", gen))
			}
			r.sink.Emit(telemetry.EventWeatherLoaded, map[string]any{"provider": provider.Name()})
			return record, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.fail(gen, ctxErr)
			return Record{}, ctxErr
		}
		r.log.Warn("weather provider failed", slog.String("provider", provider.Name()), logger.Err(err))
		failures = append(failures, &ProviderError{Provider: provider.Name(), Err: err})
	}

	err := &ResolveError{Failures: failures}
	r.fail(gen, err)
	return Record{}, err
}

// Retry fetches the weather for the last known coordinate in the background. Without a known
// coordinate it does nothing.
func (r *Resolver) Retry(ctx context.Context) {
	coord := r.Coordinate()
	if coord == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.Resolve(ctx, coord); err != nil {
			r.log.Error("failed to resolve weather", logger.Err(err))
		}
	}()
}

// Wait blocks until all background fetches have returned.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// SetCoordinate sets the coordinate used by Retry without fetching.
func (r *Resolver) SetCoordinate(coord geolocation.Coordinate) {
	r.coordLock.Lock()
	defer r.coordLock.Unlock()
	r.coord = &coord
}

// Coordinate returns a copy of the last known coordinate or nil.
func (r *Resolver) Coordinate() *geolocation.Coordinate {
	r.coordLock.RLock()
	defer r.coordLock.RUnlock()
	if r.coord == nil {
		return nil
	}
	coord := *r.coord
	return &coord
}

func (r *Resolver) State() state.Snapshot[Record] {
	return r.state.Snapshot()
}

func (r *Resolver) Subscribe(buffer int) (<-chan state.Snapshot[Record], func()) {
	return r.state.Subscribe(buffer)
}

func (r *Resolver) fail(gen uint64, err error) {
	if !r.state.Fail(gen, err) {
		r.log.Debug("discarding outdated weather failure", slog.Uint64("generation", gen))
	}
	r.sink.Emit(telemetry.EventWeatherFailed, map[string]any{"error": err.Error()})
}
