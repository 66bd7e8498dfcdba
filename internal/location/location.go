// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package location resolves where the device is and what the place is called. Precise
// geolocation followed by reverse geocoding is tried first, an IP based lookup is the fallback.
// Successful results are cached in the key-value store for ten minutes.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/clockdash/internal/geocode"
	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/kvstore"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/retry"
	"github.com/wneessen/clockdash/internal/state"
	"github.com/wneessen/clockdash/internal/telemetry"
)

const (
	// CacheKey is the key-value store key the last resolved location is kept under.
	CacheKey = "clockdash.location"
	CacheTTL = time.Minute * 10

	PreciseTimeout = time.Second * 15

	SourcePrecise = "precise"
	SourceIP      = "ip"
)

var (
	GeocodePolicy = retry.Policy{MaxAttempts: 3, Timeout: time.Second * 8, Backoff: retry.LinearBackoff(time.Second)}
	IPPolicy      = retry.Policy{MaxAttempts: 3, Timeout: time.Second * 5, Backoff: retry.LinearBackoff(time.Second)}
)

// Record is a resolved location.
type Record struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName"`
	Source      string  `json:"source,omitempty"`
}

// Coordinate returns the coordinate of the record.
func (r Record) Coordinate() geolocation.Coordinate {
	return geolocation.Coordinate{Lat: r.Latitude, Lon: r.Longitude}
}

// CacheEntry is the persisted form of a Record. Timestamp is in epoch milliseconds.
type CacheEntry struct {
	Timestamp int64  `json:"timestamp"`
	Data      Record `json:"data"`
}

// Config holds the collaborators of a Resolver. Geocoder and Store are required.
type Config struct {
	Precise  []geolocation.PreciseLocator
	IP       []geolocation.IPLocator
	Geocoder geocode.Geocoder
	Store    kvstore.Store
	Sink     telemetry.Sink
	Logger   *logger.Logger
}

// Resolver resolves the device location and exposes the outcome as observable state.
type Resolver struct {
	precise  []geolocation.PreciseLocator
	ip       []geolocation.IPLocator
	geocoder geocode.Geocoder
	store    kvstore.Store
	sink     telemetry.Sink
	log      *logger.Logger
	state    *state.Holder[Record]
	wg       sync.WaitGroup

	now            func() time.Time
	preciseTimeout time.Duration
	geocodePolicy  retry.Policy
	ipPolicy       retry.Policy
}

func New(conf Config) (*Resolver, error) {
	if conf.Geocoder == nil {
		return nil, errors.New("location resolver requires a geocoder")
	}
	if conf.Store == nil {
		return nil, errors.New("location resolver requires a key-value store")
	}
	if conf.Logger == nil {
		return nil, errors.New("location resolver requires a logger")
	}
	sink := conf.Sink
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Resolver{
		precise:        conf.Precise,
		ip:             conf.IP,
		geocoder:       conf.Geocoder,
		store:          conf.Store,
		sink:           sink,
		log:            conf.Logger,
		state:          state.New[Record](),
		now:            time.Now,
		preciseTimeout: PreciseTimeout,
		geocodePolicy:  GeocodePolicy,
		ipPolicy:       IPPolicy,
	}, nil
}

// Resolve returns the current location. Unless force is set a fresh cache entry is returned
// without any network call. Only the outcome of the newest call is applied to the state.
func (r *Resolver) Resolve(ctx context.Context, force bool) (Record, error) {
	gen := r.state.Begin()

	if !force {
		if record, ok := r.cached(ctx); ok {
			r.log.Debug("using cached location", slog.String("location", record.DisplayName))
			r.state.Succeed(gen, record)
			return record, nil
		}
	}

	record, err := r.resolve(ctx)
	if err != nil {
		if !r.state.Fail(gen, err) {
			r.log.Debug("discarding outdated location failure", slog.Uint64("generation", gen))
		}
		r.sink.Emit(telemetry.EventLocationFailed, map[string]any{"error": err.Error()})
		return Record{}, err
	}

	if r.state.Succeed(gen, record) {
		r.persist(ctx, record)
	} else {
		r.log.Debug("discarding outdated location result", slog.Uint64("generation", gen))
	}
	r.sink.Emit(telemetry.EventLocationResolved, map[string]any{
		"source":   record.Source,
		"location": record.DisplayName,
	})
	return record, nil
}

// Retry re-runs the resolution in the background, honouring the cache.
func (r *Resolver) Retry(ctx context.Context) {
	r.background(ctx, false)
}

// Refresh re-runs the resolution in the background and bypasses the cache.
func (r *Resolver) Refresh(ctx context.Context) {
	r.background(ctx, true)
}

// Wait blocks until all background resolutions have returned.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

func (r *Resolver) State() state.Snapshot[Record] {
	return r.state.Snapshot()
}

func (r *Resolver) Subscribe(buffer int) (<-chan state.Snapshot[Record], func()) {
	return r.state.Subscribe(buffer)
}

func (r *Resolver) background(ctx context.Context, force bool) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.Resolve(ctx, force); err != nil {
			r.log.Error("failed to resolve location", logger.Err(err))
		}
	}()
}

func (r *Resolver) resolve(ctx context.Context) (Record, error) {
	record, preciseErr := r.resolvePrecise(ctx)
	if preciseErr == nil {
		return record, nil
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.log.Debug("precise geolocation failed, falling back to IP lookup", logger.Err(preciseErr))

	record, ipErr := r.resolveIP(ctx)
	if ipErr == nil {
		return record, nil
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, &ResolveError{Precise: preciseErr, IP: ipErr}
}

func (r *Resolver) resolvePrecise(ctx context.Context) (Record, error) {
	coord, err := r.locate(ctx)
	if err != nil {
		return Record{}, err
	}
	if err = coord.Validate(); err != nil {
		return Record{}, err
	}

	addr, err := retry.Do(ctx, r.geocodePolicy, func(ctx context.Context) (geocode.Address, error) {
		return r.geocoder.Reverse(ctx, coord)
	})
	if errors.Is(err, retry.ErrExhausted) {
		return Record{}, fmt.Errorf("%w: %w", ErrGeocodingExhausted, err)
	}
	if err != nil {
		return Record{}, err
	}

	return Record{
		Latitude:    coord.Lat,
		Longitude:   coord.Lon,
		DisplayName: addr.DisplayName(),
		Source:      SourcePrecise,
	}, nil
}

// locate asks the precise locators in order and returns the first coordinate. All of them
// share one time budget.
func (r *Resolver) locate(ctx context.Context) (geolocation.Coordinate, error) {
	if len(r.precise) == 0 {
		return geolocation.Coordinate{}, fmt.Errorf("%w: no precise locator configured", ErrGeolocationUnsupported)
	}

	ctxLocate, cancel := context.WithTimeout(ctx, r.preciseTimeout)
	defer cancel()

	var errs []error
	for _, locator := range r.precise {
		coord, err := locator.Locate(ctxLocate)
		if err == nil {
			r.log.Debug("precise geolocation succeeded", slog.String("locator", locator.Name()))
			return coord, nil
		}
		if ctx.Err() != nil {
			return geolocation.Coordinate{}, ctx.Err()
		}
		if ctxLocate.Err() != nil {
			return geolocation.Coordinate{}, fmt.Errorf("%w after %s", ErrGeolocationTimeout, r.preciseTimeout)
		}
		r.log.Debug("precise locator failed", slog.String("locator", locator.Name()), logger.Err(err))
		errs = append(errs, fmt.Errorf("%s: %w", locator.Name(), err))
	}

	return geolocation.Coordinate{}, classifyLocateErrors(errs)
}

func classifyLocateErrors(errs []error) error {
	joined := errors.Join(errs...)
	unavailable := 0
	for _, err := range errs {
		switch {
		case errors.Is(err, geolocation.ErrPermission):
			return fmt.Errorf("%w: %w", ErrGeolocationDenied, joined)
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("%w: %w", ErrGeolocationTimeout, joined)
		case errors.Is(err, geolocation.ErrUnavailable):
			unavailable++
		}
	}
	if unavailable == len(errs) {
		return fmt.Errorf("%w: %w", ErrGeolocationUnsupported, joined)
	}
	return fmt.Errorf("%w: %w", ErrPositionUnavailable, joined)
}

func (r *Resolver) resolveIP(ctx context.Context) (Record, error) {
	if len(r.ip) == 0 {
		return Record{}, fmt.Errorf("%w: no IP locator configured", ErrIPLookupExhausted)
	}

	var errs []error
	for _, locator := range r.ip {
		loc, err := retry.Do(ctx, r.ipPolicy, func(ctx context.Context) (geolocation.IPLocation, error) {
			loc, err := locator.LookupIP(ctx)
			if err != nil {
				return loc, err
			}
			if err = loc.Validate(); err != nil {
				return loc, retry.Permanent(err)
			}
			return loc, nil
		})
		if err == nil {
			return Record{
				Latitude:    loc.Lat,
				Longitude:   loc.Lon,
				DisplayName: geocode.DisplayName(loc.City, loc.Region, loc.Country),
				Source:      SourceIP,
			}, nil
		}
		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}
		r.log.Debug("IP locator failed", slog.String("locator", locator.Name()), logger.Err(err))
		errs = append(errs, fmt.Errorf("%s: %w", locator.Name(), err))
	}

	return Record{}, fmt.Errorf("%w: %w", ErrIPLookupExhausted, errors.Join(errs...))
}

// cached returns the stored record if it exists, can be decoded and is younger than CacheTTL.
func (r *Resolver) cached(ctx context.Context) (Record, bool) {
	raw, err := r.store.Get(ctx, CacheKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			r.log.Warn("failed to read location cache", logger.Err(err))
		}
		return Record{}, false
	}

	var entry CacheEntry
	if err = json.Unmarshal([]byte(raw), &entry); err != nil {
		r.log.Warn("ignoring corrupt location cache entry", logger.Err(err))
		return Record{}, false
	}
	if entry.Data.DisplayName == "" || entry.Data.Coordinate().Validate() != nil {
		r.log.Warn("ignoring invalid location cache entry")
		return Record{}, false
	}

	age := r.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= CacheTTL {
		return Record{}, false
	}
	return entry.Data, true
}

func (r *Resolver) persist(ctx context.Context, record Record) {
	data, err := json.Marshal(CacheEntry{Timestamp: r.now().UnixMilli(), Data: record})
	if err != nil {
		r.log.Warn("failed to encode location cache entry", logger.Err(err))
		return
	}
	if err = r.store.Set(ctx, CacheKey, string(data)); err != nil {
		r.log.Warn("failed to write location cache", logger.Err(err))
	}
}
