// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/clockdash/internal/config"
	"github.com/wneessen/clockdash/internal/geolocation"
	"github.com/wneessen/clockdash/internal/http"
	"github.com/wneessen/clockdash/internal/i18n"
	"github.com/wneessen/clockdash/internal/job"
	"github.com/wneessen/clockdash/internal/kvstore"
	"github.com/wneessen/clockdash/internal/location"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/presenter"
	"github.com/wneessen/clockdash/internal/state"
	"github.com/wneessen/clockdash/internal/weather"
)

const (
	locationJobName = "location_refresh_job"
	weatherJobName  = "weather_refresh_job"

	subscriptionBuffer = 8
)

type Service struct {
	SignalSrc signalSource

	config    *config.Config
	logger    *logger.Logger
	output    io.Writer
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	outputJob *job.Job
	now       func() time.Time
	// sleepMonitor watches for system resume, replaceable in tests
	sleepMonitor func(context.Context)

	store    kvstore.Store
	closers  []func() error
	location *location.Resolver
	weather  *weather.Resolver

	// wg tracks the weather fetches started by location updates
	wg sync.WaitGroup
}

func New(conf *config.Config, log *logger.Logger, localizer *spreak.Localizer) (*Service, error) {
	if conf == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	pres, err := presenter.New(conf, localizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	client := http.New(log)
	precise, ip, err := selectLocators(conf, client, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create geolocation providers: %w", err)
	}
	geocoder, err := selectGeocodeProvider(conf, client, i18n.Tag(conf.Locale))
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode provider: %w", err)
	}
	providers, err := selectWeatherProviders(conf, client, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather provider: %w", err)
	}

	store, err := kvstore.Open(context.Background(), conf.Cache.Backend, conf.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open location cache: %w", err)
	}
	sink, closers, err := selectSink(conf, log)
	closers = append(closers, store.Close)
	if err != nil {
		_ = closeAll(closers)
		return nil, err
	}

	locResolver, err := location.New(location.Config{
		Precise:  precise,
		IP:       ip,
		Geocoder: geocoder,
		Store:    store,
		Sink:     sink,
		Logger:   log,
	})
	if err != nil {
		_ = closeAll(closers)
		return nil, fmt.Errorf("failed to create location resolver: %w", err)
	}
	wxResolver, err := weather.New(weather.Config{
		Providers: providers,
		Sink:      sink,
		Logger:    log,
	})
	if err != nil {
		_ = closeAll(closers)
		return nil, fmt.Errorf("failed to create weather resolver: %w", err)
	}

	// the scheduler starts its goroutines right away, so it is created last
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		_ = closeAll(closers)
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	service := &Service{
		SignalSrc: stdLibSignalSource{},
		config:    conf,
		logger:    log,
		output:    os.Stdout,
		presenter: pres,
		scheduler: scheduler,
		now:       time.Now,
		store:     store,
		closers:   closers,
		location:  locResolver,
		weather:   wxResolver,
	}
	service.sleepMonitor = service.monitorSleepResume
	service.outputJob = job.New(conf.Intervals.Output, service.printOutput, job.WithImmediateRun())
	return service, nil
}

// Run starts the periodic jobs, resolves the location and keeps printing the dashboard until
// the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if every := s.config.RefreshEvery(); every > 0 {
		if err := s.createScheduledJob(ctx, every, s.refreshLocation, locationJobName); err != nil {
			return err
		}
		if err := s.createScheduledJob(ctx, every, s.refreshWeather, weatherJobName); err != nil {
			return err
		}
	} else {
		s.logger.Info("periodic refresh is disabled")
	}
	s.scheduler.Start()

	locUpdates, locUnsub := s.location.Subscribe(subscriptionBuffer)
	wxUpdates, wxUnsub := s.weather.Subscribe(subscriptionBuffer)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processLocationUpdates(ctx, locUpdates)
	}()
	go s.processWeatherUpdates(ctx, wxUpdates)
	go s.outputJob.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	go s.HandleSignals(ctx, sigChan)
	go s.sleepMonitor(ctx)

	// the first resolution honours the cache
	s.location.Retry(ctx)

	<-ctx.Done()
	s.SignalSrc.Stop(sigChan)
	locUnsub()
	wxUnsub()
	err := s.scheduler.Shutdown()
	s.location.Wait()
	s.wg.Wait()
	s.weather.Wait()
	return errors.Join(err, s.close())
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

func (s *Service) refreshLocation(ctx context.Context) {
	if _, err := s.location.Resolve(ctx, true); err != nil {
		s.logger.Warn("periodic location refresh failed", logger.Err(err))
	}
}

func (s *Service) refreshWeather(ctx context.Context) {
	coord := s.weather.Coordinate()
	if coord == nil {
		s.logger.Debug("no location resolved yet, skipping weather refresh")
		return
	}
	if _, err := s.weather.Resolve(ctx, coord); err != nil {
		s.logger.Warn("periodic weather refresh failed", logger.Err(err))
	}
}

// processLocationUpdates forwards resolved locations to the weather resolver. Weather is
// fetched right away for the first coordinate and after a significant move, otherwise the
// coordinate is only stored for the next periodic refresh.
func (s *Service) processLocationUpdates(ctx context.Context, updates <-chan state.Snapshot[location.Record]) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			s.outputJob.Trigger()
			if !snap.HasData() {
				continue
			}
			s.updateLocation(ctx, snap.Data.Coordinate())
		}
	}
}

func (s *Service) updateLocation(ctx context.Context, coord geolocation.Coordinate) {
	prev := s.weather.Coordinate()
	if prev != nil && !prev.PosHasSignificantChange(coord) {
		s.weather.SetCoordinate(coord)
		return
	}

	s.logger.Debug("location changed, fetching weather", slog.Float64("latitude", coord.Lat),
		slog.Float64("longitude", coord.Lon))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.weather.Resolve(ctx, &coord); err != nil {
			s.logger.Warn("failed to fetch weather for new location", logger.Err(err))
		}
	}()
}

func (s *Service) processWeatherUpdates(ctx context.Context, updates <-chan state.Snapshot[weather.Record]) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			s.outputJob.Trigger()
		}
	}
}

// printOutput renders the dashboard from both resolver states and writes it as one JSON line.
func (s *Service) printOutput(context.Context) {
	tplCtx := s.presenter.BuildContext(s.now(), s.location.State(), s.weather.State())
	out, err := s.presenter.Render(tplCtx)
	if err != nil {
		s.logger.Error("failed to render output", logger.Err(err))
		return
	}
	if err = json.NewEncoder(s.output).Encode(out); err != nil {
		s.logger.Error("failed to encode output", logger.Err(err))
	}
}

func (s *Service) close() error {
	return closeAll(s.closers)
}

// closeAll calls every closer, even after one failed, and joins their errors.
func closeAll(closers []func() error) error {
	var errs []error
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
