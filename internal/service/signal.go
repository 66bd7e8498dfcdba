// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals reacts to the user signals: SIGUSR1 retries both resolvers with a forced
// location lookup, SIGUSR2 logs the current state of both.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				s.logger.Info("retry requested, refreshing location and weather")
				s.location.Refresh(ctx)
				s.weather.Retry(ctx)
			case syscall.SIGUSR2:
				s.logState()
			}
		}
	}
}

func (s *Service) logState() {
	loc := s.location.State()
	locAttrs := []any{slog.Bool("loading", loc.Loading), slog.String("error", loc.Error)}
	if loc.HasData() {
		locAttrs = append(locAttrs, slog.String("location", loc.Data.DisplayName),
			slog.Float64("latitude", loc.Data.Latitude), slog.Float64("longitude", loc.Data.Longitude),
			slog.String("source", loc.Data.Source))
	}
	s.logger.Info("current location state", locAttrs...)

	wx := s.weather.State()
	wxAttrs := []any{slog.Bool("loading", wx.Loading), slog.String("error", wx.Error)}
	if wx.HasData() {
		wxAttrs = append(wxAttrs, slog.Float64("temperature", wx.Data.Temperature),
			slog.Int("weather_code", wx.Data.WeatherCode), slog.Int("air_quality", wx.Data.AirQuality),
			slog.Time("updated_at", wx.UpdatedAt))
	}
	s.logger.Info("current weather state", wxAttrs...)
}
