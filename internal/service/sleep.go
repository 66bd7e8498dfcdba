// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/clockdash/internal/logger"
)

const (
	dbusInterface   = "org.freedesktop.login1.Manager"
	dbusWatchMember = "PrepareForSleep"

	debounceWindow   = 2 // seconds
	signalBufferSize = 8

	busReconnectDelay   = 5 * time.Second
	networkWakeupDelay  = 10 * time.Second
	reconnectDelay      = 2 * time.Second
	subscribeRetryDelay = 10 * time.Second
)

// monitorSleepResume watches logind for resume events and refreshes location and weather after
// the machine woke up. A lost bus connection is re-established until ctx is cancelled.
func (s *Service) monitorSleepResume(ctx context.Context) {
	var lastResumeUnix int64

	for {
		conn := s.connectToSystemBus(ctx)
		if conn == nil {
			return
		}
		if !s.setupSleepMonitoring(ctx, conn) {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		sigCh := make(chan *dbus.Signal, signalBufferSize)
		conn.Signal(sigCh)
		s.logger.Debug("subscribed to dbus signal", slog.String("interface", dbusInterface),
			slog.String("member", dbusWatchMember))

		s.handleSleepSignals(ctx, sigCh, &lastResumeUnix)

		conn.RemoveSignal(sigCh)
		if err := conn.Close(); err != nil {
			s.logger.Debug("failed to close system bus connection", logger.Err(err))
		}
		if !sleepCtx(ctx, reconnectDelay) {
			return
		}
	}
}

func (s *Service) connectToSystemBus(ctx context.Context) *dbus.Conn {
	for {
		conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
		if err != nil {
			s.logger.Debug("system bus not available, sleep monitoring paused", logger.Err(err))
			if !sleepCtx(ctx, busReconnectDelay) {
				return nil
			}
			continue
		}
		return conn
	}
}

func (s *Service) setupSleepMonitoring(ctx context.Context, conn *dbus.Conn) bool {
	if err := conn.AddMatchSignal(dbus.WithMatchInterface(dbusInterface),
		dbus.WithMatchMember(dbusWatchMember),
	); err != nil {
		s.logger.Error("failed to subscribe to dbus signal", slog.String("interface", dbusInterface),
			slog.String("member", dbusWatchMember), logger.Err(err))
		if err = conn.Close(); err != nil {
			s.logger.Debug("failed to close system bus connection", logger.Err(err))
		}
		sleepCtx(ctx, subscribeRetryDelay)
		return false
	}
	return true
}

func (s *Service) handleSleepSignals(ctx context.Context, sigCh chan *dbus.Signal, lastResumeUnix *int64) {
	for {
		select {
		case <-ctx.Done():
			return
		case sgn, ok := <-sigCh:
			if !ok {
				return
			}
			if isResumeSignal(sgn) {
				s.handleResumeEvent(ctx, lastResumeUnix)
			}
		}
	}
}

// isResumeSignal reports whether sgn is PrepareForSleep(false), sent after waking up.
func isResumeSignal(sgn *dbus.Signal) bool {
	if sgn == nil || len(sgn.Body) != 1 {
		return false
	}
	sleeping, ok := sgn.Body[0].(bool)
	return ok && !sleeping
}

// handleResumeEvent debounces resume events and, once the network had time to come back,
// forces a new location lookup and retries the weather.
func (s *Service) handleResumeEvent(ctx context.Context, lastResumeUnix *int64) {
	now := s.now().Unix()
	if now-atomic.LoadInt64(lastResumeUnix) < debounceWindow {
		return
	}
	atomic.StoreInt64(lastResumeUnix, now)

	if !sleepCtx(ctx, networkWakeupDelay) {
		return
	}

	s.logger.Debug("resumed from sleep, refreshing location and weather")
	s.location.Refresh(ctx)
	s.weather.Retry(ctx)
}

// sleepCtx waits for d and reports false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
