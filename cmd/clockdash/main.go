// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the clockdash service.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wneessen/clockdash/internal/config"
	"github.com/wneessen/clockdash/internal/i18n"
	"github.com/wneessen/clockdash/internal/logger"
	"github.com/wneessen/clockdash/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	log := logger.New(slog.LevelError)

	confPath := flag.String("config", "", "path to the config file")
	envFile := flag.String("env", "", "path to a dotenv file loaded before the config")
	flag.Parse()

	if *envFile != "" {
		if err := config.LoadEnvFiles(*envFile); err != nil {
			log.Error("failed to load env file", logger.Err(err))
			os.Exit(1)
		}
	}

	conf, err := loadConfig(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	log = logger.NewWithFormat(conf.LogLevel.Level(), os.Stderr, conf.LogFormat)
	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		os.Exit(1)
	}

	serv, err := service.New(conf, log, t)
	if err != nil {
		log.Error("failed to initialize clockdash service", logger.Err(err))
		os.Exit(1)
	}

	log.Info("starting clockdash service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Run(ctx); err != nil {
		log.Error("clockdash service stopped with an error", logger.Err(err))
	}
	log.Info("shutting down clockdash service")
}

// loadConfig reads the given config file, or the first config file found in the default
// location, or falls back to defaults and environment.
func loadConfig(confPath string) (*config.Config, error) {
	if confPath != "" {
		return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
	}
	if path, file := findConfigFile(); path != "" && file != "" {
		return config.NewFromFile(path, file)
	}
	return config.New()
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "clockdash", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
