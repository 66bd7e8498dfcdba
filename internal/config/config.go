// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kkyr/fig"
)

const (
	configEnv = "CLOCKDASH"
	appName   = "clockdash"

	MinRefreshInterval     = 1
	MaxRefreshInterval     = 60
	DefaultRefreshInterval = 15

	DefaultClockTpl    = "{{.Clock}}"
	DefaultDateTpl     = "{{.Date}}"
	DefaultLocationTpl = "{{.Location}}"
	DefaultWeatherTpl  = "{{.Weather.ConditionIconWithSpace}}{{hum .Weather.Temperature}}{{.Weather.TempUnit}}"
	DefaultTooltipTpl  = "{{.Weather.Condition}}\n" +
		"{{loc \"min\"}}: {{hum .Weather.MinTemperature}}{{.Weather.TempUnit}} / " +
		"{{loc \"max\"}}: {{hum .Weather.MaxTemperature}}{{.Weather.TempUnit}}\n" +
		"{{loc \"humidity\"}}: {{floatFormat .Weather.Humidity 0}}%\n" +
		"{{loc \"rain\"}}: {{floatFormat .Weather.RainProbability 0}}%\n" +
		"{{loc \"uvindex\"}}: {{floatFormat .Weather.UVIndex 1}}\n" +
		"{{loc \"airquality\"}}: {{.Weather.AirQualityText}}\n" +
		"{{loc \"sunrise\"}}: {{localizedTime .SunriseTime}} / {{loc \"sunset\"}}: {{localizedTime .SunsetTime}}\n" +
		"{{loc \"moonphase\"}}: {{.MoonPhaseIcon}} {{loc .MoonPhase}}"
)

// Config represents the application's configuration structure.
type Config struct {
	// Allowed values: metric, imperial
	Units     string   `fig:"units" default:"metric" check:"oneof=metric imperial"`
	Locale    string   `fig:"locale"`
	LogLevel  LogLevel `fig:"loglevel" default:"INFO"`
	LogFormat string   `fig:"logformat" default:"text" check:"oneof=text json tint"`

	// RefreshInterval is in minutes. 0 disables the periodic refresh of location and weather,
	// nil means unset and becomes DefaultRefreshInterval.
	RefreshInterval *int `fig:"refresh_interval"`

	Intervals struct {
		Output time.Duration `fig:"output" default:"1s" check:"gt=0"`
	} `fig:"intervals"`

	Display struct {
		Hour12      bool   `fig:"hour12"`
		ShowSeconds bool   `fig:"show_seconds"`
		DateFormat  string `fig:"date_format" default:"DATE_FORMAT"`
		// Allowed values: light, dark, auto
		Theme string `fig:"theme" default:"auto" check:"oneof=light dark auto"`
	} `fig:"display"`

	Templates struct {
		Clock    string `fig:"clock"`
		Date     string `fig:"date"`
		Location string `fig:"location"`
		Weather  string `fig:"weather"`
		Tooltip  string `fig:"tooltip"`
	} `fig:"templates"`

	Weather struct {
		APIKey string `fig:"apikey"`
		// Allowed values: open-meteo, omgo
		FallbackProvider string `fig:"fallback_provider" default:"open-meteo" check:"oneof=open-meteo omgo"`
	} `fig:"weather"`

	GeoLocation struct {
		File                   string   `fig:"file"`
		GPSDHost               string   `fig:"gpsd_host" default:"localhost" check:"hostname_rfc1123|ip"`
		GPSDPort               string   `fig:"gpsd_port" default:"2947" check:"numeric"`
		DisableGeolocationFile bool     `fig:"disable_geolocation_file"`
		DisableGPSD            bool     `fig:"disable_gpsd"`
		DisableICHNAEA         bool     `fig:"disable_ichnaea"`
		IPProviders            []string `fig:"ip_providers" default:"[ipapi]" check:"dive,oneof=ipapi geoip geoapi"`
	} `fig:"geolocation"`

	GeoCoder struct {
		// Allowed values: bigdatacloud, nominatim, opencage, geocode-earth
		Provider string `fig:"provider" default:"bigdatacloud" check:"oneof=bigdatacloud nominatim opencage geocode-earth"`
		APIKey   string `fig:"apikey" check:"required_if=Provider opencage,required_if=Provider geocode-earth"`
	} `fig:"geocoder"`

	Cache struct {
		// Allowed values: file, sqlite, memory
		Backend string `fig:"backend" default:"file" check:"oneof=file sqlite memory"`
		Path    string `fig:"path"`
	} `fig:"cache"`

	Telemetry struct {
		Log  bool `fig:"log"`
		MQTT struct {
			Broker   string `fig:"broker" check:"omitempty,url"`
			ClientID string `fig:"client_id"`
			Topic    string `fig:"topic" default:"clockdash"`
		} `fig:"mqtt"`
	} `fig:"telemetry"`
}

// LoadEnvFiles loads the given dotenv files into the process environment. Variables that are
// already set are not overridden. Missing files are an error.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

// Validate checks the struct constraints and then normalises the values that have a
// computed default.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.SetTagName("check")
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config value for %s: failed %q check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("failed to validate config: %w", err)
	}

	minutes := DefaultRefreshInterval
	if c.RefreshInterval != nil {
		minutes = ClampRefreshInterval(*c.RefreshInterval)
	}
	c.RefreshInterval = &minutes
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Templates.Clock == "" {
		c.Templates.Clock = DefaultClockTpl
	}
	if c.Templates.Date == "" {
		c.Templates.Date = DefaultDateTpl
	}
	if c.Templates.Location == "" {
		c.Templates.Location = DefaultLocationTpl
	}
	if c.Templates.Weather == "" {
		c.Templates.Weather = DefaultWeatherTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}
	if c.GeoLocation.File == "" {
		home, _ := os.UserHomeDir()
		c.GeoLocation.File = filepath.Join(home, ".config", appName, "geolocation")
	}
	if c.Cache.Path == "" {
		c.Cache.Path = defaultCachePath(c.Cache.Backend)
	}

	return nil
}

// RefreshMinutes returns the refresh interval in minutes.
func (c *Config) RefreshMinutes() int {
	if c.RefreshInterval == nil {
		return DefaultRefreshInterval
	}
	return *c.RefreshInterval
}

// RefreshEvery returns the refresh interval as duration. 0 means the periodic refresh is off.
func (c *Config) RefreshEvery() time.Duration {
	return time.Duration(c.RefreshMinutes()) * time.Minute
}

// LogLevel is a slog.Level that is configured by name ("DEBUG", "INFO", "WARN+2", ...).
type LogLevel slog.Level

// UnmarshalString satisfies fig.StringUnmarshaler for values from files and the environment.
func (l *LogLevel) UnmarshalString(value string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return err
	}
	*l = LogLevel(level)
	return nil
}

// Level returns the slog.Level.
func (l LogLevel) Level() slog.Level {
	return slog.Level(l)
}

func (l LogLevel) String() string {
	return slog.Level(l).String()
}

// ClampRefreshInterval keeps 0 and clamps any other value into the allowed range of minutes.
func ClampRefreshInterval(minutes int) int {
	switch {
	case minutes == 0:
		return 0
	case minutes < MinRefreshInterval:
		return MinRefreshInterval
	case minutes > MaxRefreshInterval:
		return MaxRefreshInterval
	default:
		return minutes
	}
}

func defaultCachePath(backend string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, appName)
	if backend == "sqlite" {
		return filepath.Join(dir, appName+".db")
	}
	return dir
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
