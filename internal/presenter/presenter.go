// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package presenter turns the resolver states and the wall clock into the dashboard output.
package presenter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"
	"github.com/wneessen/go-moonphase"
	"golang.org/x/text/message"

	"github.com/wneessen/clockdash/internal/config"
	"github.com/wneessen/clockdash/internal/i18n"
	"github.com/wneessen/clockdash/internal/location"
	"github.com/wneessen/clockdash/internal/state"
	"github.com/wneessen/clockdash/internal/weather"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"

	unitCelsius    = "°C"
	unitFahrenheit = "°F"
)

// WeatherView wraps a weather record with presentation-related fields. Temperatures are
// converted to the configured unit.
type WeatherView struct {
	weather.Record

	Available              bool
	TempUnit               string
	Condition              string
	ConditionIcon          string
	ConditionIconWithSpace string
	AirQualityText         string
}

type TemplateContext struct {
	Now   time.Time
	Clock string
	Date  string

	Location    string
	HasLocation bool
	Latitude    float64
	Longitude   float64
	Source      string

	Weather WeatherView

	IsDay         bool
	SunriseTime   time.Time
	SunsetTime    time.Time
	MoonPhase     string
	MoonPhaseIcon string

	Theme   string
	Loading bool
	Error   string
}

// Output is the rendered dashboard line.
type Output struct {
	Clock    string   `json:"clock"`
	Date     string   `json:"date"`
	Location string   `json:"location"`
	Weather  string   `json:"weather"`
	Tooltip  string   `json:"tooltip"`
	Class    []string `json:"class"`
	Loading  bool     `json:"loading"`
	Error    string   `json:"error,omitempty"`
}

type Presenter struct {
	ClockTemplate    *template.Template
	DateTemplate     *template.Template
	LocationTemplate *template.Template
	WeatherTemplate  *template.Template
	TooltipTemplate  *template.Template

	conf      *config.Config
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	printer   *message.Printer
}

func New(conf *config.Config, localizer *spreak.Localizer) (*Presenter, error) {
	tag := i18n.Tag(conf.Locale)
	collection, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}
	pres := &Presenter{
		conf:      conf,
		localizer: localizer,
		humanizer: collection.CreateHumanizer(tag),
		printer:   message.NewPrinter(tag),
	}

	templates := []struct {
		name   string
		source string
		target **template.Template
	}{
		{"clock", conf.Templates.Clock, &pres.ClockTemplate},
		{"date", conf.Templates.Date, &pres.DateTemplate},
		{"location", conf.Templates.Location, &pres.LocationTemplate},
		{"weather", conf.Templates.Weather, &pres.WeatherTemplate},
		{"tooltip", conf.Templates.Tooltip, &pres.TooltipTemplate},
	}
	for _, tpl := range templates {
		parsed, err := template.New(tpl.name).Funcs(pres.templateFuncMap()).Parse(tpl.source)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", tpl.name, err)
		}
		*tpl.target = parsed
	}

	// Render once against a fully populated context so that templates referencing unknown
	// fields fail at startup rather than on every tick.
	sample := pres.BuildContext(time.Now(),
		state.Snapshot[location.Record]{Data: &location.Record{DisplayName: "sample"}},
		state.Snapshot[weather.Record]{Data: &weather.Record{AirQuality: weather.DefaultAirQuality}},
	)
	if _, err = pres.Render(sample); err != nil {
		return nil, err
	}

	return pres, nil
}

// BuildContext assembles the template context from the clock and both resolver states.
func (p *Presenter) BuildContext(now time.Time, loc state.Snapshot[location.Record],
	wx state.Snapshot[weather.Record],
) TemplateContext {
	ctx := TemplateContext{
		Now:     now,
		Clock:   p.clock(now),
		Date:    p.humanizer.FormatTime(now, p.conf.Display.DateFormat),
		Loading: loc.Loading || wx.Loading,
		Error:   joinErrors(loc.Error, wx.Error),
		IsDay:   true,
	}

	moon := moonphase.New(now)
	ctx.MoonPhase = moon.PhaseName()
	ctx.MoonPhaseIcon = MoonPhaseIcon[ctx.MoonPhase]

	switch {
	case loc.HasData():
		ctx.HasLocation = true
		ctx.Location = loc.Data.DisplayName
		ctx.Latitude = loc.Data.Latitude
		ctx.Longitude = loc.Data.Longitude
		ctx.Source = loc.Data.Source
		ctx.SunriseTime, ctx.SunsetTime = p.sunTimes(now, ctx.Latitude, ctx.Longitude)
		ctx.IsDay = isDaytime(now, ctx.SunriseTime, ctx.SunsetTime)
	case loc.Loading:
		ctx.Location = p.loc("loading")
	default:
		ctx.Location = p.loc("unavailable")
	}

	if wx.HasData() {
		ctx.Weather = p.weatherView(*wx.Data, ctx.IsDay)
	}
	ctx.Theme = p.theme(ctx)

	return ctx
}

// Render executes all templates against the context.
func (p *Presenter) Render(ctx TemplateContext) (Output, error) {
	out := Output{
		Loading: ctx.Loading,
		Error:   ctx.Error,
		Class:   p.classes(ctx),
	}

	var err error
	if out.Clock, err = render(p.ClockTemplate, ctx); err != nil {
		return out, err
	}
	if out.Date, err = render(p.DateTemplate, ctx); err != nil {
		return out, err
	}
	if out.Location, err = render(p.LocationTemplate, ctx); err != nil {
		return out, err
	}

	if !ctx.Weather.Available {
		placeholder := p.loc("unavailable")
		if ctx.Loading {
			placeholder = p.loc("loading")
		}
		out.Weather = placeholder
		out.Tooltip = placeholder
		if ctx.Error != "" {
			out.Tooltip = ctx.Error
		}
		return out, nil
	}

	if out.Weather, err = render(p.WeatherTemplate, ctx); err != nil {
		return out, err
	}
	if out.Tooltip, err = render(p.TooltipTemplate, ctx); err != nil {
		return out, err
	}
	return out, nil
}

func (p *Presenter) weatherView(rec weather.Record, isDay bool) WeatherView {
	view := WeatherView{
		Record:    rec,
		Available: true,
		TempUnit:  unitCelsius,
	}
	if p.conf.Units == "imperial" {
		view.Temperature = celsiusToFahrenheit(rec.Temperature)
		view.MinTemperature = celsiusToFahrenheit(rec.MinTemperature)
		view.MaxTemperature = celsiusToFahrenheit(rec.MaxTemperature)
		view.TempUnit = unitFahrenheit
	}

	view.Condition = p.loc("unknown")
	if msg, ok := WMOWeatherCodes[rec.WeatherCode]; ok {
		view.Condition = p.localizer.Get(msg)
	}
	view.ConditionIcon = WMOWeatherIcons[rec.WeatherCode][isDay]
	view.ConditionIconWithSpace = EmojiWithSpace(view.ConditionIcon)
	view.AirQualityText = p.localizer.Get(AirQualityLevels[weather.AirQualityIndex(rec.AirQuality)])

	return view
}

func (p *Presenter) clock(now time.Time) string {
	layout := "15:04"
	switch {
	case p.conf.Display.Hour12 && p.conf.Display.ShowSeconds:
		layout = "3:04:05 PM"
	case p.conf.Display.Hour12:
		layout = "3:04 PM"
	case p.conf.Display.ShowSeconds:
		layout = "15:04:05"
	}
	return now.Format(layout)
}

// sunTimes returns sunrise and sunset for the local day in the clock's time zone. Both are
// zero during polar day or night.
func (p *Presenter) sunTimes(now time.Time, lat, lon float64) (time.Time, time.Time) {
	rise, set := sunrise.SunriseSunset(lat, lon, now.Year(), now.Month(), now.Day())
	if rise.IsZero() || set.IsZero() {
		return time.Time{}, time.Time{}
	}
	return rise.In(now.Location()), set.In(now.Location())
}

func (p *Presenter) theme(ctx TemplateContext) string {
	switch p.conf.Display.Theme {
	case ThemeLight, ThemeDark:
		return p.conf.Display.Theme
	}
	if !ctx.HasLocation || ctx.IsDay {
		return ThemeLight
	}
	return ThemeDark
}

func (p *Presenter) classes(ctx TemplateContext) []string {
	classes := []string{ctx.Theme}
	if ctx.Weather.Available {
		if category := weatherCategory(ctx.Weather.WeatherCode); category != "" {
			classes = append(classes, category)
		}
	}
	if ctx.Loading {
		classes = append(classes, "loading")
	}
	if ctx.Error != "" {
		classes = append(classes, "error")
	}
	return classes
}

// isDaytime reports whether now lies between sunrise and sunset. Without sun times (polar
// regions) it is always day.
func isDaytime(now, rise, set time.Time) bool {
	if rise.IsZero() || set.IsZero() {
		return true
	}
	return now.After(rise) && now.Before(set)
}

func joinErrors(errs ...string) string {
	nonEmpty := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != "" {
			nonEmpty = append(nonEmpty, err)
		}
	}
	return strings.Join(nonEmpty, "; ")
}

func render(tpl *template.Template, ctx TemplateContext) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := tpl.Execute(buf, ctx); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}
