// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":    p.timeFormat,
		"localizedTime": p.localizedTime,
		"localizedDate": p.localizedDate,
		"floatFormat":   p.floatFormat,
		"hum":           p.hum,
		"loc":           p.loc,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	val = strings.ToLower(val)
	if raw, ok := i18nVars[val]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

func (p *Presenter) localizedTime(val time.Time) string {
	if val.IsZero() {
		return "-"
	}
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

func (p *Presenter) localizedDate(val time.Time, format string) string {
	return p.humanizer.FormatTime(val, format)
}

func (p *Presenter) timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func (p *Presenter) floatFormat(val float64, precision int) string {
	pow := math.Pow(10, float64(precision))
	return fmt.Sprintf("%.*f", precision, math.Trunc(val*pow)/pow)
}

// hum formats a measurement with one decimal and the locale's separators.
func (p *Presenter) hum(val float64) string {
	return p.printer.Sprintf("%.1f", val)
}

// EmojiWithSpace pads an emoji so that terminals and bars that count runes render the
// following text at a stable offset.
func EmojiWithSpace(emoji string) string {
	if emoji == "" {
		return ""
	}
	width := runewidth.StringWidth(emoji)
	return fmt.Sprintf("%s%s", emoji, strings.Repeat(" ", width+1))
}

// weatherCategory groups WMO codes into CSS friendly classes.
func weatherCategory(code int) string {
	switch {
	case code == 0 || code == 1:
		return "clear"
	case code == 2 || code == 3:
		return "cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 67, code >= 80 && code <= 82:
		return "rain"
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return "snow"
	case code >= 95 && code <= 99:
		return "thunderstorm"
	default:
		return ""
	}
}

func celsiusToFahrenheit(val float64) float64 {
	return val*9/5 + 32
}
