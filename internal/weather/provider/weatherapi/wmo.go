// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weatherapi

// conditionToWMO maps WeatherAPI condition codes to WMO weather interpretation codes.
var conditionToWMO = map[int]int{
	1000: 0,  // Sunny / Clear
	1003: 2,  // Partly cloudy
	1006: 3,  // Cloudy
	1009: 3,  // Overcast
	1030: 45, // Mist
	1063: 61, // Patchy rain possible
	1066: 71, // Patchy snow possible
	1069: 66, // Patchy sleet possible
	1072: 56, // Patchy freezing drizzle possible
	1087: 95, // Thundery outbreaks possible
	1114: 73, // Blowing snow
	1117: 75, // Blizzard
	1135: 45, // Fog
	1147: 48, // Freezing fog
	1150: 51, // Patchy light drizzle
	1153: 51, // Light drizzle
	1168: 56, // Freezing drizzle
	1171: 57, // Heavy freezing drizzle
	1180: 61, // Patchy light rain
	1183: 61, // Light rain
	1186: 63, // Moderate rain at times
	1189: 63, // Moderate rain
	1192: 65, // Heavy rain at times
	1195: 65, // Heavy rain
	1198: 66, // Light freezing rain
	1201: 67, // Moderate or heavy freezing rain
	1204: 66, // Light sleet
	1207: 67, // Moderate or heavy sleet
	1210: 71, // Patchy light snow
	1213: 71, // Light snow
	1216: 73, // Patchy moderate snow
	1219: 73, // Moderate snow
	1222: 75, // Patchy heavy snow
	1225: 75, // Heavy snow
	1237: 77, // Ice pellets
	1240: 80, // Light rain shower
	1243: 81, // Moderate or heavy rain shower
	1246: 82, // Torrential rain shower
	1249: 85, // Light sleet showers
	1252: 86, // Moderate or heavy sleet showers
	1255: 85, // Light snow showers
	1258: 86, // Moderate or heavy snow showers
	1261: 77, // Light showers of ice pellets
	1264: 77, // Moderate or heavy showers of ice pellets
	1273: 95, // Patchy light rain with thunder
	1276: 95, // Moderate or heavy rain with thunder
	1279: 95, // Patchy light snow with thunder
	1282: 95, // Moderate or heavy snow with thunder
}

// WMOCode translates a WeatherAPI condition code. Unknown codes are returned unchanged.
func WMOCode(code int) int {
	if wmo, ok := conditionToWMO[code]; ok {
		return wmo
	}
	return code
}
