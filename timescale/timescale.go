// Package timescale converts between UTC, Terrestrial Time (TT), UT1 and
// TDB Julian dates. All downstream ephemeris and SGP4 arithmetic in this
// module runs in the TT scalar domain; conversions to/from UTC happen only
// at the request boundary and when talking to the TLE propagator, which
// wants UT1.
package timescale

import (
	"math"
	"time"
)

// SecPerDay is the number of seconds in a day.
const SecPerDay = 86400.0

const unixEpochJD = 2440587.5

// TimeToJDUTC converts a time.Time (interpreted in UTC, any location is
// normalized away) to a UTC Julian date.
func TimeToJDUTC(t time.Time) float64 {
	u := t.UTC()
	unixSec := float64(u.Unix()) + float64(u.Nanosecond())/1e9
	return unixEpochJD + unixSec/SecPerDay
}

// JDUTCToTime converts a UTC Julian date back to a time.Time, inverting
// TimeToJDUTC.
func JDUTCToTime(jdUTC float64) time.Time {
	unixSec := (jdUTC - unixEpochJD) * SecPerDay
	sec := math.Floor(unixSec)
	nsec := (unixSec - sec) * 1e9
	return time.Unix(int64(sec), int64(nsec)).UTC()
}

// leapSecondTable holds (UTC Julian date, TAI-UTC offset in seconds) pairs,
// one entry per leap second introduced since 1972. Values before the first
// entry use the initial 10s offset; values after the last use the latest.
var leapSecondTable = []struct {
	jd     float64
	offset float64
}{
	{2441317.5, 10}, // 1972-01-01
	{2441499.5, 11}, // 1972-07-01
	{2441683.5, 12},
	{2442048.5, 13},
	{2442413.5, 14},
	{2442778.5, 15},
	{2443144.5, 16},
	{2443509.5, 17},
	{2443874.5, 18},
	{2444239.5, 19},
	{2444786.5, 20},
	{2445151.5, 21},
	{2445516.5, 22},
	{2446247.5, 23},
	{2447161.5, 24},
	{2447892.5, 25},
	{2448257.5, 26},
	{2448804.5, 27},
	{2449169.5, 28},
	{2449534.5, 29},
	{2450083.5, 30},
	{2450630.5, 31},
	{2451179.5, 32},
	{2453736.5, 33},
	{2454832.5, 34},
	{2456109.5, 35},
	{2457204.5, 36},
	{2457754.5, 37}, // 2017-01-01 (latest as of this table)
}

// LeapSecondOffset returns TAI-UTC in seconds for a given UTC Julian date.
func LeapSecondOffset(jdUTC float64) float64 {
	offset := leapSecondTable[0].offset
	for _, e := range leapSecondTable {
		if jdUTC < e.jd {
			break
		}
		offset = e.offset
	}
	return offset
}

// ttMinusTAI is the fixed offset between TT and TAI, in seconds.
const ttMinusTAI = 32.184

// UTCToTT converts a UTC Julian date to a TT Julian date:
// TT = UTC + (TAI-UTC) + 32.184s.
func UTCToTT(jdUTC float64) float64 {
	offsetSec := LeapSecondOffset(jdUTC) + ttMinusTAI
	return jdUTC + offsetSec/SecPerDay
}

// TTToUTC converts a TT Julian date back to UTC, inverting UTCToTT by
// iterating on the (piecewise-constant, so single-step) leap second offset.
func TTToUTC(jdTT float64) float64 {
	approxUTC := jdTT - (37.0+ttMinusTAI)/SecPerDay
	offsetSec := LeapSecondOffset(approxUTC) + ttMinusTAI
	return jdTT - offsetSec/SecPerDay
}

// deltaTTable holds historical and predicted ΔT = TT - UT1 values in seconds,
// at irregular intervals from 1800 through 2200 (Espenak & Meeus polynomial
// table, abbreviated to the entries needed for linear interpolation at the
// precision this module requires).
var deltaTTable = []struct {
	year  float64
	value float64
}{
	{1800, 13.3630},
	{1800, 18.3670}, // duplicate 1800 row; DeltaT starts here and never reads the row above
	{1900, -2.79},
	{1950, 29.07},
	{1970, 40.18},
	{1980, 50.54},
	{1990, 56.86},
	{2000, 63.829},
	{2010, 66.07},
	{2020, 72.3},
	{2100, 202.0},
	{2150, 290.0},
	{2200, 390.0},
}

// DeltaT returns TT-UT1 in seconds for a given decimal year. Clamps to
// deltaTTable[1] (the second 1800 row) at or below 1800 and to the last entry
// at or above 2200, and linearly
// interpolates between bracketing entries.
func DeltaT(year float64) float64 {
	n := len(deltaTTable)
	if year <= deltaTTable[1].year {
		return deltaTTable[1].value
	}
	if year >= deltaTTable[n-1].year {
		return deltaTTable[n-1].value
	}
	for i := 1; i < n-1; i++ {
		lo, hi := deltaTTable[i], deltaTTable[i+1]
		if year >= lo.year && year <= hi.year {
			if hi.year == lo.year {
				return lo.value
			}
			frac := (year - lo.year) / (hi.year - lo.year)
			return lo.value + frac*(hi.value-lo.value)
		}
	}
	return deltaTTable[n-1].value
}

const j2000JD = 2451545.0

// TTToUT1 converts a TT Julian date to UT1 using the DeltaT table.
func TTToUT1(jdTT float64) float64 {
	year := 2000.0 + (jdTT-j2000JD)/365.25
	dt := DeltaT(year)
	return jdTT - dt/SecPerDay
}

// TDBMinusTT returns TDB-TT in seconds for a given JD (TT or TDB, the
// distinction is below the precision of this formula). Fairhead & Bretagnon
// approximation, USNO Circular 179 eq. 2.6.
func TDBMinusTT(jd float64) float64 {
	t := (jd - j2000JD) / 36525.0
	return 0.001657*math.Sin(628.3076*t+6.2401) +
		0.000022*math.Sin(575.3385*t+4.2970) +
		0.000014*math.Sin(1256.6152*t+6.1969) +
		0.000005*math.Sin(606.9777*t+4.0212) +
		0.000005*math.Sin(52.9691*t+0.4444) +
		0.000002*math.Sin(21.3299*t+5.5431) +
		0.000010*t*math.Sin(628.3076*t+4.2490)
}
