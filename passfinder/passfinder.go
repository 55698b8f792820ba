// Package passfinder adapts the satellite package's rise/culmination/set
// event enumerator into maximal above-horizon intervals.
package passfinder

import (
	"github.com/skywatch/transitfinder/satellite"
)

// Pass is a maximal interval during which a satellite is above 0° altitude
// as seen from a fixed observer. Pass intervals from a single satellite are
// non-overlapping and chronological.
type Pass struct {
	SatName string
	RiseTT  float64
	SetTT   float64
}

// minAltitudeDeg is the horizon cut used to delimit a pass.
const minAltitudeDeg = 0.0

// Find enumerates every pass of sat above the horizon within [t0, t1] TT
// Julian dates, as seen from the given observer.
//
// It pairs each rise event with the next set event; any dangling rise with
// no matching set before t1 is discarded, and intervals of zero or negative
// duration are dropped.
func Find(sat satellite.Sat, latDeg, lonDeg, t0, t1 float64) ([]Pass, error) {
	events, err := satellite.FindEvents(sat, latDeg, lonDeg, t0, t1, minAltitudeDeg)
	if err != nil {
		return nil, err
	}

	var passes []Pass
	var riseT float64
	haveRise := false
	for _, e := range events {
		switch e.Kind {
		case satellite.Rise:
			riseT = e.T
			haveRise = true
		case satellite.Set:
			if !haveRise {
				continue
			}
			if e.T > riseT {
				passes = append(passes, Pass{SatName: sat.Name, RiseTT: riseT, SetTT: e.T})
			}
			haveRise = false
		}
	}
	return passes, nil
}
