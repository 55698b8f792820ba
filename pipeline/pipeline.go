// Package pipeline implements the Task Fan-Out, Pass Evaluator, and
// Collector stages: the Cartesian expansion of passes into per-body work
// items, the coarse/fine geometric search that classifies each item as a
// Transit, Close Pass, or rejection, and the final chronological merge.
package pipeline

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/alitto/pond"
	"github.com/sirupsen/logrus"

	"github.com/skywatch/transitfinder/coord"
	"github.com/skywatch/transitfinder/passfinder"
	"github.com/skywatch/transitfinder/registry"
	"github.com/skywatch/transitfinder/request"
	"github.com/skywatch/transitfinder/satellite"
	"github.com/skywatch/transitfinder/shadow"
	"github.com/skywatch/transitfinder/spk"
	"github.com/skywatch/transitfinder/timescale"
)

// Body identifies which occulting body a WorkItem evaluates against.
type Body int

const (
	Sun Body = iota
	Moon
)

// String returns the JSON/log name of the body.
func (b Body) String() string {
	_, _, name := bodyParams(b)
	return name
}

// Physical radii used for the apparent-disk angular-radius computation in
// Stage D, matching the spec's fixed per-body constants (no oblateness).
const (
	sunRadiusKm  = 696340.0
	moonRadiusKm = 1737.4
)

func bodyParams(b Body) (bodyID int, physRadiusKm float64, name string) {
	switch b {
	case Moon:
		return spk.Moon, moonRadiusKm, "Moon"
	default:
		return spk.Sun, sunRadiusKm, "Sun"
	}
}

// WorkItem is the self-describing primitive payload dispatched to the
// worker pool: a satellite name and body enum rather than opaque handles,
// since handles aren't cheaply transportable across the fan-out boundary.
type WorkItem struct {
	SatName  string
	Body     Body
	RiseTT   float64
	SetTT    float64
	Observer request.Observer
	RadiusKm float64
}

// PathPoint is a single ground-track point along a shadow centerline.
type PathPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TransitEvent is the emitted prediction, field names matching the HTTP
// contract exactly.
type TransitEvent struct {
	Satellite     string      `json:"satellite"`
	CelestialBody string      `json:"celestial_body"`
	TransitType   string      `json:"transit_type"`
	TimeUTC       string      `json:"time_utc"`
	DurationSec   float64     `json:"duration_sec"`
	SwathWidthKm  float64     `json:"swath_width_km"`
	SeparationDeg float64     `json:"separation_deg"`
	AzimuthDeg    float64     `json:"azimuth_deg"`
	ElevationDeg  float64     `json:"elevation_deg"`
	PathPoints    []PathPoint `json:"path_points"`
}

// FanOut expands each pass into two WorkItems, one per body. Order is not
// preserved downstream — the Collector re-sorts the final result.
func FanOut(passes []passfinder.Pass, observer request.Observer, radiusKm float64) []WorkItem {
	items := make([]WorkItem, 0, len(passes)*2)
	for _, p := range passes {
		items = append(items,
			WorkItem{SatName: p.SatName, Body: Sun, RiseTT: p.RiseTT, SetTT: p.SetTT, Observer: observer, RadiusKm: radiusKm},
			WorkItem{SatName: p.SatName, Body: Moon, RiseTT: p.RiseTT, SetTT: p.SetTT, Observer: observer, RadiusKm: radiusKm},
		)
	}
	return items
}

// Stage constants, named exactly as the coarse/fine search they parameterize.
const (
	coarseStepSec     = 2.0
	coarseLeewayKm    = 500.0
	fineWindowSec     = 10.0
	fineStepSec       = 0.1
	bodyAltGateDeg    = -2.0
	separationGateDeg = 5.0

	// sunMoonAngularRadiusDeg + transitTolDeg kept separate (not pre-combined
	// into 0.28) so the classification cutoff visibly traces back to the
	// Sun/Moon's approximate angular radius plus a small tolerance.
	sunMoonAngularRadiusDeg = 0.27
	transitTolDeg           = 0.01
	transitCutoffDeg        = sunMoonAngularRadiusDeg + transitTolDeg

	earthMeanRadiusKm = 6371.0 // haversine sphere for coarse/fine ground distance

	durationSecConstant = 1.5

	degToRad = math.Pi / 180.0
)

// workerCountOverride, when positive, replaces the NumCPU-1 default sizing
// of the evaluator pool. Set once at process startup via SetWorkerCount;
// not safe for concurrent mutation thereafter.
var workerCountOverride int

// SetWorkerCount overrides the evaluator pool size used by Evaluate. Pass 0
// to restore the default (max(1, NumCPU-1)) sizing.
func SetWorkerCount(n int) {
	workerCountOverride = n
}

// maxWorkers sizes the evaluator pool: one request, one bounded pool,
// leaving a core free for the request goroutine and GC, unless overridden
// by SetWorkerCount.
func maxWorkers() int {
	if workerCountOverride > 0 {
		return workerCountOverride
	}
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Evaluate dispatches every WorkItem whose satellite resolves in reg across
// a bounded worker pool, recovers per-item failures, and returns the
// chronologically sorted surviving events.
func Evaluate(items []WorkItem, reg *registry.Registry, kernel *shadow.Kernel, log *logrus.Logger) []TransitEvent {
	pool := pond.New(maxWorkers(), 0)
	defer pool.StopAndWait()

	group := pool.Group()
	var mu sync.Mutex
	events := make([]TransitEvent, 0, len(items))

	for _, item := range items {
		item := item
		sat, ok := reg.Resolve(item.SatName)
		if !ok {
			continue
		}
		group.Submit(func() {
			event, ok := safeEvaluate(item, sat, kernel, log)
			if !ok {
				return
			}
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		})
	}
	group.Wait()

	return Collect(events)
}

// Collect stable-sorts by time_utc ascending. ISO-8601 Zulu string order
// equals chronological order, matching spec.md's Collector contract.
func Collect(events []TransitEvent) []TransitEvent {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeUTC < events[j].TimeUTC
	})
	return events
}

// safeEvaluate recovers a panicking evaluation so one bad WorkItem (a
// degenerate ephemeris lookup, a numerical edge case) never aborts the pool.
func safeEvaluate(item WorkItem, sat satellite.Sat, kernel *shadow.Kernel, log *logrus.Logger) (event TransitEvent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"satellite": item.SatName,
				"body":      item.Body.String(),
			}).Debugf("work item evaluation recovered: %v", r)
			ok = false
		}
	}()
	return evaluateWorkItem(item, sat, kernel)
}

// evaluateWorkItem runs Stages A–E of the pass evaluator for a single
// WorkItem. Returns ok=false for any rejection — rejections are silent, not
// errors, per the evaluator's state machine.
func evaluateWorkItem(item WorkItem, sat satellite.Sat, kernel *shadow.Kernel) (TransitEvent, bool) {
	bodyID, physRadiusKm, bodyName := bodyParams(item.Body)

	// Stage A: coarse search, 2s step.
	durationSec := (item.SetTT - item.RiseTT) * timescale.SecPerDay
	nc := int(durationSec / coarseStepSec)
	if nc < 2 {
		nc = 2
	}
	coarseStepDays := coarseStepSec / timescale.SecPerDay
	coarseTimes := make([]float64, nc)
	for i := range coarseTimes {
		coarseTimes[i] = item.RiseTT + float64(i)*coarseStepDays
	}
	coarseSamples := kernel.SampleRange(sat, bodyID, coarseTimes)

	coarseBestIdx := -1
	coarseBestDist := math.Inf(1)
	for i, s := range coarseSamples {
		if !s.Valid {
			continue
		}
		d := haversineKm(s.LatDeg, s.LonDeg, item.Observer.LatDeg, item.Observer.LonDeg)
		if d < coarseBestDist {
			coarseBestDist = d
			coarseBestIdx = i
		}
	}
	if coarseBestIdx < 0 {
		return TransitEvent{}, false
	}
	if coarseBestDist > item.RadiusKm+coarseLeewayKm {
		return TransitEvent{}, false
	}

	// Stage B: fine search, 0.1s step within a ±10s window around the
	// coarse minimum, clipped to the pass.
	center := coarseTimes[coarseBestIdx]
	fineStepDays := fineStepSec / timescale.SecPerDay
	windowDays := fineWindowSec / timescale.SecPerDay
	loT := math.Max(item.RiseTT, center-windowDays)
	hiT := math.Min(item.SetTT, center+windowDays)
	nf := int((hiT-loT)/fineStepDays) + 1
	if nf < 2 {
		return TransitEvent{}, false
	}
	fineTimes := make([]float64, nf)
	for i := range fineTimes {
		fineTimes[i] = loT + float64(i)*fineStepDays
	}
	fineSamples := kernel.SampleRange(sat, bodyID, fineTimes)

	fineBestIdx := -1
	fineBestDist := math.Inf(1)
	for i, s := range fineSamples {
		if !s.Valid {
			continue
		}
		d := haversineKm(s.LatDeg, s.LonDeg, item.Observer.LatDeg, item.Observer.LonDeg)
		if d < fineBestDist {
			fineBestDist = d
			fineBestIdx = i
		}
	}
	if fineBestIdx < 0 {
		return TransitEvent{}, false
	}
	if fineBestDist > item.RadiusKm {
		return TransitEvent{}, false
	}

	// Stage C: classification at the fine minimum.
	tStar := fineTimes[fineBestIdx]
	jdUT1 := timescale.TTToUT1(tStar)
	// GeodeticToICRF gives the observer's unit direction; scale it by the
	// geocentric distance of the WGS84 surface point to get km.
	const wgs84A, wgs84F = 6378.137, 1.0 / 298.257223563
	const wgs84E2 = wgs84F * (2.0 - wgs84F)
	sinLat, cosLat := math.Sincos(item.Observer.LatDeg * degToRad)
	n := wgs84A / math.Sqrt(1.0-wgs84E2*sinLat*sinLat)
	obsRadiusKm := n * math.Hypot(cosLat, (1.0-wgs84E2)*sinLat)
	ox, oy, oz := coord.GeodeticToICRF(item.Observer.LatDeg, item.Observer.LonDeg, jdUT1)
	obsICRF := [3]float64{ox * obsRadiusKm, oy * obsRadiusKm, oz * obsRadiusKm}

	bodyGeo := kernel.Eph.Apparent(bodyID, tStar)
	bodyTopo := sub3(bodyGeo, obsICRF)
	bodyAlt, _, bodyDist := coord.Altaz(bodyTopo, item.Observer.LatDeg, item.Observer.LonDeg, jdUT1)
	if bodyAlt < bodyAltGateDeg {
		return TransitEvent{}, false
	}

	satGeo := satellite.GeocentricPositionICRF(sat, tStar)
	satTopo := sub3(satGeo, obsICRF)
	satAlt, satAz, satDist := coord.Altaz(satTopo, item.Observer.LatDeg, item.Observer.LonDeg, jdUT1)

	sep := coord.SeparationAngle(bodyTopo, satTopo)
	if sep > separationGateDeg {
		return TransitEvent{}, false
	}
	transitType := "Close Pass"
	if sep < transitCutoffDeg {
		transitType = "Transit"
	}

	// Stage D: swath width, small-angle projection along the sight-line.
	alpha := math.Asin(physRadiusKm / bodyDist)
	swathWidthKm := 2.0 * satDist * math.Tan(alpha)

	// Stage E: centerline, every valid fine sample in time order.
	pathPoints := make([]PathPoint, 0, nf)
	for _, s := range fineSamples {
		if s.Valid {
			pathPoints = append(pathPoints, PathPoint{Lat: s.LatDeg, Lon: s.LonDeg})
		}
	}

	timeUTC := timescale.JDUTCToTime(timescale.TTToUTC(tStar)).Format("2006-01-02T15:04:05.000Z")

	return TransitEvent{
		Satellite:     item.SatName,
		CelestialBody: bodyName,
		TransitType:   transitType,
		TimeUTC:       timeUTC,
		DurationSec:   durationSecConstant,
		SwathWidthKm:  swathWidthKm,
		SeparationDeg: sep,
		AzimuthDeg:    satAz,
		ElevationDeg:  satAlt,
		PathPoints:    pathPoints,
	}, true
}

// EstimateDurationSec computes the alternative in-disk duration discussed in
// spec.md's design notes: the span between the first and last fine-grid
// sample whose ground distance falls within the swath radius. Not wired
// into evaluateWorkItem — the constant duration_sec remains current
// behavior — but exported for tests exploring the computed alternative.
func EstimateDurationSec(distancesKm []float64, swathRadiusKm, stepSec float64) float64 {
	firstInside, lastInside := -1, -1
	for i, d := range distancesKm {
		if d <= swathRadiusKm {
			if firstInside < 0 {
				firstInside = i
			}
			lastInside = i
		}
	}
	if firstInside < 0 {
		return 0
	}
	return float64(lastInside-firstInside) * stepSec
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dphi := (lat2 - lat1) * degToRad
	dlambda := (lon2 - lon1) * degToRad

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthMeanRadiusKm * c
}

func sub3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}
