// Package shadow computes the ground track of the shadow ray cast from an
// occulting body (Sun or Moon) through a satellite, onto a spherical Earth,
// then reduces the intersection to a WGS-84 geodetic subpoint.
package shadow

import (
	"math"

	"github.com/skywatch/transitfinder/coord"
	"github.com/skywatch/transitfinder/geometry"
	"github.com/skywatch/transitfinder/satellite"
	"github.com/skywatch/transitfinder/spk"
	"github.com/skywatch/transitfinder/timescale"
)

// EarthRadiusKm is the spherical Earth radius used for the ray–sphere
// intersection. The subpoint reduction instead uses the WGS-84 ellipsoid;
// the resulting sub-arcsecond mismatch near tangency is tolerated.
const EarthRadiusKm = 6378.137

// Sample is a single ground-track point. Invalid when the body→satellite
// ray does not intersect the Earth sphere.
type Sample struct {
	Valid  bool
	LatDeg float64
	LonDeg float64
}

// Kernel couples a planetary ephemeris with satellite propagation to produce
// shadow-ray ground samples.
type Kernel struct {
	Eph *spk.SPK
}

// NewKernel returns a Kernel backed by the given ephemeris.
func NewKernel(eph *spk.SPK) *Kernel {
	return &Kernel{Eph: eph}
}

// Sample computes the shadow-ray ground point for sat and bodyID (spk.Sun or
// spk.Moon) at a single TT Julian date.
func (k *Kernel) Sample(sat satellite.Sat, bodyID int, ttJD float64) Sample {
	S := satellite.GeocentricPositionICRF(sat, ttJD)
	B := k.Eph.Apparent(bodyID, ttJD)

	dir := sub3(S, B)
	negS := [3]float64{-S[0], -S[1], -S[2]}
	near, _ := geometry.IntersectLineSphere(dir, negS, EarthRadiusKm)
	if math.IsNaN(near) {
		return Sample{}
	}

	u := normalize(dir)
	G := [3]float64{
		S[0] + near*u[0],
		S[1] + near*u[1],
		S[2] + near*u[2],
	}

	jdUT1 := timescale.TTToUT1(ttJD)
	x, y, z := coord.ICRFToITRF(G, jdUT1)
	latDeg, lonDeg, _ := coord.ITRFToGeodetic(x, y, z)
	return Sample{Valid: true, LatDeg: latDeg, LonDeg: lonDeg}
}

// SampleRange computes ground samples for every time in ts. The shadow
// kernel's numerical notes call for batching coarse/fine grids; this loop
// is the scalar fallback, acceptable at the coarse (tens) and fine (~201)
// grid sizes this pipeline samples at.
func (k *Kernel) SampleRange(sat satellite.Sat, bodyID int, ts []float64) []Sample {
	out := make([]Sample, len(ts))
	for i, t := range ts {
		out[i] = k.Sample(sat, bodyID, t)
	}
	return out
}

func sub3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func normalize(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}
