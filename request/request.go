// Package request normalizes the external (lat, lon, radius, date-range)
// input into the TT-scalar domain the rest of the pipeline runs in.
package request

import (
	"time"

	"github.com/pkg/errors"

	"github.com/skywatch/transitfinder/timescale"
)

// BadRequestError marks a validation failure at the request boundary — the
// only error taxonomy member that reaches the HTTP caller (as a 400).
type BadRequestError struct {
	msg string
}

func (e *BadRequestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &BadRequestError{msg: errors.Errorf(format, args...).Error()}
}

// IsBadRequest reports whether err is (or wraps) a BadRequestError.
func IsBadRequest(err error) bool {
	var target *BadRequestError
	return errors.As(err, &target)
}

// Observer is a ground location on the WGS-84 ellipsoid.
type Observer struct {
	LatDeg float64
	LonDeg float64
}

// Request is the normalized input to the prediction pipeline.
type Request struct {
	Observer  Observer
	T0       float64 // TT Julian date, 00:00 UTC of start_date
	T1       float64 // TT Julian date, 00:00 UTC of end_date
	RadiusKm float64
}

const dateLayout = "2006-01-02"

// Normalize validates raw input and converts it into a Request. Returns a
// *BadRequestError on any violation.
func Normalize(lat, lon, radiusKm float64, startDate, endDate string) (Request, error) {
	if lat < -90 || lat > 90 {
		return Request{}, badRequest("lat %.6f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return Request{}, badRequest("lon %.6f out of range [-180, 180]", lon)
	}
	if radiusKm <= 0 {
		return Request{}, badRequest("radius_km must be positive, got %.3f", radiusKm)
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return Request{}, badRequest("Invalid date format for start_date %q: %v", startDate, err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return Request{}, badRequest("Invalid date format for end_date %q: %v", endDate, err)
	}

	t0 := timescale.UTCToTT(timescale.TimeToJDUTC(start.UTC()))
	t1 := timescale.UTCToTT(timescale.TimeToJDUTC(end.UTC()))

	return Request{
		Observer: Observer{LatDeg: lat, LonDeg: lon},
		T0:       t0,
		T1:       t1,
		RadiusKm: radiusKm,
	}, nil
}
