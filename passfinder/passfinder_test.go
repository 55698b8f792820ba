package passfinder

import (
	"testing"
	"time"

	"github.com/skywatch/transitfinder/satellite"
	"github.com/skywatch/transitfinder/timescale"
)

// Real ISS TLE (2024-05-01 epoch), used elsewhere in this module's tests.
const issLine1 = "1 25544U 98067A   24122.54783565  .00016717  00000-0  30371-3 0  9994"
const issLine2 = "2 25544  51.6416 165.3881 0004263  42.9030  89.8283 15.50381727451234"

func TestFind_PairsRiseWithNextSet(t *testing.T) {
	sat := satellite.NewSat("ISS (ZARYA)", issLine1, issLine2)

	startUTC, err := time.Parse(time.RFC3339, "2024-05-02T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	endUTC, err := time.Parse(time.RFC3339, "2024-05-03T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	start := timescale.UTCToTT(timescale.TimeToJDUTC(startUTC))
	end := timescale.UTCToTT(timescale.TimeToJDUTC(endUTC))

	passes, findErr := Find(sat, 48.8566, 2.3522, start, end)
	if findErr != nil {
		t.Fatalf("Find: %v", findErr)
	}
	for _, p := range passes {
		if p.SetTT <= p.RiseTT {
			t.Errorf("pass has non-positive duration: rise=%f set=%f", p.RiseTT, p.SetTT)
		}
		if p.SatName != sat.Name {
			t.Errorf("pass satellite name mismatch: got %q", p.SatName)
		}
	}
}
