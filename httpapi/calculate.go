package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/skywatch/transitfinder/passfinder"
	"github.com/skywatch/transitfinder/pipeline"
	"github.com/skywatch/transitfinder/registry"
	"github.com/skywatch/transitfinder/request"
	"github.com/skywatch/transitfinder/shadow"
)

// Handler wires the prediction pipeline's process-wide resources —
// satellite registry and planetary ephemeris — to the HTTP surface.
type Handler struct {
	Registry *registry.Registry
	Kernel   *shadow.Kernel
	Log      *logrus.Logger
}

type calculateRequest struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	RadiusKm  float64 `json:"radius_km"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

type calculateResponse struct {
	Events []pipeline.TransitEvent `json:"events"`
}

// Calculate handles POST /api/calculate: normalizes the request, resolves
// every known satellite's passes against the window, fans them out across
// the evaluator pool, and returns the sorted, possibly empty, event list.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var body calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	req, err := request.Normalize(body.Lat, body.Lon, body.RadiusKm, body.StartDate, body.EndDate)
	if err != nil {
		if request.IsBadRequest(err) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := h.fanOutAllSatellites(r.Context(), req)
	events := pipeline.Evaluate(items, h.Registry, h.Kernel, h.Log)

	jsonResponse(w, http.StatusOK, calculateResponse{Events: events})
}

// fanOutAllSatellites runs discovery (Registry resolution + Pass Finder)
// synchronously on the request goroutine, per spec.md's concurrency model —
// only the evaluator stage is parallel.
func (h *Handler) fanOutAllSatellites(ctx context.Context, req request.Request) []pipeline.WorkItem {
	var items []pipeline.WorkItem
	for _, name := range registry.LogicalNames() {
		sat, ok := h.Registry.Resolve(name)
		if !ok {
			h.Log.WithField("satellite", name).Debug("satellite not in catalog, skipping")
			continue
		}
		passes, err := passfinder.Find(sat, req.Observer.LatDeg, req.Observer.LonDeg, req.T0, req.T1)
		if err != nil {
			h.Log.WithError(err).WithField("satellite", name).Warn("pass finder failed, skipping satellite")
			continue
		}
		// Work items carry the logical name, which pipeline.Evaluate passes
		// back to Registry.Resolve; Find labels passes with the catalog name.
		for i := range passes {
			passes[i].SatName = name
		}
		items = append(items, pipeline.FanOut(passes, req.Observer, req.RadiusKm)...)
	}
	return items
}
