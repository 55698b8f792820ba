package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/skywatch/transitfinder/registry"
	"github.com/skywatch/transitfinder/shadow"
)

func testRouter() http.Handler {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel) // silence logging noise in tests
	reg := &registry.Registry{}
	kernel := shadow.NewKernel(nil)
	return NewRouter(reg, kernel, log, "")
}

func TestHealth(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCalculate_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/calculate", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCalculate_InvalidDateFormat(t *testing.T) {
	body, _ := json.Marshal(calculateRequest{
		Lat: 48.8566, Lon: 2.3522, RadiusKm: 25,
		StartDate: "2024/05/01", EndDate: "2024-05-31",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/calculate", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if resp["error"] == "" {
		t.Errorf("expected a non-empty error message")
	}
}

func TestCalculate_EmptyRegistryYieldsEmptyEvents(t *testing.T) {
	body, _ := json.Marshal(calculateRequest{
		Lat: 48.8566, Lon: 2.3522, RadiusKm: 25,
		StartDate: "2024-05-01", EndDate: "2024-05-02",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/calculate", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp calculateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if resp.Events == nil {
		t.Errorf("expected events to be an empty array, not null")
	}
	if len(resp.Events) != 0 {
		t.Errorf("expected no events against an empty registry, got %d", len(resp.Events))
	}
}
