// Package registry resolves a fixed set of well-known satellites by logical
// name against a three-line-element TLE catalog, falling back to a one-shot
// HTTPS fetch when no local catalog file is present.
package registry

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/skywatch/transitfinder/satellite"
)

// ErrCatalogUnavailable marks a soft failure: neither the local catalog file
// nor any fetch endpoint produced data. Callers should treat this as an
// empty registry, not propagate it as a request error.
var ErrCatalogUnavailable = errors.New("registry: TLE catalog unavailable")

// aliases maps each logical satellite name this service tracks to the set of
// catalog names that identify it. Carried forward from the original
// three-satellite roster, extended with the fourth name spec.md names.
var aliases = map[string][]string{
	"ISS":      {"ISS (ZARYA)"},
	"Tiangong": {"CSS (TIANHE)", "CSS (TIANGONG)"},
	"HST":      {"HST"},
	"KH-11 13": {"USA 224", "KH-11 13"},
}

// LogicalNames returns the fixed roster of satellite names this registry
// attempts to resolve, in a stable order.
func LogicalNames() []string {
	return []string{"ISS", "Tiangong", "HST", "KH-11 13"}
}

// tleEndpoints are tried in order on a one-shot fetch; first success wins.
var tleEndpoints = []string{
	"https://celestrak.org/NORAD/elements/gp.php?GROUP=visual&FORMAT=tle",
	"https://celestrak.org/NORAD/elements/visual.txt",
}

const fetchUserAgent = "transitfinder/1.0 (+https://github.com/skywatch/transitfinder)"
const fetchTimeout = 15 * time.Second

// Registry is a catalog-name → propagator lookup table.
type Registry struct {
	byCatalogName map[string]satellite.Sat
}

// Load reads a TLE catalog from path (default caller-supplied "visual.txt")
// and builds a Registry. If path does not exist, it attempts a one-shot
// fetch from tleEndpoints; total failure is logged at Warn and yields an
// empty Registry — no error is returned.
func Load(ctx context.Context, path string, log *logrus.Logger) *Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithField("path", path).Warn("TLE catalog file not found, attempting fetch")
		data, err = fetch(ctx, log)
		if err != nil {
			log.WithError(err).Warn("TLE catalog unavailable; continuing with empty registry")
			return &Registry{byCatalogName: map[string]satellite.Sat{}}
		}
	}
	return &Registry{byCatalogName: parseCatalog(data)}
}

// Resolve looks up a logical satellite name (e.g. "ISS") against every known
// alias. Returns ok=false if none of its aliases are present in the catalog.
func (r *Registry) Resolve(logicalName string) (satellite.Sat, bool) {
	for _, alias := range aliases[logicalName] {
		if sat, ok := r.byCatalogName[alias]; ok {
			return sat, true
		}
	}
	return satellite.Sat{}, false
}

// parseCatalog parses a three-line-element text file into a catalog-name →
// Sat map. Lines are grouped in threes (name, line1, line2); malformed
// trailing groups are ignored.
func parseCatalog(data []byte) map[string]satellite.Sat {
	out := make(map[string]satellite.Sat)
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	for i := 0; i+2 < len(lines); i += 3 {
		name := strings.TrimSpace(lines[i])
		line1 := lines[i+1]
		line2 := lines[i+2]
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			continue
		}
		out[name] = satellite.NewSat(name, line1, line2)
	}
	return out
}

// fetch attempts each endpoint in tleEndpoints in order, returning the body
// of the first 200 response. Grounded on the pack's spacetrack fetch helper:
// a bounded-timeout client, explicit User-Agent, status check before read.
func fetch(ctx context.Context, log *logrus.Logger) ([]byte, error) {
	client := &http.Client{Timeout: fetchTimeout}

	var lastErr error
	for _, url := range tleEndpoints {
		body, err := fetchOne(ctx, client, url)
		if err != nil {
			log.WithError(err).WithField("url", url).Debug("TLE fetch endpoint failed")
			lastErr = err
			continue
		}
		return body, nil
	}
	if lastErr == nil {
		lastErr = ErrCatalogUnavailable
	}
	return nil, errors.Wrap(lastErr, "all TLE fetch endpoints failed")
}

func fetchOne(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Errorf("TLE fetch %s: status %d: %s", url, resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
