package telemetry

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

const report_telemetry_counter = "telemetry.counter"

var invalidInstrumentChars = regexp.MustCompile(`[^A-Za-z0-9_./-]+`)

// instrumentName turns a (possibly scoped) report id into a valid otel
// instrument name, ex. "usatt_scraper: client.get-summary" ->
// "usatt_scraper.client.get-summary".
func instrumentName(id string) string {
	name := strings.ReplaceAll(id, ": ", ".")
	return invalidInstrumentChars.ReplaceAllString(name, "_")
}

// MeteredAPI forwards every report to another API and also adds every
// ReportCount to an otel Int64Counter named after the report id.
type MeteredAPI struct {
	API
	meter metric.Meter

	mutex    sync.Mutex
	counters map[string]metric.Int64Counter
}

func NewMeteredAPI(inner API, meter metric.Meter) *MeteredAPI {
	return &MeteredAPI{
		API:      inner,
		meter:    meter,
		counters: map[string]metric.Int64Counter{},
	}
}

func (m *MeteredAPI) counter(id string) (metric.Int64Counter, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	counter, ok := m.counters[id]
	if ok {
		return counter, nil
	}
	counter, err := m.meter.Int64Counter(instrumentName(id))
	if err != nil {
		return nil, err
	}
	m.counters[id] = counter
	return counter, nil
}

func (m *MeteredAPI) ReportCount(id string, count int64) {
	m.API.ReportCount(id, count)

	counter, err := m.counter(id)
	if err != nil {
		m.API.ReportWarning(report_telemetry_counter, err, id)
		return
	}
	counter.Add(context.Background(), count)
}
