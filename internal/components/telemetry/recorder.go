package telemetry

import "sync"

// Report is a single call made against a Recorder.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

const (
	KindBroken  = "broken"
	KindWarning = "warning"
	KindInfo    = "info"
	KindDebug   = "debug"
	KindCount   = "count"
)

// Recorder is an API that keeps every report in memory so tests can assert
// on what a component reported.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *Recorder) record(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, Id: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record(KindBroken, id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record(KindWarning, id, params)
}

func (r *Recorder) ReportInfo(msg string, params ...any) {
	r.record(KindInfo, msg, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record(KindDebug, msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record(KindCount, id, []any{count})
}

// Reports returns the recorded reports of the given kind, all of them if
// kind is empty.
func (r *Recorder) Reports(kind string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if kind == "" || report.Kind == kind {
			out = append(out, report)
		}
	}
	return out
}
