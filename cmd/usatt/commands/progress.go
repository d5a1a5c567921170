package commands

import (
	"io"
	"time"
	"usatt/internal/scrapers/usatt"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// pageProgress shows summary pages fetched against the advertised page count.
type pageProgress struct {
	writer  progress.Writer
	tracker *progress.Tracker
}

func newPageProgress(out io.Writer) *pageProgress {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(time.Millisecond * 100)

	tracker := &progress.Tracker{
		Message: "summary pages",
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(tracker)
	go pw.Render()

	return &pageProgress{writer: pw, tracker: tracker}
}

func (p *pageProgress) OnPage(page usatt.PageProgress) {
	if page.Page == 1 && page.ExpectedPages > 0 {
		p.tracker.UpdateTotal(int64(page.ExpectedPages))
	}
	// the empty page that ends the listing is not a page of results
	if page.Rows == 0 {
		return
	}
	p.tracker.Increment(1)
}

func (p *pageProgress) Stop(err error) {
	if err != nil {
		p.tracker.MarkAsErrored()
	} else {
		p.tracker.MarkAsDone()
	}
	// let the final state render before stopping
	time.Sleep(time.Millisecond * 150)
	p.writer.Stop()
	for p.writer.IsRenderInProgress() {
		time.Sleep(time.Millisecond * 10)
	}
}
