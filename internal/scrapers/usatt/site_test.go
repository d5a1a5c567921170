package usatt

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"usatt/internal/components/telemetry"
)

type fakePlayer struct {
	id      string
	account string
	first   string
	last    string
	profile string
}

// fakeSite mimics the two pages of the usatt site that are scraped.
type fakeSite struct {
	players []fakePlayer

	// summaryRows is the number of players the summary listing holds.
	summaryRows int
	// advertisedPages is the highest page number in the pagination links, 0 for none.
	advertisedPages int
	// neverEmpty makes every page past the end repeat the last full page.
	neverEmpty bool
	// status overrides the status code of every response when not 0.
	status int
	// extraColumnFrom adds a column to every page at or past this offset when > 0.
	extraColumnFrom int

	mutex    sync.Mutex
	listings []url.Values
}

func (f *fakeSite) listingRequests() []url.Values {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.listings
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")

	switch {
	case r.URL.Path == "/userAccount/s2":
		query := r.URL.Query()
		if query.Has("offset") {
			f.mutex.Lock()
			f.listings = append(f.listings, query)
			f.mutex.Unlock()
			f.writeListing(w, query)
			return
		}
		f.writeSearch(w, query.Get("q"))
	case strings.HasPrefix(r.URL.Path, "/userAccount/up/"):
		account := strings.TrimPrefix(r.URL.Path, "/userAccount/up/")
		for _, p := range f.players {
			if p.account == account {
				fmt.Fprint(w, p.profile)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

const pageHeader = `<html><body>
<nav><a href="/userAccount/s2">Players</a><a href="/about">About</a></nav>
`

func (f *fakeSite) writeSearch(w http.ResponseWriter, q string) {
	var out strings.Builder
	out.WriteString(pageHeader)
	out.WriteString(`<table class="list-table"><thead><tr><th></th><th>#</th><th>First Name</th><th>Last Name</th><th>USATT#</th></tr></thead><tbody>`)
	for i, p := range f.players {
		if p.id != q {
			continue
		}
		fmt.Fprintf(
			&out,
			`<tr><td><input type="checkbox"></td><td>%d</td><td><a href="/userAccount/up/%s">%s</a></td><td><a href="/userAccount/up/%s">%s</a></td><td>%s</td></tr>`,
			i+1, p.account, p.first, p.account, p.last, p.id,
		)
	}
	out.WriteString(`</tbody></table></body></html>`)
	fmt.Fprint(w, out.String())
}

func playerId(i int) string {
	return strconv.Itoa(100000 + i)
}

func listingCell(column string, i int) string {
	switch column {
	case "First Name":
		return fmt.Sprintf("First%d", i)
	case "Last Name":
		return fmt.Sprintf("Last%d", i)
	case IndexColumn:
		return playerId(i)
	case "Location":
		return "San Diego, CA"
	case "Tournament Rating":
		return strconv.Itoa(i % 2800)
	default:
		return fmt.Sprintf("%s %d", column, i)
	}
}

func (f *fakeSite) writeListing(w http.ResponseWriter, query url.Values) {
	offset, _ := strconv.Atoi(query.Get("offset"))
	size, _ := strconv.Atoi(query.Get("max"))

	columns := query["displayColumns"]
	if f.extraColumnFrom > 0 && offset >= f.extraColumnFrom {
		columns = append(append([]string{}, columns...), "Membership Expiration")
	}

	start := offset
	end := min(offset+size, f.summaryRows)
	if f.neverEmpty && start >= f.summaryRows {
		// keep serving the ids past the end so that rows stay unique
		end = start + size
	}

	var out strings.Builder
	out.WriteString(pageHeader)
	out.WriteString(`<table class="list-table"><thead><tr><th></th><th>#</th>`)
	for _, c := range columns {
		fmt.Fprintf(&out, "<th>%s</th>", html.EscapeString(c))
	}
	out.WriteString(`</tr></thead><tbody>`)
	for i := start; i < end; i++ {
		fmt.Fprintf(&out, `<tr><td><input type="checkbox"></td><td>%d</td>`, i+1)
		for _, c := range columns {
			fmt.Fprintf(&out, "<td>%s</td>", html.EscapeString(listingCell(c, i)))
		}
		out.WriteString("</tr>")
	}
	out.WriteString(`</tbody></table><ul class="pagination">`)
	for page := 1; page <= f.advertisedPages; page++ {
		fmt.Fprintf(&out, `<li><a href="/userAccount/s2?offset=%d&amp;max=%d">%d</a></li>`, (page-1)*size, size, page)
	}
	if f.advertisedPages > 0 {
		fmt.Fprintf(&out, `<li><a href="/userAccount/s2?offset=%d&amp;max=%d">Next</a></li>`, offset+size, size)
	}
	out.WriteString(`</ul></body></html>`)
	fmt.Fprint(w, out.String())
}

func intPtr(n int) *int {
	return &n
}

func newTestClient(t testing.TB, site *fakeSite, opts ClientOptions) (*Client, *telemetry.Recorder) {
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)

	opts.BaseUrl = srv.URL + "/userAccount"
	rec := &telemetry.Recorder{}
	client, err := NewClient(opts, rec)
	if err != nil {
		t.Fatal(err)
	}
	return client, rec
}
