// client.go contains the http plumbing shared by the rating lookup and the
// summary listing, both of which read html off of the usatt ratings site.

package usatt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
	"usatt/internal/components/assert"
	"usatt/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("usatt.internal.scrapers.usatt")

const (
	DefaultBaseUrl   = "https://usatt.simplycompete.com/userAccount"
	DefaultTimeout   = time.Second * 30
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

var (
	// ErrConnection is returned when the site could not be reached or
	// responded with anything other than 200.
	ErrConnection = errors.New("no connection to usatt")
	// ErrLookup is returned when a page does not have the structure we
	// expect, usually because the player does not exist.
	ErrLookup = errors.New("usatt lookup failed")
	// ErrSchemaMismatch is returned when summary pages disagree on their columns.
	ErrSchemaMismatch = errors.New("usatt summary pages have different columns")
)

type ClientOptions struct {
	// BaseUrl is the userAccount root of the site, DefaultBaseUrl if empty.
	BaseUrl string
	// Timeout applies to every single request, DefaultTimeout if zero.
	Timeout time.Duration
	// RequestsPerSecond limits the request rate, no limit if <= 0.
	RequestsPerSecond float64
	// UserAgent is sent with every request, DefaultUserAgent if empty.
	UserAgent        string
	CloudflareBypass bool

	// PageSlack is how many pages past the advertised page count a summary
	// may run before it is cut off with a warning, DefaultPageSlack if nil.
	PageSlack *int
	// MaxPages is the hard cap on pages fetched by a single summary,
	// DefaultMaxPages if <= 0.
	MaxPages int

	// Dump receives every request/response pair if not nil.
	Dump telemetry.InstrumentOutput
}

// Client reads player data off of the usatt ratings site.
//
// A Client keeps no state between calls, every call issues its own requests.
type Client struct {
	http *resty.Client
	tel  telemetry.API

	pageSlack int
	maxPages  int
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "telemetry")

	tel = telemetry.NewScopedAPI("usatt_scraper", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	pageSlack := DefaultPageSlack
	if opts.PageSlack != nil {
		if *opts.PageSlack < 0 {
			return nil, fmt.Errorf("page slack must not be negative, got %d", *opts.PageSlack)
		}
		pageSlack = *opts.PageSlack
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	_, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("user-agent", opts.UserAgent)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{
		http:      httpClient,
		tel:       tel,
		pageSlack: pageSlack,
		maxPages:  opts.MaxPages,
	}, nil
}

// getDocument fetches `path` relative to the base url and parses the html.
func (c *Client) getDocument(ctx context.Context, path string, params url.Values) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrConnection, path, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", ErrLookup, err)
	}
	return doc, nil
}
