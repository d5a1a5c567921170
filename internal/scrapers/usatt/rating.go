package usatt

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"usatt/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_get_rating  = "client.get-rating"
	report_client_get_ratings = "client.get-ratings"
)

const (
	accountLinkMarker = "userAccount/up"
	detailsSelector   = "span.details-text"
)

// Rating is a snapshot of one player's ratings.
type Rating struct {
	ID                      string `json:"usatt_id"`
	Name                    string `json:"name"`
	TournamentRating        int    `json:"tournament_rating"`
	HighestTournamentRating int    `json:"highest_tournament_rating"`
	TournamentsPlayed       int    `json:"tournaments_played"`
	LeagueRating            int    `json:"league_rating"`
	HighestLeagueRating     int    `json:"highest_league_rating"`
	LeaguesPlayed           int    `json:"leagues_played"`
}

// RatingColumns are the display names of the Rating fields, in field order.
var RatingColumns = []string{
	IndexColumn,
	"Name",
	"Tournament Rating",
	"Highest Tournament Rating",
	"Tournaments Played",
	"League Rating",
	"Highest League Rating",
	"Leagues Played",
}

// Values returns the fields of the rating as strings, ordered like RatingColumns.
func (r Rating) Values() []string {
	return []string{
		r.ID,
		r.Name,
		strconv.Itoa(r.TournamentRating),
		strconv.Itoa(r.HighestTournamentRating),
		strconv.Itoa(r.TournamentsPlayed),
		strconv.Itoa(r.LeagueRating),
		strconv.Itoa(r.HighestLeagueRating),
		strconv.Itoa(r.LeaguesPlayed),
	}
}

func (r *Rating) fields() []*int {
	return []*int{
		&r.TournamentRating,
		&r.HighestTournamentRating,
		&r.TournamentsPlayed,
		&r.LeagueRating,
		&r.HighestLeagueRating,
		&r.LeaguesPlayed,
	}
}

// GetRating looks up the player with the given usatt number.
//
// It fails with ErrConnection if either the search or the profile page
// could not be fetched and with ErrLookup if the player could not be found
// or the profile does not show all six numbers.
func (c *Client) GetRating(ctx context.Context, id string) (Rating, error) {
	ctx, span := tracer.Start(ctx, "GetRating")
	defer span.End()
	span.SetAttributes(attribute.String("usatt_id", id))

	fail := func(err error) (Rating, error) {
		c.tel.ReportBroken(report_client_get_rating, err, id)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Rating{}, fmt.Errorf("get rating %s: %w", id, err)
	}

	doc, err := c.getDocument(ctx, "/s2", url.Values{"q": {id}})
	if err != nil {
		return fail(fmt.Errorf("search: %w", err))
	}

	account, name, err := findAccount(htmlutil.GetAnchors(ctx, doc.Find("a")))
	if err != nil {
		return fail(err)
	}
	c.tel.ReportDebug("found account", id, account, name)

	doc, err = c.getDocument(ctx, "/up/"+url.PathEscape(account), nil)
	if err != nil {
		return fail(fmt.Errorf("profile: %w", err))
	}

	rating := Rating{ID: id, Name: name}
	err = parseDetails(doc, &rating)
	if err != nil {
		return fail(err)
	}

	return rating, nil
}

// GetRatings looks up each id in order, the first failure aborts the whole lookup.
func (c *Client) GetRatings(ctx context.Context, ids []string) ([]Rating, error) {
	ratings := make([]Rating, 0, len(ids))
	for _, id := range ids {
		rating, err := c.GetRating(ctx, id)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	c.tel.ReportCount(report_client_get_ratings, int64(len(ratings)))
	return ratings, nil
}

// findAccount picks the first profile link in the search results.
//
// A result row can link each part of the name (first, last) to the same
// profile, so the text of every link to that profile is collected and joined.
// Links to other profiles are ignored.
func findAccount(anchors []htmlutil.Anchor) (account, name string, err error) {
	var parts []string
	for _, a := range anchors {
		if !strings.Contains(a.Href, accountLinkMarker) {
			continue
		}
		link, err := url.Parse(a.Href)
		if err != nil {
			continue
		}
		linked := path.Base(strings.TrimSuffix(link.Path, "/"))
		if linked == "" || linked == "." || linked == "/" {
			continue
		}

		if account == "" {
			account = linked
		}
		if linked != account {
			continue
		}
		if a.Name != "" {
			parts = append(parts, a.Name)
		}
	}

	if account == "" {
		return "", "", fmt.Errorf("%w: no player profile in search results", ErrLookup)
	}
	return account, strings.Join(parts, " "), nil
}

var detailLabels = map[string]int{
	"tournament rating":         0,
	"highest tournament rating": 1,
	"tournaments played":        2,
	"league rating":             3,
	"highest league rating":     4,
	"leagues played":            5,
}

func normalizeLabel(label string) string {
	label = strings.ToLower(htmlutil.CleanText(label))
	return strings.Trim(label, ": ")
}

// detailLabel finds the text describing a value span, either the rest of its
// parent's text or the element right before it.
func detailLabel(value *goquery.Selection) string {
	own := value.Text()
	label := normalizeLabel(strings.Replace(value.Parent().Text(), own, "", 1))
	if _, ok := detailLabels[label]; ok {
		return label
	}
	return normalizeLabel(value.Prev().Text())
}

// parseDetails fills the numeric fields of `rating` from the profile page.
//
// Values are matched to fields by their labels when every field can be found
// that way, otherwise they are assigned in page order.
func parseDetails(doc *goquery.Document, rating *Rating) error {
	spans := doc.Find(detailsSelector)
	fields := rating.fields()
	if spans.Length() < len(fields) {
		return fmt.Errorf(
			"%w: expected %d profile values, found %d",
			ErrLookup, len(fields), spans.Length(),
		)
	}

	values := make([]int, spans.Length())
	labeled := make(map[int]int, len(fields))
	var parseErr error
	spans.Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		n, err := strconv.Atoi(text)
		if err != nil {
			if parseErr == nil && i < len(fields) {
				parseErr = fmt.Errorf("%w: profile value %d %q is not a number", ErrLookup, i, text)
			}
			return
		}
		values[i] = n

		field, ok := detailLabels[detailLabel(s)]
		if !ok {
			return
		}
		if _, taken := labeled[field]; !taken {
			labeled[field] = n
		}
	})

	if len(labeled) == len(fields) {
		for field, n := range labeled {
			*fields[field] = n
		}
		return nil
	}

	if parseErr != nil {
		return parseErr
	}
	for i, f := range fields {
		*f = values[i]
	}
	return nil
}
