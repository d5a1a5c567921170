package usatt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"usatt/internal/components/telemetry"
	"usatt/pkg/htmlutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func positionalProfile(values ...string) string {
	var out strings.Builder
	out.WriteString(`<html><body><div class="profile"><ul>`)
	for _, v := range values {
		fmt.Fprintf(&out, `<li><span class="details-text">%s</span></li>`, v)
	}
	out.WriteString(`</ul></div></body></html>`)
	return out.String()
}

func lilyZhang() fakePlayer {
	return fakePlayer{
		id:      "31126",
		account: "120574",
		first:   "Lily",
		last:    "Zhang",
		profile: positionalProfile("2580", "2736", "212", "2451", "2451", "9"),
	}
}

func TestGetRatingGolden(t *testing.T) {
	site := &fakeSite{players: []fakePlayer{lilyZhang()}}
	client, rec := newTestClient(t, site, ClientOptions{})

	rating, err := client.GetRating(context.Background(), "31126")
	require.NoError(t, err)

	expected := Rating{
		ID:                      "31126",
		Name:                    "Lily Zhang",
		TournamentRating:        2580,
		HighestTournamentRating: 2736,
		TournamentsPlayed:       212,
		LeagueRating:            2451,
		HighestLeagueRating:     2451,
		LeaguesPlayed:           9,
	}
	if diff := cmp.Diff(expected, rating); diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, rec.Reports(telemetry.KindBroken))
}

func TestGetRatingByLabel(t *testing.T) {
	player := lilyZhang()
	player.profile = `<html><body>
		<div><label>Leagues Played</label><span class="details-text">9</span></div>
		<div><label>Tournament Rating</label><span class="details-text">2580</span></div>
		<div>Highest League Rating: <span class="details-text">2451</span></div>
		<div><label>Tournaments Played</label><span class="details-text">212</span></div>
		<div><label>Highest Tournament Rating</label><span class="details-text">2736</span></div>
		<div><label>League Rating</label><span class="details-text">2400</span></div>
	</body></html>`
	site := &fakeSite{players: []fakePlayer{player}}
	client, _ := newTestClient(t, site, ClientOptions{})

	rating, err := client.GetRating(context.Background(), "31126")
	require.NoError(t, err)
	require.Equal(t, 2580, rating.TournamentRating)
	require.Equal(t, 2736, rating.HighestTournamentRating)
	require.Equal(t, 212, rating.TournamentsPlayed)
	require.Equal(t, 2400, rating.LeagueRating)
	require.Equal(t, 2451, rating.HighestLeagueRating)
	require.Equal(t, 9, rating.LeaguesPlayed)
}

func TestGetRatingNotFound(t *testing.T) {
	site := &fakeSite{players: []fakePlayer{lilyZhang()}}
	client, rec := newTestClient(t, site, ClientOptions{})

	_, err := client.GetRating(context.Background(), "999999999")
	require.ErrorIs(t, err, ErrLookup)
	require.NotErrorIs(t, err, ErrConnection)

	broken := rec.Reports(telemetry.KindBroken)
	require.Len(t, broken, 1)
	require.Equal(t, "usatt_scraper: "+report_client_get_rating, broken[0].Id)
}

func TestGetRatingBrokenProfile(t *testing.T) {
	testCases := []struct {
		name    string
		profile string
	}{
		{name: "too few values", profile: positionalProfile("2580", "2736", "212")},
		{name: "not a number", profile: positionalProfile("2580", "n/a", "212", "2451", "2451", "9")},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			player := lilyZhang()
			player.profile = test.profile
			client, _ := newTestClient(t, &fakeSite{players: []fakePlayer{player}}, ClientOptions{})

			_, err := client.GetRating(context.Background(), player.id)
			require.ErrorIs(t, err, ErrLookup)
		})
	}
}

func TestGetRatingConnection(t *testing.T) {
	site := &fakeSite{
		players: []fakePlayer{lilyZhang()},
		status:  http.StatusServiceUnavailable,
	}
	client, _ := newTestClient(t, site, ClientOptions{})

	_, err := client.GetRating(context.Background(), "31126")
	require.ErrorIs(t, err, ErrConnection)
}

func TestGetRatings(t *testing.T) {
	other := fakePlayer{
		id:      "220283",
		account: "7731",
		first:   "Kanak",
		last:    "Jha",
		profile: positionalProfile("2650", "2750", "150", "0", "0", "0"),
	}
	site := &fakeSite{players: []fakePlayer{lilyZhang(), other}}
	client, rec := newTestClient(t, site, ClientOptions{})

	ratings, err := client.GetRatings(context.Background(), []string{"220283", "31126"})
	require.NoError(t, err)
	require.Len(t, ratings, 2)
	require.Equal(t, "Kanak Jha", ratings[0].Name)
	require.Equal(t, "Lily Zhang", ratings[1].Name)
	require.Len(t, rec.Reports(telemetry.KindCount), 1)

	_, err = client.GetRatings(context.Background(), []string{"31126", "1", "220283"})
	require.ErrorIs(t, err, ErrLookup)
}

func TestFindAccount(t *testing.T) {
	testCases := []struct {
		name            string
		anchors         []htmlutil.Anchor
		expectedAccount string
		expectedName    string
		err             error
	}{
		{
			name: "name split over links",
			anchors: []htmlutil.Anchor{
				{Name: "Players", Href: "/userAccount/s2"},
				{Name: "Lily", Href: "/userAccount/up/120574"},
				{Name: "Zhang", Href: "https://usatt.simplycompete.com/userAccount/up/120574"},
			},
			expectedAccount: "120574",
			expectedName:    "Lily Zhang",
		},
		{
			name: "other profiles are ignored",
			anchors: []htmlutil.Anchor{
				{Name: "Lily", Href: "/userAccount/up/120574"},
				{Name: "Zhang", Href: "/userAccount/up/120574"},
				{Name: "Someone", Href: "/userAccount/up/5"},
			},
			expectedAccount: "120574",
			expectedName:    "Lily Zhang",
		},
		{
			name: "no profile",
			anchors: []htmlutil.Anchor{
				{Name: "Players", Href: "/userAccount/s2"},
			},
			err: ErrLookup,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			account, name, err := findAccount(test.anchors)
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expectedAccount, account)
			require.Equal(t, test.expectedName, name)
		})
	}
}

func TestRatingValues(t *testing.T) {
	rating := Rating{ID: "31126", Name: "Lily Zhang", TournamentRating: 2580, LeaguesPlayed: 9}
	values := rating.Values()
	require.Len(t, values, len(RatingColumns))
	require.Equal(t, []string{"31126", "Lily Zhang", "2580", "0", "0", "0", "0", "9"}, values)
}
