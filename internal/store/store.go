package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"usatt/internal/components/assert"
	"usatt/internal/scrapers/usatt"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Store persists fetched ratings and summaries.
type Store struct {
	db *sql.DB
}

func wrapOpen(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func isRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "http://", "https://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// Open opens a local sqlite file (or ":memory:") or a remote libsql
// database and makes sure the schema exists.
func Open(ctx context.Context, dsn string) (Store, error) {
	assert.NotEmptyStr(dsn, "dsn")

	var db *sql.DB
	var err error
	if isRemote(dsn) {
		db, err = sql.Open("libsql", dsn)
		if err != nil {
			return Store{}, wrapOpen(err)
		}
	} else {
		if dsn != ":memory:" {
			err = os.MkdirAll(filepath.Dir(dsn), 0777)
			if err != nil {
				return Store{}, wrapOpen(err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return Store{}, wrapOpen(err)
		}
		// every connection to ":memory:" is its own database
		db.SetMaxOpenConns(1)
	}

	_, err = db.ExecContext(ctx, Schema)
	if err != nil {
		db.Close()
		return Store{}, wrapOpen(err)
	}
	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

// SaveRatings stores every rating as fetched at `fetchedAt`.
func (s Store) SaveRatings(ctx context.Context, fetchedAt time.Time, ratings []usatt.Rating) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range ratings {
		_, err = tx.ExecContext(
			ctx,
			`insert or replace into rating (
				usatt_id, fetched_at, name,
				tournament_rating, highest_tournament_rating, tournaments_played,
				league_rating, highest_league_rating, leagues_played
			) values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, fetchedAt.Unix(), r.Name,
			r.TournamentRating, r.HighestTournamentRating, r.TournamentsPlayed,
			r.LeagueRating, r.HighestLeagueRating, r.LeaguesPlayed,
		)
		if err != nil {
			return fmt.Errorf("save rating %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// LatestRating returns the most recently fetched rating of a player.
func (s Store) LatestRating(ctx context.Context, id string) (usatt.Rating, time.Time, error) {
	var r usatt.Rating
	var fetchedAt int64
	err := s.db.QueryRowContext(
		ctx,
		`select
			usatt_id, fetched_at, name,
			tournament_rating, highest_tournament_rating, tournaments_played,
			league_rating, highest_league_rating, leagues_played
		from rating where usatt_id = ?
		order by fetched_at desc limit 1`,
		id,
	).Scan(
		&r.ID, &fetchedAt, &r.Name,
		&r.TournamentRating, &r.HighestTournamentRating, &r.TournamentsPlayed,
		&r.LeagueRating, &r.HighestLeagueRating, &r.LeaguesPlayed,
	)
	if err != nil {
		return usatt.Rating{}, time.Time{}, err
	}
	return r, time.Unix(fetchedAt, 0), nil
}

// SaveSummary stores a summary as a new snapshot and returns its id.
//
// Cells are stored one per row, so that snapshots with different display
// columns can live in the same table.
func (s Store) SaveSummary(ctx context.Context, fetchedAt time.Time, summary usatt.Summary) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		"insert into summary_snapshot (fetched_at, index_column, row_count) values (?, ?, ?)",
		fetchedAt.Unix(), summary.IndexColumn, len(summary.Rows),
	)
	if err != nil {
		return 0, fmt.Errorf("save summary snapshot: %w", err)
	}
	snapshot, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(
		ctx,
		`insert into summary_cell (snapshot_id, row_number, usatt_id, column_name, value)
		values (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, row := range summary.Rows {
		for j, column := range summary.Columns {
			_, err = stmt.ExecContext(ctx, snapshot, i, row.ID, column, row.Values[j])
			if err != nil {
				return 0, fmt.Errorf("save summary row %d: %w", i, err)
			}
		}
	}

	return snapshot, tx.Commit()
}

// summaryRowCount returns the number of rows in a stored snapshot.
func (s Store) summaryRowCount(ctx context.Context, snapshot int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		"select count(distinct row_number) from summary_cell where snapshot_id = ?",
		snapshot,
	).Scan(&count)
	return count, err
}
