// Package catalog provides the SQLite-backed catalog implementing the
// source.Catalog contract, plus ref-to-URL resolution.
package catalog

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hearwhere/hearwhere/internal/app/view"
	"github.com/hearwhere/hearwhere/internal/domain/track"
)

const trackColumns = "id, title, performer_slug, performer_name, country, province, city, neighbourhood, genre, audio_ref, art_ref, radio_eligible"

// Store is the SQLite catalog.
type Store struct {
	db *sqlx.DB
}

// Open opens (and initializes) the catalog database.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}

	// Pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, errors.Wrap(err, "failed to set WAL mode")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}
	if _, err := db.Exec(Schema); err != nil {
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SampleOnePerPerformer returns random radio-eligible tracks, at most
// one per performer, matching every non-empty filter. Location and
// text constraints match loosely (substring); the client-side view
// re-applies the exact predicate afterwards.
func (s *Store) SampleOnePerPerformer(ctx context.Context, f view.Filters) ([]track.Track, error) {
	where := []string{"radio_eligible = 1"}
	args := []any{}
	like := func(col, val string) {
		if val != "" {
			where = append(where, col+" LIKE ? COLLATE NOCASE")
			args = append(args, "%"+val+"%")
		}
	}
	like("country", f.Country)
	like("province", f.Province)
	like("city", f.City)
	like("neighbourhood", f.Neighbourhood)
	like("genre", f.Genre)
	if f.Query != "" {
		where = append(where, "(title LIKE ? COLLATE NOCASE OR performer_name LIKE ? COLLATE NOCASE)")
		q := "%" + f.Query + "%"
		args = append(args, q, q)
	}

	query := `SELECT ` + trackColumns + ` FROM (
		SELECT *, ROW_NUMBER() OVER (PARTITION BY performer_slug ORDER BY RANDOM()) AS rn
		FROM tracks WHERE ` + strings.Join(where, " AND ") + `
	) WHERE rn = 1 ORDER BY RANDOM()`

	var tracks []track.Track
	if err := s.db.SelectContext(ctx, &tracks, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to sample tracks")
	}
	return tracks, nil
}

// FindPerformer resolves an exact performer by name (case-insensitive)
// or canonical slug. Returns nil when nothing matches.
func (s *Store) FindPerformer(ctx context.Context, query string) (*track.Performer, error) {
	slug := track.Slugify(query)
	const q = `SELECT performer_name, performer_slug FROM tracks
		WHERE performer_slug = ? OR performer_name = ? COLLATE NOCASE LIMIT 1`

	var performers []track.Performer
	if err := s.db.SelectContext(ctx, &performers, q, slug, strings.TrimSpace(query)); err != nil {
		return nil, errors.Wrap(err, "failed to find performer")
	}
	if len(performers) == 0 {
		return nil, nil
	}
	return &performers[0], nil
}

// ListPerformers returns all distinct performer identities.
func (s *Store) ListPerformers(ctx context.Context) ([]track.Performer, error) {
	const q = `SELECT DISTINCT performer_name, performer_slug FROM tracks ORDER BY performer_slug`

	var performers []track.Performer
	if err := s.db.SelectContext(ctx, &performers, q); err != nil {
		return nil, errors.Wrap(err, "failed to list performers")
	}
	return performers, nil
}

// TracksForPerformer returns every track owned by the slug, eligible or
// not: a performer search shows their whole catalog.
func (s *Store) TracksForPerformer(ctx context.Context, slug string) ([]track.Track, error) {
	q := `SELECT ` + trackColumns + ` FROM tracks WHERE performer_slug = ? ORDER BY title`

	var tracks []track.Track
	if err := s.db.SelectContext(ctx, &tracks, q, slug); err != nil {
		return nil, errors.Wrap(err, "failed to fetch performer tracks")
	}
	return tracks, nil
}

// EventsByName returns events whose stored (upper-cased) name contains
// the normalized query.
func (s *Store) EventsByName(ctx context.Context, name string) ([]track.EventShow, error) {
	const q = `SELECT event_id, show_date, event_name, city, genre, flyer_ref, track_id
		FROM events WHERE event_name LIKE ? ORDER BY show_date, event_name`

	var events []track.EventShow
	if err := s.db.SelectContext(ctx, &events, q, "%"+track.NormalizeEventName(name)+"%"); err != nil {
		return nil, errors.Wrap(err, "failed to fetch events by name")
	}
	return events, nil
}

// EventsByDate returns events on the exact YYYY-MM-DD date.
func (s *Store) EventsByDate(ctx context.Context, date string) ([]track.EventShow, error) {
	const q = `SELECT event_id, show_date, event_name, city, genre, flyer_ref, track_id
		FROM events WHERE show_date = ? ORDER BY event_name`

	var events []track.EventShow
	if err := s.db.SelectContext(ctx, &events, q, strings.TrimSpace(date)); err != nil {
		return nil, errors.Wrap(err, "failed to fetch events by date")
	}
	return events, nil
}

// TracksByIDs fetches tracks by id, skipping unknown ids.
func (s *Store) TracksByIDs(ctx context.Context, ids []string) ([]track.Track, error) {
	if len(ids) == 0 {
		return []track.Track{}, nil
	}
	q, args, err := sqlx.In(`SELECT `+trackColumns+` FROM tracks WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build id query")
	}
	q = s.db.Rebind(q)

	var tracks []track.Track
	if err := s.db.SelectContext(ctx, &tracks, q, args...); err != nil {
		return nil, errors.Wrap(err, "failed to fetch tracks by id")
	}
	return tracks, nil
}

// InsertTrack writes a track row. Used by the seed tool and tests.
func (s *Store) InsertTrack(ctx context.Context, t track.Track) error {
	const q = `INSERT INTO tracks (id, title, performer_slug, performer_name,
		country, province, city, neighbourhood, genre, audio_ref, art_ref, radio_eligible)
	VALUES (:id, :title, :performer_slug, :performer_name,
		:country, :province, :city, :neighbourhood, :genre, :audio_ref, :art_ref, :radio_eligible)`

	if _, err := s.db.NamedExecContext(ctx, q, t); err != nil {
		return errors.Wrap(err, "failed to insert track")
	}
	return nil
}

// InsertEvent writes an event row. The name is stored normalized so
// lookups compare exactly. Used by the seed tool and tests.
func (s *Store) InsertEvent(ctx context.Context, ev track.EventShow) error {
	ev.EventName = track.NormalizeEventName(ev.EventName)
	const q = `INSERT INTO events (event_id, show_date, event_name, city, genre, flyer_ref, track_id)
	VALUES (:event_id, :show_date, :event_name, :city, :genre, :flyer_ref, :track_id)`

	if _, err := s.db.NamedExecContext(ctx, q, ev); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	return nil
}
