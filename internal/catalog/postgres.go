// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package catalog

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Srithwak/Audio-Draft/internal/store"
)

// PostgresProvider reads songs from the songs table.
type PostgresProvider struct {
	db        store.DB
	opTimeout time.Duration
}

// NewPostgresProvider creates a PostgresProvider. A zero opTimeout leaves
// queries bounded only by the caller's context.
func NewPostgresProvider(db store.DB, opTimeout time.Duration) *PostgresProvider {
	return &PostgresProvider{db: db, opTimeout: opTimeout}
}

// ListAll returns all songs ordered by title then id.
func (p *PostgresProvider) ListAll(ctx context.Context) ([]Song, error) {
	if p.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opTimeout)
		defer cancel()
	}

	rows, err := p.db.Query(ctx, `
		SELECT song_id, title, artist, album, genre, duration_ms
		FROM songs
		ORDER BY title, song_id
	`)
	if err != nil {
		return nil, oops.Code("CATALOG_QUERY_FAILED").
			With("operation", "select songs").
			Wrap(err)
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		var s Song
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Genre, &s.DurationMS); err != nil {
			return nil, oops.Code("CATALOG_SCAN_FAILED").
				With("operation", "scan song row").
				Wrap(err)
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CATALOG_ROWS_ERROR").
			With("operation", "iterate song rows").
			Wrap(err)
	}
	return songs, nil
}

// Seed inserts songs that are not already present, matching on title and
// artist, and returns how many were added. Songs without an ID get one.
func Seed(ctx context.Context, db store.DB, songs []Song) (int64, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, oops.Code("CATALOG_SEED_FAILED").With("operation", "begin").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }() //nolint:errcheck // no-op after commit

	var added int64
	for _, song := range songs {
		id := song.ID
		if id == "" {
			id = ulid.Make().String()
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO songs (song_id, title, artist, album, genre, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (title, artist) DO NOTHING
		`, id, song.Title, song.Artist, song.Album, song.Genre, song.DurationMS)
		if err != nil {
			return 0, oops.Code("CATALOG_SEED_FAILED").
				With("operation", "insert song").
				With("title", song.Title).
				Wrap(err)
		}
		added += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, oops.Code("CATALOG_SEED_FAILED").With("operation", "commit").Wrap(err)
	}
	return added, nil
}

// DemoSongs is the catalog installed by the seed command.
var DemoSongs = []Song{
	{Title: "Blue in Green", Artist: "Miles Davis", Album: "Kind of Blue", Genre: "Jazz", DurationMS: 337000},
	{Title: "So What", Artist: "Miles Davis", Album: "Kind of Blue", Genre: "Jazz", DurationMS: 562000},
	{Title: "Clair de Lune", Artist: "Claude Debussy", Album: "Suite bergamasque", Genre: "Classical", DurationMS: 300000},
	{Title: "Dreams", Artist: "Fleetwood Mac", Album: "Rumours", Genre: "Rock", DurationMS: 257000},
	{Title: "Redbone", Artist: "Childish Gambino", Album: "Awaken, My Love!", Genre: "R&B", DurationMS: 327000},
	{Title: "Teardrop", Artist: "Massive Attack", Album: "Mezzanine", Genre: "Trip Hop", DurationMS: 330000},
	{Title: "Windowlicker", Artist: "Aphex Twin", Album: "Windowlicker", Genre: "Electronic", DurationMS: 367000},
	{Title: "Hurt", Artist: "Johnny Cash", Album: "American IV: The Man Comes Around", Genre: "Country", DurationMS: 218000},
}

// Compile-time interface check.
var _ Provider = (*PostgresProvider)(nil)
