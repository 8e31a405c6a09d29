// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srithwak/Audio-Draft/internal/catalog"
	"github.com/Srithwak/Audio-Draft/pkg/errutil"
)

func mockOpener(db Database, err error) DatabaseOpener {
	return func(context.Context, Config, *slog.Logger) (Database, error) {
		return db, err
	}
}

func TestSeedCommand(t *testing.T) {
	isolateConfig(t)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	mock.ExpectBegin()
	for i, song := range catalog.DemoSongs {
		inserted := int64(1)
		if i < 3 {
			inserted = 0
		}
		mock.ExpectExec("INSERT INTO songs").
			WithArgs(pgxmock.AnyArg(), song.Title, song.Artist, song.Album, song.Genre, song.DurationMS).
			WillReturnResult(pgxmock.NewResult("INSERT", inserted))
	}
	mock.ExpectCommit()

	root := NewRootCmd()
	replaceCommand(root, newSeedCmd(mockOpener(mock, nil)))
	out, err := execute(t, root, "--env-file", "", "seed")
	require.NoError(t, err)

	want := fmt.Sprintf("Seeded %d songs (3 already present).", len(catalog.DemoSongs)-3)
	assert.Contains(t, out, want)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedCommand_ConnectFailure(t *testing.T) {
	isolateConfig(t)

	root := NewRootCmd()
	replaceCommand(root, newSeedCmd(mockOpener(nil, errors.New("connection refused"))))
	_, err := execute(t, root, "--env-file", "", "seed")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}
