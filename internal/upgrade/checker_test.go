package upgrade

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const versionQuery = "SELECT version, dirty FROM schema_migrations LIMIT 1"

type sqlStateErr string

func (e sqlStateErr) Error() string    { return "pg error " + string(e) }
func (e sqlStateErr) SQLState() string { return string(e) }

func TestCheckSchema(t *testing.T) {
	cases := []struct {
		name    string
		version uint
		dirty   bool
		wantErr error
	}{
		{"current", RequiredSchemaVersion, false, nil},
		{"dirty", RequiredSchemaVersion, true, ErrSchemaDirty},
		{"ahead", RequiredSchemaVersion + 1, false, ErrSchemaAhead},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(versionQuery).
				WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(tc.version), tc.dirty))

			s, err := CheckSchema(context.Background(), db)
			require.NoError(t, err)
			assert.Equal(t, tc.version, s.CurrentVersion)
			assert.ErrorIs(t, s.Err(), tc.wantErr)
			if tc.wantErr == nil {
				assert.NoError(t, s.Err())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCheckSchemaFreshDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(versionQuery).WillReturnError(sqlStateErr("42P01"))

	s, err := CheckSchema(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, s.NeedsMigration)
	assert.ErrorIs(t, s.Err(), ErrSchemaOutdated)
	assert.Contains(t, FormatError(s), "socialpilot migrate up")
}

func TestCheckSchemaQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(versionQuery).WillReturnError(errors.New("connection reset"))

	_, err = CheckSchema(context.Background(), db)
	assert.ErrorContains(t, err, "connection reset")
}
