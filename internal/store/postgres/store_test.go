package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

var columns = []string{"id", "email", "display_name", "home", "work", "departure_time"}

func TestStore_ListProfiles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryListProfiles)).WillReturnRows(
		sqlmock.NewRows(columns).
			AddRow("u1", "ada@example.com", "Ada", "1 Home St", "2 Work Ave", "2024-01-01T08:30:00-08:00").
			AddRow("u2", "bob@example.com", nil, "3 Home St", nil, "08:45"),
	)

	got, err := New(db, time.Second).ListProfiles(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []domain.Profile{
		{ID: "u1", Email: "ada@example.com", DisplayName: "Ada", Home: "1 Home St", Work: "2 Work Ave", DepartureTime: "2024-01-01T08:30:00-08:00"},
		{ID: "u2", Email: "bob@example.com", Home: "3 Home St", DepartureTime: "08:45"},
	}, got)
	assert.False(t, got[1].Eligible())
}

func TestStore_ListProfiles_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(queryListProfiles)).WillReturnError(boom)

	_, err = New(db, 0).ListProfiles(context.Background())
	assert.True(t, errors.Is(err, boom))
}

func TestStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(querySchema)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, New(db, time.Second).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
