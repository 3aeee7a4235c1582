package mediacache

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex for SQL mocks.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mockPool.ExpectPing()
	mockPool.ExpectExec(flexibleSQLMatcher(createAnalysesTable)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store, err := NewPostgresStore(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return store, mockPool
}

func TestNewPostgresStore(t *testing.T) {
	t.Run("propagates ping failure", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = NewPostgresStore(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStorePut(t *testing.T) {
	store, mockPool := newMockStore(t)
	defer mockPool.Close()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	analysis := schemas.MediaAnalysis{
		FileName:    "IMG_1.PNG",
		FileType:    "png",
		Description: "kobieta w okularach",
		Category:    Category,
		URL:         "https://centrala.ag3nts.org/dane/barbara/IMG_1.PNG",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mockPool.ExpectExec(`INSERT INTO media_analyses`).
		WithArgs(analysis.FileName, analysis.FileType, analysis.Description,
			analysis.Category, analysis.URL, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Put(context.Background(), analysis))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"file_name", "file_type", "description", "category", "url", "created_at", "updated_at"}

	t.Run("returns the stored record", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		defer mockPool.Close()

		mockPool.ExpectQuery(`SELECT .+ FROM media_analyses WHERE file_name`).
			WithArgs("IMG_1.PNG").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("IMG_1.PNG", "png", "kobieta w okularach", Category, "", now, now))

		got, err := store.Get(context.Background(), "IMG_1.PNG")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "kobieta w okularach", got.Description)
		assert.True(t, got.Cached)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("absent record yields nil without error", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		defer mockPool.Close()

		mockPool.ExpectQuery(`SELECT .+ FROM media_analyses WHERE file_name`).
			WithArgs("MISSING.PNG").
			WillReturnRows(pgxmock.NewRows(columns))

		got, err := store.Get(context.Background(), "MISSING.PNG")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStoreList(t *testing.T) {
	store, mockPool := newMockStore(t)
	defer mockPool.Close()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"file_name", "file_type", "description", "category", "url", "created_at", "updated_at"}

	mockPool.ExpectQuery(`SELECT .+ FROM media_analyses WHERE category`).
		WithArgs(Category).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("IMG_2.PNG", "png", "druga analiza", Category, "", now, now.Add(time.Hour)).
			AddRow("IMG_1.PNG", "png", "pierwsza analiza", Category, "", now, now))

	got, err := store.List(context.Background(), Category)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "IMG_2.PNG", got[0].FileName)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreClear(t *testing.T) {
	store, mockPool := newMockStore(t)
	defer mockPool.Close()

	mockPool.ExpectExec(`DELETE FROM media_analyses WHERE category`).
		WithArgs(Category).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, store.Clear(context.Background(), Category))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
