package sql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var syncRunRowColumns = []string{
	"id", "source", "status", "products_count", "new_count", "updated_count",
	"removed_count", "backup_name", "error", "created_at",
}

type otherResource struct{}

func (*otherResource) InitMeta() {}

func TestSyncRunRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSyncRunRepository(db)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		run := &model.SyncRun{
			Source:        "https://example.com/inventory.json",
			Status:        model.SyncStatusSucceeded,
			ProductsCount: 3,
			NewCount:      1,
			BackupName:    "inventory_backup_1.json",
		}

		mock.ExpectPrepare("INSERT INTO sync_runs").
			ExpectExec().
			WithArgs(sqlmock.AnyArg(), run.Source, string(run.Status), 3, 1, 0, 0, run.BackupName, "", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		result, err := repo.Create(ctx, run)
		require.NoError(t, err)

		created := result.(*model.SyncRun)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		run := &model.SyncRun{ID: uuid.New(), Source: "api", Status: model.SyncStatusFailed, CreatedAt: time.Now()}

		mock.ExpectPrepare("INSERT INTO sync_runs").
			ExpectExec().
			WillReturnError(&pgconn.PgError{Code: "23505", Detail: "Key (id) already exists."})

		_, err := repo.Create(ctx, run)

		var uniqueErr *repository.UniqueConstraintError
		require.ErrorAs(t, err, &uniqueErr)
		assert.Contains(t, uniqueErr.Error(), "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation through lib/pq", func(t *testing.T) {
		run := &model.SyncRun{ID: uuid.New(), Source: "api", Status: model.SyncStatusFailed, CreatedAt: time.Now()}

		mock.ExpectPrepare("INSERT INTO sync_runs").
			ExpectExec().
			WillReturnError(&pq.Error{Code: "23505", Detail: "Key (id) already exists."})

		_, err := repo.Create(ctx, run)

		var uniqueErr *repository.UniqueConstraintError
		require.ErrorAs(t, err, &uniqueErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong resource type", func(t *testing.T) {
		_, err := repo.Create(ctx, &otherResource{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "resource must be a *model.SyncRun")
	})
}

func TestSyncRunRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSyncRunRepository(db)
	ctx := context.Background()

	t.Run("filters and paginates", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		cursor := repository.Paginator{LastID: uuid.New().String(), LastCreatedAt: now}

		query := repository.NewQuery().With(repository.StatusField, "succeeded")
		query.Limit = 5
		query.Paginator = &cursor

		rows := sqlmock.NewRows(syncRunRowColumns).
			AddRow(id.String(), "api", "succeeded", 2, 2, 0, 0, "", "", now)

		mock.ExpectPrepare(`SELECT .* FROM sync_runs WHERE 1=1 AND status = \$1 AND \(created_at, id\) < \(\$2, \$3\) ORDER BY created_at DESC, id DESC LIMIT \$4`).
			ExpectQuery().
			WithArgs("succeeded", cursor.LastCreatedAt, cursor.LastID, 5).
			WillReturnRows(rows)

		result, err := repo.List(ctx, *query)
		require.NoError(t, err)
		require.Len(t, result, 1)

		run := result[0].(*model.SyncRun)
		assert.Equal(t, id, run.ID)
		assert.Equal(t, model.SyncStatusSucceeded, run.Status)
		assert.Equal(t, 2, run.ProductsCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("default limit", func(t *testing.T) {
		mock.ExpectPrepare(`SELECT .* FROM sync_runs WHERE 1=1 ORDER BY created_at DESC, id DESC LIMIT \$1`).
			ExpectQuery().
			WithArgs(repository.DefaultPaginationLimit).
			WillReturnRows(sqlmock.NewRows(syncRunRowColumns))

		result, err := repo.List(ctx, *repository.NewQuery())
		require.NoError(t, err)
		assert.Empty(t, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectPrepare("SELECT").
			ExpectQuery().
			WillReturnError(errors.New("connection reset"))

		_, err := repo.List(ctx, *repository.NewQuery())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query sync runs")
	})
}

func TestSyncRunRepository_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSyncRunRepository(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		id := uuid.New()
		rows := sqlmock.NewRows(syncRunRowColumns).
			AddRow(id.String(), "admin", "rejected", 0, 0, 0, 0, "", "nothing to apply", time.Now())

		mock.ExpectPrepare(`SELECT .* FROM sync_runs WHERE id = \$1`).
			ExpectQuery().
			WithArgs(id).
			WillReturnRows(rows)

		result, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "nothing to apply", result.(*model.SyncRun).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()

		mock.ExpectPrepare(`SELECT .* FROM sync_runs WHERE id = \$1`).
			ExpectQuery().
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
