package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
	reposql "github.com/iyhunko/inventory-sync/internal/repository/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRunRepository_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	ctx := context.Background()
	repo := reposql.NewSyncRunRepository(testDB.DB)

	t.Run("create and find by id", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		run := &model.SyncRun{
			Source:        "https://example.com/inventory.json",
			Status:        model.SyncStatusSucceeded,
			ProductsCount: 4,
			NewCount:      1,
			UpdatedCount:  2,
			BackupName:    "inventory_backup_1700000000000.json",
		}

		// when
		created, err := repo.Create(ctx, run)
		require.NoError(t, err)
		found, err := repo.FindByID(ctx, created.(*model.SyncRun).ID)

		// then
		require.NoError(t, err)
		got := found.(*model.SyncRun)
		assert.Equal(t, run.Source, got.Source)
		assert.Equal(t, model.SyncStatusSucceeded, got.Status)
		assert.Equal(t, 2, got.UpdatedCount)
		assert.Equal(t, run.BackupName, got.BackupName)
	})

	t.Run("duplicate id", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		run := &model.SyncRun{ID: uuid.New(), Source: "api", Status: model.SyncStatusFailed, CreatedAt: time.Now()}
		_, err := repo.Create(ctx, run)
		require.NoError(t, err)

		// when
		_, err = repo.Create(ctx, run)

		// then
		var uniqueErr *repository.UniqueConstraintError
		require.ErrorAs(t, err, &uniqueErr)
	})

	t.Run("unknown id", func(t *testing.T) {
		testDB.TruncateTables(t)

		// when
		_, err := repo.FindByID(ctx, uuid.New())

		// then
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list filters by status newest first", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		base := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
		statuses := []model.SyncStatus{
			model.SyncStatusSucceeded, model.SyncStatusRejected, model.SyncStatusSucceeded, model.SyncStatusFailed,
		}
		for i, status := range statuses {
			_, err := repo.Create(ctx, &model.SyncRun{
				ID:        uuid.New(),
				Source:    "url",
				Status:    status,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}

		// when
		query := repository.NewQuery().With(repository.StatusField, string(model.SyncStatusSucceeded))
		require.NoError(t, query.ApplyPagination(10, ""))
		runs, err := repo.List(ctx, *query)

		// then
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.True(t, runs[0].(*model.SyncRun).CreatedAt.After(runs[1].(*model.SyncRun).CreatedAt))
	})

	t.Run("list pages with the cursor", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		base := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
		for i := 0; i < 5; i++ {
			_, err := repo.Create(ctx, &model.SyncRun{
				ID:        uuid.New(),
				Source:    "auto",
				Status:    model.SyncStatusSucceeded,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}

		seen := map[uuid.UUID]bool{}
		token := ""
		for i := 0; i < 3; i++ {
			// when
			query := repository.NewQuery()
			require.NoError(t, query.ApplyPagination(2, token))
			page, err := repo.List(ctx, *query)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}

			// then
			for _, res := range page {
				run := res.(*model.SyncRun)
				assert.False(t, seen[run.ID], "run listed twice")
				seen[run.ID] = true
			}
			last := page[len(page)-1].(*model.SyncRun)
			token = repository.Paginator{LastID: last.ID.String(), LastCreatedAt: last.CreatedAt}.Encode()
		}
		assert.Len(t, seen, 5)
	})
}
