package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
)

const syncRunColumns = "id, source, status, products_count, new_count, updated_count, removed_count, backup_name, error, created_at"

// SyncRunRepository implements the Repository interface for SyncRun entities.
type SyncRunRepository struct {
	db dbExecutor
}

// NewSyncRunRepository creates a new SyncRunRepository instance.
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new sync run into the database.
func (r *SyncRunRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	run, ok := resource.(*model.SyncRun)
	if !ok {
		return nil, errors.New("resource must be a *model.SyncRun")
	}

	if run.ID == uuid.Nil {
		run.InitMeta()
	}

	query := `INSERT INTO sync_runs (` + syncRunColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		run.ID, run.Source, run.Status, run.ProductsCount, run.NewCount, run.UpdatedCount,
		run.RemovedCount, run.BackupName, run.Error, run.CreatedAt,
	)
	if err != nil {
		if detail, ok := uniqueViolation(err); ok {
			return nil, &repository.UniqueConstraintError{Detail: detail}
		}
		return nil, fmt.Errorf("failed to insert sync run: %w", err)
	}

	return run, nil
}

// List retrieves sync runs, newest first, based on the provided query.
func (r *SyncRunRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + syncRunColumns + " FROM sync_runs WHERE 1=1")

	var args []interface{}
	argIndex := 1

	if status, ok := query.Values[repository.StatusField]; ok {
		queryBuilder.WriteString(fmt.Sprintf(" AND status = $%d", argIndex))
		args = append(args, status)
		argIndex++
	}
	if source, ok := query.Values[repository.SourceField]; ok {
		queryBuilder.WriteString(fmt.Sprintf(" AND source = $%d", argIndex))
		args = append(args, source)
		argIndex++
	}

	if query.Paginator != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1))
		args = append(args, query.Paginator.LastCreatedAt, query.Paginator.LastID)
		argIndex += 2
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
	args = append(args, limit)

	stmt, err := r.db.PrepareContext(ctx, queryBuilder.String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []repository.Resource
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// FindByID retrieves a single sync run by ID.
func (r *SyncRunRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = $1`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	run, err := scanSyncRun(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Info("sync run not found", slog.String("id", id.String()))
			return nil, fmt.Errorf("sync run not found: %w", repository.ErrNotFound)
		}
		return nil, err
	}

	return run, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSyncRun(row rowScanner) (*model.SyncRun, error) {
	var run model.SyncRun
	err := row.Scan(
		&run.ID, &run.Source, &run.Status, &run.ProductsCount, &run.NewCount, &run.UpdatedCount,
		&run.RemovedCount, &run.BackupName, &run.Error, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}
	return &run, nil
}
