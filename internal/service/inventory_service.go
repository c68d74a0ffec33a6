package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/iyhunko/inventory-sync/internal/metrics"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/iyhunko/inventory-sync/internal/repository/file"
)

var (
	// ErrNothingToApply is returned when a reviewed candidate has no changes against the store.
	ErrNothingToApply = errors.New("candidate inventory has no changes to apply")

	// ErrAuditDisabled is returned by sync history queries when no database is configured.
	ErrAuditDisabled = errors.New("sync history is not enabled")
)

// Origin tells where a candidate inventory came from.
type Origin string

const (
	OriginURL    Origin = "url"
	OriginAuto   Origin = "auto"
	OriginUpload Origin = "upload"
	OriginAPI    Origin = "api"
	OriginAdmin  Origin = "admin"
)

// Fetcher downloads a candidate inventory.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// BackupStore is the snapshot side of the store.
type BackupStore interface {
	repository.BackupStore
	SnapshotWithFormat(ctx context.Context, format file.TimestampFormat) (repository.Backup, error)
}

// ProductCache holds the decoded inventory between commits.
type ProductCache interface {
	GetProducts(ctx context.Context) ([]model.Product, int64, bool)
	SetProducts(ctx context.Context, version int64, products []model.Product) error
	Invalidate(ctx context.Context) error
}

// EventPublisher fans committed changes out to in-process subscribers.
type EventPublisher interface {
	PublishInventoryUpdated(msg model.InventoryMessage)
}

// BackupPolicy controls the retention sweep.
type BackupPolicy struct {
	RetentionDays int
	KeepMinimum   int
}

// InventoryDeps wires an InventoryService. Cache, Events and SyncRuns are optional.
type InventoryDeps struct {
	Store    repository.InventoryStore
	Commits  repository.TransactionalRepository
	Backups  BackupStore
	Fetcher  Fetcher
	Cache    ProductCache
	Events   EventPublisher
	SyncRuns repository.Repository
	Policy   BackupPolicy
}

// InventoryService runs the fetch, validate, diff and commit pipeline and
// serves reads of the committed inventory.
type InventoryService struct {
	store    repository.InventoryStore
	commits  repository.TransactionalRepository
	backups  BackupStore
	fetcher  Fetcher
	cache    ProductCache
	events   EventPublisher
	syncRuns repository.Repository
	policy   BackupPolicy
	now      func() time.Time
}

func NewInventoryService(deps InventoryDeps) *InventoryService {
	return &InventoryService{
		store:    deps.Store,
		commits:  deps.Commits,
		backups:  deps.Backups,
		fetcher:  deps.Fetcher,
		cache:    deps.Cache,
		events:   deps.Events,
		syncRuns: deps.SyncRuns,
		policy:   deps.Policy,
		now:      time.Now,
	}
}

// Preview is a validated candidate and its diff against the store. Nothing is written.
type Preview struct {
	Source       string            `json:"source"`
	Diff         inventory.Result  `json:"diff"`
	TotalChanges int               `json:"totalChanges"`
	Summary      inventory.Summary `json:"summary"`
	Candidate    []model.Product   `json:"candidate"`
}

// Outcome describes a committed inventory.
type Outcome struct {
	Summary      inventory.Summary       `json:"summary"`
	Diff         inventory.Result        `json:"diff"`
	TotalChanges int                     `json:"totalChanges"`
	Commit       repository.CommitResult `json:"commit"`
}

type commitRequest struct {
	origin         Origin
	source         string
	action         model.InventoryAction
	candidate      []model.Product
	requireChanges bool
}

// FetchCandidate downloads and validates the inventory behind locator and
// stamps every record with the fetch time.
func (s *InventoryService) FetchCandidate(ctx context.Context, locator string) ([]model.Product, error) {
	started := s.now()
	raw, err := s.fetcher.Fetch(ctx, locator)
	metrics.FetchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	products, err := inventory.Validate(raw)
	if err != nil {
		return nil, err
	}
	inventory.Stamp(products, s.now().UTC())
	return products, nil
}

// Preview fetches and diffs a remote candidate without touching the store.
func (s *InventoryService) Preview(ctx context.Context, locator string) (Preview, error) {
	candidate, err := s.FetchCandidate(ctx, locator)
	if err != nil {
		return Preview{}, err
	}

	current, err := s.store.Load(ctx)
	if err != nil && !errors.Is(err, repository.ErrStoreNotFound) {
		return Preview{}, err
	}

	diff := inventory.Diff(current, candidate)
	return Preview{
		Source:       inventory.ResolveLocator(locator),
		Diff:         diff,
		TotalChanges: diff.TotalChanges(),
		Summary:      inventory.Summarize(candidate),
		Candidate:    candidate,
	}, nil
}

// Apply commits a reviewed candidate. It is rejected with ErrNothingToApply
// when the candidate matches the store.
func (s *InventoryService) Apply(ctx context.Context, source string, candidate []model.Product) (Outcome, error) {
	if err := inventory.CheckProducts(candidate); err != nil {
		s.recordFailure(ctx, OriginURL, source, err)
		return Outcome{}, err
	}
	return s.commit(ctx, commitRequest{
		origin:         OriginURL,
		source:         source,
		action:         model.InventoryActionSynced,
		candidate:      candidate,
		requireChanges: true,
	})
}

// Sync fetches, validates and commits the inventory behind locator in one step.
func (s *InventoryService) Sync(ctx context.Context, locator string) (Outcome, error) {
	return s.sync(ctx, OriginURL, locator, false)
}

// AutoSync is Sync for the background worker: unchanged candidates are not written.
func (s *InventoryService) AutoSync(ctx context.Context, locator string) (Outcome, error) {
	return s.sync(ctx, OriginAuto, locator, true)
}

func (s *InventoryService) sync(ctx context.Context, origin Origin, locator string, requireChanges bool) (Outcome, error) {
	source := inventory.ResolveLocator(locator)
	candidate, err := s.FetchCandidate(ctx, locator)
	if err != nil {
		s.recordFailure(ctx, origin, source, err)
		return Outcome{}, err
	}
	return s.commit(ctx, commitRequest{
		origin:         origin,
		source:         source,
		action:         model.InventoryActionSynced,
		candidate:      candidate,
		requireChanges: requireChanges,
	})
}

// ReplaceTrusted replaces the inventory with a pushed JSON array. An empty
// array is rejected.
func (s *InventoryService) ReplaceTrusted(ctx context.Context, raw []byte) (Outcome, error) {
	products, err := inventory.Validate(raw)
	if err == nil && len(products) == 0 {
		err = inventory.ErrEmptyInventory
	}
	if err != nil {
		s.recordFailure(ctx, OriginAPI, string(OriginAPI), err)
		return Outcome{}, err
	}
	return s.commit(ctx, commitRequest{
		origin:    OriginAPI,
		source:    string(OriginAPI),
		action:    model.InventoryActionReplaced,
		candidate: products,
	})
}

// ReplaceAdmin replaces the inventory with the array saved from the admin editor.
func (s *InventoryService) ReplaceAdmin(ctx context.Context, raw []byte) (Outcome, error) {
	products, err := inventory.Validate(raw)
	if err != nil {
		s.recordFailure(ctx, OriginAdmin, string(OriginAdmin), err)
		return Outcome{}, err
	}
	return s.commit(ctx, commitRequest{
		origin:    OriginAdmin,
		source:    string(OriginAdmin),
		action:    model.InventoryActionReplaced,
		candidate: products,
	})
}

// Upload replaces the inventory with an uploaded .json, .xlsx or .csv file.
func (s *InventoryService) Upload(ctx context.Context, filename string, data []byte) (Outcome, error) {
	source := "upload:" + filename
	payload, err := inventory.ParseUpload(filename, data)
	if err != nil {
		s.recordFailure(ctx, OriginUpload, source, err)
		return Outcome{}, err
	}
	products, err := inventory.Normalize(payload)
	if err != nil {
		s.recordFailure(ctx, OriginUpload, source, err)
		return Outcome{}, err
	}
	return s.commit(ctx, commitRequest{
		origin:    OriginUpload,
		source:    source,
		action:    model.InventoryActionUploaded,
		candidate: products,
	})
}

// UpdateProduct merges patch into the record with the given id and rewrites
// the store. The id cannot change and lastUpdated is left as it was.
func (s *InventoryService) UpdateProduct(ctx context.Context, id string, patch map[string]json.RawMessage) (model.Product, error) {
	var (
		updated model.Product
		diff    inventory.Result
	)
	result, err := s.commits.Modify(ctx, func(current []model.Product) ([]model.Product, error) {
		idx := indexOf(current, id)
		if idx < 0 {
			return nil, fmt.Errorf("product %q: %w", id, repository.ErrNotFound)
		}

		merged, err := mergeProduct(current[idx], patch)
		if err != nil {
			return nil, err
		}

		next := append([]model.Product{}, current...)
		next[idx] = merged
		if err := inventory.CheckProducts(next); err != nil {
			return nil, err
		}
		diff = inventory.Diff(current, next)
		updated = merged
		return next, nil
	})
	if err != nil {
		s.recordFailure(ctx, OriginAdmin, string(OriginAdmin)+":"+id, err)
		return model.Product{}, err
	}

	s.committed(ctx, commitRequest{
		origin: OriginAdmin,
		source: string(OriginAdmin) + ":" + id,
		action: model.InventoryActionEdited,
	}, diff, result)
	return updated, nil
}

func (s *InventoryService) commit(ctx context.Context, req commitRequest) (Outcome, error) {
	var diff inventory.Result
	result, err := s.commits.Reconcile(ctx, func(current []model.Product) ([]model.Product, error) {
		diff = inventory.Diff(current, req.candidate)
		if req.requireChanges && !diff.HasChanges() {
			return nil, ErrNothingToApply
		}
		return req.candidate, nil
	})
	if err != nil {
		s.recordFailure(ctx, req.origin, req.source, err)
		return Outcome{}, err
	}

	s.committed(ctx, req, diff, result)

	summary := inventory.Summarize(req.candidate)
	summary.Timestamp = result.Timestamp
	summary.BackupCreated = result.BackupCreated
	summary.BackupName = result.BackupName
	return Outcome{
		Summary:      summary,
		Diff:         diff,
		TotalChanges: diff.TotalChanges(),
		Commit:       result,
	}, nil
}

// committed runs the side effects of a successful write. None of them can fail the request.
func (s *InventoryService) committed(ctx context.Context, req commitRequest, diff inventory.Result, result repository.CommitResult) {
	metrics.SyncRuns.WithLabelValues(string(req.origin), metrics.ResultApplied).Inc()
	metrics.ProductsInStore.Set(float64(result.Count))
	metrics.ProductChanges.WithLabelValues("new").Add(float64(len(diff.New)))
	metrics.ProductChanges.WithLabelValues("updated").Add(float64(len(diff.Updated)))
	metrics.ProductChanges.WithLabelValues("removed").Add(float64(len(diff.Removed)))
	if result.BackupCreated {
		metrics.BackupsCreated.Inc()
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			slog.Error("Failed to invalidate inventory cache", slog.Any("err", err))
		}
	}

	if s.events != nil {
		s.events.PublishInventoryUpdated(model.InventoryMessage{
			Action:        req.action,
			Source:        req.source,
			ProductsCount: result.Count,
			TotalChanges:  diff.TotalChanges(),
			New:           productIDs(diff.New),
			Updated:       updatedIDs(diff.Updated),
			Removed:       productIDs(diff.Removed),
			BackupName:    result.BackupName,
			Timestamp:     result.Timestamp,
		})
	}

	s.recordRun(ctx, &model.SyncRun{
		Source:        req.source,
		Status:        model.SyncStatusSucceeded,
		ProductsCount: result.Count,
		NewCount:      len(diff.New),
		UpdatedCount:  len(diff.Updated),
		RemovedCount:  len(diff.Removed),
		BackupName:    result.BackupName,
	})
}

func (s *InventoryService) recordFailure(ctx context.Context, origin Origin, source string, err error) {
	status := model.SyncStatusFailed
	result := metrics.ResultFailed
	switch {
	case errors.Is(err, ErrNothingToApply):
		status = model.SyncStatusRejected
		result = metrics.ResultUnchanged
	case inventory.IsValidationError(err), errors.Is(err, repository.ErrNotFound):
		status = model.SyncStatusRejected
		result = metrics.ResultRejected
	}
	metrics.SyncRuns.WithLabelValues(string(origin), result).Inc()

	if status == model.SyncStatusFailed {
		slog.Error("Inventory sync failed", slog.String("source", source), slog.Any("err", err))
	} else {
		slog.Info("Inventory candidate rejected", slog.String("source", source), slog.Any("err", err))
	}

	s.recordRun(ctx, &model.SyncRun{
		Source: source,
		Status: status,
		Error:  err.Error(),
	})
}

func (s *InventoryService) recordRun(ctx context.Context, run *model.SyncRun) {
	if s.syncRuns == nil {
		return
	}
	// The request context may already be cancelled when a fetch was abandoned.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.syncRuns.Create(ctx, run); err != nil {
		slog.Error("Failed to record sync run", slog.Any("err", err), slog.String("source", run.Source))
	}
}

func mergeProduct(p model.Product, patch map[string]json.RawMessage) (model.Product, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to encode product: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.Product{}, fmt.Errorf("failed to encode product: %w", err)
	}

	for k, v := range patch {
		if k == model.FieldID || k == model.FieldLastUpdated {
			continue
		}
		fields[k] = v
	}

	merged, err := json.Marshal([]map[string]json.RawMessage{fields})
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to encode product: %w", err)
	}
	products, err := inventory.Validate(merged)
	if err != nil {
		return model.Product{}, err
	}
	return products[0], nil
}

func indexOf(products []model.Product, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func productIDs(products []model.Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func updatedIDs(updates []inventory.Update) []string {
	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.Candidate.ID)
	}
	return ids
}
