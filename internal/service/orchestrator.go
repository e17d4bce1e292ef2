package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmvelichko/refsync/internal/api"
	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/internal/store"
	"github.com/dmvelichko/refsync/internal/utils"
	"github.com/dmvelichko/refsync/models"
)

// OrchestratorConfig tunes the retry policy of a sync run.
type OrchestratorConfig struct {
	// MaxRetries bounds retry attempts for transient network errors per
	// unit of work.
	MaxRetries int

	// InitialBackoff is the first delay of the exponential backoff.
	InitialBackoff time.Duration
}

// Orchestrator drives a complete sync run through its phases: groups,
// then per-library collections → searches → items → deletions, then
// uploads. Divergences are routed to the conflict engine; all local
// mutation goes through the storage coordinator. Only one run is active
// at a time.
type Orchestrator struct {
	client      api.Client
	coordinator StorageCoordinator
	engine      *ConflictEngine
	uploader    AttachmentUploader
	downloader  AttachmentDownloader
	tree        *CollectionTree
	onProgress  ProgressFunc
	logger      *logger.Logger
	ids         *utils.TraceIDGenerator
	cfg         OrchestratorConfig

	mu      sync.Mutex
	running bool
	phase   models.SyncPhase
}

// NewOrchestrator wires an orchestrator. uploader, downloader and
// onProgress may be nil (no attachment transfers / no progress consumer).
func NewOrchestrator(
	client api.Client,
	coordinator StorageCoordinator,
	engine *ConflictEngine,
	uploader AttachmentUploader,
	downloader AttachmentDownloader,
	tree *CollectionTree,
	onProgress ProgressFunc,
	log *logger.Logger,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}

	return &Orchestrator{
		client:      client,
		coordinator: coordinator,
		engine:      engine,
		uploader:    uploader,
		downloader:  downloader,
		tree:        tree,
		onProgress:  onProgress,
		logger:      log,
		ids:         utils.NewTraceIDGenerator(),
		cfg:         cfg,
		phase:       models.PhaseIdle,
	}
}

// Phase returns the current phase of the orchestrator.
func (o *Orchestrator) Phase() models.SyncPhase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Start runs one full sync for userID and blocks until the run reaches
// a terminal state. Returns ErrAlreadyRunning when a run is active; any
// other outcome, including an aborted run, is described by the report.
func (o *Orchestrator) Start(ctx context.Context, userID int64) (RunReport, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return RunReport{}, ErrAlreadyRunning
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	runID := o.ids.Generate()
	runLogger := &logger.Logger{Logger: o.logger.With().
		Str("run_id", runID).
		Int64("user_id", userID).
		Logger()}
	ctx = runLogger.WithContext(ctx)
	// The run id doubles as the trace id every API request carries.
	ctx = utils.WithTraceID(ctx, runID)

	report := RunReport{NonFatal: []error{}}

	if fatal := o.syncGroups(ctx, userID, &report); fatal != nil {
		return o.abort(ctx, fatal)
	}

	libs, err := o.readLibraries(ctx)
	if err != nil {
		return o.abort(ctx, err)
	}

	o.setPhase(ctx, models.PhaseLibraries, "", 0, len(libs))
	for i, lib := range libs {
		if fatal := o.syncLibrary(ctx, lib, &report); fatal != nil {
			return o.abort(ctx, fatal)
		}
		o.setPhase(ctx, models.PhaseLibraries, lib.Name, i+1, len(libs))
	}

	for _, lib := range libs {
		if lib.CanEditMetadata {
			if fatal := o.uploadChanges(ctx, lib, &report); fatal != nil {
				return o.abort(ctx, fatal)
			}
		}
		if fatal := o.fetchMissingFiles(ctx, lib, &report); fatal != nil {
			return o.abort(ctx, fatal)
		}
	}

	o.setPhase(ctx, models.PhaseFinished, "", len(libs), len(libs))
	logger.FromContext(ctx).Info().
		Int("non_fatal", len(report.NonFatal)).
		Msg("sync run finished")
	return report, nil
}

func (o *Orchestrator) abort(ctx context.Context, fatal error) (RunReport, error) {
	o.setPhase(ctx, models.PhaseAborted, "", 0, 0)
	logger.FromContext(ctx).Error().Err(fatal).Msg("sync run aborted")
	return RunReport{Fatal: fatal}, nil
}

// ── groups phase ─────────────────────────────────────────────────────────

func (o *Orchestrator) syncGroups(ctx context.Context, userID int64, report *RunReport) error {
	o.setPhase(ctx, models.PhaseGroups, "", 0, 0)

	var groups []models.Library
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var fetchErr error
		groups, fetchErr = o.client.Groups(ctx, userID)
		return fetchErr
	})
	if err != nil {
		if isFatal(err) {
			return err
		}
		report.NonFatal = append(report.NonFatal, &NonFatalError{ObjectType: models.ObjectGroup, Err: err})
		return nil
	}

	if err = o.reconcileRemovedGroups(ctx, groups); err != nil {
		return err
	}

	libs := append([]models.Library{personalLibrary(userID)}, groups...)
	if err = o.coordinator.PerformWrite(ctx, store.StoreLibrariesRequest{Libraries: libs}); err != nil {
		report.NonFatal = append(report.NonFatal, &NonFatalError{ObjectType: models.ObjectGroup, Err: err})
	}

	return nil
}

// reconcileRemovedGroups detects group libraries known locally that the
// server no longer reports and routes each through the conflict engine.
func (o *Orchestrator) reconcileRemovedGroups(ctx context.Context, remote []models.Library) error {
	local := &store.ReadLibrariesRequest{IncludeLocalOnly: false}
	if err := o.coordinator.PerformRead(ctx, local); err != nil {
		return err
	}

	remoteIDs := make(map[string]bool, len(remote))
	for _, lib := range remote {
		remoteIDs[lib.ID.String()] = true
	}

	for _, lib := range local.Libraries {
		if lib.ID.Kind != models.KindGroup || remoteIDs[lib.ID.String()] {
			continue
		}

		o.setPhase(ctx, models.PhaseResolvingConflicts, lib.Name, 0, 0)
		res, err := o.engine.Process(ctx, models.GroupRemoved{GroupID: lib.ID.ID, Name: lib.Name})
		if err != nil {
			return err
		}
		if err = o.applyResolution(ctx, res, 0); err != nil {
			return err
		}
		o.engine.MarkApplied(lib.ID)
	}

	return nil
}

func (o *Orchestrator) readLibraries(ctx context.Context) ([]models.Library, error) {
	req := &store.ReadLibrariesRequest{IncludeLocalOnly: false, ForceRefresh: true}
	if err := o.coordinator.PerformRead(ctx, req); err != nil {
		return nil, err
	}
	return req.Libraries, nil
}

// ── per-library pipeline ─────────────────────────────────────────────────

func (o *Orchestrator) syncLibrary(ctx context.Context, lib models.Library, report *RunReport) error {
	for _, typ := range models.SyncOrder {
		var err error
		if typ == models.ObjectDeletion {
			err = o.syncDeletions(ctx, lib)
		} else {
			err = o.syncObjectType(ctx, lib, typ)
		}

		if err == nil {
			continue
		}
		if isFatal(err) {
			return err
		}

		// Partial-failure semantics: record and move to the next unit of
		// work; one type's failure does not abort the library or the run.
		logger.FromContext(ctx).Warn().Err(err).
			Str("library", lib.ID.String()).
			Str("object_type", string(typ)).
			Msg("object type sync failed")
		report.NonFatal = append(report.NonFatal, &NonFatalError{
			LibraryID:  lib.ID,
			ObjectType: typ,
			Err:        err,
		})
	}

	return nil
}

func (o *Orchestrator) syncObjectType(ctx context.Context, lib models.Library, typ models.ObjectType) error {
	o.setPhase(ctx, phaseFor(typ), lib.Name, 0, 0)

	err := o.fetchAndStore(ctx, lib, typ)

	// A 412 means remote state moved against us mid-phase: resolve the
	// conflict, then retry the phase exactly once. A second 412 surfaces
	// as a plain error.
	var precondition *api.PreconditionError
	if errors.As(err, &precondition) {
		return o.resolveAndRetry(ctx, lib, precondition, func() error {
			return o.fetchAndStore(ctx, lib, typ)
		})
	}
	return err
}

func (o *Orchestrator) fetchAndStore(ctx context.Context, lib models.Library, typ models.ObjectType) error {
	since, err := o.ledgerVersion(ctx, lib.ID, typ)
	if err != nil {
		return err
	}

	var batch models.ObjectBatch
	err = o.withRetry(ctx, func(ctx context.Context) error {
		var fetchErr error
		batch, fetchErr = o.client.Fetch(ctx, lib.ID, typ, since)
		return fetchErr
	})
	switch {
	case errors.Is(err, api.ErrNotModified):
		// Unchanged remote state: the ledger stays put, the phase advances.
		return nil
	case err != nil:
		return err
	}

	if batch.Version < since {
		return fmt.Errorf("%w: library %s %s remote %d < local %d",
			ErrVersionRegression, lib.ID, typ, batch.Version, since)
	}

	if err = o.coordinator.PerformWrite(ctx, store.StoreBatchRequest{Batch: batch}); err != nil {
		return err
	}

	if typ == models.ObjectCollection && batch.Len() > 0 {
		return o.rebuildTree(ctx, lib.ID)
	}

	return nil
}

func (o *Orchestrator) syncDeletions(ctx context.Context, lib models.Library) error {
	o.setPhase(ctx, models.PhaseDeletions, lib.Name, 0, 0)

	since, err := o.ledgerVersion(ctx, lib.ID, models.ObjectDeletion)
	if err != nil {
		return err
	}

	var deleted models.DeletedKeys
	var newVersion int
	err = o.withRetry(ctx, func(ctx context.Context) error {
		var fetchErr error
		deleted, newVersion, fetchErr = o.client.Deletions(ctx, lib.ID, since)
		return fetchErr
	})
	if errors.Is(err, api.ErrNotModified) {
		return nil
	}
	if err != nil {
		return err
	}
	if newVersion < since {
		return fmt.Errorf("%w: library %s deletions remote %d < local %d",
			ErrVersionRegression, lib.ID, newVersion, since)
	}

	// Server-reported deletes apply only to keys without unsynced local
	// changes; the rest become a user-gated conflict.
	changed := &store.ReadChangedItemsRequest{LibraryID: lib.ID}
	if err = o.coordinator.PerformRead(ctx, changed); err != nil {
		return err
	}
	changedKeys := make(map[string]bool, len(changed.Items))
	for _, it := range changed.Items {
		changedKeys[it.Key] = true
	}

	var safe, conflicted []string
	for _, key := range deleted.Items {
		if changedKeys[key] {
			conflicted = append(conflicted, key)
		} else {
			safe = append(safe, key)
		}
	}
	deleted.Items = safe

	var restore []string
	if len(conflicted) > 0 {
		o.setPhase(ctx, models.PhaseResolvingConflicts, lib.Name, 0, 0)
		res, procErr := o.engine.Process(ctx, models.RemovedItemsHaveLocalChanges{
			LibraryID: lib.ID,
			Keys:      conflicted,
		})
		if procErr != nil {
			return procErr
		}

		decisions, ok := res.(models.LocalChangeDecisions)
		if !ok {
			return fmt.Errorf("unexpected resolution %T for local-changes conflict", res)
		}
		for _, key := range conflicted {
			if decisions.KeepLocal[key] {
				restore = append(restore, key)
			} else {
				deleted.Items = append(deleted.Items, key)
			}
		}
		defer o.engine.MarkApplied(lib.ID)
	}

	reqs := []store.WriteRequest{store.PerformDeletionsRequest{
		LibraryID: lib.ID,
		Deleted:   deleted,
		Version:   newVersion,
	}}
	if len(restore) > 0 {
		reqs = append(reqs, store.RestoreItemsRequest{LibraryID: lib.ID, Keys: restore})
	}
	if err = o.coordinator.PerformWriteBatch(ctx, reqs...); err != nil {
		return err
	}

	if len(deleted.Collections) > 0 {
		return o.rebuildTree(ctx, lib.ID)
	}
	return nil
}

// ── uploads phase ────────────────────────────────────────────────────────

func (o *Orchestrator) uploadChanges(ctx context.Context, lib models.Library, report *RunReport) error {
	o.setPhase(ctx, models.PhaseUploads, lib.Name, 0, 0)

	changed := &store.ReadChangedItemsRequest{LibraryID: lib.ID}
	if err := o.coordinator.PerformRead(ctx, changed); err != nil {
		return err
	}

	if len(changed.Items) > 0 {
		err := o.writeChangedItems(ctx, lib, changed.Items)

		var precondition *api.PreconditionError
		if errors.As(err, &precondition) {
			err = o.resolveAndRetry(ctx, lib, precondition, func() error {
				// The resolution may have deleted or restored items, so the
				// changed set is read fresh for the retry.
				fresh := &store.ReadChangedItemsRequest{LibraryID: lib.ID, ForceRefresh: true}
				if readErr := o.coordinator.PerformRead(ctx, fresh); readErr != nil {
					return readErr
				}
				if len(fresh.Items) == 0 {
					return nil
				}
				return o.writeChangedItems(ctx, lib, fresh.Items)
			})
		}

		if err != nil {
			if isFatal(err) {
				return err
			}
			report.NonFatal = append(report.NonFatal, &NonFatalError{
				LibraryID:  lib.ID,
				ObjectType: models.ObjectItem,
				Err:        err,
			})
		}
	}

	if o.uploader == nil || !lib.CanEditFiles {
		return nil
	}

	pending := &store.ReadPendingUploadsRequest{LibraryID: lib.ID}
	if err := o.coordinator.PerformRead(ctx, pending); err != nil {
		return err
	}
	for _, att := range pending.Attachments {
		if err := o.uploader.EnqueueUpload(ctx, att); err != nil {
			report.NonFatal = append(report.NonFatal, &NonFatalError{
				LibraryID:  lib.ID,
				ObjectType: models.ObjectItem,
				Err:        fmt.Errorf("enqueue upload %s: %w", att.Key, err),
			})
		}
	}

	return nil
}

// fetchMissingFiles queues downloads for attachment items whose file was
// never fetched. The transfers run in the background; the run only
// schedules them.
func (o *Orchestrator) fetchMissingFiles(ctx context.Context, lib models.Library, report *RunReport) error {
	if o.downloader == nil {
		return nil
	}

	pending := &store.ReadPendingDownloadsRequest{LibraryID: lib.ID}
	if err := o.coordinator.PerformRead(ctx, pending); err != nil {
		return err
	}
	for _, att := range pending.Attachments {
		if err := o.downloader.EnqueueDownload(att); err != nil {
			report.NonFatal = append(report.NonFatal, &NonFatalError{
				LibraryID:  lib.ID,
				ObjectType: models.ObjectItem,
				Err:        fmt.Errorf("enqueue download %s: %w", att.Key, err),
			})
		}
	}

	return nil
}

func (o *Orchestrator) writeChangedItems(ctx context.Context, lib models.Library, items []models.Item) error {
	since, err := o.ledgerVersion(ctx, lib.ID, models.ObjectItem)
	if err != nil {
		return err
	}

	var newVersion int
	err = o.withRetry(ctx, func(ctx context.Context) error {
		var writeErr error
		newVersion, writeErr = o.client.WriteObjects(ctx, lib.ID, items, since)
		return writeErr
	})
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key)
	}

	return o.coordinator.PerformWriteBatch(ctx,
		store.MarkItemsSyncedRequest{LibraryID: lib.ID, Keys: keys, Version: newVersion},
		store.UpdateVersionRequest{LibraryID: lib.ID, ObjectType: models.ObjectItem, Version: newVersion},
	)
}

// ── conflict handling ────────────────────────────────────────────────────

// preconditionPayload is the server's 412 body: either a set of remotely
// removed objects or a denied write class.
type preconditionPayload struct {
	Removed *struct {
		Collections []string `json:"collections"`
		Items       []string `json:"items"`
		Searches    []string `json:"searches"`
		Tags        []string `json:"tags"`
	} `json:"removed"`
	WriteDenied string `json:"writeDenied"`
}

// resolveAndRetry suspends the library's pipeline on a 412, routes the
// decoded conflict through the engine, applies the resolution as a
// normal transactional write and retries the same phase exactly once.
func (o *Orchestrator) resolveAndRetry(ctx context.Context, lib models.Library, precondition *api.PreconditionError, retryPhase func() error) error {
	conflict, err := conflictFromPrecondition(lib, precondition.Body)
	if err != nil {
		return err
	}

	o.setPhase(ctx, models.PhaseResolvingConflicts, lib.Name, 0, 0)
	res, err := o.engine.Process(ctx, conflict)
	if err != nil {
		return err
	}
	if err = o.applyResolution(ctx, res, 0); err != nil {
		return err
	}
	o.engine.MarkApplied(lib.ID)

	if _, skipped := res.(models.SkipGroup); skipped {
		// The library stays suspended for this run.
		return nil
	}

	return retryPhase()
}

func conflictFromPrecondition(lib models.Library, body []byte) (models.Conflict, error) {
	var payload preconditionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode precondition payload: %w", err)
	}

	switch {
	case payload.Removed != nil:
		return models.ObjectsRemovedRemotely{
			LibraryID:   lib.ID,
			Collections: payload.Removed.Collections,
			Items:       payload.Removed.Items,
			Searches:    payload.Removed.Searches,
			Tags:        payload.Removed.Tags,
		}, nil
	case payload.WriteDenied == "file":
		return models.GroupFileWriteDenied{GroupID: lib.ID.ID, Name: lib.Name}, nil
	case payload.WriteDenied == "metadata":
		return models.GroupMetadataWriteDenied{GroupID: lib.ID.ID, Name: lib.Name}, nil
	default:
		return nil, fmt.Errorf("unrecognized precondition payload: %s", body)
	}
}

// applyResolution turns a resolution into coordinator writes. version
// carries the deletions ledger target when the resolution stems from the
// deletions phase; zero leaves the ledger untouched.
func (o *Orchestrator) applyResolution(ctx context.Context, res models.Resolution, version int) error {
	switch r := res.(type) {
	case models.DeleteGroup:
		return o.coordinator.PerformWrite(ctx, store.DeleteGroupRequest{GroupID: r.GroupID})

	case models.MarkGroupLocalOnly:
		return o.coordinator.PerformWrite(ctx, store.MarkGroupLocalOnlyRequest{GroupID: r.GroupID})

	case models.RevertGroupChanges:
		return o.coordinator.PerformWrite(ctx, store.RevertGroupChangesRequest{GroupID: r.GroupID})

	case models.SkipGroup:
		return nil

	case models.RemoteDeletionsResolved:
		reqs := []store.WriteRequest{store.PerformDeletionsRequest{
			LibraryID: r.LibraryID,
			Deleted: models.DeletedKeys{
				Collections: r.Collections,
				Searches:    r.Searches,
				Items:       r.ToDelete,
				Tags:        r.Tags,
			},
			Version: version,
		}}
		if len(r.ToRestore) > 0 {
			reqs = append(reqs, store.RestoreItemsRequest{LibraryID: r.LibraryID, Keys: r.ToRestore})
		}
		return o.coordinator.PerformWriteBatch(ctx, reqs...)

	case models.LocalChangeDecisions:
		var restore, remove []string
		for key, keep := range r.KeepLocal {
			if keep {
				restore = append(restore, key)
			} else {
				remove = append(remove, key)
			}
		}
		var reqs []store.WriteRequest
		if len(remove) > 0 {
			reqs = append(reqs, store.PerformDeletionsRequest{
				LibraryID: r.LibraryID,
				Deleted:   models.DeletedKeys{Items: remove},
				Version:   version,
			})
		}
		if len(restore) > 0 {
			reqs = append(reqs, store.RestoreItemsRequest{LibraryID: r.LibraryID, Keys: restore})
		}
		if len(reqs) == 0 {
			return nil
		}
		return o.coordinator.PerformWriteBatch(ctx, reqs...)

	default:
		return fmt.Errorf("unknown resolution %T", res)
	}
}

// ── helpers ──────────────────────────────────────────────────────────────

func (o *Orchestrator) ledgerVersion(ctx context.Context, library models.LibraryIdentifier, typ models.ObjectType) (int, error) {
	req := &store.ReadVersionsRequest{LibraryID: library}
	if err := o.coordinator.PerformRead(ctx, req); err != nil {
		return 0, err
	}
	return req.Versions[typ], nil
}

func (o *Orchestrator) rebuildTree(ctx context.Context, library models.LibraryIdentifier) error {
	if o.tree == nil {
		return nil
	}

	req := &store.ReadCollectionsRequest{LibraryID: library, ForceRefresh: true}
	if err := o.coordinator.PerformRead(ctx, req); err != nil {
		return err
	}
	o.tree.Replace(library, req.Collections)
	return nil
}

func (o *Orchestrator) setPhase(ctx context.Context, phase models.SyncPhase, libraryName string, completed, total int) {
	o.mu.Lock()
	o.phase = phase
	o.mu.Unlock()

	logger.FromContext(ctx).Debug().
		Stringer("phase", phase).
		Str("library", libraryName).
		Msg("phase transition")

	if o.onProgress != nil {
		o.onProgress(models.ProgressSnapshot{
			Phase:       phase,
			LibraryName: libraryName,
			Completed:   completed,
			Total:       total,
		})
	}
}

// withRetry runs op with bounded exponential backoff for transient
// network failures. Non-transient errors surface immediately.
func (o *Orchestrator) withRetry(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(o.cfg.MaxRetries), retry.NewExponential(o.cfg.InitialBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	var netErr *api.NetworkError
	return errors.As(err, &netErr) && netErr.Retryable()
}

// isFatal reports errors that abort the whole run: authorization
// failures, schema incompatibilities and version regressions.
func isFatal(err error) bool {
	var schemaErr *SchemaError
	return errors.Is(err, api.ErrUnauthorized) ||
		errors.Is(err, ErrVersionRegression) ||
		errors.As(err, &schemaErr)
}

func phaseFor(typ models.ObjectType) models.SyncPhase {
	switch typ {
	case models.ObjectCollection:
		return models.PhaseCollections
	case models.ObjectSearch:
		return models.PhaseSearches
	case models.ObjectItem:
		return models.PhaseItems
	default:
		return models.PhaseDeletions
	}
}

func personalLibrary(userID int64) models.Library {
	return models.Library{
		ID:              models.CustomLibrary(userID),
		Name:            "My Library",
		CanEditMetadata: true,
		CanEditFiles:    true,
	}
}
