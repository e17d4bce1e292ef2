package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dmvelichko/refsync/internal/api"
	"github.com/dmvelichko/refsync/internal/config"
	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/internal/service"
	"github.com/dmvelichko/refsync/internal/store"
	"github.com/dmvelichko/refsync/internal/transfer"
	"github.com/dmvelichko/refsync/internal/workers"
	"github.com/dmvelichko/refsync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.New("refsync")
	cfg, err := config.Get()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewConnectSQLite(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect local database")
	}
	defer db.Close()

	if err = db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate local database")
	}

	coordinator := store.NewCoordinator(db, log)
	client := api.NewHTTPClient(api.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.Key,
		Timeout: cfg.API.RequestTimeout,
	}, log)

	group := transfer.NewTaskGroup()
	defer group.Shutdown()

	activity := transfer.NewActivityCounter(nil)
	batch := transfer.NewBatchProgress()
	onState := func(att models.Attachment, state models.TransferState) {
		log.Debug().
			Str("attachment", att.Key).
			Int("progress", state.Progress).
			Msg("transfer state change")
	}
	uploader := transfer.NewUploader(client, coordinator, onState, activity, batch, group, log)
	downloader := transfer.NewDownloader(client, coordinator, cfg.Storage.Files.AttachmentsDir,
		cfg.Transfer.DownloadConcurrency, onState, activity, batch, group, log)

	engine := service.NewConflictEngine(log)
	go resolveConflictsHeadless(ctx, engine, log)

	tree := service.NewCollectionTree()
	orchestrator := service.NewOrchestrator(client, coordinator, engine, uploader, downloader, tree,
		func(snap models.ProgressSnapshot) {
			log.Info().
				Stringer("phase", snap.Phase).
				Str("library", snap.LibraryName).
				Int("completed", snap.Completed).
				Int("total", snap.Total).
				Msg("sync progress")
		},
		log, service.OrchestratorConfig{MaxRetries: cfg.Sync.MaxRetries})

	syncWorker := workers.NewSyncWorker(orchestrator, cfg.API.UserID, cfg.Sync.Interval, log)
	defer syncWorker.Stop()
	workers.NewWorkers(syncWorker).Run()

	<-ctx.Done()
	log.Info().Msg("shutting down")
}

// resolveConflictsHeadless answers the conflict stream without a UI,
// always choosing the option that cannot lose local data: group
// conflicts are skipped and locally changed items are kept. An embedding
// UI replaces this loop with interactive prompts.
func resolveConflictsHeadless(ctx context.Context, engine *service.ConflictEngine, log *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case conflict := <-engine.Conflicts():
			var err error
			switch c := conflict.(type) {
			case models.GroupRemoved:
				err = engine.ResolveGroup(models.SkipGroup{GroupID: c.GroupID})
			case models.GroupMetadataWriteDenied:
				err = engine.ResolveGroup(models.SkipGroup{GroupID: c.GroupID})
			case models.GroupFileWriteDenied:
				err = engine.ResolveGroup(models.SkipGroup{GroupID: c.GroupID})
			case models.RemovedItemsHaveLocalChanges:
				keep := make(map[string]bool, len(c.Keys))
				for _, key := range c.Keys {
					keep[key] = true
				}
				err = engine.ResolveLocalChanges(c.LibraryID, keep)
			default:
				log.Warn().Str("library", conflict.Library().String()).
					Msg("conflict needs interactive resolution, leaving pending")
				continue
			}
			if err != nil {
				log.Error().Err(err).Msg("resolve conflict")
			}
		}
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
