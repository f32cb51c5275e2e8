package orchestration

import (
	"context"
	"fmt"
	"time"

	tlog "go.temporal.io/sdk/log"

	"github.com/nucleus/di-collector/internal/archive"
	"github.com/nucleus/di-collector/internal/config"
	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/insights"
	"github.com/nucleus/di-collector/internal/objectstore"
	"github.com/nucleus/di-collector/internal/sink"
	"github.com/nucleus/di-collector/internal/watermark"
)

// FromConfig opens the configured object store and wires an Orchestrator.
// It makes no network calls beyond what opening the store requires.
func FromConfig(cfg *config.Config, logger tlog.Logger) (*Orchestrator, *objectstore.Bucket, error) {
	store, err := objectstore.Open(&cfg.Storage)
	if err != nil {
		return nil, nil, storageError("open object store", err)
	}
	bucket := objectstore.NewBucket(store, cfg.Bucket)
	fetcher := insights.NewFetcher(insights.FetcherConfig{
		BaseURL:     cfg.APIURL,
		Credentials: insights.Credentials{APIKey: cfg.APIKey, OrgID: cfg.OrgID},
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
	}, logger)
	return Wire(bucket, cfg.ObjectPrefix, fetcher, cfg, logger), bucket, nil
}

// Wire assembles an Orchestrator over bucket with the given fetcher.
func Wire(bucket *objectstore.Bucket, prefix string, fetcher Fetcher, cfg *config.Config, logger tlog.Logger) *Orchestrator {
	naming := watermark.NewNaming(prefix)
	store := watermark.NewListingStore(bucket, naming)
	deps := Deps{
		Watermarks: store,
		Fetcher:    fetcher,
		Writer:     sink.NewWriter(bucket, naming),
		Archiver:   archive.NewArchiver(bucket, naming, cfg.ArchiveKeep, logger),
		Schedule:   cfg.Schedule,
		Services:   cfg.Services,
		Logger:     logger,
	}
	if cfg.Schedule != nil {
		deps.Resolver = watermark.NewResolver(store, naming, cfg.Schedule)
	}
	return New(deps)
}

// EnsureBucket creates the bucket when missing. The local and in-memory
// stores need this before the first write.
func EnsureBucket(ctx context.Context, bucket *objectstore.Bucket) error {
	if err := bucket.Ensure(ctx); err != nil {
		return storageError(fmt.Sprintf("ensure bucket %s", bucket.Name()), err)
	}
	return nil
}

// NextStart resolves the start boundary the next scheduled run would use
// without archiving or writing anything.
func (o *Orchestrator) NextStart(ctx context.Context) (watermark.Resolution, error) {
	if o.deps.Resolver == nil {
		return watermark.Resolution{}, core.ConfigurationError("watermark resolution requires a cron schedule")
	}
	res, err := o.deps.Resolver.Resolve(ctx, o.Now().Truncate(time.Minute))
	if err != nil {
		return watermark.Resolution{}, storageError("resolve watermark", err)
	}
	return res, nil
}

// ArchiveNow runs only the archiving step.
func (o *Orchestrator) ArchiveNow(ctx context.Context) (archive.Result, error) {
	names, err := o.deps.Watermarks.Names(ctx)
	if err != nil {
		return archive.Result{}, storageError("list objects", err)
	}
	res, err := o.deps.Archiver.Archive(ctx, names)
	if err != nil {
		return res, storageError("archive", err)
	}
	return res, nil
}
