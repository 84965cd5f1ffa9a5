// Package orchestrator submits analysis jobs for a scanned work set
// and persists each result. Submission is the second phase of a
// two-phase run: the caller builds a plan with the scanner, confirms
// it, then hands it to Execute.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/videosearch-backend/internal/data/repos/videoindex"
	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pipeline/paths"
	"github.com/yungbote/videosearch-backend/internal/pipeline/scanner"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
	"github.com/yungbote/videosearch-backend/internal/platform/gcp"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// Options bound one Execute run.
type Options struct {
	MaxInFlight int
	Poll        gcp.PollOptions
	Annotation  gcp.AnnotationConfig
}

// AssetResult is the outcome for one work item.
type AssetResult struct {
	AssetID   string
	Title     string
	JSONURI   string
	JobStatus string
	Err       error
}

// RunSummary aggregates a whole run. Failed items never abort the
// batch; they are reported here.
type RunSummary struct {
	Submitted int
	Succeeded int
	Failed    int
	TimedOut  int
	Results   []AssetResult
}

type Orchestrator struct {
	bucket gcp.Bucket
	video  gcp.Video
	assets videoindex.AssetRepo
	jobs   videoindex.JobRepo
	log    *logger.Logger
}

func New(bucket gcp.Bucket, video gcp.Video, assets videoindex.AssetRepo, jobs videoindex.JobRepo, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		bucket: bucket,
		video:  video,
		assets: assets,
		jobs:   jobs,
		log:    log.With("component", "orchestrator"),
	}
}

// Execute runs every item of the plan, at most opts.MaxInFlight
// concurrently. Per item: record the attempt, submit, await the
// terminal state, persist the payload, advance the asset. One item's
// failure marks that asset failed and the run moves on.
func (o *Orchestrator) Execute(ctx context.Context, plan *scanner.Plan, opts Options) (*RunSummary, error) {
	if plan == nil || plan.Empty() {
		return &RunSummary{}, nil
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 2
	}

	summary := &RunSummary{
		Submitted: len(plan.Items),
		Results:   make([]AssetResult, len(plan.Items)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxInFlight)
	for i, item := range plan.Items {
		g.Go(func() error {
			res := o.runOne(gctx, item, opts)
			mu.Lock()
			summary.Results[i] = res
			switch {
			case res.Err == nil:
				summary.Succeeded++
			case errors.Is(res.Err, pipeerrors.ErrAnalysisJobTimedOut):
				summary.TimedOut++
				summary.Failed++
			default:
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	o.log.Info("Ingestion run complete",
		"submitted", summary.Submitted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"timed_out", summary.TimedOut)
	return summary, nil
}

func (o *Orchestrator) runOne(ctx context.Context, item scanner.Item, opts Options) AssetResult {
	dbc := dbctx.Context{Ctx: ctx}
	log := o.log.With("asset_id", item.AssetID, "title", item.Title)
	res := AssetResult{AssetID: item.AssetID, Title: item.Title}

	now := time.Now().UTC()
	asset := &domain.Asset{
		ID:           item.AssetID,
		Title:        item.Title,
		SourceURI:    item.SourceURI,
		State:        domain.AssetStateDiscovered,
		DiscoveredAt: now,
	}
	if err := o.assets.Upsert(dbc, asset); err != nil {
		res.Err = err
		return res
	}

	features, _ := json.Marshal(opts.Annotation)
	jobRow := &domain.AnalysisJob{
		ID:          uuid.New(),
		AssetID:     item.AssetID,
		Features:    datatypes.JSON(features),
		Status:      domain.JobStatusPending,
		SubmittedAt: now,
	}
	if err := o.jobs.Create(dbc, jobRow); err != nil {
		res.Err = err
		return res
	}

	job, err := o.video.Submit(ctx, item.SourceURI, opts.Annotation)
	if err != nil {
		res.Err = err
		res.JobStatus = domain.JobStatusFailed
		o.recordFailure(dbc, log, jobRow.ID, item.AssetID, domain.JobStatusFailed, err)
		return res
	}
	if err := o.jobs.MarkRunning(dbc, jobRow.ID, job.Name()); err != nil {
		log.Warn("Could not mark job running", "error", err)
	}
	if err := o.assets.UpdateState(dbc, item.AssetID, domain.AssetStateSubmitted); err != nil {
		log.Warn("Could not advance asset to submitted", "error", err)
	}

	payload, err := job.AwaitTerminal(ctx, opts.Poll)
	if err != nil {
		jobStatus := domain.JobStatusFailed
		if errors.Is(err, pipeerrors.ErrAnalysisJobTimedOut) {
			jobStatus = domain.JobStatusTimedOut
		}
		res.Err = err
		res.JobStatus = jobStatus
		o.recordFailure(dbc, log, jobRow.ID, item.AssetID, jobStatus, err)
		return res
	}

	// The durable write is the recovery boundary: once this object
	// exists, indexing never needs the job again.
	if err := o.bucket.WriteJSON(ctx, item.JSONKey, payload); err != nil {
		res.Err = fmt.Errorf("%w: write %s: %v", pipeerrors.ErrStorageUnavailable, item.JSONKey, err)
		res.JobStatus = domain.JobStatusFailed
		o.recordFailure(dbc, log, jobRow.ID, item.AssetID, domain.JobStatusFailed, res.Err)
		return res
	}

	jsonURI := paths.GCSURI(o.bucket.Name(), item.JSONKey)
	if err := o.jobs.MarkTerminal(dbc, jobRow.ID, domain.JobStatusSucceeded, jsonURI, ""); err != nil {
		log.Warn("Could not mark job succeeded", "error", err)
	}
	if err := o.assets.UpdateFields(dbc, item.AssetID, map[string]interface{}{
		"state":    domain.AssetStateAnalyzed,
		"json_uri": jsonURI,
	}); err != nil {
		log.Warn("Could not advance asset to analyzed", "error", err)
	}

	log.Info("Analysis complete", "json_uri", jsonURI, "payload_bytes", len(payload))
	res.JSONURI = jsonURI
	res.JobStatus = domain.JobStatusSucceeded
	return res
}

func (o *Orchestrator) recordFailure(dbc dbctx.Context, log *logger.Logger, jobID uuid.UUID, assetID, jobStatus string, cause error) {
	if err := o.jobs.MarkTerminal(dbc, jobID, jobStatus, "", cause.Error()); err != nil {
		log.Warn("Could not record job failure", "error", err)
	}
	if err := o.assets.UpdateState(dbc, assetID, domain.AssetStateFailed); err != nil {
		log.Warn("Could not mark asset failed", "error", err)
	}
	log.Error("Asset ingestion failed", "job_status", jobStatus, "error", cause)
}
