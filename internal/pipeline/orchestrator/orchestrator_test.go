package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/videosearch-backend/internal/data/repos/testutil"
	"github.com/yungbote/videosearch-backend/internal/data/repos/videoindex"
	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pipeline/indexer"
	"github.com/yungbote/videosearch-backend/internal/pipeline/orchestrator"
	"github.com/yungbote/videosearch-backend/internal/pipeline/paths"
	"github.com/yungbote/videosearch-backend/internal/pipeline/scanner"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
	"github.com/yungbote/videosearch-backend/internal/platform/gcp"
)

type fakeBucket struct {
	mu      sync.Mutex
	name    string
	objects map[string][]byte
}

func (f *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeBucket) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeBucket) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func (f *fakeBucket) WriteJSON(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBucket) Name() string { return f.name }
func (f *fakeBucket) Close() error { return nil }

type fakeJob struct {
	name    string
	payload []byte
	err     error
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Status(context.Context) (gcp.JobStatus, error) {
	if j.err != nil {
		return gcp.JobStatusFailed, j.err
	}
	return gcp.JobStatusSucceeded, nil
}

func (j *fakeJob) AwaitTerminal(context.Context, gcp.PollOptions) ([]byte, error) {
	if j.err != nil {
		return nil, j.err
	}
	return j.payload, nil
}

type fakeVideo struct {
	mu   sync.Mutex
	jobs map[string]*fakeJob // keyed by source uri
}

func (v *fakeVideo) Submit(_ context.Context, gcsURI string, _ gcp.AnnotationConfig) (gcp.AnnotationJob, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	job, ok := v.jobs[gcsURI]
	if !ok {
		return nil, fmt.Errorf("no job registered for %s", gcsURI)
	}
	return job, nil
}

func (v *fakeVideo) Close() error { return nil }

func planFor(bucket string, rawKeys ...string) *scanner.Plan {
	p := &scanner.Plan{Bucket: bucket}
	for _, k := range rawKeys {
		p.Items = append(p.Items, scanner.Item{
			Derived:   paths.Derive(k),
			SourceURI: paths.GCSURI(bucket, k),
		})
	}
	p.TotalRaw = len(p.Items)
	return p
}

func TestExecuteIsolatesFailures(t *testing.T) {
	store := testutil.DB(t)
	log := testutil.Logger(t)
	assets := videoindex.NewAssetRepo(store.DB(), log)
	jobs := videoindex.NewJobRepo(store.DB(), log)

	bucket := &fakeBucket{name: "test-bucket", objects: map[string][]byte{}}
	plan := planFor("test-bucket", "raw/a.mp4", "raw/b.mp4", "raw/c.mp4")

	video := &fakeVideo{jobs: map[string]*fakeJob{
		"gs://test-bucket/raw/a.mp4": {name: "op-a", payload: []byte(`{"annotationResults":[]}`)},
		"gs://test-bucket/raw/b.mp4": {name: "op-b", err: fmt.Errorf("%w: backend exploded", pipeerrors.ErrAnalysisJobFailed)},
		"gs://test-bucket/raw/c.mp4": {name: "op-c", payload: []byte(`{"annotationResults":[]}`)},
	}}

	o := orchestrator.New(bucket, video, assets, jobs, log)
	summary, err := o.Execute(context.Background(), plan, orchestrator.Options{MaxInFlight: 2})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if summary.Submitted != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 3 submitted, 2 succeeded, 1 failed", summary)
	}

	dbc := dbctx.Background()
	for rawKey, wantState := range map[string]string{
		"raw/a.mp4": domain.AssetStateAnalyzed,
		"raw/b.mp4": domain.AssetStateFailed,
		"raw/c.mp4": domain.AssetStateAnalyzed,
	} {
		d := paths.Derive(rawKey)
		asset, err := assets.GetByID(dbc, d.AssetID)
		if err != nil || asset == nil {
			t.Fatalf("asset for %s missing: %v", rawKey, err)
		}
		if asset.State != wantState {
			t.Errorf("asset %s state = %q, want %q", rawKey, asset.State, wantState)
		}
	}

	// Durable payloads exist only for the successes.
	for _, rawKey := range []string{"raw/a.mp4", "raw/c.mp4"} {
		d := paths.Derive(rawKey)
		if ok, _ := bucket.Exists(context.Background(), d.JSONKey); !ok {
			t.Errorf("durable payload for %s missing", rawKey)
		}
	}
	if ok, _ := bucket.Exists(context.Background(), paths.Derive("raw/b.mp4").JSONKey); ok {
		t.Error("durable payload written for failed asset")
	}

	// The failed asset carries a failed job row with the cause.
	rows, err := jobs.GetByAssetID(dbc, paths.Derive("raw/b.mp4").AssetID)
	if err != nil {
		t.Fatalf("job rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("job rows = %d, want 1", len(rows))
	}
	if rows[0].Status != domain.JobStatusFailed {
		t.Errorf("job status = %q, want failed", rows[0].Status)
	}
	if rows[0].Error == "" {
		t.Error("job row has no recorded error")
	}
	if rows[0].CompletedAt == nil {
		t.Error("job row has no completion time")
	}
}

func TestExecuteRecordsTimeout(t *testing.T) {
	store := testutil.DB(t)
	log := testutil.Logger(t)
	assets := videoindex.NewAssetRepo(store.DB(), log)
	jobs := videoindex.NewJobRepo(store.DB(), log)

	bucket := &fakeBucket{name: "test-bucket", objects: map[string][]byte{}}
	plan := planFor("test-bucket", "raw/slow.mp4")
	video := &fakeVideo{jobs: map[string]*fakeJob{
		"gs://test-bucket/raw/slow.mp4": {name: "op-slow", err: fmt.Errorf("%w: gave up", pipeerrors.ErrAnalysisJobTimedOut)},
	}}

	o := orchestrator.New(bucket, video, assets, jobs, log)
	summary, err := o.Execute(context.Background(), plan, orchestrator.Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.TimedOut != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 timed out", summary)
	}

	rows, err := jobs.GetByAssetID(dbctx.Background(), paths.Derive("raw/slow.mp4").AssetID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("job rows = %v, %v", rows, err)
	}
	if rows[0].Status != domain.JobStatusTimedOut {
		t.Fatalf("job status = %q, want timed_out", rows[0].Status)
	}
}

// End to end over fakes: analyze a batch with one bad job, then index
// the durable payloads. The two good assets come out fully loaded.
func TestExecuteThenIndex(t *testing.T) {
	store := testutil.DB(t)
	log := testutil.Logger(t)
	assets := videoindex.NewAssetRepo(store.DB(), log)
	jobRows := videoindex.NewJobRepo(store.DB(), log)
	segments := videoindex.NewSegmentRepo(store.DB(), log)

	payload := `{
	  "annotationResults": [{
	    "speechTranscriptions": [{
	      "alternatives": [{
	        "transcript": "indexed text",
	        "words": [{"startTime": "0s", "endTime": "2s"}]
	      }]
	    }]
	  }]
	}`
	bucket := &fakeBucket{name: "test-bucket", objects: map[string][]byte{
		"raw/a.mp4": nil,
		"raw/b.mp4": nil,
		"raw/c.mp4": nil,
	}}
	plan := planFor("test-bucket", "raw/a.mp4", "raw/b.mp4", "raw/c.mp4")
	video := &fakeVideo{jobs: map[string]*fakeJob{
		"gs://test-bucket/raw/a.mp4": {name: "op-a", payload: []byte(payload)},
		"gs://test-bucket/raw/b.mp4": {name: "op-b", err: fmt.Errorf("%w: nope", pipeerrors.ErrAnalysisJobFailed)},
		"gs://test-bucket/raw/c.mp4": {name: "op-c", payload: []byte(payload)},
	}}

	o := orchestrator.New(bucket, video, assets, jobRows, log)
	summary, err := o.Execute(context.Background(), plan, orchestrator.Options{MaxInFlight: 3})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v, want exactly one failure", summary)
	}

	report, err := indexer.New(store.DB(), bucket, assets, segments, log).
		Run(context.Background(), paths.ProcessedPrefix)
	if err != nil {
		t.Fatalf("index run: %v", err)
	}
	if report.Loaded != 2 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v, want 2 loaded", report)
	}

	dbc := dbctx.Background()
	for _, rawKey := range []string{"raw/a.mp4", "raw/c.mp4"} {
		d := paths.Derive(rawKey)
		asset, err := assets.GetByID(dbc, d.AssetID)
		if err != nil || asset == nil {
			t.Fatalf("asset for %s: %v", rawKey, err)
		}
		if asset.State != domain.AssetStateIndexed {
			t.Errorf("asset %s state = %q, want indexed", rawKey, asset.State)
		}
		_, _, transcripts, err := segments.CountForAsset(dbc, d.AssetID)
		if err != nil {
			t.Fatalf("count %s: %v", rawKey, err)
		}
		if transcripts != 1 {
			t.Errorf("asset %s transcripts = %d, want 1", rawKey, transcripts)
		}
	}

	failed, err := assets.GetByID(dbc, paths.Derive("raw/b.mp4").AssetID)
	if err != nil || failed == nil {
		t.Fatalf("failed asset: %v", err)
	}
	if failed.State != domain.AssetStateFailed {
		t.Errorf("failed asset state = %q, want failed", failed.State)
	}
}

func TestExecuteEmptyPlanIsNoop(t *testing.T) {
	store := testutil.DB(t)
	log := testutil.Logger(t)
	o := orchestrator.New(
		&fakeBucket{name: "test-bucket"},
		&fakeVideo{},
		videoindex.NewAssetRepo(store.DB(), log),
		videoindex.NewJobRepo(store.DB(), log),
		log,
	)

	summary, err := o.Execute(context.Background(), &scanner.Plan{}, orchestrator.Options{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Submitted != 0 {
		t.Fatalf("summary = %+v, want empty", summary)
	}
}
