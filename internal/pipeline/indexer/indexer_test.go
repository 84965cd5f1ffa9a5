package indexer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/videosearch-backend/internal/data/repos/testutil"
	"github.com/yungbote/videosearch-backend/internal/data/repos/videoindex"
	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pipeline/indexer"
	"github.com/yungbote/videosearch-backend/internal/pipeline/paths"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
)

type fakeBucket struct {
	name    string
	objects map[string][]byte
}

func (f *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeBucket) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeBucket) Read(_ context.Context, key string) ([]byte, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func (f *fakeBucket) WriteJSON(_ context.Context, key string, data []byte) error {
	f.objects[key] = data
	return nil
}

func (f *fakeBucket) Name() string { return f.name }
func (f *fakeBucket) Close() error { return nil }

const annotatePayload = `{
  "annotationResults": [{
    "segment": {"startTimeOffset": "0s", "endTimeOffset": "60s"},
    "shotAnnotations": [{"startTimeOffset": "0s", "endTimeOffset": "30s"}],
    "speechTranscriptions": [{
      "alternatives": [{
        "transcript": "welcome everyone",
        "confidence": 0.9,
        "words": [
          {"startTime": "1s", "endTime": "1.5s", "word": "welcome", "speakerTag": 1},
          {"startTime": "1.6s", "endTime": "2s", "word": "everyone", "speakerTag": 1}
        ]
      }]
    }]
  }]
}`

func TestRunIndexesAndConverges(t *testing.T) {
	store := testutil.DB(t)
	log := testutil.Logger(t)
	assets := videoindex.NewAssetRepo(store.DB(), log)
	segments := videoindex.NewSegmentRepo(store.DB(), log)

	d := paths.Derive("raw/Welcome Talk.mp4")
	bucket := &fakeBucket{
		name: "test-bucket",
		objects: map[string][]byte{
			"raw/Welcome Talk.mp4": nil,
			d.JSONKey:              []byte(annotatePayload),
		},
	}
	ix := indexer.New(store.DB(), bucket, assets, segments, log)

	report, err := ix.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Loaded != 1 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v, want 1 loaded, 0 failed", report)
	}

	dbc := dbctx.Background()
	asset, err := assets.GetByID(dbc, d.AssetID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if asset == nil {
		t.Fatal("asset row missing after index run")
	}
	if asset.State != domain.AssetStateIndexed {
		t.Fatalf("state = %q, want indexed", asset.State)
	}
	if asset.DurationMs != 60000 {
		t.Fatalf("duration = %d, want 60000", asset.DurationMs)
	}
	if asset.TotalSegments != 1 || asset.TotalSpeakers != 1 || !asset.HasDiarization {
		t.Fatalf("derived metadata = %+v", asset)
	}
	if asset.IndexedAt == nil {
		t.Fatal("indexed_at not set")
	}

	// Reload converges instead of duplicating.
	if _, err := ix.Run(context.Background(), ""); err != nil {
		t.Fatalf("second run: %v", err)
	}
	ns, _, ntr, err := segments.CountForAsset(dbc, d.AssetID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if ns != 1 || ntr != 1 {
		t.Fatalf("counts after replay = (%d shots, %d transcripts), want (1, 1)", ns, ntr)
	}

	segs, err := segments.TranscriptsByAsset(dbc, d.AssetID)
	if err != nil {
		t.Fatalf("transcripts: %v", err)
	}
	if segs[0].ID != d.AssetID+"_0000" {
		t.Fatalf("segment id = %q", segs[0].ID)
	}
	if segs[0].CombinedText != "welcome everyone" || segs[0].WordCount != 2 {
		t.Fatalf("segment = %+v", segs[0])
	}
}

func TestRunIsolatesMalformedPayloads(t *testing.T) {
	store := testutil.DB(t)
	log := testutil.Logger(t)
	assets := videoindex.NewAssetRepo(store.DB(), log)
	segments := videoindex.NewSegmentRepo(store.DB(), log)

	good := paths.Derive("raw/good.mp4")
	bad := paths.Derive("raw/bad.mp4")
	bucket := &fakeBucket{
		name: "test-bucket",
		objects: map[string][]byte{
			"raw/good.mp4": nil,
			"raw/bad.mp4":  nil,
			good.JSONKey:   []byte(annotatePayload),
			bad.JSONKey:    []byte("not json at all"),
		},
	}
	ix := indexer.New(store.DB(), bucket, assets, segments, log)

	report, err := ix.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Loaded != 1 {
		t.Fatalf("loaded = %d, want 1", report.Loaded)
	}
	if len(report.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(report.Failed))
	}

	// The good asset landed despite the bad neighbor.
	asset, err := assets.GetByID(dbctx.Background(), good.AssetID)
	if err != nil || asset == nil {
		t.Fatalf("good asset missing: %v", err)
	}
}

func TestRunHandlesLegacyPayloads(t *testing.T) {
	store := testutil.DB(t)
	log := testutil.Logger(t)
	assets := videoindex.NewAssetRepo(store.DB(), log)
	segments := videoindex.NewSegmentRepo(store.DB(), log)

	// Orphan legacy payload: no raw object backs it.
	legacy := `{"video_title": "Old Talk", "segments": [
	  {"start_time": 0.0, "end_time": 5.0, "transcript": "legacy text", "slide_text": "SLIDE"}
	]}`
	bucket := &fakeBucket{
		name: "test-bucket",
		objects: map[string][]byte{
			"processed_json/Old_Talk.json": []byte(legacy),
		},
	}
	ix := indexer.New(store.DB(), bucket, assets, segments, log)

	report, err := ix.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Loaded != 1 {
		t.Fatalf("loaded = %d, want 1", report.Loaded)
	}

	id := paths.AssetID("processed_json/Old_Talk.json")
	asset, err := assets.GetByID(dbctx.Background(), id)
	if err != nil || asset == nil {
		t.Fatalf("legacy asset missing: %v", err)
	}
	if asset.Title != "Old Talk" {
		t.Fatalf("title = %q, want payload title", asset.Title)
	}
	if !asset.HasOCR {
		t.Fatal("HasOCR = false, want true from slide text")
	}

	segs, err := segments.TranscriptsByAsset(dbctx.Background(), id)
	if err != nil || len(segs) != 1 {
		t.Fatalf("transcripts = %v, %v", segs, err)
	}
	if segs[0].CombinedText != "legacy text SLIDE" {
		t.Fatalf("combined = %q", segs[0].CombinedText)
	}
}
