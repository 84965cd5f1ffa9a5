package scanner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/videosearch-backend/internal/pipeline/paths"
	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

type fakeBucket struct {
	name    string
	objects map[string][]byte
	listErr error
}

func (f *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
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

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("prod")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestDiscoverReturnsComplement(t *testing.T) {
	bucket := &fakeBucket{
		name: "test-bucket",
		objects: map[string][]byte{
			"raw/a.mp4": nil,
			"raw/b.mov": nil,
			"raw/c.mkv": nil,
			paths.Derive("raw/a.mp4").JSONKey: []byte("{}"),
		},
	}
	s := New(bucket, testLogger(t))

	plan, err := s.Discover(context.Background(), Options{})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if plan.TotalRaw != 3 {
		t.Fatalf("total raw = %d, want 3", plan.TotalRaw)
	}
	if plan.AlreadyProcessed != 1 {
		t.Fatalf("already processed = %d, want 1", plan.AlreadyProcessed)
	}
	if len(plan.Items) != 2 {
		t.Fatalf("pending = %d, want 2", len(plan.Items))
	}
	if plan.Items[0].RawKey != "raw/b.mov" || plan.Items[1].RawKey != "raw/c.mkv" {
		t.Fatalf("pending keys = %q, %q", plan.Items[0].RawKey, plan.Items[1].RawKey)
	}
	if plan.Items[0].SourceURI != "gs://test-bucket/raw/b.mov" {
		t.Fatalf("source uri = %q", plan.Items[0].SourceURI)
	}
}

func TestDiscoverSkipsNonVideoObjects(t *testing.T) {
	bucket := &fakeBucket{
		name: "test-bucket",
		objects: map[string][]byte{
			"raw/a.mp4":      nil,
			"raw/readme.txt": nil,
			"raw/backup.zip": nil,
		},
	}
	s := New(bucket, testLogger(t))

	plan, err := s.Discover(context.Background(), Options{})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if plan.TotalRaw != 1 || len(plan.Items) != 1 {
		t.Fatalf("plan = %d raw, %d pending; want 1, 1", plan.TotalRaw, len(plan.Items))
	}
}

func TestDiscoverAllIgnoresProcessedDiff(t *testing.T) {
	bucket := &fakeBucket{
		name: "test-bucket",
		objects: map[string][]byte{
			"raw/a.mp4": nil,
			paths.Derive("raw/a.mp4").JSONKey: []byte("{}"),
		},
	}
	s := New(bucket, testLogger(t))

	plan, err := s.Discover(context.Background(), Options{All: true})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(plan.Items) != 1 {
		t.Fatalf("pending = %d, want 1 despite processed result", len(plan.Items))
	}
}

func TestDiscoverSpecificVideo(t *testing.T) {
	bucket := &fakeBucket{
		name: "test-bucket",
		objects: map[string][]byte{
			"raw/a.mp4": nil,
			"raw/b.mp4": nil,
		},
	}
	s := New(bucket, testLogger(t))

	plan, err := s.Discover(context.Background(), Options{Video: "b.mp4"})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(plan.Items) != 1 || plan.Items[0].RawKey != "raw/b.mp4" {
		t.Fatalf("plan items = %+v, want only raw/b.mp4", plan.Items)
	}
}

func TestDiscoverWrapsListingFailure(t *testing.T) {
	bucket := &fakeBucket{name: "test-bucket", listErr: errors.New("boom")}
	s := New(bucket, testLogger(t))

	plan, err := s.Discover(context.Background(), Options{})
	if !errors.Is(err, pipeerrors.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	if plan != nil {
		t.Fatal("partial plan returned on listing failure")
	}
}
