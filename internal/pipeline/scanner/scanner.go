// Package scanner computes the ingestion work set: every playable
// object under raw/ whose durable analysis result is not yet present
// under processed_json/.
package scanner

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/videosearch-backend/internal/pipeline/paths"
	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
	"github.com/yungbote/videosearch-backend/internal/platform/gcp"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// Options narrow or widen a scan. Zero value is the normal diff scan.
type Options struct {
	// All ignores the processed diff and plans every raw video.
	All bool
	// Video restricts the plan to one raw object, by object key or by
	// bare filename under raw/.
	Video string
}

// Item is one unit of pending work.
type Item struct {
	paths.Derived
	SourceURI string
}

// Plan is the complete work set of one scan. It is only ever built
// whole; a listing failure yields no plan at all.
type Plan struct {
	Bucket           string
	Items            []Item
	TotalRaw         int
	AlreadyProcessed int
}

func (p *Plan) Empty() bool { return len(p.Items) == 0 }

type Scanner struct {
	bucket gcp.Bucket
	log    *logger.Logger
}

func New(bucket gcp.Bucket, log *logger.Logger) *Scanner {
	return &Scanner{bucket: bucket, log: log.With("component", "scanner")}
}

// Discover lists both sides of the bucket and returns the complement:
// raw videos with no durable result yet. The scan never mutates the
// bucket.
func (s *Scanner) Discover(ctx context.Context, opts Options) (*Plan, error) {
	rawKeys, err := s.bucket.ListKeys(ctx, paths.RawPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", pipeerrors.ErrStorageUnavailable, paths.RawPrefix, err)
	}

	processed := map[string]bool{}
	if !opts.All {
		processedKeys, err := s.bucket.ListKeys(ctx, paths.ProcessedPrefix)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", pipeerrors.ErrStorageUnavailable, paths.ProcessedPrefix, err)
		}
		for _, k := range processedKeys {
			processed[k] = true
		}
	}

	plan := &Plan{Bucket: s.bucket.Name()}
	for _, key := range rawKeys {
		if !paths.IsVideo(key) {
			continue
		}
		plan.TotalRaw++

		if opts.Video != "" && key != opts.Video && key != paths.RawPrefix+opts.Video {
			continue
		}

		d := paths.Derive(key)
		if processed[d.JSONKey] {
			plan.AlreadyProcessed++
			continue
		}
		plan.Items = append(plan.Items, Item{
			Derived:   d,
			SourceURI: paths.GCSURI(s.bucket.Name(), key),
		})
	}

	sort.Slice(plan.Items, func(i, j int) bool { return plan.Items[i].RawKey < plan.Items[j].RawKey })

	s.log.Info("Scan complete",
		"raw_videos", plan.TotalRaw,
		"already_processed", plan.AlreadyProcessed,
		"pending", len(plan.Items))
	return plan, nil
}

// DiscoverAll plans every raw video regardless of existing results.
func (s *Scanner) DiscoverAll(ctx context.Context) (*Plan, error) {
	return s.Discover(ctx, Options{All: true})
}

// ListAll returns every object key under the given prefix, for the
// debug listing mode of the ingest command.
func (s *Scanner) ListAll(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.bucket.ListKeys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", pipeerrors.ErrStorageUnavailable, prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}
