// Package indexer loads parsed analysis records into the structured
// store. Loads are replace-by-key per asset: reloading the same
// payload converges to the same rows instead of duplicating them.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/videosearch-backend/internal/data/repos/videoindex"
	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pipeline/parser"
	"github.com/yungbote/videosearch-backend/internal/pipeline/paths"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
	"github.com/yungbote/videosearch-backend/internal/platform/gcp"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

type Indexer struct {
	db       *gorm.DB
	bucket   gcp.Bucket
	assets   videoindex.AssetRepo
	segments videoindex.SegmentRepo
	log      *logger.Logger
}

func New(db *gorm.DB, bucket gcp.Bucket, assets videoindex.AssetRepo, segments videoindex.SegmentRepo, log *logger.Logger) *Indexer {
	return &Indexer{
		db:       db,
		bucket:   bucket,
		assets:   assets,
		segments: segments,
		log:      log.With("component", "indexer"),
	}
}

// Load writes one asset's records in a single transaction: replace the
// per-asset rows in every record table, then upsert the asset metadata
// row as indexed. A failed batch rolls everything back and the asset
// keeps its previous state.
func (ix *Indexer) Load(ctx context.Context, d paths.Derived, sourceURI string, rec *parser.NormalizedRecords) error {
	now := time.Now().UTC()

	shots := make([]*domain.Shot, 0, len(rec.Shots))
	for i, s := range rec.Shots {
		shots = append(shots, &domain.Shot{
			ID:         paths.ShotID(d.AssetID, i),
			AssetID:    d.AssetID,
			StartMs:    s.StartMs,
			EndMs:      s.EndMs,
			Confidence: s.Confidence,
			IndexedAt:  now,
		})
	}

	tracks := make([]*domain.ObjectTrack, 0, len(rec.Tracks))
	for i, t := range rec.Tracks {
		frames, err := encodeFrames(t.Frames)
		if err != nil {
			return fmt.Errorf("%w: encode frames for track %d: %v", pipeerrors.ErrLoadFailure, i, err)
		}
		tracks = append(tracks, &domain.ObjectTrack{
			ID:         paths.TrackID(d.AssetID, i),
			AssetID:    d.AssetID,
			Label:      t.Label,
			Confidence: t.Confidence,
			StartMs:    t.StartMs,
			EndMs:      t.EndMs,
			Frames:     frames,
			IndexedAt:  now,
		})
	}

	speakers := map[int]bool{}
	transcripts := make([]*domain.TranscriptSegment, 0, len(rec.Segments))
	for i, s := range rec.Segments {
		combined := s.Text
		if s.SlideText != "" {
			combined = strings.TrimSpace(s.Text + " " + s.SlideText)
		}
		transcripts = append(transcripts, &domain.TranscriptSegment{
			ID:           paths.SegmentID(d.AssetID, i),
			AssetID:      d.AssetID,
			StartMs:      s.StartMs,
			EndMs:        s.EndMs,
			SpeakerTag:   s.SpeakerTag,
			Text:         s.Text,
			SlideText:    s.SlideText,
			Confidence:   s.Confidence,
			CombinedText: combined,
			WordCount:    len(strings.Fields(combined)),
			CharCount:    len(combined),
			IndexedAt:    now,
		})
		if s.SpeakerTag != nil {
			speakers[*s.SpeakerTag] = true
		}
	}

	title := d.Title
	if rec.Title != "" {
		title = rec.Title
	}
	asset := &domain.Asset{
		ID:             d.AssetID,
		Title:          title,
		SourceURI:      sourceURI,
		JSONURI:        paths.GCSURI(ix.bucket.Name(), d.JSONKey),
		DurationMs:     rec.DurationMs,
		TotalSegments:  len(transcripts),
		TotalSpeakers:  len(speakers),
		HasDiarization: len(speakers) > 0,
		HasOCR:         rec.HasOCR,
		State:          domain.AssetStateIndexed,
		DiscoveredAt:   now,
		IndexedAt:      &now,
	}

	err := ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := ix.segments.ReplaceForAsset(dbc, d.AssetID, shots, tracks, transcripts); err != nil {
			return err
		}
		return ix.assets.Upsert(dbc, asset)
	})
	if err != nil {
		if !errors.Is(err, pipeerrors.ErrLoadFailure) {
			err = fmt.Errorf("%w: asset %s: %v", pipeerrors.ErrLoadFailure, d.AssetID, err)
		}
		return err
	}

	ix.log.Info("Indexed asset",
		"asset_id", d.AssetID, "title", title,
		"shots", len(shots), "tracks", len(tracks), "transcripts", len(transcripts))
	return nil
}

// Report summarizes one folder run.
type Report struct {
	Loaded int
	Failed map[string]error
}

// Run indexes every durable JSON payload under the given folder.
// Failures are isolated per asset; the run continues and reports them.
func (ix *Indexer) Run(ctx context.Context, folder string) (*Report, error) {
	if folder == "" {
		folder = paths.ProcessedPrefix
	}
	if !strings.HasSuffix(folder, "/") {
		folder += "/"
	}

	jsonKeys, err := ix.bucket.ListKeys(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", pipeerrors.ErrStorageUnavailable, folder, err)
	}

	// Recover each payload's source identity by matching raw objects
	// to their derived JSON key.
	rawKeys, err := ix.bucket.ListKeys(ctx, paths.RawPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", pipeerrors.ErrStorageUnavailable, paths.RawPrefix, err)
	}
	byJSONKey := map[string]paths.Derived{}
	for _, rk := range rawKeys {
		if paths.IsVideo(rk) {
			d := paths.Derive(rk)
			byJSONKey[d.JSONKey] = d
		}
	}

	report := &Report{Failed: map[string]error{}}
	for _, key := range jsonKeys {
		if path.Ext(key) != ".json" {
			continue
		}

		d, ok := byJSONKey[key]
		sourceURI := ""
		if ok {
			sourceURI = paths.GCSURI(ix.bucket.Name(), d.RawKey)
		} else {
			// Orphan payload whose raw object is gone; identity falls
			// back to the payload key.
			d = paths.Derived{
				AssetID: paths.AssetID(key),
				Title:   paths.TitleFromKey(key),
				JSONKey: key,
			}
			sourceURI = paths.GCSURI(ix.bucket.Name(), key)
		}

		if err := ix.loadOne(ctx, d, sourceURI, key); err != nil {
			ix.log.Warn("Indexing failed", "key", key, "error", err)
			report.Failed[key] = err
			continue
		}
		report.Loaded++
	}

	ix.log.Info("Index run complete", "loaded", report.Loaded, "failed", len(report.Failed))
	return report, nil
}

func encodeFrames(frames []parser.Frame) (datatypes.JSON, error) {
	if len(frames) == 0 {
		return datatypes.JSON("[]"), nil
	}
	rows := make([]domain.BoundingFrame, 0, len(frames))
	for _, f := range frames {
		rows = append(rows, domain.BoundingFrame{
			OffsetMs: f.OffsetMs,
			Left:     f.Left,
			Top:      f.Top,
			Right:    f.Right,
			Bottom:   f.Bottom,
		})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (ix *Indexer) loadOne(ctx context.Context, d paths.Derived, sourceURI, key string) error {
	raw, err := ix.bucket.Read(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", pipeerrors.ErrStorageUnavailable, key, err)
	}
	rec, err := parser.Parse(raw)
	if err != nil {
		return err
	}
	return ix.Load(ctx, d, sourceURI, rec)
}
