// Package embedder computes vectors for transcript segments that do
// not yet have one under the active model version. It only ever
// appends: existing embeddings are never recomputed or overwritten,
// so versions accumulate side by side.
package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/videosearch-backend/internal/data/repos/videoindex"
	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
	"github.com/yungbote/videosearch-backend/internal/platform/embed"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

const defaultBatchSize = 100

type Options struct {
	BatchSize int
}

// Result reports one generation run. Embedded is zero when every
// segment already has a vector under the model version.
type Result struct {
	ModelVersion string
	Embedded     int
	Batches      int
}

type Embedder struct {
	embeddings videoindex.EmbeddingRepo
	client     embed.Client
	log        *logger.Logger
}

func New(embeddings videoindex.EmbeddingRepo, client embed.Client, log *logger.Logger) *Embedder {
	return &Embedder{
		embeddings: embeddings,
		client:     client,
		log:        log.With("component", "embedder", "model", client.ModelVersion()),
	}
}

// Generate drains the missing set in batches until the anti-join
// comes back empty.
func (e *Embedder) Generate(ctx context.Context, opts Options) (*Result, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	model := e.client.ModelVersion()
	res := &Result{ModelVersion: model}
	dbc := dbctx.Context{Ctx: ctx}

	for {
		segments, err := e.embeddings.SegmentsMissingEmbedding(dbc, model, batchSize)
		if err != nil {
			return res, fmt.Errorf("find segments missing embedding: %w", err)
		}
		if len(segments) == 0 {
			break
		}

		texts := make([]string, len(segments))
		for i, s := range segments {
			texts[i] = s.CombinedText
		}

		vectors, err := e.client.Embed(ctx, texts)
		if err != nil {
			return res, fmt.Errorf("embed batch of %d: %w", len(segments), err)
		}
		if len(vectors) != len(segments) {
			return res, fmt.Errorf("embed batch returned %d vectors for %d segments", len(vectors), len(segments))
		}

		now := time.Now().UTC()
		rows := make([]*domain.Embedding, len(segments))
		for i, s := range segments {
			encoded, err := json.Marshal(vectors[i])
			if err != nil {
				return res, fmt.Errorf("encode vector for %s: %w", s.ID, err)
			}
			rows[i] = &domain.Embedding{
				SegmentID:    s.ID,
				ModelVersion: model,
				Vector:       datatypes.JSON(encoded),
				Dim:          len(vectors[i]),
				CreatedAt:    now,
			}
		}
		if err := e.embeddings.Append(dbc, rows); err != nil {
			return res, fmt.Errorf("append embeddings: %w", err)
		}

		res.Embedded += len(rows)
		res.Batches++
		e.log.Info("Embedded batch", "segments", len(rows), "total", res.Embedded)

		if len(segments) < batchSize {
			break
		}
	}

	e.log.Info("Embedding run complete", "embedded", res.Embedded, "batches", res.Batches)
	return res, nil
}
