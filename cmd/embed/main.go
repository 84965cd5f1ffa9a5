package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/videosearch-backend/internal/app"
	"github.com/yungbote/videosearch-backend/internal/pipeline/embedder"
)

func main() {
	var (
		batchSize int
		model     string
	)
	flag.IntVar(&batchSize, "batch", 100, "segments per embedding request")
	flag.StringVar(&model, "model", "", "embedding model version (defaults to EMBEDDING_MODEL)")
	flag.Parse()

	application, err := app.New(app.Options{Store: true, Embedder: true, EmbeddingModel: model})
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	res, err := embedder.New(
		application.Repos.Embeddings,
		application.Embed,
		application.Log,
	).Generate(context.Background(), embedder.Options{BatchSize: batchSize})
	if err != nil {
		fmt.Printf("embedding run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Embedded %d segment(s) in %d batch(es) under model %s\n",
		res.Embedded, res.Batches, res.ModelVersion)
}
