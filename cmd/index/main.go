package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/videosearch-backend/internal/app"
	"github.com/yungbote/videosearch-backend/internal/pipeline/indexer"
	"github.com/yungbote/videosearch-backend/internal/pipeline/paths"
)

func main() {
	var folder string
	flag.StringVar(&folder, "folder", paths.ProcessedPrefix, "bucket folder holding durable analysis JSON")
	flag.Parse()

	application, err := app.New(app.Options{Store: true, Bucket: true})
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	if _, err := application.Store.EnsureTables(ctx); err != nil {
		fmt.Printf("schema setup failed: %v\n", err)
		os.Exit(1)
	}

	ix := indexer.New(
		application.Store.DB(),
		application.Bucket,
		application.Repos.Assets,
		application.Repos.Segments,
		application.Log,
	)
	report, err := ix.Run(ctx, folder)
	if err != nil {
		fmt.Printf("index run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Indexed %d payload(s), %d failed\n", report.Loaded, len(report.Failed))
	for key, ferr := range report.Failed {
		fmt.Printf("  FAILED %s: %v\n", key, ferr)
	}
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}
