package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/videosearch-backend/internal/app"
)

// Diagnostic: run one audio object through the batch recognizer and
// print where the results landed. Useful for checking recognizer
// setup and transcription quality outside a full ingestion run.
func main() {
	var (
		audioURI  string
		outputURI string
	)
	flag.StringVar(&audioURI, "audio", "", "gs:// uri of a LINEAR16 16kHz mono audio object")
	flag.StringVar(&outputURI, "output", "", "gs:// prefix for recognition results")
	flag.Parse()

	if audioURI == "" || outputURI == "" {
		fmt.Println("both -audio and -output are required")
		flag.Usage()
		os.Exit(2)
	}

	application, err := app.New(app.Options{Speech: true})
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	cfg := application.Cfg

	recognizer, err := application.Speech.EnsureRecognizer(ctx, cfg.ProjectID, cfg.RecognizerID)
	if err != nil {
		fmt.Printf("recognizer setup failed: %v\n", err)
		os.Exit(1)
	}

	uris, err := application.Speech.BatchTranscribe(ctx, recognizer, audioURI, outputURI)
	if err != nil {
		fmt.Printf("transcription failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Transcription complete, %d result object(s):\n", len(uris))
	for _, uri := range uris {
		fmt.Printf("  %s\n", uri)
	}
}
