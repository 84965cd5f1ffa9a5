package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/videosearch-backend/internal/app"
	"github.com/yungbote/videosearch-backend/internal/pipeline/indexer"
	"github.com/yungbote/videosearch-backend/internal/pipeline/orchestrator"
	"github.com/yungbote/videosearch-backend/internal/pipeline/paths"
	"github.com/yungbote/videosearch-backend/internal/pipeline/scanner"
	"github.com/yungbote/videosearch-backend/internal/platform/gcp"
)

func main() {
	var (
		configFile string
		video      string
		forceAll   bool
		listOnly   bool
		yes        bool
		skipOCR    bool
		diarize    bool
	)
	flag.StringVar(&configFile, "config", "", "YAML file overriding analysis feature toggles")
	flag.StringVar(&video, "video", "", "restrict the run to one raw object (key or filename)")
	flag.BoolVar(&forceAll, "force-all", false, "re-analyze every raw video, ignoring existing results")
	flag.BoolVar(&listOnly, "list", false, "print the bucket contents and exit")
	flag.BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	flag.BoolVar(&skipOCR, "skip-ocr", false, "drop text detection from the feature set")
	flag.BoolVar(&diarize, "diarize", false, "enable speaker diarization")
	flag.Parse()

	application, err := app.New(app.Options{
		ConfigFile: configFile,
		Store:      true,
		Bucket:     true,
		Video:      true,
	})
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
	scan := scanner.New(application.Bucket, application.Log)

	if listOnly {
		for _, prefix := range []string{paths.RawPrefix, paths.ProcessedPrefix} {
			keys, err := scan.ListAll(ctx, prefix)
			if err != nil {
				fmt.Printf("list %s: %v\n", prefix, err)
				os.Exit(1)
			}
			fmt.Printf("%s (%d objects)\n", prefix, len(keys))
			for _, k := range keys {
				fmt.Printf("  %s\n", k)
			}
		}
		return
	}

	// Phase one: build the plan.
	plan, err := scan.Discover(ctx, scanner.Options{All: forceAll, Video: video})
	if err != nil {
		fmt.Printf("scan failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bucket gs://%s: %d raw videos, %d already processed, %d pending\n",
		plan.Bucket, plan.TotalRaw, plan.AlreadyProcessed, len(plan.Items))
	if plan.Empty() {
		fmt.Println("Nothing to do.")
		return
	}
	for _, item := range plan.Items {
		fmt.Printf("  %-14s %s\n", item.AssetID, item.RawKey)
	}

	// Phase two: confirm, then submit.
	if !yes && !confirm(fmt.Sprintf("Submit %d analysis job(s)?", len(plan.Items))) {
		fmt.Println("Aborted.")
		return
	}

	cfg := application.Cfg
	features := cfg.Features
	if skipOCR {
		features.SkipOCR = true
	}
	if diarize {
		features.SpeakerDiarized = true
	}

	summary, err := orchestrator.New(
		application.Bucket,
		application.Video,
		application.Repos.Assets,
		application.Repos.Jobs,
		application.Log,
	).Execute(ctx, plan, orchestrator.Options{
		MaxInFlight: cfg.MaxInFlightJobs,
		Poll: gcp.PollOptions{
			Initial: cfg.PollInitial,
			Max:     cfg.PollMax,
			MaxWait: cfg.MaxWait,
		},
		Annotation: gcp.AnnotationConfig{
			LanguageCode:              features.LanguageCode,
			EnableShotDetection:       features.ShotDetection,
			EnableObjectTracking:      features.ObjectTracking,
			EnableSpeechTranscription: features.Transcription,
			EnableTextDetection:       features.TextDetection && !features.SkipOCR,
			EnableSpeakerDiarization:  features.SpeakerDiarized,
			MinSpeakerCount:           2,
		},
	})
	if err != nil {
		fmt.Printf("run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nDone: %d submitted, %d succeeded, %d failed (%d timed out)\n",
		summary.Submitted, summary.Succeeded, summary.Failed, summary.TimedOut)
	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Printf("  FAILED %-14s %s: %v\n", r.AssetID, r.Title, r.Err)
		} else {
			fmt.Printf("  OK     %-14s %s -> %s\n", r.AssetID, r.Title, r.JSONURI)
		}
	}

	// Index what this run produced so a single invocation takes assets
	// all the way to searchable rows.
	if summary.Succeeded > 0 {
		report, err := indexer.New(
			application.Store.DB(),
			application.Bucket,
			application.Repos.Assets,
			application.Repos.Segments,
			application.Log,
		).Run(ctx, paths.ProcessedPrefix)
		if err != nil {
			fmt.Printf("index run failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d payload(s), %d failed\n", report.Loaded, len(report.Failed))
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
