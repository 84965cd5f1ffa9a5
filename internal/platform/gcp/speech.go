package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// Speech wraps the dedicated batch recognizer used by the transcribe
// diagnostic. It is not on the ingestion hot path; the pipeline's
// transcription normally rides on the annotation job's speech feature.
type Speech interface {
	// EnsureRecognizer returns the full recognizer resource name,
	// creating a latest_long en-US recognizer when absent.
	EnsureRecognizer(ctx context.Context, projectID, recognizerID string) (string, error)

	// BatchTranscribe runs an asynchronous batch recognition of one GCS
	// audio object, writing results under outputURI, and returns the
	// result object URIs.
	BatchTranscribe(ctx context.Context, recognizerName, audioURI, outputURI string) ([]string, error)

	Close() error
}

type speechService struct {
	log      *logger.Logger
	client   *speech.Client
	location string
}

func NewSpeech(log *logger.Logger, location string) (Speech, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if location == "" {
		location = "global"
	}
	slog := log.With("service", "gcp.Speech", "location", location)

	ctx := context.Background()
	opts := ClientOptionsFromEnv()
	if location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:443", location)))
	}

	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	return &speechService{log: slog, client: c, location: location}, nil
}

func (s *speechService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *speechService) EnsureRecognizer(ctx context.Context, projectID, recognizerID string) (string, error) {
	name := fmt.Sprintf("projects/%s/locations/%s/recognizers/%s", projectID, s.location, recognizerID)

	_, err := s.client.GetRecognizer(ctx, &speechpb.GetRecognizerRequest{Name: name})
	if err == nil {
		s.log.Info("Using existing recognizer", "recognizer", recognizerID)
		return name, nil
	}
	if status.Code(err) != codes.NotFound {
		return "", fmt.Errorf("get recognizer %s: %w", name, err)
	}

	s.log.Info("Recognizer not found, creating", "recognizer", recognizerID)
	op, err := s.client.CreateRecognizer(ctx, &speechpb.CreateRecognizerRequest{
		Parent:       fmt.Sprintf("projects/%s/locations/%s", projectID, s.location),
		RecognizerId: recognizerID,
		Recognizer: &speechpb.Recognizer{
			Model:         "latest_long",
			LanguageCodes: []string{"en-US"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create recognizer %s: %w", recognizerID, err)
	}

	cctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	created, err := op.Wait(cctx)
	if err != nil {
		return "", fmt.Errorf("wait for recognizer %s: %w", recognizerID, err)
	}
	s.log.Info("Created recognizer", "name", created.GetName())
	return created.GetName(), nil
}

func (s *speechService) BatchTranscribe(ctx context.Context, recognizerName, audioURI, outputURI string) ([]string, error) {
	if !strings.HasPrefix(audioURI, "gs://") {
		return nil, fmt.Errorf("audioURI must be gs://... got %q", audioURI)
	}

	req := &speechpb.BatchRecognizeRequest{
		Recognizer: recognizerName,
		Config: &speechpb.RecognitionConfig{
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   16000,
					AudioChannelCount: 1,
				},
			},
			Model:         "latest_long",
			LanguageCodes: []string{"en-US"},
			Features: &speechpb.RecognitionFeatures{
				EnableWordTimeOffsets:      true,
				EnableAutomaticPunctuation: true,
			},
		},
		Files: []*speechpb.BatchRecognizeFileMetadata{
			{AudioSource: &speechpb.BatchRecognizeFileMetadata_Uri{Uri: audioURI}},
		},
		RecognitionOutputConfig: &speechpb.RecognitionOutputConfig{
			Output: &speechpb.RecognitionOutputConfig_GcsOutputConfig{
				GcsOutputConfig: &speechpb.GcsOutputConfig{Uri: outputURI},
			},
		},
	}

	op, err := s.client.BatchRecognize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("batch recognize %s: %w", audioURI, err)
	}
	s.log.Info("Transcription operation started", "operation", op.Name(), "audio", audioURI)

	wctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	resp, err := op.Wait(wctx)
	if err != nil {
		return nil, fmt.Errorf("wait for transcription of %s: %w", audioURI, err)
	}

	var uris []string
	for fileURI, result := range resp.GetResults() {
		if result.GetError() != nil {
			s.log.Warn("Transcription failed for file", "file", fileURI, "error", result.GetError().GetMessage())
			continue
		}
		uri := result.GetCloudStorageResult().GetUri()
		if uri == "" {
			uri = result.GetUri()
		}
		if uri != "" {
			uris = append(uris, uri)
		}
	}
	return uris, nil
}
