package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// Video submits asynchronous annotation jobs against the analysis
// service. A submission returns an AnnotationJob handle; the caller
// decides how to wait, the handle owns the polling mechanics.
type Video interface {
	Submit(ctx context.Context, gcsURI string, cfg AnnotationConfig) (AnnotationJob, error)
	Close() error
}

// AnnotationConfig selects the requested feature set; each feature is
// independently toggleable.
type AnnotationConfig struct {
	LanguageCode string

	EnableShotDetection       bool
	EnableObjectTracking      bool
	EnableSpeechTranscription bool
	EnableTextDetection       bool

	EnableSpeakerDiarization bool
	MinSpeakerCount          int
}

// JobStatus is the externally visible state of an annotation job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// PollOptions drive the exponential-backoff wait for a terminal state.
type PollOptions struct {
	Initial time.Duration // first poll delay
	Max     time.Duration // backoff cap
	MaxWait time.Duration // overall deadline before the job counts as timed out
}

// AnnotationJob is a future-like handle on one submitted job.
// AwaitTerminal returns the raw result payload verbatim (the service's
// own JSON encoding) so it can be persisted without interpretation.
type AnnotationJob interface {
	Name() string
	Status(ctx context.Context) (JobStatus, error)
	AwaitTerminal(ctx context.Context, opts PollOptions) ([]byte, error)
}

type videoService struct {
	log    *logger.Logger
	client *videointelligence.Client
}

func NewVideo(log *logger.Logger) (Video, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Video")

	ctx := context.Background()
	opts := ClientOptionsFromEnv()

	c, err := videointelligence.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}

	return &videoService{log: slog, client: c}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *videoService) Submit(ctx context.Context, gcsURI string, cfg AnnotationConfig) (AnnotationJob, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}

	features := []vipb.Feature{}
	if cfg.EnableShotDetection {
		features = append(features, vipb.Feature_SHOT_CHANGE_DETECTION)
	}
	if cfg.EnableObjectTracking {
		features = append(features, vipb.Feature_OBJECT_TRACKING)
	}
	if cfg.EnableSpeechTranscription {
		features = append(features, vipb.Feature_SPEECH_TRANSCRIPTION)
	}
	if cfg.EnableTextDetection {
		features = append(features, vipb.Feature_TEXT_DETECTION)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("at least one analysis feature must be enabled")
	}

	var vcfg *vipb.VideoContext
	if cfg.EnableSpeechTranscription || cfg.EnableTextDetection {
		vcfg = &vipb.VideoContext{}
	}
	if cfg.EnableSpeechTranscription {
		stc := &vipb.SpeechTranscriptionConfig{
			LanguageCode:               cfg.LanguageCode,
			EnableAutomaticPunctuation: true,
			EnableWordConfidence:       true,
		}
		if cfg.EnableSpeakerDiarization {
			stc.EnableSpeakerDiarization = true
			if cfg.MinSpeakerCount > 0 {
				stc.DiarizationSpeakerCount = int32(cfg.MinSpeakerCount)
			}
		}
		vcfg.SpeechTranscriptionConfig = stc
	}
	if cfg.EnableTextDetection {
		vcfg.TextDetectionConfig = &vipb.TextDetectionConfig{}
	}

	req := &vipb.AnnotateVideoRequest{
		InputUri:     gcsURI,
		Features:     features,
		VideoContext: vcfg,
	}

	op, err := s.client.AnnotateVideo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}

	s.log.Info("Annotation job submitted", "uri", gcsURI, "operation", op.Name(), "features", len(features))
	return &annotationJob{log: s.log, op: op, uri: gcsURI}, nil
}

type annotationJob struct {
	log *logger.Logger
	op  *videointelligence.AnnotateVideoOperation
	uri string
}

func (j *annotationJob) Name() string { return j.op.Name() }

func (j *annotationJob) Status(ctx context.Context) (JobStatus, error) {
	resp, err := j.op.Poll(ctx)
	if err != nil {
		if j.op.Done() {
			return JobStatusFailed, err
		}
		return JobStatusRunning, err
	}
	if !j.op.Done() || resp == nil {
		return JobStatusRunning, nil
	}
	return JobStatusSucceeded, nil
}

// AwaitTerminal polls on an exponential-backoff schedule until the job
// reaches a terminal state or opts.MaxWait elapses. Transient poll
// errors (Unavailable, ResourceExhausted, DeadlineExceeded) are
// absorbed into the schedule rather than surfaced.
func (j *annotationJob) AwaitTerminal(ctx context.Context, opts PollOptions) ([]byte, error) {
	if opts.Initial <= 0 {
		opts.Initial = 10 * time.Second
	}
	if opts.Max < opts.Initial {
		opts.Max = opts.Initial
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 45 * time.Minute
	}

	deadline := time.Now().Add(opts.MaxWait)
	backoff := opts.Initial

	for {
		resp, err := j.op.Poll(ctx)
		if err != nil {
			if j.op.Done() {
				return nil, fmt.Errorf("%w: operation %s: %v", pipeerrors.ErrAnalysisJobFailed, j.op.Name(), err)
			}
			code := status.Code(err)
			if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
				return nil, fmt.Errorf("%w: poll %s: %v", pipeerrors.ErrAnalysisJobFailed, j.op.Name(), err)
			}
			j.log.Warn("Transient poll error", "operation", j.op.Name(), "code", code.String())
		}
		if j.op.Done() && resp != nil {
			raw, merr := protojson.Marshal(resp)
			if merr != nil {
				return nil, fmt.Errorf("%w: encode result for %s: %v", pipeerrors.ErrAnalysisJobFailed, j.op.Name(), merr)
			}
			return raw, nil
		}

		if time.Now().Add(backoff).After(deadline) {
			return nil, fmt.Errorf("%w: operation %s exceeded %s", pipeerrors.ErrAnalysisJobTimedOut, j.op.Name(), opts.MaxWait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > opts.Max {
			backoff = opts.Max
		}
	}
}
