// Package parser turns a durable analysis payload into normalized
// records. It performs no I/O: bytes in, records out, so a payload can
// be re-parsed any number of times after the analysis job is gone.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
)

// Shot is one detected camera shot, offsets in milliseconds.
type Shot struct {
	StartMs    int64
	EndMs      int64
	Confidence float64
}

// Frame is one timestamped normalized bounding box of a tracked object.
type Frame struct {
	OffsetMs int64
	Left     float64
	Top      float64
	Right    float64
	Bottom   float64
}

// Track is one object followed across a time range.
type Track struct {
	Label      string
	Confidence float64
	StartMs    int64
	EndMs      int64
	Frames     []Frame
}

// Segment is one stretch of transcribed speech. SpeakerTag is nil when
// the payload carries no diarization.
type Segment struct {
	StartMs    int64
	EndMs      int64
	SpeakerTag *int
	Text       string
	SlideText  string
	Confidence float64
}

// NormalizedRecords is everything extractable from one payload.
// Absent feature blocks yield empty slices, never an error.
type NormalizedRecords struct {
	Title      string
	Shots      []Shot
	Tracks     []Track
	Segments   []Segment
	DurationMs int64
	HasOCR     bool
}

// offsetMs tolerates the three time encodings seen across payload
// generations: a duration string ("12.5s"), a {seconds, nanos}
// object, or a bare number of seconds.
type offsetMs int64

func (o *offsetMs) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*o = 0
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "s")
		if s == "" {
			*o = 0
			return nil
		}
		sec, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("duration string %q: %w", s, err)
		}
		*o = offsetMs(sec * 1000)
	case '{':
		var obj struct {
			Seconds json.Number `json:"seconds"`
			Nanos   json.Number `json:"nanos"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		sec, _ := obj.Seconds.Float64()
		nanos, _ := obj.Nanos.Float64()
		*o = offsetMs(sec*1000 + nanos/1e6)
	default:
		sec, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("numeric offset %q: %w", b, err)
		}
		*o = offsetMs(sec * 1000)
	}
	return nil
}

type annotatePayload struct {
	AnnotationResults []annotationResult `json:"annotationResults"`
}

type timeSegment struct {
	StartTimeOffset offsetMs `json:"startTimeOffset"`
	EndTimeOffset   offsetMs `json:"endTimeOffset"`
}

type annotationResult struct {
	Segment              *timeSegment          `json:"segment"`
	ShotAnnotations      []timeSegment         `json:"shotAnnotations"`
	ObjectAnnotations    []objectAnnotation    `json:"objectAnnotations"`
	SpeechTranscriptions []speechTranscription `json:"speechTranscriptions"`
	TextAnnotations      []textAnnotation      `json:"textAnnotations"`
}

type objectAnnotation struct {
	Entity struct {
		Description string `json:"description"`
	} `json:"entity"`
	Confidence float64      `json:"confidence"`
	Segment    *timeSegment `json:"segment"`
	Frames     []struct {
		TimeOffset            offsetMs `json:"timeOffset"`
		NormalizedBoundingBox struct {
			Left   float64 `json:"left"`
			Top    float64 `json:"top"`
			Right  float64 `json:"right"`
			Bottom float64 `json:"bottom"`
		} `json:"normalizedBoundingBox"`
	} `json:"frames"`
}

type speechTranscription struct {
	Alternatives []struct {
		Transcript string  `json:"transcript"`
		Confidence float64 `json:"confidence"`
		Words      []struct {
			StartTime  offsetMs `json:"startTime"`
			EndTime    offsetMs `json:"endTime"`
			Word       string   `json:"word"`
			SpeakerTag int      `json:"speakerTag"`
		} `json:"words"`
	} `json:"alternatives"`
}

type textAnnotation struct {
	Text     string `json:"text"`
	Segments []struct {
		Segment    *timeSegment `json:"segment"`
		Confidence float64      `json:"confidence"`
	} `json:"segments"`
}

// legacyPayload is the consolidated shape written by the previous
// pipeline generation.
type legacyPayload struct {
	VideoTitle string `json:"video_title"`
	Segments   []struct {
		StartTime  offsetMs `json:"start_time"`
		EndTime    offsetMs `json:"end_time"`
		Transcript string   `json:"transcript"`
		SlideText  string   `json:"slide_text"`
		SpeakerTag *int     `json:"speaker_tag"`
		Confidence float64  `json:"confidence"`
	} `json:"segments"`
}

// Parse decodes one durable payload, accepting both the annotate
// response shape and the legacy consolidated shape. Only undecodable
// input is an error.
func Parse(raw []byte) (*NormalizedRecords, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeerrors.ErrMalformedPayload, err)
	}

	if _, ok := probe["annotationResults"]; ok {
		return parseAnnotate(raw)
	}
	if _, ok := probe["video_title"]; ok {
		return parseLegacy(raw)
	}
	if _, ok := probe["segments"]; ok {
		return parseLegacy(raw)
	}
	return nil, fmt.Errorf("%w: unrecognized payload shape", pipeerrors.ErrMalformedPayload)
}

func parseAnnotate(raw []byte) (*NormalizedRecords, error) {
	var payload annotatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeerrors.ErrMalformedPayload, err)
	}

	out := &NormalizedRecords{}
	for _, res := range payload.AnnotationResults {
		if res.Segment != nil && int64(res.Segment.EndTimeOffset) > out.DurationMs {
			out.DurationMs = int64(res.Segment.EndTimeOffset)
		}

		for _, shot := range res.ShotAnnotations {
			out.Shots = append(out.Shots, Shot{
				StartMs: int64(shot.StartTimeOffset),
				EndMs:   int64(shot.EndTimeOffset),
			})
			if int64(shot.EndTimeOffset) > out.DurationMs {
				out.DurationMs = int64(shot.EndTimeOffset)
			}
		}

		for _, obj := range res.ObjectAnnotations {
			track := Track{
				Label:      obj.Entity.Description,
				Confidence: obj.Confidence,
			}
			if obj.Segment != nil {
				track.StartMs = int64(obj.Segment.StartTimeOffset)
				track.EndMs = int64(obj.Segment.EndTimeOffset)
			}
			for _, f := range obj.Frames {
				track.Frames = append(track.Frames, Frame{
					OffsetMs: int64(f.TimeOffset),
					Left:     f.NormalizedBoundingBox.Left,
					Top:      f.NormalizedBoundingBox.Top,
					Right:    f.NormalizedBoundingBox.Right,
					Bottom:   f.NormalizedBoundingBox.Bottom,
				})
			}
			out.Tracks = append(out.Tracks, track)
		}

		for _, st := range res.SpeechTranscriptions {
			seg, ok := segmentFromTranscription(st)
			if !ok {
				continue
			}
			out.Segments = append(out.Segments, seg)
			if seg.EndMs > out.DurationMs {
				out.DurationMs = seg.EndMs
			}
		}

		if len(res.TextAnnotations) > 0 {
			out.HasOCR = true
		}
	}

	sortSegments(out.Segments)
	return out, nil
}

// segmentFromTranscription reduces one transcription chunk to a
// segment using its best alternative. Chunks with no transcript text
// (diarization-only trailing results) are dropped.
func segmentFromTranscription(st speechTranscription) (Segment, bool) {
	for _, alt := range st.Alternatives {
		text := strings.TrimSpace(alt.Transcript)
		if text == "" {
			continue
		}
		seg := Segment{Text: text, Confidence: alt.Confidence}
		if n := len(alt.Words); n > 0 {
			seg.StartMs = int64(alt.Words[0].StartTime)
			seg.EndMs = int64(alt.Words[n-1].EndTime)
			for _, w := range alt.Words {
				if w.SpeakerTag > 0 {
					tag := w.SpeakerTag
					seg.SpeakerTag = &tag
					break
				}
			}
		}
		return seg, true
	}
	return Segment{}, false
}

func parseLegacy(raw []byte) (*NormalizedRecords, error) {
	var payload legacyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeerrors.ErrMalformedPayload, err)
	}

	out := &NormalizedRecords{Title: payload.VideoTitle}
	for _, s := range payload.Segments {
		seg := Segment{
			StartMs:    int64(s.StartTime),
			EndMs:      int64(s.EndTime),
			SpeakerTag: s.SpeakerTag,
			Text:       strings.TrimSpace(s.Transcript),
			SlideText:  strings.TrimSpace(s.SlideText),
			Confidence: s.Confidence,
		}
		out.Segments = append(out.Segments, seg)
		if seg.EndMs > out.DurationMs {
			out.DurationMs = seg.EndMs
		}
		if seg.SlideText != "" {
			out.HasOCR = true
		}
	}

	sortSegments(out.Segments)
	return out, nil
}

func sortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartMs < segments[j].StartMs
	})
}
