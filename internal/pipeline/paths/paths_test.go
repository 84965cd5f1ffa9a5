package paths

import "testing"

func TestIsVideo(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"raw/lecture.mp4", true},
		{"raw/Lecture.MP4", true},
		{"raw/clip.webm", true},
		{"raw/clip.m4v", true},
		{"raw/notes.txt", false},
		{"raw/archive.zip", false},
		{"raw/noext", false},
	}
	for _, c := range cases {
		if got := IsVideo(c.key); got != c.want {
			t.Errorf("IsVideo(%q) = %v, want %v", c.key, got, c.want)
		}
	}
}

func TestDerive(t *testing.T) {
	d := Derive("raw/Intro Lecture - Part 1.mp4")

	if d.Title != "Intro Lecture - Part 1" {
		t.Errorf("title = %q", d.Title)
	}
	if d.JSONKey != "processed_json/Intro_Lecture___Part_1.json" {
		t.Errorf("json key = %q", d.JSONKey)
	}
	if d.AudioKey != "audio/Intro_Lecture___Part_1.wav" {
		t.Errorf("audio key = %q", d.AudioKey)
	}
	if len(d.AssetID) != 12 {
		t.Errorf("asset id length = %d, want 12", len(d.AssetID))
	}

	// Same key, same identity.
	again := Derive("raw/Intro Lecture - Part 1.mp4")
	if again.AssetID != d.AssetID {
		t.Errorf("asset id not stable: %q vs %q", again.AssetID, d.AssetID)
	}

	other := Derive("raw/Other.mp4")
	if other.AssetID == d.AssetID {
		t.Error("distinct keys produced the same asset id")
	}
}

func TestSegmentIDs(t *testing.T) {
	if got := SegmentID("abc123def456", 7); got != "abc123def456_0007" {
		t.Errorf("segment id = %q", got)
	}
	if got := ShotID("abc123def456", 0); got != "abc123def456_shot_0000" {
		t.Errorf("shot id = %q", got)
	}
	if got := TrackID("abc123def456", 12); got != "abc123def456_trk_0012" {
		t.Errorf("track id = %q", got)
	}
}

func TestParseGCSURI(t *testing.T) {
	b, o, err := ParseGCSURI("gs://my-bucket/raw/video.mp4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b != "my-bucket" || o != "raw/video.mp4" {
		t.Fatalf("parsed (%q, %q)", b, o)
	}

	if uri := GCSURI(b, o); uri != "gs://my-bucket/raw/video.mp4" {
		t.Fatalf("round trip = %q", uri)
	}

	for _, bad := range []string{"http://x/y", "gs://bucket-only", "gs://", ""} {
		if _, _, err := ParseGCSURI(bad); err == nil {
			t.Errorf("ParseGCSURI(%q) succeeded, want error", bad)
		}
	}
}
