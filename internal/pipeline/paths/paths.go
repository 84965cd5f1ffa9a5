// Package paths fixes the bucket layout and the deterministic naming
// scheme shared by every pipeline stage. Scanner, orchestrator and
// indexer all derive names through here so the complement diff between
// raw objects and processed results stays consistent.
package paths

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

const (
	RawPrefix       = "raw/"
	ProcessedPrefix = "processed_json/"
	AudioPrefix     = "audio/"
)

// videoExtensions are the source formats the scanner recognizes.
// Anything else under raw/ is ignored.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
	".flv":  true,
}

func IsVideo(key string) bool {
	return videoExtensions[strings.ToLower(path.Ext(key))]
}

// TitleFromKey returns the filename stem of an object key.
func TitleFromKey(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

// CleanName normalizes a title for use in derived object keys: spaces
// and hyphens become underscores.
func CleanName(title string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(title)
}

// AssetID derives the stable asset identifier from the source object
// key. The same key always maps to the same id, which is what makes
// re-discovery and re-indexing idempotent.
func AssetID(sourceKey string) string {
	sum := md5.Sum([]byte(sourceKey))
	return hex.EncodeToString(sum[:])[:12]
}

// SegmentID numbers transcript segments within an asset.
func SegmentID(assetID string, n int) string {
	return fmt.Sprintf("%s_%04d", assetID, n)
}

func ShotID(assetID string, n int) string {
	return fmt.Sprintf("%s_shot_%04d", assetID, n)
}

func TrackID(assetID string, n int) string {
	return fmt.Sprintf("%s_trk_%04d", assetID, n)
}

// Derived holds every name computed from one raw video object.
type Derived struct {
	AssetID  string
	Title    string
	RawKey   string
	JSONKey  string
	AudioKey string
}

// Derive computes the processed-result and audio keys for a raw video
// object key.
func Derive(rawKey string) Derived {
	title := TitleFromKey(rawKey)
	clean := CleanName(title)
	return Derived{
		AssetID:  AssetID(rawKey),
		Title:    title,
		RawKey:   rawKey,
		JSONKey:  ProcessedPrefix + clean + ".json",
		AudioKey: AudioPrefix + clean + ".wav",
	}
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed gs:// uri: %q", uri)
	}
	return bucket, object, nil
}

// GCSURI joins a bucket and object key into a gs:// uri.
func GCSURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}
