package model

// MediaKind discriminates the variants of a MediaItem.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindFile  MediaKind = "file"
)

// MediaItem is one downloadable asset belonging to a Content.
//
// DestPath is the backend-relative destination, expanded from the site's
// path template once at fetch time; it is never recomputed downstream.
type MediaItem struct {
	Kind      MediaKind `json:"kind"`
	Filename  string    `json:"filename"`
	SourceURL string    `json:"source_url"`
	DestPath  string    `json:"dest_path"`
	LocalPath string    `json:"local_path,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`

	// SizeBytes is nil when the upstream-reported size is not a whole
	// number of bytes; untrusted data is dropped rather than propagated.
	SizeBytes *int64 `json:"size_bytes,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`

	// Caption is only set for the video variant, which carries its own.
	Caption Caption `json:"caption,omitzero"`
}

// NewImage builds the still-image variant.
func NewImage(filename, sourceURL, destPath, thumbnail string, size *int64, width, height int) *MediaItem {
	return &MediaItem{
		Kind:      MediaKindImage,
		Filename:  filename,
		SourceURL: sourceURL,
		DestPath:  destPath,
		Thumbnail: thumbnail,
		SizeBytes: size,
		Width:     width,
		Height:    height,
	}
}

// NewVideo builds the single-file video ("ugoira") variant.
func NewVideo(filename, sourceURL, destPath string, caption Caption) *MediaItem {
	return &MediaItem{
		Kind:      MediaKindVideo,
		Filename:  filename,
		SourceURL: sourceURL,
		DestPath:  destPath,
		Caption:   caption,
	}
}

// NewFile builds the generic file variant.
func NewFile(filename, sourceURL, destPath string) *MediaItem {
	return &MediaItem{
		Kind:      MediaKindFile,
		Filename:  filename,
		SourceURL: sourceURL,
		DestPath:  destPath,
	}
}

// Downloaded reports whether the asset has been fetched to local storage.
func (m *MediaItem) Downloaded() bool {
	return m.LocalPath != ""
}

// Size converts an upstream-reported byte count to a *int64, returning nil
// for values that are not a whole number of bytes.
func Size(reported float64) *int64 {
	if reported != float64(int64(reported)) {
		return nil
	}
	n := int64(reported)
	return &n
}
