package media

import (
	"mime"
	"strings"
)

// MediaType classifies the kind of media relayed from a channel.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
	MediaTypeFile  MediaType = "file"
)

// Blob is a fetched attachment held in memory between download and upload.
// It is owned by the relay call that fetched it and never persisted.
type Blob struct {
	Data        []byte
	ContentType string
}

// Size returns the payload length in bytes.
func (b Blob) Size() int64 {
	return int64(len(b.Data))
}

// TypeFromMime maps a Content-Type header value to a MediaType.
func TypeFromMime(contentType string) MediaType {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(mediaType, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(mediaType, "audio/"):
		return MediaTypeAudio
	default:
		return MediaTypeFile
	}
}
