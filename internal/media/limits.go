package media

import (
	"fmt"
	"io"
)

const (
	// MaxAssetBytes is the upper bound Twilio's media service accepts for one upload.
	MaxAssetBytes int64 = 150 * 1024 * 1024
	// MaxImageBytes bounds images; LINE never serves originals above 10 MiB.
	MaxImageBytes int64 = 10 * 1024 * 1024
)

// MaxBytesFor returns the accepted payload size for a media type.
func MaxBytesFor(t MediaType) int64 {
	if t == MediaTypeImage {
		return MaxImageBytes
	}
	return MaxAssetBytes
}

// ReadAllWithLimit reads from reader and rejects payloads larger than maxBytes.
func ReadAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be greater than 0")
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, maxBytes)
	}
	return data, nil
}

// ReadBlob drains reader into a Blob, applying the size limit of the content type.
func ReadBlob(reader io.Reader, contentType string) (Blob, error) {
	if contentType == "" {
		return Blob{}, ErrMissingContentType
	}
	data, err := ReadAllWithLimit(reader, MaxBytesFor(TypeFromMime(contentType)))
	if err != nil {
		return Blob{}, err
	}
	return Blob{Data: data, ContentType: contentType}, nil
}
