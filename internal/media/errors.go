package media

import "errors"

var (
	// ErrAssetTooLarge indicates the payload exceeds the max size for its media type.
	ErrAssetTooLarge = errors.New("media asset too large")
	// ErrMissingContentType indicates the content endpoint returned no Content-Type.
	ErrMissingContentType = errors.New("media content type missing")
)
