package media

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   []byte
		maxBytes  int64
		wantErr   bool
		errTooBig bool
	}{
		{
			name:     "within limit",
			payload:  []byte("hello"),
			maxBytes: 8,
		},
		{
			name:      "over limit",
			payload:   []byte("0123456789"),
			maxBytes:  5,
			wantErr:   true,
			errTooBig: true,
		},
		{
			name:     "exact limit",
			payload:  []byte("12345"),
			maxBytes: 5,
		},
		{
			name:     "zero limit",
			payload:  []byte("x"),
			maxBytes: 0,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadAllWithLimit(bytes.NewReader(tt.payload), tt.maxBytes)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				if tt.errTooBig && !errors.Is(err, ErrAssetTooLarge) {
					t.Fatalf("expected ErrAssetTooLarge, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != string(tt.payload) {
				t.Fatalf("unexpected payload: %q", string(got))
			}
		})
	}
}

func TestReadBlob(t *testing.T) {
	t.Parallel()

	blob, err := ReadBlob(bytes.NewReader([]byte("video")), "video/mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blob.ContentType != "video/mp4" || blob.Size() != 5 {
		t.Fatalf("unexpected blob: %#v", blob)
	}

	if _, err := ReadBlob(bytes.NewReader([]byte("x")), ""); !errors.Is(err, ErrMissingContentType) {
		t.Fatalf("expected ErrMissingContentType, got %v", err)
	}
}

func TestTypeFromMime(t *testing.T) {
	t.Parallel()

	cases := map[string]MediaType{
		"image/jpeg":               MediaTypeImage,
		"IMAGE/PNG":                MediaTypeImage,
		"video/mp4":                MediaTypeVideo,
		"audio/m4a":                MediaTypeAudio,
		"application/octet-stream": MediaTypeFile,
		"image/jpeg; charset=x":    MediaTypeImage,
		"":                         MediaTypeFile,
	}
	for in, want := range cases {
		if got := TypeFromMime(in); got != want {
			t.Fatalf("mime=%q want=%s got=%s", in, want, got)
		}
	}
	if MaxBytesFor(MediaTypeImage) != MaxImageBytes || MaxBytesFor(MediaTypeVideo) != MaxAssetBytes {
		t.Fatal("unexpected per-type limits")
	}
}
