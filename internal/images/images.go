// Package images prepares uploaded recipe photos for the JSON API, which
// accepts images as base64 data URIs.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Uploads larger than this are rejected before decoding.
const MaxUploadBytes = 10 << 20

// maxWidth bounds the longest image side; the backend stores whatever it
// gets, so oversized uploads are downscaled here.
const maxWidth = 1280

// DataURI reads one uploaded image, downscales it to at most maxWidth on the
// longest side, and returns it re-encoded as a JPEG data URI.
func DataURI(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("image exceeds %d bytes", MaxUploadBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxWidth || bounds.Dy() > maxWidth {
		img = imaging.Fit(img, maxWidth, maxWidth, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
