package images

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDataURI(t *testing.T) {
	uri, err := DataURI(bytes.NewReader(pngBytes(t, 40, 30)))
	if err != nil {
		t.Fatalf("data uri: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected prefix: %.40s", uri)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/jpeg;base64,"))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("small image must keep its size, got %v", img.Bounds())
	}
}

func TestDataURIDownscales(t *testing.T) {
	uri, err := DataURI(bytes.NewReader(pngBytes(t, 2000, 1000)))
	if err != nil {
		t.Fatalf("data uri: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/jpeg;base64,"))
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if img.Bounds().Dx() != 1280 || img.Bounds().Dy() != 640 {
		t.Errorf("bounds = %v, want 1280x640", img.Bounds())
	}
}

func TestDataURIRejectsNonImage(t *testing.T) {
	if _, err := DataURI(strings.NewReader("definitely not an image")); err == nil {
		t.Error("expected decode error")
	}
}

func TestDataURIRejectsOversized(t *testing.T) {
	big := bytes.Repeat([]byte{0xff}, MaxUploadBytes+1)
	if _, err := DataURI(bytes.NewReader(big)); err == nil {
		t.Error("expected size error")
	}
}
