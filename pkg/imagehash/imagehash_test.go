package imagehash

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"
)

var fingerprintRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// checkerImage builds a high-contrast test image: left half dark, right half
// bright, with a dark band across the top of the bright side.
func checkerImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{20, 20, 20, 255}
			if x >= w/2 {
				c = color.RGBA{235, 235, 235, 255}
				if y < h/4 {
					c = color.RGBA{20, 20, 20, 255}
				}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// stripeImage builds an unrelated pattern: horizontal bright/dark bands.
func stripeImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{10, 10, 10, 255}
			if (y/(h/8))%2 == 0 {
				c = color.RGBA{245, 245, 245, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func TestHashDeterministicAndWellFormed(t *testing.T) {
	data := encodePNG(t, checkerImage(128, 128))

	first, err := Hash(data)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := Hash(data)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if first != second {
		t.Errorf("hash not deterministic: %q vs %q", first, second)
	}
	if !fingerprintRe.MatchString(first) {
		t.Errorf("fingerprint %q does not match ^[0-9a-f]{64}$", first)
	}
}

func TestHashSurvivesReencoding(t *testing.T) {
	src := checkerImage(128, 128)

	original, err := Hash(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Hash png: %v", err)
	}

	// Recomprimido como JPEG calidad 80: mismos contenidos, otros bytes.
	reencoded, err := Hash(encodeJPEG(t, src, 80))
	if err != nil {
		t.Fatalf("Hash jpeg: %v", err)
	}

	if d := HammingDistance(original, reencoded); d > DefaultThreshold {
		t.Errorf("re-encoded copy at distance %d, want <= %d", d, DefaultThreshold)
	}
	if !AreSimilar(original, reencoded, DefaultThreshold) {
		t.Error("re-encoded copy should be similar to the original")
	}
}

func TestHashDistinguishesUnrelatedImages(t *testing.T) {
	a, err := Hash(encodePNG(t, checkerImage(128, 128)))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash(encodePNG(t, stripeImage(128, 128)))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if d := HammingDistance(a, b); d <= DefaultThreshold {
		t.Errorf("unrelated images at distance %d, want > %d", d, DefaultThreshold)
	}
}

func TestHashScaleInvariance(t *testing.T) {
	small, err := Hash(encodePNG(t, checkerImage(64, 64)))
	if err != nil {
		t.Fatalf("Hash small: %v", err)
	}
	large, err := Hash(encodePNG(t, checkerImage(256, 256)))
	if err != nil {
		t.Fatalf("Hash large: %v", err)
	}

	if d := HammingDistance(small, large); d > DefaultThreshold {
		t.Errorf("rescaled copy at distance %d, want <= %d", d, DefaultThreshold)
	}
}

func TestHashRejectsGarbage(t *testing.T) {
	_, err := Hash([]byte("definitely not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestHashURL(t *testing.T) {
	data := encodePNG(t, checkerImage(128, 128))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	h := NewHasher(0, 0)
	got, err := h.HashURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("HashURL: %v", err)
	}

	want, _ := Hash(data)
	if got != want {
		t.Errorf("HashURL = %q, want %q", got, want)
	}
}

func TestHashURLRejectsNonImageContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	h := NewHasher(0, 0)
	_, err := h.HashURL(context.Background(), srv.URL)
	if !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("err = %v, want ErrInvalidContentType", err)
	}
}

func TestHashURLRejectsOversizedBody(t *testing.T) {
	data := encodePNG(t, checkerImage(128, 128))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	h := NewHasher(64, time.Second) // cap muy por debajo del tamaño real
	_, err := h.HashURL(context.Background(), srv.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestHashURLFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer srv.Close()

	h := NewHasher(0, 0)
	_, err := h.HashURL(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("err = %v, want ErrFetch", err)
	}
}
