// Package imagehash computes perceptual fingerprints for images and compares
// them by Hamming distance. The fingerprint survives re-encoding, rescaling
// and lossy compression, so a re-uploaded copy of a blacklisted image still
// matches even when its bytes differ.
package imagehash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	// Decoders registrados para los formatos de imagen soportados
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// gridSize is the side of the downscaled grid; gridSize² bits per hash.
	gridSize = 16

	// HexLength is the length of a rendered fingerprint (256 bits as hex).
	HexLength = 64

	// DefaultMaxBytes caps how much image data a URL fetch will download.
	DefaultMaxBytes = 50 * 1024 * 1024

	// DefaultFetchTimeout bounds a single image download.
	DefaultFetchTimeout = 10 * time.Second
)

// Typed failures for a single hash attempt. Callers treat all of them as
// "this item produced no match" rather than pipeline failures.
var (
	ErrFetch              = errors.New("image fetch failed")
	ErrInvalidContentType = errors.New("url does not serve an image content type")
	ErrTooLarge           = errors.New("image exceeds the download size cap")
	ErrDecode             = errors.New("image data could not be decoded")
	ErrTimeout            = errors.New("image fetch timed out")
)

// Hasher downloads and fingerprints images. The zero value is not usable;
// construct with NewHasher.
type Hasher struct {
	client   *http.Client
	maxBytes int64
}

// NewHasher creates a Hasher with the given download caps. Zero values fall
// back to the package defaults.
func NewHasher(maxBytes int64, fetchTimeout time.Duration) *Hasher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Hasher{
		client:   &http.Client{Timeout: fetchTimeout},
		maxBytes: maxBytes,
	}
}

// Hash computes the fingerprint of raw image bytes. Deterministic: the same
// bytes always produce the same fingerprint.
func Hash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return hashImage(img), nil
}

// HashURL downloads the image at url and computes its fingerprint. The
// download is bounded in time and size, and rejected before reading the body
// when the response does not declare an image content type.
func (h *Hasher) HashURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, contentType)
	}

	if resp.ContentLength > h.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	// LimitReader con un byte extra para detectar cuerpos que exceden el cap
	// sin Content-Length declarado.
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(data)) > h.maxBytes {
		return "", fmt.Errorf("%w: body larger than %d bytes", ErrTooLarge, h.maxBytes)
	}

	return Hash(data)
}

// hashImage renders the mean-threshold fingerprint of a decoded image:
// nearest-neighbor downscale to a 16×16 grid, grayscale, one bit per pixel
// (1 when strictly brighter than the grid mean), packed row-major into four
// 64-bit chunks rendered as 16 lowercase hex characters each.
func hashImage(img image.Image) string {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var gray [gridSize * gridSize]uint64
	var sum uint64

	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			srcX := bounds.Min.X + gx*width/gridSize
			srcY := bounds.Min.Y + gy*height/gridSize
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			// Luminancia entera BT.601 sobre canales de 16 bits
			v := (299*uint64(r) + 587*uint64(g) + 114*uint64(b)) / 1000
			gray[gy*gridSize+gx] = v
			sum += v
		}
	}

	mean := sum / (gridSize * gridSize)

	var chunks [4]uint64
	for i, v := range gray {
		chunks[i/64] <<= 1
		if v > mean {
			chunks[i/64] |= 1
		}
	}

	return fmt.Sprintf("%016x%016x%016x%016x", chunks[0], chunks[1], chunks[2], chunks[3])
}

// isTimeout reports whether err carries a network timeout.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
