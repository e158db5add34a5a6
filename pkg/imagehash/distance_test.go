package imagehash

import (
	"strings"
	"testing"
)

func TestHammingDistanceIdentity(t *testing.T) {
	fps := []string{
		strings.Repeat("0", HexLength),
		strings.Repeat("f", HexLength),
		"00ff00ff00ff00ff" + "123456789abcdef0" + strings.Repeat("a", 16) + strings.Repeat("5", 16),
	}

	for _, fp := range fps {
		if d := HammingDistance(fp, fp); d != 0 {
			t.Errorf("HammingDistance(%q, %q) = %d, want 0", fp, fp, d)
		}
	}
}

func TestHammingDistanceKnownValues(t *testing.T) {
	zero := strings.Repeat("0", HexLength)

	// Un solo bit distinto en el último chunk
	oneBit := strings.Repeat("0", HexLength-1) + "1"
	if d := HammingDistance(zero, oneBit); d != 1 {
		t.Errorf("distance = %d, want 1", d)
	}

	// Todos los bits distintos
	ones := strings.Repeat("f", HexLength)
	if d := HammingDistance(zero, ones); d != 256 {
		t.Errorf("distance = %d, want 256", d)
	}
}

func TestHammingDistanceLengthMismatch(t *testing.T) {
	a := strings.Repeat("0", HexLength)
	b := strings.Repeat("0", 16) // hash de una versión incompatible

	if d := HammingDistance(a, b); d != MaxDistance {
		t.Errorf("distance = %d, want MaxDistance (%d)", d, MaxDistance)
	}
	if AreSimilar(a, b, DefaultThreshold) {
		t.Error("AreSimilar should be false for fingerprints of unequal length")
	}
}

func TestHammingDistanceMalformedHex(t *testing.T) {
	a := strings.Repeat("0", HexLength)
	b := strings.Repeat("z", HexLength)

	if d := HammingDistance(a, b); d != MaxDistance {
		t.Errorf("distance = %d, want MaxDistance for malformed hex", d)
	}
}

func TestHammingDistanceRejectsUppercaseHex(t *testing.T) {
	// El hasher solo emite hex en minúsculas; mayúsculas no son canónicas.
	lower := strings.Repeat("0", HexLength-1) + "f"
	upper := strings.Repeat("0", HexLength-1) + "F"

	if d := HammingDistance(lower, upper); d != MaxDistance {
		t.Errorf("distance = %d, want MaxDistance for uppercase hex", d)
	}
	if d := HammingDistance(upper, lower); d != MaxDistance {
		t.Errorf("distance = %d, want MaxDistance for uppercase hex", d)
	}
	if AreSimilar(lower, upper, 256) {
		t.Error("AreSimilar should be false for non-canonical fingerprints")
	}
}

func TestAreSimilarSymmetric(t *testing.T) {
	a := strings.Repeat("0", HexLength)
	b := strings.Repeat("0", HexLength-4) + "000f"

	for _, threshold := range []int{0, 4, DefaultThreshold, 256} {
		if AreSimilar(a, b, threshold) != AreSimilar(b, a, threshold) {
			t.Errorf("AreSimilar not symmetric at threshold %d", threshold)
		}
	}

	if !AreSimilar(a, b, 4) {
		t.Error("distance 4 should be similar at threshold 4")
	}
	if AreSimilar(a, b, 3) {
		t.Error("distance 4 should not be similar at threshold 3")
	}
}
