package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

// fakeSource serves a fixed snapshot, or an error.
type fakeSource struct {
	snap *database.BlacklistSnapshot
	err  error
}

func (s *fakeSource) Get(string) (*database.BlacklistSnapshot, error) {
	return s.snap, s.err
}

// fakeHasher resolves URLs to canned fingerprints or failures.
type fakeHasher struct {
	hashes map[string]string
	errs   map[string]error
	calls  []string
}

func (h *fakeHasher) HashURL(_ context.Context, url string) (string, error) {
	h.calls = append(h.calls, url)
	if err, ok := h.errs[url]; ok {
		return "", err
	}
	if fp, ok := h.hashes[url]; ok {
		return fp, nil
	}
	return strings.Repeat("e", 64), nil
}

func blEntry(kind models.BlacklistKind, content, reason string) *models.BlacklistEntry {
	return &models.BlacklistEntry{
		ID:        string(kind) + ":" + content,
		GuildID:   "g1",
		Kind:      kind,
		Content:   content,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}

func snapshotWith(entries ...*models.BlacklistEntry) *database.BlacklistSnapshot {
	snap := &database.BlacklistSnapshot{FetchedAt: time.Now()}
	for _, e := range entries {
		switch e.Kind {
		case models.BlacklistKindText:
			snap.Text = append(snap.Text, e)
		case models.BlacklistKindURL:
			snap.URL = append(snap.URL, e)
		case models.BlacklistKindImage:
			snap.Image = append(snap.Image, e)
		}
	}
	return snap
}

const badFingerprint = "00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff"

func TestTextMatchIsCaseInsensitiveAndExact(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(blEntry(models.BlacklistKindText, "raid now", "raid spam"))}
	p := NewPipeline(source, &fakeHasher{}, 0)

	v, err := p.Inspect(context.Background(), &Message{GuildID: "g1", Content: "Raid Now"})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if v == nil || v.Kind != models.BlacklistKindText {
		t.Fatalf("expected text violation, got %+v", v)
	}

	// Subcadena no es coincidencia.
	v, err = p.Inspect(context.Background(), &Message{GuildID: "g1", Content: "about raid now please"})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if v != nil {
		t.Errorf("substring should not match, got %+v", v)
	}
}

func TestURLMatchIsStrict(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(blEntry(models.BlacklistKindURL, "http://bad.example/x", "phishing"))}
	p := NewPipeline(source, &fakeHasher{}, 0)

	v, _ := p.Inspect(context.Background(), &Message{GuildID: "g1", Content: "mira esto http://BAD.example/x hoy"})
	if v == nil || v.Kind != models.BlacklistKindURL {
		t.Fatalf("expected url violation, got %+v", v)
	}
	if v.MatchedContent != "http://bad.example/x" {
		t.Errorf("MatchedContent = %q", v.MatchedContent)
	}

	// La query string forma parte de la comparación: sin normalización.
	v, _ = p.Inspect(context.Background(), &Message{GuildID: "g1", Content: "http://bad.example/x?ref=1"})
	if v != nil {
		t.Errorf("query-string variant should not match, got %+v", v)
	}
}

func TestURLStageSkipsDirectImageURLs(t *testing.T) {
	// La URL de imagen directa está en la blacklist de URLs, pero ese stage
	// la ignora: las imágenes se comparan por hash, no literal.
	source := &fakeSource{snap: snapshotWith(blEntry(models.BlacklistKindURL, "http://cdn.example/meme.png", "meme"))}
	p := NewPipeline(source, &fakeHasher{}, 0)

	v, _ := p.Inspect(context.Background(), &Message{GuildID: "g1", Content: "http://cdn.example/meme.png"})
	if v != nil {
		t.Errorf("direct image URL must not literal-match url entries, got %+v", v)
	}
}

func TestAttachmentImageMatch(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(blEntry(models.BlacklistKindImage, badFingerprint, "imagen prohibida"))}
	hasher := &fakeHasher{hashes: map[string]string{
		// Re-encodeado: difiere en pocos bits del fingerprint registrado.
		"http://cdn.example/a.jpg": badFingerprint[:63] + "e",
	}}
	p := NewPipeline(source, hasher, 0)

	msg := &Message{
		GuildID:     "g1",
		Attachments: []Attachment{{URL: "http://cdn.example/a.jpg", ContentType: "image/jpeg"}},
	}
	v, err := p.Inspect(context.Background(), msg)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if v == nil || v.Kind != models.BlacklistKindImage {
		t.Fatalf("expected image violation, got %+v", v)
	}

	// Imagen sin relación: fingerprint lejano.
	hasher.hashes["http://cdn.example/a.jpg"] = strings.Repeat("a", 64)
	if v, _ := p.Inspect(context.Background(), msg); v != nil {
		t.Errorf("unrelated image should not match, got %+v", v)
	}
}

func TestNonImageAttachmentsAreIgnored(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(blEntry(models.BlacklistKindImage, badFingerprint, "x"))}
	hasher := &fakeHasher{}
	p := NewPipeline(source, hasher, 0)

	msg := &Message{
		GuildID:     "g1",
		Attachments: []Attachment{{URL: "http://cdn.example/doc.pdf", ContentType: "application/pdf"}},
	}
	if v, _ := p.Inspect(context.Background(), msg); v != nil {
		t.Errorf("non-image attachment matched: %+v", v)
	}
	if len(hasher.calls) != 0 {
		t.Errorf("hasher called for non-image attachment: %v", hasher.calls)
	}
}

func TestEmbeddedImageURLMatch(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(blEntry(models.BlacklistKindImage, badFingerprint, "x"))}
	hasher := &fakeHasher{hashes: map[string]string{
		"http://cdn.example/meme.png?v=2": badFingerprint,
	}}
	p := NewPipeline(source, hasher, 0)

	// Extensión de imagen con query string: sigue siendo imagen directa.
	msg := &Message{GuildID: "g1", Content: "jaja <http://cdn.example/meme.png?v=2>"}
	v, _ := p.Inspect(context.Background(), msg)
	if v == nil || v.Kind != models.BlacklistKindImage {
		t.Fatalf("expected image violation from embedded url, got %+v", v)
	}
}

func TestStageOrderTextBeforeURLBeforeImage(t *testing.T) {
	textEntry := blEntry(models.BlacklistKindText, "http://bad.example/x", "texto")
	urlEntry := blEntry(models.BlacklistKindURL, "http://bad.example/x", "url")
	source := &fakeSource{snap: snapshotWith(textEntry, urlEntry)}
	hasher := &fakeHasher{}
	p := NewPipeline(source, hasher, 0)

	// El mensaje completo coincide con la entrada de texto Y el token con la
	// de URL: gana el stage de texto.
	v, _ := p.Inspect(context.Background(), &Message{GuildID: "g1", Content: "http://bad.example/x"})
	if v == nil || v.Kind != models.BlacklistKindText {
		t.Fatalf("text stage should win, got %+v", v)
	}

	// Con URL y también un adjunto que coincidiría por hash: gana la URL sin
	// llegar a hashear nada.
	urlOnly := &fakeSource{snap: snapshotWith(urlEntry, blEntry(models.BlacklistKindImage, badFingerprint, "img"))}
	hasher2 := &fakeHasher{hashes: map[string]string{"http://cdn.example/a.png": badFingerprint}}
	p2 := NewPipeline(urlOnly, hasher2, 0)

	msg := &Message{
		GuildID:     "g1",
		Content:     "mira http://bad.example/x",
		Attachments: []Attachment{{URL: "http://cdn.example/a.png", ContentType: "image/png"}},
	}
	v, _ = p2.Inspect(context.Background(), msg)
	if v == nil || v.Kind != models.BlacklistKindURL {
		t.Fatalf("url stage should win over attachments, got %+v", v)
	}
	if len(hasher2.calls) != 0 {
		t.Errorf("short-circuit failed, hasher was called: %v", hasher2.calls)
	}
}

func TestHashFailureSkipsItemNotMessage(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(blEntry(models.BlacklistKindImage, badFingerprint, "x"))}
	hasher := &fakeHasher{
		errs:   map[string]error{"http://cdn.example/broken.png": errors.New("connection reset")},
		hashes: map[string]string{"http://cdn.example/ok.png": badFingerprint},
	}
	p := NewPipeline(source, hasher, 0)

	// Un solo adjunto roto: sin violación y sin error.
	msg := &Message{
		GuildID:     "g1",
		Attachments: []Attachment{{URL: "http://cdn.example/broken.png", ContentType: "image/png"}},
	}
	v, err := p.Inspect(context.Background(), msg)
	if err != nil {
		t.Fatalf("hash failure must not fail the pipeline: %v", err)
	}
	if v != nil {
		t.Errorf("broken attachment produced a violation: %+v", v)
	}

	// El adjunto roto no impide evaluar el segundo.
	msg.Attachments = append(msg.Attachments, Attachment{URL: "http://cdn.example/ok.png", ContentType: "image/png"})
	v, err = p.Inspect(context.Background(), msg)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if v == nil || v.Kind != models.BlacklistKindImage {
		t.Fatalf("second attachment should still match, got %+v", v)
	}
}

func TestSnapshotErrorPropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("store unavailable")}
	p := NewPipeline(source, &fakeHasher{}, 0)

	if _, err := p.Inspect(context.Background(), &Message{GuildID: "g1", Content: "hola"}); err == nil {
		t.Error("expected error when the snapshot source fails")
	}
}

func TestExtractURLTokens(t *testing.T) {
	tokens := extractURLTokens("hola <https://a.example/x> y http://b.example mundo ftp://no")
	if len(tokens) != 2 {
		t.Fatalf("tokens = %v, want 2", tokens)
	}
	if tokens[0] != "https://a.example/x" || tokens[1] != "http://b.example" {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestIsDirectImageURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"http://cdn.example/a.png", true},
		{"http://cdn.example/a.JPG", true},
		{"http://cdn.example/a.jpeg?width=300", true},
		{"http://cdn.example/a.webp#frag", true},
		{"http://cdn.example/page", false},
		{"http://cdn.example/a.png.html", false},
	}
	for _, c := range cases {
		if got := isDirectImageURL(c.url); got != c.want {
			t.Errorf("isDirectImageURL(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}
