package moderation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/imagehash"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

// ImageHasher fingerprints a remote image. Satisfied by *imagehash.Hasher.
type ImageHasher interface {
	HashURL(ctx context.Context, url string) (string, error)
}

// SnapshotSource provides the partitioned blacklist for a guild. Satisfied
// by *database.BlacklistCache.
type SnapshotSource interface {
	Get(guildID string) (*database.BlacklistSnapshot, error)
}

// stageFunc is one ordered detection stage. Returns nil when the stage
// found no violation.
type stageFunc func(ctx context.Context, msg *Message, snap *database.BlacklistSnapshot) *Violation

// Pipeline decides whether a message violates the blacklist. It has no side
// effects: stages read the snapshot and at most fetch images for hashing.
type Pipeline struct {
	source    SnapshotSource
	hasher    ImageHasher
	threshold int
	stages    []stageFunc
}

// NewPipeline builds the pipeline with its fixed stage order: exact text,
// literal URL, attached image, embedded image URL. Cheapest checks run
// first; the first stage that matches wins.
func NewPipeline(source SnapshotSource, hasher ImageHasher, threshold int) *Pipeline {
	if threshold <= 0 {
		threshold = imagehash.DefaultThreshold
	}
	p := &Pipeline{
		source:    source,
		hasher:    hasher,
		threshold: threshold,
	}
	p.stages = []stageFunc{
		p.checkText,
		p.checkURLs,
		p.checkAttachments,
		p.checkEmbeddedImageURLs,
	}
	return p
}

// Inspect runs the ordered stages and returns the first violation found, or
// nil when the message is clean. The error is only non-nil when the
// blacklist snapshot itself could not be obtained.
func (p *Pipeline) Inspect(ctx context.Context, msg *Message) (*Violation, error) {
	snap, err := p.source.Get(msg.GuildID)
	if err != nil {
		return nil, fmt.Errorf("obteniendo snapshot de blacklist: %w", err)
	}
	if snap == nil || snap.Len() == 0 {
		return nil, nil
	}

	for _, stage := range p.stages {
		if v := stage(ctx, msg, snap); v != nil {
			return v, nil
		}
	}
	return nil, nil
}

// checkText compares the lower-cased message text for exact equality (not
// substring) against each text entry.
func (p *Pipeline) checkText(_ context.Context, msg *Message, snap *database.BlacklistSnapshot) *Violation {
	if len(snap.Text) == 0 || msg.Content == "" {
		return nil
	}

	lowered := strings.ToLower(msg.Content)
	for _, entry := range snap.Text {
		if lowered == entry.Content {
			return &Violation{Kind: models.BlacklistKindText, Entry: entry, MatchedContent: lowered}
		}
	}
	return nil
}

// checkURLs compares each non-image URL token against the url entries.
// Direct image URLs are skipped here on purpose: they are matched by hash
// in checkEmbeddedImageURLs instead of by literal comparison.
func (p *Pipeline) checkURLs(_ context.Context, msg *Message, snap *database.BlacklistSnapshot) *Violation {
	if len(snap.URL) == 0 {
		return nil
	}

	for _, token := range extractURLTokens(msg.Content) {
		if isDirectImageURL(token) {
			continue
		}
		lowered := strings.ToLower(token)
		for _, entry := range snap.URL {
			// Comparación exacta, incluida la query string: sin normalizar.
			if lowered == entry.Content {
				return &Violation{Kind: models.BlacklistKindURL, Entry: entry, MatchedContent: lowered}
			}
		}
	}
	return nil
}

// checkAttachments hashes each image attachment and compares it against the
// image entries. A fetch or decode failure on one attachment only skips
// that attachment.
func (p *Pipeline) checkAttachments(ctx context.Context, msg *Message, snap *database.BlacklistSnapshot) *Violation {
	if len(snap.Image) == 0 {
		return nil
	}

	for _, att := range msg.Attachments {
		if !strings.HasPrefix(att.ContentType, "image/") {
			continue
		}
		if v := p.matchImageURL(ctx, att.URL, snap); v != nil {
			return v
		}
	}
	return nil
}

// checkEmbeddedImageURLs hashes direct image URLs found in the message text
// and compares them exactly like attachments.
func (p *Pipeline) checkEmbeddedImageURLs(ctx context.Context, msg *Message, snap *database.BlacklistSnapshot) *Violation {
	if len(snap.Image) == 0 {
		return nil
	}

	for _, token := range extractURLTokens(msg.Content) {
		if !isDirectImageURL(token) {
			continue
		}
		if v := p.matchImageURL(ctx, token, snap); v != nil {
			return v
		}
	}
	return nil
}

// matchImageURL fingerprints one image URL and returns a violation when any
// image entry is within the similarity threshold. Hash failures count as
// "no match for this item", never as a pipeline failure.
func (p *Pipeline) matchImageURL(ctx context.Context, imageURL string, snap *database.BlacklistSnapshot) *Violation {
	fingerprint, err := p.hasher.HashURL(ctx, imageURL)
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo hashear la imagen %s: %v", imageURL, err), "Pipeline")
		return nil
	}

	for _, entry := range snap.Image {
		if imagehash.AreSimilar(fingerprint, entry.Content, p.threshold) {
			return &Violation{Kind: models.BlacklistKindImage, Entry: entry, MatchedContent: fingerprint}
		}
	}
	return nil
}

// imageExtensions are the suffixes that mark a URL as a direct image link.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// extractURLTokens scans the text for http(s) tokens. Permissive by design:
// whitespace-split tokens, with Discord's <...> embed suppressors stripped.
func extractURLTokens(content string) []string {
	if content == "" {
		return nil
	}

	var tokens []string
	for _, field := range strings.Fields(content) {
		token := strings.TrimPrefix(field, "<")
		token = strings.TrimSuffix(token, ">")
		if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// isDirectImageURL reports whether the token points straight at an image
// file, judged by path extension with the query string ignored.
func isDirectImageURL(token string) bool {
	path := token
	if parsed, err := url.Parse(token); err == nil {
		path = parsed.Path
	} else if i := strings.IndexAny(token, "?#"); i >= 0 {
		path = token[:i]
	}

	path = strings.ToLower(path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
