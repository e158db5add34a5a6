// Package moderation implements the auto-moderation core: an ordered
// detection pipeline that checks incoming messages against a guild's
// blacklist snapshot, and the enforcement workflow that reacts to a match.
// The package is platform-agnostic: Discord specifics live behind the
// Actions interface implemented in pkg/discord.
package moderation

import "github.com/PancyStudios/PancyGuardGo/pkg/models"

// Attachment is one file attached to a message, as delivered by the gateway.
type Attachment struct {
	URL         string
	ContentType string
}

// Message is the platform-neutral view of an incoming chat message.
type Message struct {
	GuildID     string
	ChannelID   string
	MessageID   string
	AuthorID    string
	AuthorName  string
	Content     string
	Attachments []Attachment
}

// Violation is the pipeline's verdict: the message matched a blacklist
// entry. MatchedContent is what actually matched: the message text, the
// offending URL token, or the computed image fingerprint.
type Violation struct {
	Kind           models.BlacklistKind
	Entry          *models.BlacklistEntry
	MatchedContent string
}
