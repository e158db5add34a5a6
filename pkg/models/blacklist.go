package models

import "time"

// BlacklistKind represents the kind of content a blacklist entry matches against
type BlacklistKind string

const (
	BlacklistKindText  BlacklistKind = "text"
	BlacklistKindURL   BlacklistKind = "url"
	BlacklistKindImage BlacklistKind = "image"
)

// BlacklistEntry represents one forbidden item scoped to a guild.
// Content holds the lower-cased literal for text/url entries and the
// 64-character hex perceptual fingerprint for image entries.
// (guildId, kind, content) is unique within a guild, enforced by a mongo index.
type BlacklistEntry struct {
	ID              string        `bson:"_id" json:"id"`                                    // UUID, estable durante la vida de la entrada
	GuildID         string        `bson:"guildId" json:"guildId"`                           // Servidor dueño de la entrada
	Kind            BlacklistKind `bson:"kind" json:"kind"`                                 // "text", "url" o "image"
	Content         string        `bson:"content" json:"content"`                           // Payload canónico a comparar
	SourceURL       string        `bson:"sourceUrl,omitempty" json:"sourceUrl,omitempty"`   // URL original de la imagen (solo auditoría)
	Reason          string        `bson:"reason" json:"reason"`                             // Razón mostrada a moderadores y al usuario
	AddedBy         string        `bson:"addedBy" json:"addedBy"`                           // ID del moderador que la creó
	TriggerCount    int64         `bson:"triggerCount" json:"triggerCount"`                 // Coincidencias confirmadas
	LastTriggeredAt *time.Time    `bson:"lastTriggeredAt,omitempty" json:"lastTriggeredAt"` // Última coincidencia
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`                       // Cuándo se creó
}
