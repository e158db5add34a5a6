package models

// GuildModSettings holds the per-guild auto-moderation configuration.
// A guild without a document uses the process-wide defaults from config.
type GuildModSettings struct {
	GuildID        string   `bson:"guildId" json:"guildId"`
	LogChannelID   string   `bson:"logChannelId" json:"logChannelId"`     // Canal de reportes de moderación
	TimeoutMinutes int64    `bson:"timeoutMinutes" json:"timeoutMinutes"` // Duración del timeout aplicado
	ExemptRoleIDs  []string `bson:"exemptRoleIds" json:"exemptRoleIds"`   // Roles de moderador de confianza (exentos)
	Enabled        bool     `bson:"enabled" json:"enabled"`
}
