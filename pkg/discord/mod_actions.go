// Package discord provides the Discord-side implementation of the
// auto-moderation enforcement actions.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/config"
	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/imagehash"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/moderation"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// ModActions implements moderation.Actions over the Discord session.
type ModActions struct {
	client *ExtendedClient
}

// NewModActions creates the adapter bound to the bot client.
func NewModActions(client *ExtendedClient) *ModActions {
	return &ModActions{client: client}
}

// DeleteMessage removes the offending message from its channel.
func (a *ModActions) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return a.client.Session.ChannelMessageDelete(channelID, messageID)
}

// TimeoutUser applies a communication timeout using the guild's configured
// duration, falling back to the process default when unconfigured.
func (a *ModActions) TimeoutUser(_ context.Context, guildID, userID string) error {
	minutes := config.Get().ModTimeoutMinutes
	if settings, err := database.GetGuildModSettings(guildID); err == nil && settings != nil && settings.TimeoutMinutes > 0 {
		minutes = settings.TimeoutMinutes
	}

	until := time.Now().Add(time.Duration(minutes) * time.Minute)
	return a.client.Session.GuildMemberTimeout(guildID, userID, &until)
}

// SendDirectMessage opens (or reuses) the DM channel and sends the notice.
func (a *ModActions) SendDirectMessage(_ context.Context, userID, content string) error {
	channel, err := a.client.Session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = a.client.Session.ChannelMessageSend(channel.ID, content)
	return err
}

// PostReport sends the violation embed to the guild's moderation log
// channel. A guild without a configured channel gets no report.
func (a *ModActions) PostReport(_ context.Context, report *moderation.Report) error {
	settings, err := database.GetGuildModSettings(report.GuildID)
	if err != nil {
		return err
	}
	if settings == nil || settings.LogChannelID == "" {
		logger.Debug("Guild sin canal de logs configurado: "+report.GuildID, "ModActions")
		return nil
	}

	_, err = a.client.Session.ChannelMessageSendEmbed(settings.LogChannelID, reportEmbed(report))
	return err
}

// reportEmbed renders the violation report for the moderation log channel.
func reportEmbed(report *moderation.Report) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🛡️ Contenido bloqueado",
		Color: 0xED4245,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Usuario", Value: fmt.Sprintf("<@%s> (`%s`)", report.AuthorID, report.AuthorName), Inline: true},
			{Name: "Canal", Value: fmt.Sprintf("<#%s>", report.ChannelID), Inline: true},
			{Name: "Tipo", Value: string(report.Kind), Inline: true},
			{Name: "Razón", Value: report.Reason},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "PancyGuard AutoMod • entrada " + report.EntryID},
		Timestamp: report.Timestamp.Format(time.RFC3339),
	}
	if report.MatchedContent != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Contenido detectado",
			Value: "`" + matchedContentDisplay(report) + "`",
		})
	}
	if report.MessagePreview != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Mensaje",
			Value: "```" + report.MessagePreview + "```",
		})
	}
	return embed
}

// matchedContentDisplay abbreviates image fingerprints to their first
// chunk; the full hash is noise for a moderator reading the log.
func matchedContentDisplay(report *moderation.Report) string {
	if report.Kind == models.BlacklistKindImage && len(report.MatchedContent) == imagehash.HexLength {
		return report.MatchedContent[:16] + "…"
	}
	return report.MatchedContent
}

// IsExempt reports whether the author is outside auto-moderation scope:
// administrators and members holding one of the guild's exempt roles.
func (a *ModActions) IsExempt(msg *moderation.Message) bool {
	member, err := a.client.Session.State.Member(msg.GuildID, msg.AuthorID)
	if err != nil || member == nil {
		member, err = a.client.Session.GuildMember(msg.GuildID, msg.AuthorID)
		if err != nil || member == nil {
			return false
		}
	}

	perms, err := a.client.Session.State.MessagePermissions(&discordgo.Message{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Author:    &discordgo.User{ID: msg.AuthorID},
		Member:    member,
	})
	if err == nil && perms&discordgo.PermissionAdministrator != 0 {
		return true
	}

	settings, err := database.GetGuildModSettings(msg.GuildID)
	if err != nil || settings == nil || len(settings.ExemptRoleIDs) == 0 {
		return false
	}

	exempt := make(map[string]struct{}, len(settings.ExemptRoleIDs))
	for _, id := range settings.ExemptRoleIDs {
		exempt[id] = struct{}{}
	}
	for _, roleID := range member.Roles {
		if _, ok := exempt[roleID]; ok {
			return true
		}
	}
	return false
}
