// Package events provides event handlers for message events
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/errors"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

// inspectTimeout bounds one full pipeline pass, image fetches included.
const inspectTimeout = 30 * time.Second

var (
	modPipeline *moderation.Pipeline
	modEnforcer *moderation.Enforcer
)

// SetupModeration injects the detection pipeline and enforcement workflow
// used by the message handlers. Must be called before RegisterAll.
func SetupModeration(pipeline *moderation.Pipeline, enforcer *moderation.Enforcer) {
	modPipeline = pipeline
	modEnforcer = enforcer
}

// RegisterMessageEvents registers all message-related event handlers
func RegisterMessageEvents(client *discord.ExtendedClient) {
	client.Session.AddHandler(onMessageCreate)
	client.Session.AddHandler(onMessageUpdate)
}

// onMessageCreate is called when a new message is created
func onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignorar mensajes de bots
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		return
	}

	go inspectMessage(s, m.Message)
}

// onMessageUpdate is called when a message is edited. Edited content goes
// through the same pipeline: editing in banned content after the fact is a
// common evasion.
func onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		return
	}

	go inspectMessage(s, m.Message)
}

// inspectMessage runs one message through detection and, on a violation,
// enforcement. Runs on its own goroutine so a slow image fetch never blocks
// the gateway event loop.
func inspectMessage(s *discordgo.Session, m *discordgo.Message) {
	defer errors.RecoverMiddleware()()

	if modPipeline == nil || modEnforcer == nil {
		return
	}

	// Guilds con la moderación desactivada se saltan por completo.
	if settings, err := database.GetGuildModSettings(m.GuildID); err == nil && settings != nil && !settings.Enabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inspectTimeout)
	defer cancel()

	msg := toModerationMessage(m)
	violation, err := modPipeline.Inspect(ctx, msg)
	if err != nil {
		logger.Error(fmt.Sprintf("Error inspeccionando mensaje %s: %v", m.ID, err), "AutoMod")
		return
	}
	if violation == nil {
		return
	}

	logger.Info(fmt.Sprintf("🚫 Violación detectada: guild=%s user=%s tipo=%s entrada=%s",
		msg.GuildID, msg.AuthorID, violation.Kind, violation.Entry.ID), "AutoMod")

	result := modEnforcer.Execute(ctx, msg, violation)
	for _, step := range result.Failed() {
		logger.Warn(fmt.Sprintf("Paso '%s' falló para el mensaje %s: %v", step.Step, m.ID, step.Err), "AutoMod")
	}
}

// toModerationMessage converts the gateway message into the pipeline's
// transport-agnostic shape.
func toModerationMessage(m *discordgo.Message) *moderation.Message {
	msg := &moderation.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		AuthorID:  m.Author.ID,
		Content:   m.Content,
	}
	msg.AuthorName = m.Author.Username

	for _, att := range m.Attachments {
		if att == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, moderation.Attachment{
			URL:         att.URL,
			ContentType: att.ContentType,
		})
	}
	return msg
}
