// Package mod - /mod config command
package mod

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/config"
	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/errors"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// createConfigCommand creates the /mod config subcommand
func createConfigCommand() *discord.Command {
	return discord.NewCommand(
		"config",
		"Configura la moderación automática del servidor",
		"mod",
		configHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionChannel,
			Name:        "canal-logs",
			Description: "Canal donde publicar los reportes de moderación",
			Required:    false,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "timeout-minutos",
			Description: "Duración del timeout aplicado a los infractores",
			Required:    false,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "rol-exento",
			Description: "Rol cuyos miembros quedan fuera de la moderación automática",
			Required:    false,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "activado",
			Description: "Activa o desactiva la moderación automática",
			Required:    false,
		},
	).WithUserPermissions(discordgo.PermissionAdministrator).RequiresDatabase()
}

// configHandler handles the /mod config command
func configHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		guildID := ctx.Interaction.GuildID

		settings, err := database.GetGuildModSettings(guildID)
		if err != nil {
			logger.Error(fmt.Sprintf("Error leyendo configuración de guild %s: %v", guildID, err), "CMD-Config")
			ctx.ReplyEphemeral("❌ Error al consultar la configuración del servidor.")
			return
		}
		if settings == nil {
			settings = &models.GuildModSettings{
				GuildID:        guildID,
				TimeoutMinutes: config.Get().ModTimeoutMinutes,
				Enabled:        true,
			}
		}

		changed := false

		if channel := ctx.GetChannelOption("canal-logs"); channel != nil {
			settings.LogChannelID = channel.ID
			changed = true
		}

		if minutes := ctx.GetIntOption("timeout-minutos"); minutes > 0 {
			settings.TimeoutMinutes = minutes
			changed = true
		}

		if role := ctx.GetRoleOption("rol-exento"); role != nil {
			settings.ExemptRoleIDs = appendRole(settings.ExemptRoleIDs, role.ID)
			changed = true
		}

		if opt := ctx.GetOption("activado"); opt != nil {
			settings.Enabled = opt.BoolValue()
			changed = true
		}

		if changed {
			if err := database.SaveGuildModSettings(settings); err != nil {
				logger.Error(fmt.Sprintf("Error guardando configuración de guild %s: %v", guildID, err), "CMD-Config")
				ctx.ReplyEphemeral("❌ Error al guardar la configuración.")
				return
			}
		}

		ctx.ReplyEphemeralEmbed(settingsEmbed(settings))
	}()

	return nil
}

// appendRole adds the role once; repeating the command with the same role
// is a no-op instead of a duplicate.
func appendRole(roles []string, roleID string) []string {
	for _, id := range roles {
		if id == roleID {
			return roles
		}
	}
	return append(roles, roleID)
}

// settingsEmbed renders the current configuration.
func settingsEmbed(settings *models.GuildModSettings) *discordgo.MessageEmbed {
	state := "🔴 Desactivada"
	if settings.Enabled {
		state = "🟢 Activada"
	}

	logChannel := "Sin configurar"
	if settings.LogChannelID != "" {
		logChannel = fmt.Sprintf("<#%s>", settings.LogChannelID)
	}

	exempt := "Ninguno"
	if len(settings.ExemptRoleIDs) > 0 {
		exempt = ""
		for _, id := range settings.ExemptRoleIDs {
			exempt += fmt.Sprintf("<@&%s> ", id)
		}
	}

	return &discordgo.MessageEmbed{
		Title: "⚙️ Configuración de moderación automática",
		Color: 0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Estado", Value: state, Inline: true},
			{Name: "Timeout", Value: fmt.Sprintf("%d minutos", settings.TimeoutMinutes), Inline: true},
			{Name: "Canal de logs", Value: logChannel, Inline: true},
			{Name: "Roles exentos", Value: exempt},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "💫 - Developed by PancyStudios",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
