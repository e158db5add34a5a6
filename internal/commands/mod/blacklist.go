// Package mod - /mod blacklist subcommands
package mod

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/errors"
	"github.com/PancyStudios/PancyGuardGo/pkg/imagehash"
	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// createBlacklistAddTextCommand creates the /mod blacklist add-text subcommand
func createBlacklistAddTextCommand() *discord.Command {
	return discord.NewCommand(
		"add-text",
		"Añade un texto exacto a la blacklist",
		"mod",
		blacklistAddTextHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "contenido",
			Description: "Texto a bloquear (coincidencia exacta, sin mayúsculas)",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "razon",
			Description: "Razón del bloqueo",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers).RequiresDatabase()
}

// createBlacklistAddURLCommand creates the /mod blacklist add-url subcommand
func createBlacklistAddURLCommand() *discord.Command {
	return discord.NewCommand(
		"add-url",
		"Añade una URL a la blacklist",
		"mod",
		blacklistAddURLHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "url",
			Description: "URL a bloquear (comparación literal, query incluida)",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "razon",
			Description: "Razón del bloqueo",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers).RequiresDatabase()
}

// createBlacklistAddImageCommand creates the /mod blacklist add-image subcommand
func createBlacklistAddImageCommand() *discord.Command {
	return discord.NewCommand(
		"add-image",
		"Añade una imagen a la blacklist por su huella perceptual",
		"mod",
		blacklistAddImageHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionAttachment,
			Name:        "imagen",
			Description: "Imagen a bloquear",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "razon",
			Description: "Razón del bloqueo",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers).RequiresDatabase()
}

// createBlacklistRemoveCommand creates the /mod blacklist remove subcommand
func createBlacklistRemoveCommand() *discord.Command {
	return discord.NewCommand(
		"remove",
		"Elimina una entrada de la blacklist por su ID",
		"mod",
		blacklistRemoveHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "id",
			Description: "ID de la entrada (visible con /mod blacklist list)",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers).RequiresDatabase()
}

// createBlacklistListCommand creates the /mod blacklist list subcommand
func createBlacklistListCommand() *discord.Command {
	return discord.NewCommand(
		"list",
		"Muestra las entradas de la blacklist del servidor",
		"mod",
		blacklistListHandler,
	).WithUserPermissions(discordgo.PermissionModerateMembers).RequiresDatabase()
}

// blacklistAddTextHandler handles /mod blacklist add-text
func blacklistAddTextHandler(ctx *discord.CommandContext) error {
	content := strings.ToLower(strings.TrimSpace(ctx.GetStringOption("contenido")))
	reason := ctx.GetStringOption("razon")

	if content == "" {
		return ctx.ReplyEphemeral("❌ Debes especificar el texto a bloquear.")
	}

	return insertEntry(ctx, models.BlacklistKindText, content, "", reason)
}

// blacklistAddURLHandler handles /mod blacklist add-url
func blacklistAddURLHandler(ctx *discord.CommandContext) error {
	rawURL := strings.ToLower(strings.TrimSpace(ctx.GetStringOption("url")))
	reason := ctx.GetStringOption("razon")

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ctx.ReplyEphemeral("❌ La URL debe empezar por `http://` o `https://`.")
	}

	return insertEntry(ctx, models.BlacklistKindURL, rawURL, "", reason)
}

// blacklistAddImageHandler handles /mod blacklist add-image. The image is
// fetched and fingerprinted before storing, so the reply is deferred.
func blacklistAddImageHandler(ctx *discord.CommandContext) error {
	attachment := resolveAttachmentOption(ctx, "imagen")
	if attachment == nil {
		return ctx.ReplyEphemeral("❌ Debes adjuntar una imagen.")
	}
	if !strings.HasPrefix(attachment.ContentType, "image/") {
		return ctx.ReplyEphemeral("❌ El archivo adjunto no es una imagen.")
	}

	reason := ctx.GetStringOption("razon")

	if err := ctx.Defer(); err != nil {
		return err
	}

	go func() {
		defer errors.RecoverMiddleware()()

		hashCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fingerprint, err := imageHasher.HashURL(hashCtx, attachment.URL)
		if err != nil {
			logger.Error(fmt.Sprintf("Error hasheando imagen para blacklist: %v", err), "CMD-Blacklist")
			ctx.EditReply("❌ No se pudo procesar la imagen. Comprueba que sea un PNG, JPEG, GIF o WebP válido.")
			return
		}

		entry := newEntry(ctx, models.BlacklistKindImage, fingerprint, reason)
		entry.SourceURL = attachment.URL

		if _, err := blacklistService.Insert(entry); err != nil {
			ctx.EditReply(insertErrorText(err))
			return
		}
		blacklistCache.Invalidate(ctx.Interaction.GuildID)

		ctx.EditReply(fmt.Sprintf("✅ Imagen añadida a la blacklist.\n**Huella:** `%s…`\n**ID:** `%s`", fingerprint[:16], entry.ID))
	}()

	return nil
}

// blacklistRemoveHandler handles /mod blacklist remove
func blacklistRemoveHandler(ctx *discord.CommandContext) error {
	id := strings.TrimSpace(ctx.GetStringOption("id"))
	if id == "" {
		return ctx.ReplyEphemeral("❌ Debes especificar el ID de la entrada.")
	}

	go func() {
		defer errors.RecoverMiddleware()()

		entry, err := blacklistService.Remove(ctx.Interaction.GuildID, id)
		if err != nil {
			logger.Error(fmt.Sprintf("Error eliminando entrada de blacklist: %v", err), "CMD-Blacklist")
			ctx.ReplyEphemeral("❌ Error al eliminar la entrada de la base de datos.")
			return
		}
		if entry == nil {
			ctx.ReplyEphemeral("❌ No existe ninguna entrada con ese ID en este servidor.")
			return
		}
		blacklistCache.Invalidate(ctx.Interaction.GuildID)

		ctx.Reply(fmt.Sprintf("🗑️ Entrada eliminada de la blacklist.\n**Tipo:** %s\n**Razón:** %s", entry.Kind, entry.Reason))
	}()

	return nil
}

// blacklistListHandler handles /mod blacklist list
func blacklistListHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		entries, err := blacklistService.ListByGuild(ctx.Interaction.GuildID)
		if err != nil {
			logger.Error(fmt.Sprintf("Error listando blacklist: %v", err), "CMD-Blacklist")
			ctx.ReplyEphemeral("❌ Error al consultar la base de datos.")
			return
		}

		if len(entries) == 0 {
			ctx.ReplyEphemeral("📋 La blacklist de este servidor está vacía.")
			return
		}

		var description string
		for _, entry := range entries {
			description += fmt.Sprintf("> **%s** `%s`\n> %s — activada %d veces\n> ID: `%s`\n\n",
				entry.Kind, displayContent(entry), entry.Reason, entry.TriggerCount, entry.ID)
		}

		embed := &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("📋 Blacklist del servidor (%d entradas)", len(entries)),
			Description: description,
			Color:       0x3498db,
			Footer: &discordgo.MessageEmbedFooter{
				Text: "💫 - Developed by PancyStudios",
			},
			Timestamp: time.Now().Format(time.RFC3339),
		}

		ctx.ReplyEphemeralEmbed(embed)
	}()

	return nil
}

// insertEntry stores a text or url entry and confirms to the moderator.
func insertEntry(ctx *discord.CommandContext, kind models.BlacklistKind, content, sourceURL, reason string) error {
	go func() {
		defer errors.RecoverMiddleware()()

		entry := newEntry(ctx, kind, content, reason)
		entry.SourceURL = sourceURL

		if _, err := blacklistService.Insert(entry); err != nil {
			ctx.ReplyEphemeral(insertErrorText(err))
			return
		}
		blacklistCache.Invalidate(ctx.Interaction.GuildID)

		ctx.Reply(fmt.Sprintf("✅ Entrada añadida a la blacklist.\n**Tipo:** %s\n**Razón:** %s\n**ID:** `%s`", kind, reason, entry.ID))
	}()

	return nil
}

// newEntry builds an entry owned by the interaction's guild.
func newEntry(ctx *discord.CommandContext, kind models.BlacklistKind, content, reason string) *models.BlacklistEntry {
	return &models.BlacklistEntry{
		ID:        uuid.New().String(),
		GuildID:   ctx.Interaction.GuildID,
		Kind:      kind,
		Content:   content,
		Reason:    reason,
		AddedBy:   ctx.User().ID,
		CreatedAt: time.Now(),
	}
}

// insertErrorText maps registry errors to the moderator-facing message.
func insertErrorText(err error) string {
	if err == database.ErrBlacklistEntryExists {
		return "❌ Ese contenido ya está en la blacklist de este servidor."
	}
	logger.Error(fmt.Sprintf("Error insertando entrada de blacklist: %v", err), "CMD-Blacklist")
	return "❌ Error al guardar la entrada en la base de datos."
}

// displayContent renders an entry's content for the list embed. Image
// fingerprints are abbreviated; everything else is shown truncated.
func displayContent(entry *models.BlacklistEntry) string {
	if entry.Kind == models.BlacklistKindImage && len(entry.Content) == imagehash.HexLength {
		return entry.Content[:16] + "…"
	}
	content := entry.Content
	if len(content) > 60 {
		content = content[:60] + "…"
	}
	return content
}

// resolveAttachmentOption extracts an attachment option from the
// interaction's resolved data.
func resolveAttachmentOption(ctx *discord.CommandContext, name string) *discordgo.MessageAttachment {
	opt := ctx.GetOption(name)
	if opt == nil {
		return nil
	}
	id, ok := opt.Value.(string)
	if !ok {
		return nil
	}
	resolved := ctx.Interaction.ApplicationCommandData().Resolved
	if resolved == nil || resolved.Attachments == nil {
		return nil
	}
	return resolved.Attachments[id]
}
