// Package mod provides moderation commands organized as subcommands under /mod
// Each command is in its own file for better organization
package mod

import (
	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/PancyStudios/PancyGuardGo/pkg/moderation"
)

var (
	blacklistService *database.BlacklistService
	blacklistCache   *database.BlacklistCache
	imageHasher      moderation.ImageHasher
)

// Setup injects the blacklist registry, its cache and the image hasher used
// by the /mod blacklist subcommands. Must be called before RegisterModCommands.
func Setup(service *database.BlacklistService, cache *database.BlacklistCache, hasher moderation.ImageHasher) {
	blacklistService = service
	blacklistCache = cache
	imageHasher = hasher
}

// RegisterModCommands registers all moderation commands as /mod subcommands
func RegisterModCommands(client *discord.ExtendedClient) {
	// Create individual subcommands (each can be in its own file)
	configCmd := createConfigCommand()
	warningsCmd := createWarningsCommand()

	// Build the /mod command group with its direct subcommands
	modGroup := client.CommandHandler.BuildCommandGroup(
		"mod",
		"Comandos de moderación",
		configCmd,
		warningsCmd,
	)

	// The blacklist subcommands live under /mod blacklist ...
	blacklistGroup := client.CommandHandler.BuildSubcommandGroup(
		"mod",
		"blacklist",
		"Gestiona la blacklist de contenido del servidor",
		createBlacklistAddTextCommand(),
		createBlacklistAddURLCommand(),
		createBlacklistAddImageCommand(),
		createBlacklistRemoveCommand(),
		createBlacklistListCommand(),
	)
	modGroup.Options = append(modGroup.Options, blacklistGroup)

	// Register the command group
	client.CommandHandler.AddGlobalCommand(modGroup)
}
