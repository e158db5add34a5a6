// Package commands provides a registry for organizing bot commands.
// Commands are organized in subdirectories by category (utils, mod, etc.)
package commands

import (
	"github.com/PancyStudios/PancyGuardGo/internal/commands/mod"
	"github.com/PancyStudios/PancyGuardGo/internal/commands/utils"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
// Add your command registration calls here
func RegisterAll(client *discord.ExtendedClient) {
	// Utility commands
	utils.RegisterUtilsCommands(client)

	// Moderation commands (/mod blacklist, /mod config, /mod warns)
	mod.RegisterModCommands(client)

	// Add more categories here as needed:
	// RegisterFunCommands(client)
}
