// Package web provides API routes for the web server.
package web

import (
	"net/http"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/database"
	"github.com/PancyStudios/PancyGuardGo/pkg/discord"
	"github.com/gin-gonic/gin"
)

var (
	blacklistService *database.BlacklistService
	blacklistCache   *database.BlacklistCache
)

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, service *database.BlacklistService, cache *database.BlacklistCache) {
	blacklistService = service
	blacklistCache = cache

	api := s.Group("/api")
	{
		api.GET("/status", statusHandler)
		api.GET("/health", healthHandler)
		api.GET("/stats", statsHandler)
		api.GET("/guilds/:id/blacklist", guildBlacklistHandler)
	}

	s.GET("/ws/modlog", modlogWebsocketHandler)
}

// statusHandler returns the bot and database status
func statusHandler(c *gin.Context) {
	db := database.Get()
	client := discord.Get()

	dbStatus, dbOnline := db.GetStatus()

	botOnline := false
	if client != nil {
		botOnline = client.IsReady()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": botOnline,
		},
	})
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "PancyGuard is running",
	})
}

// statsHandler returns aggregate moderation stats
func statsHandler(c *gin.Context) {
	client := discord.Get()

	if client == nil || !client.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Bot Offline",
			"message": "El bot no está disponible en este momento.",
		})
		return
	}

	entries := int64(0)
	if blacklistService != nil {
		if count, err := blacklistService.Count(); err == nil {
			entries = count
		}
	}

	cachedGuilds := 0
	if blacklistCache != nil {
		cachedGuilds = blacklistCache.Size()
	}

	c.JSON(http.StatusOK, gin.H{
		"guilds":           client.GuildCount(),
		"blacklistEntries": entries,
		"cachedGuilds":     cachedGuilds,
		"uptimeSeconds":    int64(time.Since(client.StartTime).Seconds()),
	})
}

// guildBlacklistHandler returns the blacklist entries of one guild
func guildBlacklistHandler(c *gin.Context) {
	if blacklistService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Service Unavailable",
			"message": "El registro de blacklist no está disponible.",
		})
		return
	}

	guildID := c.Param("id")
	entries, err := blacklistService.ListByGuild(guildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "No se pudieron obtener las entradas de la blacklist.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"guildId": guildID,
		"count":   len(entries),
		"entries": entries,
	})
}
