package database

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// GetGuildModSettings returns the guild's moderation settings, or nil when
// the guild has never been configured (callers apply process defaults).
func GetGuildModSettings(guildID string) (*models.GuildModSettings, error) {
	if GlobalSettingsDM == nil {
		return nil, fmt.Errorf("settings data manager not initialized")
	}
	return GlobalSettingsDM.Get(bson.M{"guildId": guildID})
}

// SaveGuildModSettings upserts the guild's moderation settings.
func SaveGuildModSettings(settings *models.GuildModSettings) error {
	if GlobalSettingsDM == nil {
		return fmt.Errorf("settings data manager not initialized")
	}
	_, err := GlobalSettingsDM.Set(bson.M{"guildId": settings.GuildID}, settings)
	return err
}

// AddAutoModWarn appends an auto-moderation warning to the user's warns
// document, creating it when absent.
func AddAutoModWarn(guildID, userID, warnID, reason string) error {
	if GlobalWarnDM == nil {
		return fmt.Errorf("warn data manager not initialized")
	}

	query := bson.M{"guildId": guildID, "userId": userID}
	doc, err := GlobalWarnDM.Get(query)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &models.WarnsDocument{GuildID: guildID, UserID: userID}
	}

	doc.Warns = append(doc.Warns, models.Warn{
		ID:        warnID,
		Reason:    reason,
		Moderator: "AutoMod",
		Timestamp: time.Now().Unix(),
	})

	if _, err := GlobalWarnDM.Set(query, doc); err != nil {
		return err
	}

	logger.Debug(fmt.Sprintf("Advertencia automática registrada: guild=%s user=%s", guildID, userID), "AutoMod")
	return nil
}
