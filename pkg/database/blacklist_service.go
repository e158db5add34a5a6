// Package database also hosts the blacklist registry: durable CRUD over
// guild-scoped blacklist entries plus trigger bookkeeping.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrBlacklistEntryExists   = errors.New("la entrada ya existe en la blacklist")
	ErrBlacklistEntryNotFound = errors.New("entrada de blacklist no encontrada")
)

// BlacklistService is the durable registry of blacklist entries. It talks to
// the collection directly instead of going through DataManager: it needs an
// atomic $inc for trigger counts and typed duplicate-key handling, neither of
// which fit the generic $set-based manager.
type BlacklistService struct {
	dbInstance *Database
}

// NewBlacklistService creates the registry over the "blacklist" collection.
func NewBlacklistService(db *Database) *BlacklistService {
	return &BlacklistService{dbInstance: db}
}

// coll resolves the collection on every call, so a database that comes
// online after startup still reaches it.
func (s *BlacklistService) coll() *mongo.Collection {
	if s.dbInstance == nil || !s.dbInstance.Connected() {
		return nil
	}
	return s.dbInstance.GetCollection("blacklist")
}

// EnsureIndexes creates the unique (guildId, kind, content) index that backs
// duplicate detection, plus the guildId index used by cache snapshots.
// Safe to call on every startup.
func (s *BlacklistService) EnsureIndexes() error {
	coll := s.coll()
	if coll == nil {
		return fmt.Errorf("database not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "guildId", Value: 1}, {Key: "kind", Value: 1}, {Key: "content", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "guildId", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	logger.System("Índices de blacklist verificados", "Blacklist")
	return nil
}

// FindByContent looks up an entry by its canonical content. Returns nil (no
// error) when nothing matches; used to recognize known items and to reject
// duplicates before insert.
func (s *BlacklistService) FindByContent(guildID string, kind models.BlacklistKind, content string) (*models.BlacklistEntry, error) {
	coll := s.coll()
	if coll == nil {
		return nil, fmt.Errorf("database not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var entry models.BlacklistEntry
	err := coll.FindOne(ctx, bson.M{
		"guildId": guildID,
		"kind":    kind,
		"content": content,
	}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Insert stores a new entry. Fails with ErrBlacklistEntryExists when the
// guild already has an entry with the same kind and content.
func (s *BlacklistService) Insert(entry *models.BlacklistEntry) (*models.BlacklistEntry, error) {
	coll := s.coll()
	if coll == nil {
		return nil, fmt.Errorf("database not connected")
	}

	existing, err := s.FindByContent(entry.GuildID, entry.Kind, entry.Content)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrBlacklistEntryExists
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = coll.InsertOne(ctx, entry)
	if err != nil {
		// El índice único cubre la carrera entre el chequeo y el insert.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrBlacklistEntryExists
		}
		return nil, err
	}

	logger.Info(fmt.Sprintf("Entrada de blacklist creada: guild=%s kind=%s id=%s", entry.GuildID, entry.Kind, entry.ID), "Blacklist")
	return entry, nil
}

// Remove deletes an entry by ID within a guild and returns the removed entry,
// or nil when the guild had no such entry.
func (s *BlacklistService) Remove(guildID, id string) (*models.BlacklistEntry, error) {
	coll := s.coll()
	if coll == nil {
		return nil, fmt.Errorf("database not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var entry models.BlacklistEntry
	err := coll.FindOneAndDelete(ctx, bson.M{"_id": id, "guildId": guildID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	logger.Info(fmt.Sprintf("Entrada de blacklist eliminada: guild=%s id=%s", guildID, id), "Blacklist")
	return &entry, nil
}

// ListByGuild returns every entry owned by a guild, all kinds mixed; the
// cache partitions them.
func (s *BlacklistService) ListByGuild(guildID string) ([]*models.BlacklistEntry, error) {
	coll := s.coll()
	if coll == nil {
		return nil, fmt.Errorf("database not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := coll.Find(ctx, bson.M{"guildId": guildID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var entries []*models.BlacklistEntry
	for cursor.Next(ctx) {
		var entry models.BlacklistEntry
		if err := cursor.Decode(&entry); err != nil {
			logger.Warn("Error decodificando entrada de blacklist: "+err.Error(), "Blacklist")
			continue
		}
		entries = append(entries, &entry)
	}

	return entries, cursor.Err()
}

// RecordTrigger increments an entry's trigger count and stamps the trigger
// time. The $inc happens storage-side, so concurrent matches on the same
// entry never lose updates.
func (s *BlacklistService) RecordTrigger(id string) error {
	coll := s.coll()
	if coll == nil {
		return fmt.Errorf("database not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc":         bson.M{"triggerCount": 1},
		"$currentDate": bson.M{"lastTriggeredAt": true},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrBlacklistEntryNotFound
	}
	return nil
}

// Count returns the total number of entries across all guilds.
func (s *BlacklistService) Count() (int64, error) {
	coll := s.coll()
	if coll == nil {
		return 0, fmt.Errorf("database not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return coll.CountDocuments(ctx, bson.M{})
}
