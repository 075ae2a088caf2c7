package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"phishguard-engine/internal/domain"
)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// ProfileStore implements app.ProfileStore on MongoDB collections:
// profiles (canonical), leaderboard (projection), groups, and the
// append-only quiz_attempts log.
type ProfileStore struct {
	profiles    *mongo.Collection
	leaderboard *mongo.Collection
	groups      *mongo.Collection
	attempts    *mongo.Collection
}

func NewProfileStore(client *mongo.Client, database string) *ProfileStore {
	db := client.Database(database)
	return &ProfileStore{
		profiles:    db.Collection("profiles"),
		leaderboard: db.Collection("leaderboard"),
		groups:      db.Collection("groups"),
		attempts:    db.Collection("quiz_attempts"),
	}
}

func (s *ProfileStore) ReadProfile(ctx context.Context, id string) (domain.Profile, error) {
	var profile domain.Profile
	err := s.profiles.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, storeErr("read profile", err)
	}
	return profile, nil
}

func (s *ProfileStore) WriteProfile(ctx context.Context, id string, update domain.ProfileUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.DisplayName != nil {
		set["display_name"] = *update.DisplayName
	}
	if update.XP != nil {
		set["xp"] = *update.XP
	}
	if update.Level != nil {
		set["level"] = *update.Level
	}
	if update.Streak != nil {
		set["streak"] = *update.Streak
	}
	if update.LastActiveAt != nil {
		set["last_active_at"] = *update.LastActiveAt
	}
	if update.Badges != nil {
		set["badges"] = update.Badges
	}
	if update.GroupCode != nil {
		set["group_code"] = *update.GroupCode
	}
	if update.QuizStats != nil {
		set["quiz_stats"] = *update.QuizStats
	}
	if update.SimStats != nil {
		set["sim_stats"] = *update.SimStats
	}

	_, err := s.profiles.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return storeErr("write profile", err)
	}
	return nil
}

func (s *ProfileStore) DeleteProfile(ctx context.Context, id string) error {
	if _, err := s.profiles.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return storeErr("delete profile", err)
	}
	return nil
}

func (s *ProfileStore) ListProfiles(ctx context.Context, limit int) ([]domain.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.profiles.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storeErr("list profiles", err)
	}
	defer cursor.Close(ctx)

	var profiles []domain.Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, storeErr("decode profiles", err)
	}
	return profiles, nil
}

func (s *ProfileStore) WriteLeaderboardEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := s.leaderboard.ReplaceOne(ctx,
		bson.M{"_id": entry.ID},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return storeErr("write leaderboard entry", err)
	}
	return nil
}

func (s *ProfileStore) DeleteLeaderboardEntry(ctx context.Context, id string) error {
	if _, err := s.leaderboard.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return storeErr("delete leaderboard entry", err)
	}
	return nil
}

func (s *ProfileStore) TopLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "xp", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.leaderboard.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storeErr("query leaderboard", err)
	}
	defer cursor.Close(ctx)

	var entries []domain.LeaderboardEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, storeErr("decode leaderboard", err)
	}
	return entries, nil
}

func (s *ProfileStore) FindGroupByCode(ctx context.Context, code string) (domain.Group, error) {
	var group domain.Group
	err := s.groups.FindOne(ctx, bson.M{"_id": code}).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, storeErr("find group", err)
	}
	return group, nil
}

func (s *ProfileStore) InsertGroup(ctx context.Context, group domain.Group) error {
	if _, err := s.groups.InsertOne(ctx, group); err != nil {
		return storeErr("insert group", err)
	}
	return nil
}

func (s *ProfileStore) UpdateGroupMembers(ctx context.Context, code string, members []string) error {
	result, err := s.groups.UpdateOne(ctx,
		bson.M{"_id": code},
		bson.M{"$set": bson.M{"members": members}},
	)
	if err != nil {
		return storeErr("update group members", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (s *ProfileStore) AppendQuizAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	if _, err := s.attempts.InsertOne(ctx, attempt); err != nil {
		return storeErr("append quiz attempt", err)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}
