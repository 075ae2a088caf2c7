package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"phishguard-engine/internal/domain"
)

// ProfileStore abstracts the document database holding profiles, the
// leaderboard projection, groups, and the attempt log. Profiles are
// independent keys; the store provides per-key atomic writes but no
// cross-collection transactions.
type ProfileStore interface {
	ReadProfile(ctx context.Context, id string) (domain.Profile, error)
	WriteProfile(ctx context.Context, id string, update domain.ProfileUpdate) error
	DeleteProfile(ctx context.Context, id string) error
	ListProfiles(ctx context.Context, limit int) ([]domain.Profile, error)

	WriteLeaderboardEntry(ctx context.Context, entry domain.LeaderboardEntry) error
	DeleteLeaderboardEntry(ctx context.Context, id string) error
	TopLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)

	FindGroupByCode(ctx context.Context, code string) (domain.Group, error)
	InsertGroup(ctx context.Context, group domain.Group) error
	UpdateGroupMembers(ctx context.Context, code string, members []string) error

	AppendQuizAttempt(ctx context.Context, attempt domain.QuizAttempt) error
}

// LeaderboardReader is the read path for leaderboard queries. It never
// touches the profile collection, so a cache can wrap it transparently.
type LeaderboardReader interface {
	TopLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// LeaderboardInvalidator is implemented by caching readers that can drop
// their cached pages when the projection changes. Invalidation is
// best-effort; the cache TTL remains the fallback bound on staleness.
type LeaderboardInvalidator interface {
	InvalidateLeaderboard(ctx context.Context) error
}

// EventPublisher fans progression notifications out to other services.
// Publishing is best-effort; failures never fail the originating operation.
type EventPublisher interface {
	LevelUp(userID string, up domain.LevelUp) error
	BadgeUnlocked(userID, badge string) error
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) LevelUp(string, domain.LevelUp) error { return nil }
func (NopPublisher) BadgeUnlocked(string, string) error   { return nil }

// QuizAnswerEvent is the scoring signal for a single answered question.
type QuizAnswerEvent struct {
	UserID      string
	DisplayName string
	QuestionID  string
	Difficulty  domain.Difficulty
	Correct     bool
}

// SimulationEvent reports a completed phishing simulation.
type SimulationEvent struct {
	UserID      string
	DisplayName string
	ScenarioID  string
	FlagsFound  int
}

// ProgressionResult summarizes what a single event did to a profile.
type ProgressionResult struct {
	Profile        domain.Profile   `json:"profile"`
	Awarded        int              `json:"awarded"`
	LevelUps       []domain.LevelUp `json:"levelUps,omitempty"`
	StreakExtended bool             `json:"streakExtended"`
	NewBadges      []string         `json:"newBadges,omitempty"`
}

// ProgressionService turns raw activity events into XP, level, streak, and
// badge changes, persists the profile, and mirrors the leaderboard
// projection. One instance is shared by all sessions; it holds no per-user
// mutable state beyond short-lived ordering locks.
type ProgressionService struct {
	store  ProfileStore
	reader LeaderboardReader
	levels domain.LevelingTable
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProgressionService(store ProfileStore, reader LeaderboardReader, levels domain.LevelingTable, events EventPublisher, log *zap.Logger) *ProgressionService {
	if reader == nil {
		reader = store
	}
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressionService{
		store:  store,
		reader: reader,
		levels: levels,
		events: events,
		log:    log,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the time source for deterministic tests.
func (s *ProgressionService) WithClock(now func() time.Time) *ProgressionService {
	s.now = now
	return s
}

// lockUser serializes award operations for a single user so that two quick
// events apply in initiation order against the freshest stored profile. A
// fast double-submit must not lose an award to a stale read.
func (s *ProgressionService) lockUser(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// RecordQuizAnswer awards XP for an answered question, advances the streak,
// unlocks badges, appends the attempt record, and projects the leaderboard.
func (s *ProgressionService) RecordQuizAnswer(ctx context.Context, ev QuizAnswerEvent) (ProgressionResult, error) {
	awarded := domain.AnswerXP(ev.Difficulty, ev.Correct)
	result, err := s.award(ctx, ev.UserID, ev.DisplayName, awarded, func(p *domain.Profile) {
		p.QuizStats.Attempts++
		if ev.Correct {
			p.QuizStats.Correct++
		}
	})
	if err != nil {
		return ProgressionResult{}, err
	}

	attempt := domain.QuizAttempt{
		ID:         uuid.NewString(),
		UserID:     ev.UserID,
		QuestionID: ev.QuestionID,
		Difficulty: ev.Difficulty,
		Correct:    ev.Correct,
		XPEarned:   awarded,
		At:         s.now(),
	}
	if err := s.store.AppendQuizAttempt(ctx, attempt); err != nil {
		// The attempt log is an audit trail; losing one entry does not
		// invalidate the already-persisted profile.
		s.log.Warn("append quiz attempt failed", zap.String("user", ev.UserID), zap.Error(err))
	}
	return result, nil
}

// RecordSimulation awards XP for a completed phishing simulation.
func (s *ProgressionService) RecordSimulation(ctx context.Context, ev SimulationEvent) (ProgressionResult, error) {
	awarded := domain.SimulationXP(ev.FlagsFound)
	return s.award(ctx, ev.UserID, ev.DisplayName, awarded, func(p *domain.Profile) {
		p.SimStats.Completed++
		p.SimStats.FlagsFound += ev.FlagsFound
	})
}

// award is the single write path for XP-earning events. It re-reads the
// profile under the user lock, computes the new fields purely, writes the
// profile, and then mirrors the leaderboard entry. The projection write is
// deliberately outside any transaction: if it fails the profile is already
// correct and the next event repeats the projection.
func (s *ProgressionService) award(ctx context.Context, userID, displayName string, delta int, mutate func(*domain.Profile)) (ProgressionResult, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	now := s.now()

	profile, err := s.store.ReadProfile(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		profile = domain.NewProfile(userID, displayName, now)
	case err != nil:
		return ProgressionResult{}, fmt.Errorf("read profile: %w", err)
	}
	if displayName != "" {
		profile.DisplayName = displayName
	}

	newXP, newLevel, ups, err := s.levels.ApplyXP(profile.XP, delta)
	if err != nil {
		return ProgressionResult{}, err
	}

	newStreak := domain.AdvanceStreak(profile.Streak, profile.LastActiveAt, now)
	streakExtended := newStreak > profile.Streak

	mergedBadges, newBadges := domain.MergeBadges(profile.Badges, domain.EarnedBadges(newLevel, newStreak))

	profile.XP = newXP
	profile.Level = newLevel
	profile.Streak = newStreak
	profile.LastActiveAt = now
	profile.Badges = mergedBadges
	profile.UpdatedAt = now
	if mutate != nil {
		mutate(&profile)
	}

	update := domain.ProfileUpdate{
		DisplayName:  &profile.DisplayName,
		XP:           &profile.XP,
		Level:        &profile.Level,
		Streak:       &profile.Streak,
		LastActiveAt: &profile.LastActiveAt,
		Badges:       profile.Badges,
		QuizStats:    &profile.QuizStats,
		SimStats:     &profile.SimStats,
	}
	if err := s.store.WriteProfile(ctx, userID, update); err != nil {
		return ProgressionResult{}, fmt.Errorf("write profile: %w", err)
	}

	s.projectLeaderboard(ctx, profile)
	s.publish(userID, ups, newBadges)

	return ProgressionResult{
		Profile:        profile,
		Awarded:        delta,
		LevelUps:       ups,
		StreakExtended: streakExtended,
		NewBadges:      newBadges,
	}, nil
}

// projectLeaderboard mirrors the profile's display subset into the
// leaderboard collection. Failures are logged and swallowed: the profile is
// the source of truth and the projection self-heals on the next event.
func (s *ProgressionService) projectLeaderboard(ctx context.Context, p domain.Profile) {
	entry := domain.LeaderboardEntry{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		XP:          p.XP,
		Level:       p.Level,
		Streak:      p.Streak,
		UpdatedAt:   p.UpdatedAt,
	}
	if err := s.store.WriteLeaderboardEntry(ctx, entry); err != nil {
		s.log.Warn("leaderboard projection failed, will self-heal on next event",
			zap.String("user", p.ID), zap.Error(err))
		return
	}
	s.invalidateLeaderboard(ctx)
}

// invalidateLeaderboard drops cached leaderboard pages after a projection
// change so readers see it without waiting out the TTL.
func (s *ProgressionService) invalidateLeaderboard(ctx context.Context) {
	inv, ok := s.reader.(LeaderboardInvalidator)
	if !ok {
		return
	}
	if err := inv.InvalidateLeaderboard(ctx); err != nil {
		s.log.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
}

func (s *ProgressionService) publish(userID string, ups []domain.LevelUp, badges []string) {
	for _, up := range ups {
		if err := s.events.LevelUp(userID, up); err != nil {
			s.log.Warn("publish level-up failed", zap.String("user", userID), zap.Error(err))
		}
	}
	for _, b := range badges {
		if err := s.events.BadgeUnlocked(userID, b); err != nil {
			s.log.Warn("publish badge failed", zap.String("user", userID), zap.Error(err))
		}
	}
}

// Profile returns the canonical record for a user.
func (s *ProgressionService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	return s.store.ReadProfile(ctx, userID)
}

// Leaderboard returns the top entries by XP with 1-based ranks. Rank is only
// meaningful within the returned page.
func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) ([]domain.RankedEntry, error) {
	entries, err := s.reader.TopLeaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	return rankEntries(entries), nil
}

// GroupLeaderboard returns the top entries restricted to a group's members.
func (s *ProgressionService) GroupLeaderboard(ctx context.Context, code string, limit int) ([]domain.RankedEntry, error) {
	group, err := s.store.FindGroupByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	entries, err := s.reader.TopLeaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	filtered := entries[:0:0]
	for _, e := range entries {
		if group.HasMember(e.ID) {
			filtered = append(filtered, e)
		}
	}
	return rankEntries(filtered), nil
}

func rankEntries(entries []domain.LeaderboardEntry) []domain.RankedEntry {
	ranked := make([]domain.RankedEntry, len(entries))
	for i, e := range entries {
		ranked[i] = domain.RankedEntry{Rank: i + 1, LeaderboardEntry: e}
	}
	return ranked
}

// WipeAccount removes the profile and its leaderboard projection.
func (s *ProgressionService) WipeAccount(ctx context.Context, userID string) error {
	unlock := s.lockUser(userID)
	defer unlock()

	if err := s.store.DeleteProfile(ctx, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := s.store.DeleteLeaderboardEntry(ctx, userID); err != nil {
		return fmt.Errorf("delete leaderboard entry: %w", err)
	}
	s.invalidateLeaderboard(ctx)
	return nil
}
