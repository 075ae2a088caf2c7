package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"phishguard-engine/internal/domain"
)

// ProfileStore is an in-memory implementation of app.ProfileStore, used in
// tests and as the fallback when no document database is configured. Each
// method takes the store lock, giving the same per-key atomic
// read-modify-write the real store provides.
type ProfileStore struct {
	mu          sync.RWMutex
	profiles    map[string]domain.Profile
	leaderboard map[string]domain.LeaderboardEntry
	groups      map[string]domain.Group
	attempts    []domain.QuizAttempt
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles:    make(map[string]domain.Profile),
		leaderboard: make(map[string]domain.LeaderboardEntry),
		groups:      make(map[string]domain.Group),
	}
}

func (s *ProfileStore) ReadProfile(_ context.Context, id string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (s *ProfileStore) WriteProfile(_ context.Context, id string, update domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p, ok := s.profiles[id]
	if !ok {
		p = domain.Profile{ID: id, Level: 1, CreatedAt: now}
	}
	applyUpdate(&p, update)
	p.UpdatedAt = now
	s.profiles[id] = p
	return nil
}

func applyUpdate(p *domain.Profile, u domain.ProfileUpdate) {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.XP != nil {
		p.XP = *u.XP
	}
	if u.Level != nil {
		p.Level = *u.Level
	}
	if u.Streak != nil {
		p.Streak = *u.Streak
	}
	if u.LastActiveAt != nil {
		p.LastActiveAt = *u.LastActiveAt
	}
	if u.Badges != nil {
		p.Badges = append([]string(nil), u.Badges...)
	}
	if u.GroupCode != nil {
		p.GroupCode = *u.GroupCode
	}
	if u.QuizStats != nil {
		p.QuizStats = *u.QuizStats
	}
	if u.SimStats != nil {
		p.SimStats = *u.SimStats
	}
}

func (s *ProfileStore) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
	return nil
}

func (s *ProfileStore) ListProfiles(_ context.Context, limit int) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profiles := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

func (s *ProfileStore) WriteLeaderboardEntry(_ context.Context, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboard[entry.ID] = entry
	return nil
}

func (s *ProfileStore) DeleteLeaderboardEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leaderboard, id)
	return nil
}

func (s *ProfileStore) TopLeaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.LeaderboardEntry, 0, len(s.leaderboard))
	for _, e := range s.leaderboard {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].ID < entries[j].ID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *ProfileStore) FindGroupByCode(_ context.Context, code string) (domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[code]
	if !ok {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	return g, nil
}

func (s *ProfileStore) InsertGroup(_ context.Context, group domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.Code] = group
	return nil
}

func (s *ProfileStore) UpdateGroupMembers(_ context.Context, code string, members []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[code]
	if !ok {
		return domain.ErrGroupNotFound
	}
	g.Members = append([]string(nil), members...)
	s.groups[code] = g
	return nil
}

func (s *ProfileStore) AppendQuizAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

// Attempts returns a copy of the attempt log, oldest first. Test helper.
func (s *ProfileStore) Attempts() []domain.QuizAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizAttempt(nil), s.attempts...)
}

// LeaderboardEntry returns the projected entry for a user. Test helper.
func (s *ProfileStore) LeaderboardEntry(id string) (domain.LeaderboardEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.leaderboard[id]
	return e, ok
}
