package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"phishguard-engine/internal/app"
	"phishguard-engine/internal/domain"
	"phishguard-engine/internal/infra/memory"
)

func TestRecordQuizAnswerAwardsXP(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	service := app.NewProgressionService(store, nil, domain.DefaultLevelingTable(), nil, nil)

	result, err := service.RecordQuizAnswer(ctx, app.QuizAnswerEvent{
		UserID: "u1", DisplayName: "Alice", QuestionID: "q1",
		Difficulty: domain.DifficultyEasy, Correct: true,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if result.Awarded != 50 || result.Profile.XP != 50 || result.Profile.Level != 1 {
		t.Fatalf("expected 50 xp at level 1, got %+v", result)
	}
	if result.Profile.QuizStats.Attempts != 1 || result.Profile.QuizStats.Correct != 1 {
		t.Fatalf("expected quiz stats 1/1, got %+v", result.Profile.QuizStats)
	}
	if !result.StreakExtended || result.Profile.Streak != 1 {
		t.Fatalf("expected first activity to start streak, got %+v", result)
	}

	attempts := store.Attempts()
	if len(attempts) != 1 || attempts[0].QuestionID != "q1" || attempts[0].XPEarned != 50 {
		t.Fatalf("expected one attempt record, got %+v", attempts)
	}
	entry, ok := store.LeaderboardEntry("u1")
	if !ok || entry.XP != 50 || entry.DisplayName != "Alice" {
		t.Fatalf("expected projected entry with 50 xp, got %+v ok=%v", entry, ok)
	}
}

func TestIncorrectAnswerEarnsParticipationXP(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	service := app.NewProgressionService(store, nil, domain.DefaultLevelingTable(), nil, nil)

	result, err := service.RecordQuizAnswer(ctx, app.QuizAnswerEvent{
		UserID: "u1", QuestionID: "q1", Difficulty: domain.DifficultyHard, Correct: false,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if result.Awarded != 10 || result.Profile.XP != 10 {
		t.Fatalf("expected flat 10 xp for an incorrect answer, got %+v", result)
	}
	if result.Profile.QuizStats.Attempts != 1 || result.Profile.QuizStats.Correct != 0 {
		t.Fatalf("expected attempts 1 correct 0, got %+v", result.Profile.QuizStats)
	}
}

func TestLevelUpEventEmitted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	service := app.NewProgressionService(store, nil, domain.DefaultLevelingTable(), nil, nil)

	// 9 easy answers put the profile at 450 XP, one more crosses 500.
	for i := 0; i < 9; i++ {
		if _, err := service.RecordQuizAnswer(ctx, app.QuizAnswerEvent{
			UserID: "u1", QuestionID: "q", Difficulty: domain.DifficultyEasy, Correct: true,
		}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	result, err := service.RecordQuizAnswer(ctx, app.QuizAnswerEvent{
		UserID: "u1", QuestionID: "q", Difficulty: domain.DifficultyEasy, Correct: true,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if result.Profile.XP != 500 || result.Profile.Level != 2 {
		t.Fatalf("expected 500 xp level 2, got %+v", result.Profile)
	}
	if len(result.LevelUps) != 1 || result.LevelUps[0] != (domain.LevelUp{From: 1, To: 2}) {
		t.Fatalf("expected level-up 1->2, got %+v", result.LevelUps)
	}
}

func TestMultiLevelCrossingInOneEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	service := app.NewProgressionService(store, nil, domain.LevelingTable{100, 200, 5000}, nil, nil)

	// 200 base + 25 per flag: 4 flags crosses both the 100 and 200 thresholds.
	result, err := service.RecordSimulation(ctx, app.SimulationEvent{
		UserID: "u1", ScenarioID: "s1", FlagsFound: 4,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if result.Profile.Level != 3 || len(result.LevelUps) != 2 {
		t.Fatalf("expected level 3 with two crossings, got %+v", result)
	}
	if result.Profile.SimStats.Completed != 1 || result.Profile.SimStats.FlagsFound != 4 {
		t.Fatalf("expected sim stats updated, got %+v", result.Profile.SimStats)
	}
}

func TestDoubleSubmitReadsFreshXP(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	service := app.NewProgressionService(store, nil, domain.DefaultLevelingTable(), nil, nil)

	ev := app.QuizAnswerEvent{UserID: "u1", QuestionID: "q", Difficulty: domain.DifficultyMedium, Correct: true}
	if _, err := service.RecordQuizAnswer(ctx, ev); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	result, err := service.RecordQuizAnswer(ctx, ev)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if result.Profile.XP != 200 {
		t.Fatalf("expected both awards to land (200 xp), got %d", result.Profile.XP)
	}
}

// invalidatingReader is a caching-reader stand-in that counts invalidations.
type invalidatingReader struct {
	store       *memory.ProfileStore
	invalidated int
}

func (r *invalidatingReader) TopLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return r.store.TopLeaderboard(ctx, limit)
}

func (r *invalidatingReader) InvalidateLeaderboard(context.Context) error {
	r.invalidated++
	return nil
}

func TestProjectionWriteInvalidatesCachingReader(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	reader := &invalidatingReader{store: store}
	service := app.NewProgressionService(store, reader, domain.DefaultLevelingTable(), nil, nil)

	ev := app.QuizAnswerEvent{UserID: "u1", QuestionID: "q", Difficulty: domain.DifficultyEasy, Correct: true}
	if _, err := service.RecordQuizAnswer(ctx, ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if reader.invalidated != 1 {
		t.Fatalf("expected one invalidation after projection write, got %d", reader.invalidated)
	}

	if err := service.WipeAccount(ctx, "u1"); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if reader.invalidated != 2 {
		t.Fatalf("expected invalidation after wipe, got %d", reader.invalidated)
	}
}

func TestFailedProjectionSkipsInvalidation(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewProfileStore()
	store := &failingProjectionStore{ProfileStore: inner, failures: 1}
	reader := &invalidatingReader{store: inner}
	service := app.NewProgressionService(store, reader, domain.DefaultLevelingTable(), nil, nil)

	ev := app.QuizAnswerEvent{UserID: "u1", QuestionID: "q", Difficulty: domain.DifficultyEasy, Correct: true}
	if _, err := service.RecordQuizAnswer(ctx, ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Nothing was projected, so there is nothing to invalidate.
	if reader.invalidated != 0 {
		t.Fatalf("expected no invalidation after failed projection, got %d", reader.invalidated)
	}

	if _, err := service.RecordQuizAnswer(ctx, ev); err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if reader.invalidated != 1 {
		t.Fatalf("expected invalidation once projection succeeds, got %d", reader.invalidated)
	}
}

// failingProjectionStore simulates a transient leaderboard outage.
type failingProjectionStore struct {
	*memory.ProfileStore
	failures int
}

func (s *failingProjectionStore) WriteLeaderboardEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	if s.failures > 0 {
		s.failures--
		return domain.ErrStoreUnavailable
	}
	return s.ProfileStore.WriteLeaderboardEntry(ctx, entry)
}

func TestLeaderboardSelfHealsAfterProjectionFailure(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewProfileStore()
	store := &failingProjectionStore{ProfileStore: inner, failures: 1}
	service := app.NewProgressionService(store, nil, domain.DefaultLevelingTable(), nil, nil)

	ev := app.QuizAnswerEvent{UserID: "u1", QuestionID: "q", Difficulty: domain.DifficultyEasy, Correct: true}

	// The projection write fails but the event itself must succeed.
	result, err := service.RecordQuizAnswer(ctx, ev)
	if err != nil {
		t.Fatalf("expected award to succeed despite projection failure, got %v", err)
	}
	if result.Profile.XP != 50 {
		t.Fatalf("expected profile write to land, got %+v", result.Profile)
	}
	if _, ok := inner.LeaderboardEntry("u1"); ok {
		t.Fatalf("expected no projected entry after simulated failure")
	}

	// The next event repeats the projection and brings them back in sync.
	result, err = service.RecordQuizAnswer(ctx, ev)
	if err != nil {
		t.Fatalf("second award: %v", err)
	}
	entry, ok := inner.LeaderboardEntry("u1")
	if !ok || entry.XP != result.Profile.XP {
		t.Fatalf("expected projection to self-heal to %d xp, got %+v ok=%v", result.Profile.XP, entry, ok)
	}
}

func TestStreakAdvancesAcrossDays(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := app.NewProgressionService(store, nil, domain.DefaultLevelingTable(), nil, nil).
		WithClock(func() time.Time { return current })

	ev := app.QuizAnswerEvent{UserID: "u1", QuestionID: "q", Difficulty: domain.DifficultyEasy, Correct: true}

	for day := 0; day < 5; day++ {
		if _, err := service.RecordQuizAnswer(ctx, ev); err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
		// Same-day repeat must not double-increment.
		result, err := service.RecordQuizAnswer(ctx, ev)
		if err != nil {
			t.Fatalf("day %d repeat: %v", day, err)
		}
		if result.Profile.Streak != day+1 {
			t.Fatalf("day %d: expected streak %d, got %d", day, day+1, result.Profile.Streak)
		}
		current = current.AddDate(0, 0, 1)
	}

	// Day five unlocked the streak-5 badge.
	profile, err := service.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !contains(profile.Badges, "streak-5") {
		t.Fatalf("expected streak-5 badge, got %v", profile.Badges)
	}

	// A three-day gap resets the streak to 1.
	current = current.AddDate(0, 0, 3)
	result, err := service.RecordQuizAnswer(ctx, ev)
	if err != nil {
		t.Fatalf("after gap: %v", err)
	}
	if result.Profile.Streak != 1 {
		t.Fatalf("expected streak reset to 1 after gap, got %d", result.Profile.Streak)
	}
	if !contains(result.Profile.Badges, "streak-5") {
		t.Fatalf("badges are append-only, streak-5 should survive the reset: %v", result.Profile.Badges)
	}
}

func TestLeaderboardRanksWithinPage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	service := app.NewProgressionService(store, nil, domain.DefaultLevelingTable(), nil, nil)

	for i, user := range []struct {
		id      string
		correct int
	}{{"u1", 3}, {"u2", 5}, {"u3", 1}} {
		for n := 0; n < user.correct; n++ {
			if _, err := service.RecordQuizAnswer(ctx, app.QuizAnswerEvent{
				UserID: user.id, QuestionID: "q", Difficulty: domain.DifficultyEasy, Correct: true,
			}); err != nil {
				t.Fatalf("user %d: %v", i, err)
			}
		}
	}

	ranked, err := service.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected page of 2, got %d", len(ranked))
	}
	if ranked[0].ID != "u2" || ranked[0].Rank != 1 {
		t.Fatalf("expected u2 at rank 1, got %+v", ranked[0])
	}
	if ranked[1].ID != "u1" || ranked[1].Rank != 2 {
		t.Fatalf("expected u1 at rank 2, got %+v", ranked[1])
	}
}

func TestWipeAccountRemovesProfileAndProjection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	service := app.NewProgressionService(store, nil, domain.DefaultLevelingTable(), nil, nil)

	if _, err := service.RecordQuizAnswer(ctx, app.QuizAnswerEvent{
		UserID: "u1", QuestionID: "q", Difficulty: domain.DifficultyEasy, Correct: true,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := service.WipeAccount(ctx, "u1"); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if _, err := service.Profile(ctx, "u1"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected profile gone, got %v", err)
	}
	if _, ok := store.LeaderboardEntry("u1"); ok {
		t.Fatalf("expected leaderboard entry gone")
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
