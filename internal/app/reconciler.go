package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"phishguard-engine/internal/domain"
)

// Reconciler re-projects leaderboard entries from profiles, bounding the
// staleness window left by a failed projection write even for users who stop
// earning XP. The profile remains the source of truth throughout.
type Reconciler struct {
	store ProfileStore
	log   *zap.Logger
	batch int
}

func NewReconciler(store ProfileStore, batch int, log *zap.Logger) *Reconciler {
	if batch <= 0 {
		batch = 500
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, log: log, batch: batch}
}

// Run sweeps a batch of profiles and rewrites their leaderboard entries.
// Individual projection failures are logged and skipped; the sweep itself
// only fails when the profile scan does.
func (r *Reconciler) Run(ctx context.Context) error {
	profiles, err := r.store.ListProfiles(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	repaired := 0
	for _, p := range profiles {
		if p.XP == 0 {
			// No XP-earning event yet, so no entry to maintain.
			continue
		}
		entry := domain.LeaderboardEntry{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			XP:          p.XP,
			Level:       p.Level,
			Streak:      p.Streak,
			UpdatedAt:   p.UpdatedAt,
		}
		if err := r.store.WriteLeaderboardEntry(ctx, entry); err != nil {
			r.log.Warn("reconcile projection failed", zap.String("user", p.ID), zap.Error(err))
			continue
		}
		repaired++
	}
	r.log.Debug("leaderboard reconcile pass complete",
		zap.Int("profiles", len(profiles)), zap.Int("projected", repaired))
	return nil
}
