package domain

import "fmt"

// Streak milestones award badges at 5, 10, 15, 20, then every 5 days.
const baseStreakMilestone = 5

// streakMilestones returns every milestone at or below streak.
func streakMilestones(streak int) []int {
	var milestones []int
	for m := baseStreakMilestone; m <= streak; m += baseStreakMilestone {
		milestones = append(milestones, m)
	}
	return milestones
}

// NextStreakMilestone returns the next streak length that awards a badge.
func NextStreakMilestone(streak int) int {
	return ((streak / baseStreakMilestone) + 1) * baseStreakMilestone
}

// EarnedBadges returns every badge id a profile with the given level and
// streak qualifies for.
func EarnedBadges(level, streak int) []string {
	var badges []string
	for _, m := range streakMilestones(streak) {
		badges = append(badges, fmt.Sprintf("streak-%d", m))
	}
	if level >= 5 {
		badges = append(badges, "level-5")
	}
	if level >= 10 {
		badges = append(badges, "level-10")
	}
	return badges
}

// MergeBadges unions earned badges into the existing set and returns the
// merged set plus the badges that are new. Badges are append-only; a badge
// once unlocked is never removed.
func MergeBadges(existing, earned []string) (merged, added []string) {
	seen := make(map[string]bool, len(existing))
	merged = append(merged, existing...)
	for _, b := range existing {
		seen[b] = true
	}
	for _, b := range earned {
		if seen[b] {
			continue
		}
		seen[b] = true
		merged = append(merged, b)
		added = append(added, b)
	}
	return merged, added
}
