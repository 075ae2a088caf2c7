package domain

import "fmt"

// LevelingTable holds cumulative-XP thresholds. Entry i is the minimum
// cumulative XP required to be at level i+2: crossing it promotes the player
// from level i+1 to i+2. The table is strictly increasing and fixed per
// deployment; MaxLevel is len(table)+1.
type LevelingTable []int

// DefaultLevelingTable covers levels 2 through 10.
func DefaultLevelingTable() LevelingTable {
	return LevelingTable{500, 1200, 2100, 3200, 4500, 6000, 7700, 9600, 11700}
}

// MaxLevel returns the level cap implied by the table.
func (t LevelingTable) MaxLevel() int {
	return len(t) + 1
}

// Validate checks the table is non-empty with strictly increasing positive
// thresholds.
func (t LevelingTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("leveling table is empty")
	}
	prev := 0
	for i, threshold := range t {
		if threshold <= prev {
			return fmt.Errorf("leveling table not strictly increasing at index %d: %d <= %d", i, threshold, prev)
		}
		prev = threshold
	}
	return nil
}

// LevelFromXP returns the largest level whose threshold is at or below xp,
// clamped to [1, MaxLevel]. Pure, total, deterministic.
func (t LevelingTable) LevelFromXP(xp int) int {
	if xp < 0 {
		return 1
	}
	level := 1
	for _, threshold := range t {
		if xp < threshold {
			break
		}
		level++
	}
	return level
}

// XPForNextLevel returns the cumulative XP needed for the next level, or
// (0, false) at the cap.
func (t LevelingTable) XPForNextLevel(level int) (int, bool) {
	if level < 1 || level >= t.MaxLevel() {
		return 0, false
	}
	return t[level-1], true
}

// LevelUp reports a single threshold crossing.
type LevelUp struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ApplyXP adds a non-negative delta to the current cumulative XP and returns
// the new XP, the new level, and one LevelUp per level crossed. A single
// large award may cross more than one threshold; the consuming layer decides
// whether to animate every crossing or only the last. Negative deltas fail
// with ErrInvalidXPDelta, never silently clamped.
func (t LevelingTable) ApplyXP(currentXP, delta int) (int, int, []LevelUp, error) {
	if delta < 0 {
		return 0, 0, nil, fmt.Errorf("%w: %d", ErrInvalidXPDelta, delta)
	}
	newXP := currentXP + delta
	fromLevel := t.LevelFromXP(currentXP)
	newLevel := t.LevelFromXP(newXP)

	var ups []LevelUp
	for l := fromLevel; l < newLevel; l++ {
		ups = append(ups, LevelUp{From: l, To: l + 1})
	}
	return newXP, newLevel, ups, nil
}
