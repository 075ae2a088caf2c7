package domain

import (
	"testing"
)

func TestNextStreakMilestone(t *testing.T) {
	tests := []struct {
		streak int
		want   int
	}{
		{0, 5},
		{4, 5},
		{5, 10},
		{14, 15},
		{20, 25},
		{27, 30},
	}
	for _, tt := range tests {
		if got := NextStreakMilestone(tt.streak); got != tt.want {
			t.Errorf("NextStreakMilestone(%d) = %d, want %d", tt.streak, got, tt.want)
		}
	}
}

func TestEarnedBadges(t *testing.T) {
	badges := EarnedBadges(5, 12)
	want := map[string]bool{"streak-5": true, "streak-10": true, "level-5": true}
	if len(badges) != len(want) {
		t.Fatalf("expected %d badges, got %v", len(want), badges)
	}
	for _, b := range badges {
		if !want[b] {
			t.Fatalf("unexpected badge %q in %v", b, badges)
		}
	}
}

func TestMergeBadgesAppendOnly(t *testing.T) {
	merged, added := MergeBadges([]string{"streak-5", "level-5"}, []string{"streak-5", "streak-10"})
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged badges, got %v", merged)
	}
	if len(added) != 1 || added[0] != "streak-10" {
		t.Fatalf("expected only streak-10 to be new, got %v", added)
	}

	// Re-merging the same earned set adds nothing.
	merged2, added2 := MergeBadges(merged, []string{"streak-5", "streak-10"})
	if len(merged2) != 3 || len(added2) != 0 {
		t.Fatalf("expected merge to be idempotent, got merged=%v added=%v", merged2, added2)
	}
}

func TestAnswerXP(t *testing.T) {
	if got := AnswerXP(DifficultyEasy, true); got != 50 {
		t.Errorf("easy correct = %d, want 50", got)
	}
	if got := AnswerXP(DifficultyMedium, true); got != 100 {
		t.Errorf("medium correct = %d, want 100", got)
	}
	if got := AnswerXP(DifficultyHard, true); got != 150 {
		t.Errorf("hard correct = %d, want 150", got)
	}
	// Incorrect answers keep the original flat participation award.
	if got := AnswerXP(DifficultyHard, false); got != 10 {
		t.Errorf("incorrect = %d, want 10", got)
	}
}

func TestSimulationXP(t *testing.T) {
	if got := SimulationXP(0); got != 200 {
		t.Errorf("no flags = %d, want 200", got)
	}
	if got := SimulationXP(4); got != 300 {
		t.Errorf("4 flags = %d, want 300", got)
	}
	if got := SimulationXP(-2); got != 200 {
		t.Errorf("negative flags = %d, want 200", got)
	}
}
