package app_test

import (
	"fmt"
	"math/rand"
	"testing"

	"phishguard-engine/internal/app"
	"phishguard-engine/internal/domain"
)

func tieredPool(easy, medium, hard int) []domain.Question {
	var pool []domain.Question
	add := func(n int, d domain.Difficulty) {
		for i := 0; i < n; i++ {
			pool = append(pool, domain.Question{
				ID:         fmt.Sprintf("%s-%d", d, i),
				Difficulty: d,
				Options: []domain.Option{
					{ID: "right", Correct: true},
					{ID: "wrong"},
				},
			})
		}
	}
	add(easy, domain.DifficultyEasy)
	add(medium, domain.DifficultyMedium)
	add(hard, domain.DifficultyHard)
	return pool
}

func TestPromotionAfterTwoCorrect(t *testing.T) {
	session := app.NewAssessmentSession(tieredPool(5, 5, 5), 15, rand.New(rand.NewSource(1)))

	if session.Tier() != domain.DifficultyEasy {
		t.Fatalf("expected session to start easy, got %s", session.Tier())
	}

	mustNext(t, session)
	session.Submit(true)
	if session.Tier() != domain.DifficultyEasy {
		t.Fatalf("one correct answer must not promote, got %s", session.Tier())
	}

	mustNext(t, session)
	session.Submit(true)
	if session.Tier() != domain.DifficultyMedium {
		t.Fatalf("expected promotion to medium, got %s", session.Tier())
	}

	// Demote straight back on an incorrect answer.
	mustNext(t, session)
	session.Submit(false)
	if session.Tier() != domain.DifficultyEasy {
		t.Fatalf("expected demotion to easy, got %s", session.Tier())
	}
}

func TestConsecutiveCountResetsOnPromotion(t *testing.T) {
	session := app.NewAssessmentSession(tieredPool(5, 5, 5), 15, rand.New(rand.NewSource(1)))

	// Two correct promote to medium and reset the counter, so the third
	// correct answer alone must not promote again.
	for i := 0; i < 3; i++ {
		mustNext(t, session)
		session.Submit(true)
	}
	if session.Tier() != domain.DifficultyMedium {
		t.Fatalf("expected medium after three correct, got %s", session.Tier())
	}

	mustNext(t, session)
	session.Submit(true)
	if session.Tier() != domain.DifficultyHard {
		t.Fatalf("expected hard after four correct, got %s", session.Tier())
	}
}

func TestHardSaturatesEasyFloors(t *testing.T) {
	session := app.NewAssessmentSession(tieredPool(5, 5, 5), 15, rand.New(rand.NewSource(1)))

	// Climb to hard, then keep answering correctly: hard stays hard.
	for i := 0; i < 6; i++ {
		mustNext(t, session)
		session.Submit(true)
	}
	if session.Tier() != domain.DifficultyHard {
		t.Fatalf("expected hard, got %s", session.Tier())
	}

	// Drop to easy, then keep missing: easy stays easy.
	for i := 0; i < 4; i++ {
		mustNext(t, session)
		session.Submit(false)
	}
	if session.Tier() != domain.DifficultyEasy {
		t.Fatalf("expected easy floor, got %s", session.Tier())
	}
}

func TestSessionBoundedByPoolSize(t *testing.T) {
	session := app.NewAssessmentSession(tieredPool(3, 1, 1), 15, rand.New(rand.NewSource(1)))

	served := 0
	for {
		_, ok := session.Next()
		if !ok {
			break
		}
		served++
		session.Submit(true)
	}
	if served != 5 {
		t.Fatalf("expected a 5-question pool to serve exactly 5, got %d", served)
	}
	if !session.Done() {
		t.Fatalf("expected session done after pool exhaustion")
	}
	if _, ok := session.Next(); ok {
		t.Fatalf("session must never serve a question past the bound")
	}
}

func TestSessionBoundedByConfiguredLength(t *testing.T) {
	session := app.NewAssessmentSession(tieredPool(10, 10, 10), 4, rand.New(rand.NewSource(1)))

	for i := 0; i < 4; i++ {
		mustNext(t, session)
		session.Submit(i%2 == 0)
	}
	if !session.Done() {
		t.Fatalf("expected session done after 4 answers")
	}
	if _, ok := session.Next(); ok {
		t.Fatalf("expected no question past the configured length")
	}
}

func TestEmptyTierFallsBackSequentially(t *testing.T) {
	// No medium questions at all: after promotion the selector advances
	// sequentially through the remaining pool.
	session := app.NewAssessmentSession(tieredPool(2, 0, 3), 5, rand.New(rand.NewSource(1)))

	mustNext(t, session)
	session.Submit(true)
	mustNext(t, session)
	session.Submit(true)
	if session.Tier() != domain.DifficultyMedium {
		t.Fatalf("expected medium tier, got %s", session.Tier())
	}

	q, ok := session.Next()
	if !ok {
		t.Fatalf("expected fallback question")
	}
	if q.ID == "" {
		t.Fatalf("expected a question from the remaining pool")
	}
}

func TestNeverRepeatsQuestions(t *testing.T) {
	session := app.NewAssessmentSession(tieredPool(4, 4, 4), 12, rand.New(rand.NewSource(3)))

	seen := make(map[string]bool)
	for {
		q, ok := session.Next()
		if !ok {
			break
		}
		if seen[q.ID] {
			t.Fatalf("question %q served twice", q.ID)
		}
		seen[q.ID] = true
		session.Submit(true)
	}
	if len(seen) != 12 {
		t.Fatalf("expected 12 distinct questions, got %d", len(seen))
	}
}

func TestDuplicateSubmitIsIgnored(t *testing.T) {
	session := app.NewAssessmentSession(tieredPool(5, 5, 5), 15, rand.New(rand.NewSource(1)))

	// Submitting with no outstanding question must not count.
	session.Submit(true)
	if session.Answered() != 0 {
		t.Fatalf("expected no answers recorded, got %d", session.Answered())
	}

	mustNext(t, session)
	session.Submit(true)
	session.Submit(true)
	if session.Answered() != 1 {
		t.Fatalf("expected one answer recorded, got %d", session.Answered())
	}
	// The swallowed duplicate must not count toward promotion either.
	if session.Tier() != domain.DifficultyEasy {
		t.Fatalf("one correct answer must not promote, got %s", session.Tier())
	}

	mustNext(t, session)
	session.Submit(true)
	if session.Tier() != domain.DifficultyMedium {
		t.Fatalf("expected promotion after two real answers, got %s", session.Tier())
	}
}

func TestScoreAnswer(t *testing.T) {
	q := domain.Question{
		ID: "q1",
		Options: []domain.Option{
			{ID: "a", Correct: false},
			{ID: "b", Correct: true},
		},
	}
	correct, err := app.ScoreAnswer(q, "b")
	if err != nil || !correct {
		t.Fatalf("expected correct for b, got %v %v", correct, err)
	}
	correct, err = app.ScoreAnswer(q, "a")
	if err != nil || correct {
		t.Fatalf("expected incorrect for a, got %v %v", correct, err)
	}
	if _, err := app.ScoreAnswer(q, "zzz"); err == nil {
		t.Fatalf("expected error for unknown option")
	}
}

func mustNext(t *testing.T, s *app.AssessmentSession) domain.Question {
	t.Helper()
	q, ok := s.Next()
	if !ok {
		t.Fatalf("expected another question (answered=%d)", s.Answered())
	}
	return q
}
