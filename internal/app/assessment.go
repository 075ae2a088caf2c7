package app

import (
	"math/rand"
	"time"

	"phishguard-engine/internal/domain"
)

// DefaultSessionLength caps an assessment session's question count. A
// smaller pool terminates the session at pool exhaustion instead.
const DefaultSessionLength = 15

// AssessmentSession selects questions adaptively for a single session. It is
// scoped to one connection and not safe for concurrent use; the question
// pool it draws from is shared and read-only.
type AssessmentSession struct {
	pool    []domain.Question
	byTier  map[domain.Difficulty][]int
	asked   map[string]bool
	current int // index into pool of the question awaiting an answer, -1 when none

	tier               domain.Difficulty
	consecutiveCorrect int
	answered           int
	length             int
	rnd                *rand.Rand
}

// NewAssessmentSession starts a session at the easy tier. length defaults to
// DefaultSessionLength when non-positive and is always clamped to the pool
// size. rnd may be seeded for deterministic tests; nil means time-seeded.
func NewAssessmentSession(pool []domain.Question, length int, rnd *rand.Rand) *AssessmentSession {
	if length <= 0 {
		length = DefaultSessionLength
	}
	if length > len(pool) {
		length = len(pool)
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	byTier := make(map[domain.Difficulty][]int)
	for i, q := range pool {
		byTier[q.Difficulty] = append(byTier[q.Difficulty], i)
	}

	return &AssessmentSession{
		pool:    pool,
		byTier:  byTier,
		asked:   make(map[string]bool, length),
		current: -1,
		tier:    domain.DifficultyEasy,
		length:  length,
		rnd:     rnd,
	}
}

// Tier returns the current difficulty tier.
func (s *AssessmentSession) Tier() domain.Difficulty { return s.tier }

// Answered returns how many questions have been answered.
func (s *AssessmentSession) Answered() int { return s.answered }

// Length returns the session's question bound.
func (s *AssessmentSession) Length() int { return s.length }

// Done reports whether the session has reached its question bound.
func (s *AssessmentSession) Done() bool { return s.answered >= s.length }

// Next draws the next question: uniformly from the current tier's unasked
// questions, or sequentially through the full pool when the tier is empty.
// It returns false when the session is complete or the pool is exhausted.
func (s *AssessmentSession) Next() (domain.Question, bool) {
	if s.Done() {
		return domain.Question{}, false
	}

	var candidates []int
	for _, i := range s.byTier[s.tier] {
		if !s.asked[s.pool[i].ID] {
			candidates = append(candidates, i)
		}
	}

	var pick int
	if len(candidates) > 0 {
		pick = candidates[s.rnd.Intn(len(candidates))]
	} else {
		// Tier exhausted: advance sequentially through the remaining pool.
		pick = -1
		for i := range s.pool {
			if !s.asked[s.pool[i].ID] {
				pick = i
				break
			}
		}
		if pick < 0 {
			return domain.Question{}, false
		}
	}

	s.asked[s.pool[pick].ID] = true
	s.current = pick
	return s.pool[pick], true
}

// Submit records the outcome of the outstanding question and applies the
// tier transition: two consecutive correct answers promote one tier, any
// incorrect answer demotes one tier, and the ends of the scale saturate.
// Submit consumes the question drawn by the last Next; without one
// outstanding it is a no-op, so a duplicate submission cannot inflate the
// answered count or the tier counter.
func (s *AssessmentSession) Submit(correct bool) {
	if s.current < 0 {
		return
	}
	s.answered++
	s.current = -1

	if correct {
		s.consecutiveCorrect++
		if s.consecutiveCorrect >= 2 {
			s.tier = promote(s.tier)
			s.consecutiveCorrect = 0
		}
		return
	}
	s.tier = demote(s.tier)
	s.consecutiveCorrect = 0
}

func promote(d domain.Difficulty) domain.Difficulty {
	switch d {
	case domain.DifficultyEasy:
		return domain.DifficultyMedium
	case domain.DifficultyMedium:
		return domain.DifficultyHard
	default:
		return domain.DifficultyHard
	}
}

func demote(d domain.Difficulty) domain.Difficulty {
	switch d {
	case domain.DifficultyHard:
		return domain.DifficultyMedium
	case domain.DifficultyMedium:
		return domain.DifficultyEasy
	default:
		return domain.DifficultyEasy
	}
}

// ScoreAnswer validates a selected option against the question and reports
// whether it was correct.
func ScoreAnswer(q domain.Question, optionID string) (bool, error) {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return q.Options[i].Correct, nil
		}
	}
	return false, domain.ErrOptionNotFound
}
