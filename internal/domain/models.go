package domain

import "time"

// Difficulty is an adaptive tier for question selection.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuizCounters are display aggregates for quiz activity. They are updated by
// increment only, never recomputed from the attempt log.
type QuizCounters struct {
	Attempts int `json:"attempts" bson:"attempts"`
	Correct  int `json:"correct" bson:"correct"`
}

// SimCounters are display aggregates for phishing-simulation activity.
type SimCounters struct {
	Completed  int `json:"completed" bson:"completed"`
	FlagsFound int `json:"flagsFound" bson:"flags_found"`
}

// Profile is the canonical per-user progression record. It is the source of
// truth; the leaderboard entry is a projection of it.
type Profile struct {
	ID           string       `json:"id" bson:"_id"`
	DisplayName  string       `json:"displayName" bson:"display_name"`
	XP           int          `json:"xp" bson:"xp"`
	Level        int          `json:"level" bson:"level"`
	Streak       int          `json:"streak" bson:"streak"`
	LastActiveAt time.Time    `json:"lastActiveAt" bson:"last_active_at"`
	Badges       []string     `json:"badges" bson:"badges"`
	GroupCode    string       `json:"groupCode,omitempty" bson:"group_code,omitempty"`
	QuizStats    QuizCounters `json:"quizStats" bson:"quiz_stats"`
	SimStats     SimCounters  `json:"simStats" bson:"sim_stats"`
	CreatedAt    time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updated_at"`
}

// NewProfile returns a zeroed profile for a first sign-in.
func NewProfile(id, displayName string, now time.Time) Profile {
	return Profile{
		ID:          id,
		DisplayName: displayName,
		Level:       1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ProfileUpdate is a partial-field upsert. A nil pointer leaves the stored
// field untouched; Badges replaces the stored set when non-nil.
type ProfileUpdate struct {
	DisplayName  *string
	XP           *int
	Level        *int
	Streak       *int
	LastActiveAt *time.Time
	Badges       []string
	GroupCode    *string
	QuizStats    *QuizCounters
	SimStats     *SimCounters
}

// LeaderboardEntry is the denormalized, read-optimized projection of a
// profile. DisplayName is copied so leaderboard reads stay single-collection.
type LeaderboardEntry struct {
	ID          string    `json:"id" bson:"_id"`
	DisplayName string    `json:"displayName" bson:"display_name"`
	XP          int       `json:"xp" bson:"xp"`
	Level       int       `json:"level" bson:"level"`
	Streak      int       `json:"streak" bson:"streak"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// RankedEntry pairs a leaderboard entry with its 1-based position within the
// returned page. Ranks are never stored; they are recomputed per query and
// are only meaningful within the page.
type RankedEntry struct {
	Rank int `json:"rank"`
	LeaderboardEntry
}

// Group is a short-code-identified set of users sharing a private
// leaderboard view.
type Group struct {
	Code      string    `json:"code" bson:"_id"`
	OwnerID   string    `json:"ownerId" bson:"owner_id"`
	Members   []string  `json:"members" bson:"members"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// HasMember reports whether id is in the group's member set.
func (g Group) HasMember(id string) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}

// QuizAttempt is an immutable, append-only log entry for a single answered
// question.
type QuizAttempt struct {
	ID         string     `json:"id" bson:"_id"`
	UserID     string     `json:"userId" bson:"user_id"`
	QuestionID string     `json:"questionId" bson:"question_id"`
	Difficulty Difficulty `json:"difficulty" bson:"difficulty"`
	Correct    bool       `json:"correct" bson:"correct"`
	XPEarned   int        `json:"xpEarned" bson:"xp_earned"`
	At         time.Time  `json:"at" bson:"at"`
}

// Option is a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is a quiz question tagged with a difficulty tier.
type Question struct {
	ID         string     `json:"id"`
	Prompt     string     `json:"prompt"`
	Difficulty Difficulty `json:"difficulty"`
	Options    []Option   `json:"options"`
}

// Catalog is the static content the engine consumes: the question pool and
// the leveling table. It is loaded once at startup and never mutated, so it
// is safe to share across sessions without locking.
type Catalog struct {
	Questions []Question    `json:"questions"`
	Levels    LevelingTable `json:"levels"`
}

// Question returns the question with the given id and whether it exists.
func (c Catalog) Question(id string) (Question, bool) {
	for i := range c.Questions {
		if c.Questions[i].ID == id {
			return c.Questions[i], true
		}
	}
	return Question{}, false
}
