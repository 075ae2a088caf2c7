package memory

import (
	"context"

	"phishguard-engine/internal/domain"
)

// StaticCatalogLoader serves a fixed catalog (useful for tests and demos).
type StaticCatalogLoader struct {
	catalog domain.Catalog
}

func NewStaticCatalogLoader(catalog domain.Catalog) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalog: catalog}
}

func (l *StaticCatalogLoader) LoadCatalog(context.Context) (domain.Catalog, error) {
	return l.catalog, nil
}

// SampleCatalog returns a small built-in catalog so the server can run
// without a content database.
func SampleCatalog() domain.Catalog {
	return domain.Catalog{
		Levels: domain.DefaultLevelingTable(),
		Questions: []domain.Question{
			{
				ID:         "q-easy-1",
				Prompt:     "An email asks you to confirm your password via a link. What do you do?",
				Difficulty: domain.DifficultyEasy,
				Options: []domain.Option{
					{ID: "a", Text: "Click the link and sign in"},
					{ID: "b", Text: "Report it as phishing", Correct: true},
				},
			},
			{
				ID:         "q-easy-2",
				Prompt:     "Which of these is the strongest password?",
				Difficulty: domain.DifficultyEasy,
				Options: []domain.Option{
					{ID: "a", Text: "correct-horse-battery-staple-9", Correct: true},
					{ID: "b", Text: "Password123"},
				},
			},
			{
				ID:         "q-med-1",
				Prompt:     "A sender's address is support@paypa1.com. What is suspicious?",
				Difficulty: domain.DifficultyMedium,
				Options: []domain.Option{
					{ID: "a", Text: "Nothing, it is a normal address"},
					{ID: "b", Text: "The digit 1 imitating the letter l", Correct: true},
				},
			},
			{
				ID:         "q-hard-1",
				Prompt:     "What does a homograph attack exploit?",
				Difficulty: domain.DifficultyHard,
				Options: []domain.Option{
					{ID: "a", Text: "Visually similar unicode characters in domains", Correct: true},
					{ID: "b", Text: "Weak TLS cipher suites"},
				},
			},
		},
	}
}
