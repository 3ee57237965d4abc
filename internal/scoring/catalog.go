package scoring

import "github.com/opensource-finance/kestrel/internal/domain"

// Questionnaire returns the fixed 7-question catalog: two questions each for
// knowledge, attitude, and capacity, one for timeframe. Options are ordered
// by ascending risk tolerance and scored 1-4. Callers get a fresh slice on
// every call; the catalog itself never changes at runtime.
func Questionnaire() []domain.Question {
	return []domain.Question{
		{
			ID:       domain.QuestionKnowledge1,
			Category: domain.CategoryKnowledge,
			Text:     "How familiar are you with investment products such as shares, bonds and funds?",
			Options: []domain.AnswerOption{
				{Label: "Not familiar at all", Score: 1},
				{Label: "I understand the basics", Score: 2},
				{Label: "Reasonably familiar", Score: 3},
				{Label: "Very familiar, I follow markets closely", Score: 4},
			},
		},
		{
			ID:       domain.QuestionKnowledge2,
			Category: domain.CategoryKnowledge,
			Text:     "Which best describes your experience of investing?",
			Options: []domain.AnswerOption{
				{Label: "I have never invested", Score: 1},
				{Label: "I have held funds chosen by an adviser", Score: 2},
				{Label: "I occasionally choose my own funds or shares", Score: 3},
				{Label: "I actively manage my own portfolio", Score: 4},
			},
		},
		{
			ID:       domain.QuestionAttitude1,
			Category: domain.CategoryAttitude,
			Text:     "How would you feel if your investments fell 20% in a year?",
			Options: []domain.AnswerOption{
				{Label: "I could not accept any loss", Score: 1},
				{Label: "Uncomfortable, I would consider selling", Score: 2},
				{Label: "Concerned, but I would hold on", Score: 3},
				{Label: "Relaxed, falls are part of investing", Score: 4},
			},
		},
		{
			ID:       domain.QuestionAttitude2,
			Category: domain.CategoryAttitude,
			Text:     "Which statement best describes your approach to financial risk?",
			Options: []domain.AnswerOption{
				{Label: "I avoid risk wherever possible", Score: 1},
				{Label: "I prefer safety but accept small risks", Score: 2},
				{Label: "I accept moderate risk for better returns", Score: 3},
				{Label: "I seek high returns and accept large swings", Score: 4},
			},
		},
		{
			ID:       domain.QuestionCapacity1,
			Category: domain.CategoryCapacity,
			Text:     "If your investments lost value, how would your standard of living be affected?",
			Options: []domain.AnswerOption{
				{Label: "Severely, I depend on this money", Score: 1},
				{Label: "Noticeably", Score: 2},
				{Label: "Slightly", Score: 3},
				{Label: "Not at all", Score: 4},
			},
		},
		{
			ID:       domain.QuestionCapacity2,
			Category: domain.CategoryCapacity,
			Text:     "How secure is your main source of income?",
			Options: []domain.AnswerOption{
				{Label: "Not secure", Score: 1},
				{Label: "Somewhat secure", Score: 2},
				{Label: "Secure", Score: 3},
				{Label: "Very secure, with reserves to fall back on", Score: 4},
			},
		},
		{
			ID:       domain.QuestionTimeframe1,
			Category: domain.CategoryTimeframe,
			Text:     "How long before you expect to draw on these investments?",
			Options: []domain.AnswerOption{
				{Label: "Under 3 years", Score: 1},
				{Label: "3 to 5 years", Score: 2},
				{Label: "5 to 10 years", Score: 3},
				{Label: "More than 10 years", Score: 4},
			},
		},
	}
}
