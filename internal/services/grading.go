package services

import (
	"math"
	"strings"

	"github.com/Talent-1/cbt-service/internal/models"
)

// Scoring is the outcome of grading one submission
type Scoring struct {
	Score          int
	TotalQuestions int
	Percentage     float64
	Answers        []models.ResultAnswer
}

// OptionIndex maps a letter answer to an option index. A..Z map to 0..25
// ignoring case and surrounding space; anything else reports false.
func OptionIndex(selected string) (int, bool) {
	s := strings.TrimSpace(selected)
	if len(s) != 1 {
		return 0, false
	}
	c := s[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	}
	return 0, false
}

// ScoreSubmission grades answers against the exam's linked questions.
// Answers to questions outside the exam are ignored and a repeated question
// counts once, first answer wins. totalQuestions is the exam's question count.
func ScoreSubmission(questions []*models.Question, answers []models.SubmittedAnswer, totalQuestions int) Scoring {
	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	result := Scoring{TotalQuestions: totalQuestions}
	seen := make(map[uint]bool, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true

		idx, valid := OptionIndex(a.SelectedOption)
		correct := valid && idx == q.CorrectOptionIndex && idx < len(q.Options)
		if correct {
			result.Score++
		}
		result.Answers = append(result.Answers, models.ResultAnswer{
			QuestionID:     q.ID,
			SelectedOption: normalizeSelection(a.SelectedOption),
			IsCorrect:      correct,
		})
	}

	result.Percentage = Percentage(result.Score, totalQuestions)
	return result
}

// Percentage is score/total*100 rounded to two decimals, 0 when total is 0
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*10000) / 100
}

// normalizeSelection fits the stored selection into the answer column
func normalizeSelection(selected string) string {
	s := strings.ToUpper(strings.TrimSpace(selected))
	if len(s) > 5 {
		s = s[:5]
	}
	return s
}
