package services

import (
	"testing"

	"gorm.io/datatypes"

	"github.com/Talent-1/cbt-service/internal/models"
)

func TestOptionIndex(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "A", want: 0, wantOK: true},
		{in: "b", want: 1, wantOK: true},
		{in: " C ", want: 2, wantOK: true},
		{in: "Z", want: 25, wantOK: true},
		{in: "", wantOK: false},
		{in: "AB", wantOK: false},
		{in: "1", wantOK: false},
		{in: "?", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := OptionIndex(tt.in)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("OptionIndex(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func gradingQuestions() []*models.Question {
	options := datatypes.JSONSlice[string]{"w", "x", "y", "z"}
	return []*models.Question{
		{ID: 1, Options: options, CorrectOptionIndex: 0},
		{ID: 2, Options: options, CorrectOptionIndex: 1},
		{ID: 3, Options: options, CorrectOptionIndex: 2},
		{ID: 4, Options: options, CorrectOptionIndex: 3},
	}
}

func TestScoreSubmission(t *testing.T) {
	answers := []models.SubmittedAnswer{
		{QuestionID: 1, SelectedOption: "A"},
		{QuestionID: 2, SelectedOption: "b"},
		{QuestionID: 3, SelectedOption: "D"},
		{QuestionID: 4, SelectedOption: " d "},
	}

	got := ScoreSubmission(gradingQuestions(), answers, 4)

	if got.Score != 3 || got.TotalQuestions != 4 || got.Percentage != 75 {
		t.Fatalf("ScoreSubmission() = %d/%d (%v), want 3/4 (75)", got.Score, got.TotalQuestions, got.Percentage)
	}
	if len(got.Answers) != 4 {
		t.Fatalf("expected 4 graded answers, got %d", len(got.Answers))
	}
	for _, a := range got.Answers {
		if a.QuestionID == 3 && a.IsCorrect {
			t.Errorf("question 3 must be graded incorrect")
		}
	}
	if got.Answers[3].SelectedOption != "D" {
		t.Errorf("selection not normalised: %q", got.Answers[3].SelectedOption)
	}
}

func TestScoreSubmission_EdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		answers   []models.SubmittedAnswer
		total     int
		wantScore int
		wantPct   float64
		wantRows  int
	}{
		{
			name:      "unknown question ignored",
			answers:   []models.SubmittedAnswer{{QuestionID: 99, SelectedOption: "A"}, {QuestionID: 1, SelectedOption: "A"}},
			total:     4,
			wantScore: 1,
			wantPct:   25,
			wantRows:  1,
		},
		{
			name:      "repeated question counts first answer",
			answers:   []models.SubmittedAnswer{{QuestionID: 1, SelectedOption: "B"}, {QuestionID: 1, SelectedOption: "A"}},
			total:     4,
			wantScore: 0,
			wantPct:   0,
			wantRows:  1,
		},
		{
			name:      "garbage selection is wrong",
			answers:   []models.SubmittedAnswer{{QuestionID: 1, SelectedOption: "AA"}, {QuestionID: 2, SelectedOption: ""}},
			total:     4,
			wantScore: 0,
			wantPct:   0,
			wantRows:  2,
		},
		{
			name:      "zero total gives zero percentage",
			answers:   []models.SubmittedAnswer{{QuestionID: 1, SelectedOption: "A"}},
			total:     0,
			wantScore: 1,
			wantPct:   0,
			wantRows:  1,
		},
		{
			name:      "denominator is the exam count",
			answers:   []models.SubmittedAnswer{{QuestionID: 1, SelectedOption: "A"}},
			total:     3,
			wantScore: 1,
			wantPct:   33.33,
			wantRows:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreSubmission(gradingQuestions(), tt.answers, tt.total)
			if got.Score != tt.wantScore || got.Percentage != tt.wantPct || len(got.Answers) != tt.wantRows {
				t.Errorf("got score=%d pct=%v rows=%d, want score=%d pct=%v rows=%d",
					got.Score, got.Percentage, len(got.Answers), tt.wantScore, tt.wantPct, tt.wantRows)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total int
		want         float64
	}{
		{3, 4, 75},
		{2, 3, 66.67},
		{0, 10, 0},
		{5, 0, 0},
		{10, 10, 100},
	}
	for _, tt := range tests {
		if got := Percentage(tt.score, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.score, tt.total, got, tt.want)
		}
	}
}
