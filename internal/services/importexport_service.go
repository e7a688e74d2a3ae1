package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/repositories"
)

const (
	maxImportRows  = 2000
	resultsSheet   = "Results"
	xlsxMaxOptions = 26
)

// question sheet columns, matched case-insensitively against the header row
var requiredImportColumns = []string{"subject_id", "class_level", "text", "option_a", "option_b", "correct"}

type importExportService struct {
	deps      Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	questions *questionService
}

func NewImportExportService(deps Dependencies) ImportExportService {
	deps = deps.withDefaults()
	return &importExportService{
		deps:      deps,
		repo:      deps.Repo,
		logger:    deps.Logger,
		questions: &questionService{deps: deps, repo: deps.Repo, logger: deps.Logger},
	}
}

// ===== QUESTION IMPORT =====

// ImportQuestions reads the first sheet of a workbook. Valid rows are
// inserted in one batch; invalid rows are reported and skipped.
func (s *importExportService) ImportQuestions(ctx context.Context, r io.Reader, actor access.Principal) (*ImportResult, error) {
	if err := authorize(s.deps.Policy, actor, access.ResourceQuestion, access.ActionImport, 0, access.Ref{}); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, validationError("file", "not a readable xlsx workbook", "xlsx", nil)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, validationError("file", "workbook has no sheets", "xlsx", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, validationError("file", "sheet needs a header row and at least one question", "xlsx", nil)
	}
	if len(rows)-1 > maxImportRows {
		return nil, validationError("file", fmt.Sprintf("at most %d questions per import", maxImportRows), "max", len(rows)-1)
	}

	columns := headerIndex(rows[0])
	for _, name := range requiredImportColumns {
		if _, ok := columns[name]; !ok {
			return nil, validationError("file", "missing column "+name, "xlsx_header", name)
		}
	}

	result := &ImportResult{}
	var batch []*models.Question
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if isBlankRow(row) {
			continue
		}
		req, err := parseQuestionRow(row, columns)
		if err == nil {
			var question *models.Question
			question, err = s.questions.buildQuestion(ctx, req, actor.ID)
			if err == nil {
				batch = append(batch, question)
				continue
			}
		}
		result.Failed++
		result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Message: err.Error()})
	}

	if len(batch) > 0 {
		if err := s.repo.Question().CreateBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to import questions: %w", err)
		}
	}
	result.Imported = len(batch)
	result.Created = batch

	s.logger.Info("Questions imported", "imported", result.Imported, "failed", result.Failed, "creator_id", actor.ID)
	return result, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key != "" {
			index[key] = i
		}
	}
	return index
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseQuestionRow maps one sheet row to a create request. Options are read
// from option_a onwards and stop at the first empty cell.
func parseQuestionRow(row []string, columns map[string]int) (*CreateQuestionRequest, error) {
	subjectID, err := strconv.ParseUint(cell(row, columns, "subject_id"), 10, 64)
	if err != nil || subjectID == 0 {
		return nil, fmt.Errorf("subject_id must be a positive number")
	}

	var options []string
	for i := 0; i < xlsxMaxOptions; i++ {
		value := cell(row, columns, fmt.Sprintf("option_%c", 'a'+i))
		if value == "" {
			break
		}
		options = append(options, value)
	}

	correct, ok := OptionIndex(cell(row, columns, "correct"))
	if !ok {
		return nil, fmt.Errorf("correct must be an option letter")
	}

	req := &CreateQuestionRequest{
		SubjectID:          uint(subjectID),
		ClassLevel:         strings.ToUpper(cell(row, columns, "class_level")),
		Text:               cell(row, columns, "text"),
		Options:            options,
		CorrectOptionIndex: correct,
		Difficulty:         models.DifficultyLevel(strings.ToLower(cell(row, columns, "difficulty"))),
	}
	if category := cell(row, columns, "category"); category != "" {
		req.Category = &category
	}
	return req, nil
}

// ===== RESULTS EXPORT =====

// ExportExamResults renders an exam's results as a workbook and returns it
// with a file name
func (s *importExportService) ExportExamResults(ctx context.Context, examID uint, actor access.Principal) ([]byte, string, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		return nil, "", notFoundAs(err, ErrExamNotFound)
	}
	if err := authorize(s.deps.Policy, actor, access.ResourceResult, access.ActionExport, examID, access.Ref{BranchID: exam.BranchID}); err != nil {
		return nil, "", err
	}

	results, err := s.repo.Result().ListByExam(ctx, examID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return nil, "", fmt.Errorf("failed to prepare workbook: %w", err)
	}

	header := []interface{}{"Student ID", "Full Name", "Class Level", "Score", "Total Questions", "Percentage", "Submitted At"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return nil, "", fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range results {
		var studentID, fullName, classLevel string
		if r.Learner != nil {
			studentID = derefString(r.Learner.StudentID)
			fullName = r.Learner.FullName
			classLevel = derefString(r.Learner.ClassLevel)
		}
		row := []interface{}{studentID, fullName, classLevel, r.Score, r.TotalQuestions, r.Percentage, r.SubmittedAt.Format("2006-01-02 15:04:05")}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetSheetRow(resultsSheet, axis, &row); err != nil {
			return nil, "", fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Exam results exported", "exam_id", examID, "rows", len(results), "user_id", actor.ID)
	return buf.Bytes(), fmt.Sprintf("exam_%d_results.xlsx", examID), nil
}
