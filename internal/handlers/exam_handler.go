package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExamHandler struct {
	BaseHandler
	exams    services.ExamService
	sessions services.SessionService
	results  services.ResultService
	exporter services.ImportExportService
}

func NewExamHandler(
	exams services.ExamService,
	sessions services.SessionService,
	results services.ResultService,
	exporter services.ImportExportService,
	logger utils.Logger,
) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		exams:       exams,
		sessions:    sessions,
		results:     results,
		exporter:    exporter,
	}
}

// CreateExam
// @Summary Create exam
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.CreateExamRequest true "Exam data"
// @Success 201 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateExamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	exam, err := h.exams.GetByID(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// ListExams
// @Summary List exams
// @Tags exams
// @Produce json
// @Param class_level query string false "Class level"
// @Param branch_id query int false "Branch"
// @Param created_by query int false "Author"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} services.ExamListResponse
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	limit, offset := h.pagination(c)
	filters := models.ExamFilters{
		BranchID:  h.optionalID(c, "branch_id"),
		CreatedBy: h.optionalID(c, "created_by"),
		Limit:     limit,
		Offset:    offset,
	}
	if classLevel := strings.TrimSpace(c.Query("class_level")); classLevel != "" {
		filters.ClassLevel = &classLevel
	}

	response, err := h.exams.List(c.Request.Context(), filters, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.UpdateExamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	exam, err := h.exams.Update(c.Request.Context(), id, &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.exams.Delete(c.Request.Context(), id, principal); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Exam deleted successfully"})
}

// SetQuestions replaces the exam's linked questions
// @Summary Set exam questions
// @Tags exams
// @Accept json
// @Produce json
// @Param id path int true "Exam ID"
// @Param questions body models.ExamQuestionsRequest true "Question IDs"
// @Success 200 {object} models.Exam
// @Router /exams/{id}/questions [put]
func (h *ExamHandler) SetQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req models.ExamQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	exam, err := h.exams.SetQuestions(c.Request.Context(), id, req.QuestionIDs, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// ListForLearner returns the exams open to the calling learner
// @Summary Exams available to me
// @Tags exams
// @Produce json
// @Success 200 {array} models.Exam
// @Router /exams/student-exams [get]
func (h *ExamHandler) ListForLearner(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	exams, err := h.exams.ListForLearner(c.Request.Context(), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}

// GetQuestions starts or resumes the learner's session. Staff receive the full
// question set including answer keys.
// @Summary Exam questions
// @Tags sessions
// @Produce json
// @Param id path int true "Exam ID"
// @Success 200 {object} services.ExamQuestionsResponse
// @Failure 403 {object} ErrorResponse
// @Router /exams/{id}/questions [get]
func (h *ExamHandler) GetQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	client := services.ClientInfo{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	response, err := h.sessions.GetQuestions(c.Request.Context(), id, principal, client)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ExamHandler) GetSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	session, err := h.sessions.GetSession(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Submit grades the learner's answers against the server clock
// @Summary Submit exam
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path int true "Exam ID"
// @Param answers body services.SubmitExamRequest true "Answers"
// @Success 201 {object} services.SubmissionResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams/{id}/submit [post]
func (h *ExamHandler) Submit(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.SubmitExamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	response, err := h.sessions.Submit(c.Request.Context(), id, &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "exam submitted", "exam_id", id, "learner_id", principal.ID, "score", response.Score)
	c.JSON(http.StatusCreated, response)
}

func (h *ExamHandler) ListResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	results, err := h.results.ListByExam(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ExportResults streams the exam's results as an .xlsx attachment
// @Summary Export results
// @Tags exams
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Exam ID"
// @Success 200 {file} file
// @Router /exams/{id}/results/export [get]
func (h *ExamHandler) ExportResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	data, filename, err := h.exporter.ExportExamResults(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
