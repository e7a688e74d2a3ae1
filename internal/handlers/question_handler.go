package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

const maxUploadBytes = 10 << 20

type QuestionHandler struct {
	BaseHandler
	service  services.QuestionService
	importer services.ImportExportService
}

func NewQuestionHandler(service services.QuestionService, importer services.ImportExportService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		importer:    importer,
	}
}

// CreateQuestion
// @Summary Create question
// @Tags questions
// @Accept json
// @Produce json
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.service.Create(c.Request.Context(), &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	question, err := h.service.GetByID(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// ListQuestions
// @Summary List questions
// @Tags questions
// @Produce json
// @Param subject_id query int false "Subject"
// @Param class_level query string false "Class level"
// @Param difficulty query string false "Difficulty"
// @Param created_by query int false "Author"
// @Param search query string false "Text search"
// @Success 200 {object} services.QuestionListResponse
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	limit, offset := h.pagination(c)
	filters := models.QuestionFilters{
		SubjectID: h.optionalID(c, "subject_id"),
		CreatedBy: h.optionalID(c, "created_by"),
		Search:    strings.TrimSpace(c.Query("search")),
		Limit:     limit,
		Offset:    offset,
	}
	if classLevel := strings.TrimSpace(c.Query("class_level")); classLevel != "" {
		filters.ClassLevel = &classLevel
	}
	if difficulty := strings.TrimSpace(c.Query("difficulty")); difficulty != "" {
		d := models.DifficultyLevel(difficulty)
		filters.Difficulty = &d
	}

	response, err := h.service.List(c.Request.Context(), filters, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.UpdateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.service.Update(c.Request.Context(), id, &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, principal); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted successfully"})
}

// UploadImage attaches an image to a question. The multipart field is "image".
// @Summary Upload question image
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Question ID"
// @Param image formData file true "Image"
// @Success 200 {object} models.Question
// @Router /questions/{id}/image [post]
func (h *QuestionHandler) UploadImage(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("image")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Image file is required", err)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unable to read image", err)
		return
	}
	defer file.Close()

	question, err := h.service.UploadImage(c.Request.Context(), id, file, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// ImportQuestions bulk loads questions from an .xlsx workbook (multipart field "file").
// Rows that fail validation are reported and skipped.
// @Summary Import questions
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook"
// @Success 200 {object} services.ImportResult
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Workbook file is required", err)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unable to read workbook", err)
		return
	}
	defer file.Close()

	result, err := h.importer.ImportQuestions(c.Request.Context(), file, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "questions imported", "imported", result.Imported, "failed", result.Failed)
	c.JSON(http.StatusOK, result)
}
