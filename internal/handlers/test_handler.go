package handlers

import (
	"net/http"
	"strconv"

	"aptitude-service/internal/logger"
	"aptitude-service/internal/middleware"
	"aptitude-service/internal/service"

	"github.com/gin-gonic/gin"
)

type TestHandler struct {
	Service    *service.TestService
	Production bool
}

func NewTestHandler(s *service.TestService, production bool) *TestHandler {
	return &TestHandler{Service: s, Production: production}
}

// CreateTest handles POST /tests
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req struct {
		Topics        []string `json:"topics"`
		NumQuestions  int      `json:"numQuestions" binding:"omitempty,min=1,max=50"`
		Difficulty    string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
		QuestionTypes []string `json:"questionTypes" binding:"omitempty,dive,oneof=verbal quantitative logical analytical mixed"`
	}
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Service.CreateTest(c.Request.Context(), service.CreateTestParams{
		Topics:        req.Topics,
		NumQuestions:  req.NumQuestions,
		Difficulty:    req.Difficulty,
		QuestionTypes: req.QuestionTypes,
	})
	if err != nil {
		h.fail(c, err, "Failed to create aptitude test")
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetQuestion handles GET /tests/:id/question?idx=N
func (h *TestHandler) GetQuestion(c *gin.Context) {
	idx, err := strconv.Atoi(c.DefaultQuery("idx", "0"))
	if err != nil {
		// Let the service report an unknown test before the bad index.
		idx = -1
	}

	view, err := h.Service.GetQuestion(c.Request.Context(), c.Param("id"), idx)
	if err != nil {
		h.fail(c, err, "Failed to fetch question")
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAnswer handles POST /tests/:id/submit
func (h *TestHandler) SubmitAnswer(c *gin.Context) {
	var req struct {
		UserID        string `json:"userId"`
		QuestionIndex *int   `json:"questionIndex"`
		SelectedIndex *int   `json:"selectedIndex"`
	}
	if !h.bind(c, &req) {
		return
	}

	userID := req.UserID
	if authed := middleware.UserID(c); authed != "" {
		userID = authed
	}

	res, err := h.Service.SubmitAnswer(c.Request.Context(), c.Param("id"), service.SubmitAnswerParams{
		UserID:        userID,
		QuestionIndex: req.QuestionIndex,
		SelectedIndex: req.SelectedIndex,
	})
	if err != nil {
		h.fail(c, err, "Failed to submit answer")
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetResults handles GET /tests/:id/results?userId=
func (h *TestHandler) GetResults(c *gin.Context) {
	userID := c.Query("userId")
	if authed := middleware.UserID(c); authed != "" {
		userID = authed
	}

	res, err := h.Service.Results(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.fail(c, err, "Failed to fetch results")
		return
	}
	c.JSON(http.StatusOK, res)
}

// bind decodes an optional JSON body. An empty body leaves req at its zero value.
func (h *TestHandler) bind(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// fail maps service errors onto status codes. Unexpected errors get a
// generic message; details are only exposed outside production.
func (h *TestHandler) fail(c *gin.Context, err error, message string) {
	switch {
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Test not found"})
	case service.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("%s: %v", message, err)
		body := gin.H{"error": message}
		if !h.Production {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}
