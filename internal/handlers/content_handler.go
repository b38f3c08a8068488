package handlers

import (
	"net/http"
	"time"

	"aptitude-service/internal/service"

	"github.com/gin-gonic/gin"
)

// ContentHandler serves the endpoints that generate from the reference book
// without a caller-supplied topic.
type ContentHandler struct {
	*TestHandler
}

func NewContentHandler(th *TestHandler) *ContentHandler {
	return &ContentHandler{TestHandler: th}
}

type chunkTestRequest struct {
	NumQuestions int    `json:"numQuestions" binding:"omitempty,min=1,max=50"`
	Difficulty   string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// RandomQuestions handles POST /random-aptitude-questions
func (h *ContentHandler) RandomQuestions(c *gin.Context) {
	var req struct {
		NumQuestions  int      `json:"numQuestions" binding:"omitempty,min=1,max=50"`
		Difficulty    string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
		QuestionTypes []string `json:"questionTypes" binding:"omitempty,dive,oneof=verbal quantitative logical analytical mixed"`
	}
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Service.RandomQuestions(c.Request.Context(), service.RandomQuestionsParams{
		NumQuestions:  req.NumQuestions,
		Difficulty:    req.Difficulty,
		QuestionTypes: req.QuestionTypes,
	})
	if err != nil {
		h.fail(c, err, "Failed to generate random aptitude questions")
		return
	}
	c.JSON(http.StatusOK, res)
}

// IntelligentTest handles POST /intelligent-aptitude-test
func (h *ContentHandler) IntelligentTest(c *gin.Context) {
	var req chunkTestRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Service.IntelligentTest(c.Request.Context(), service.ChunkTestParams{
		NumQuestions: req.NumQuestions,
		Difficulty:   req.Difficulty,
	})
	if err != nil {
		h.fail(c, err, "Failed to generate intelligent aptitude test")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ModelTest handles POST /google-ai-test
func (h *ContentHandler) ModelTest(c *gin.Context) {
	var req chunkTestRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Service.ModelTest(c.Request.Context(), service.ChunkTestParams{
		NumQuestions: req.NumQuestions,
		Difficulty:   req.Difficulty,
	})
	if err != nil {
		h.fail(c, err, "Failed to generate AI aptitude test")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ContentAnalysis handles GET /content-analysis
func (h *ContentHandler) ContentAnalysis(c *gin.Context) {
	report, err := h.Service.ContentAnalysis(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to analyze content")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analysis":    report,
		"totalChunks": report.TotalChunks,
		"analyzedAt":  time.Now().UTC(),
	})
}

// Ask handles POST /ask
func (h *ContentHandler) Ask(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !h.bind(c, &req) {
		return
	}

	response, err := h.Service.Ask(c.Request.Context(), req.Prompt)
	if err != nil {
		h.fail(c, err, "Something went wrong")
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": response})
}
