package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/internal/app"
	"docqa/internal/transport/http/response"
)

type Asker interface {
	Ask(ctx context.Context, question string) (*app.AskResult, error)
}

type QAHandler struct {
	qa Asker
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

func NewQAHandler(qa Asker) *QAHandler {
	return &QAHandler{qa: qa}
}

func (h *QAHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.qa.Ask(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "question must not be empty")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.MsgQueryFailed)
		return
	}
	response.OK(c, result)
}

func Secure(c *gin.Context) {
	response.OK(c, gin.H{"message": "Access granted"})
}
