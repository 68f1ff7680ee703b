package handlers

import (
	"VidyaSync/internal/translate"
	"VidyaSync/pkg/response"

	"github.com/gin-gonic/gin"
)

type translateQuestionRequest struct {
	Question       translate.Question `json:"question"`
	TargetLanguage string             `json:"targetLanguage"`
}

func (h *Handlers) handleTranslateQuestion(c *gin.Context) {
	var req translateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.translator.Translate(c.Request.Context(), req.Question, req.TargetLanguage)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}
