package handlers

import (
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

const userHeader = "X-User-ID"

type createPostRequest struct {
	AuthorID string `json:"authorId"`
	Content  string `json:"content"`
}

func (h *Handlers) handleCreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	p, err := h.likes.CreatePost(c.Request.Context(), req.AuthorID, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, p)
}

// handleToggleLike 失败时返回已回滚的状态，便于客户端撤销乐观更新
func (h *Handlers) handleToggleLike(c *gin.Context) {
	id, err := cast.ToUintE(c.Param("id"))
	if err != nil || id == 0 {
		h.fail(c, errors.NotFound("post %s not found", c.Param("id")))
		return
	}
	state, err := h.likes.Toggle(c.Request.Context(), id, c.GetHeader(userHeader))
	if err != nil {
		h.failWithData(c, err, state)
		return
	}
	response.OK(c, state)
}
