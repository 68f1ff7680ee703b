package handlers

import (
	"VidyaSync/internal/models"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type createResourceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	Language    string `json:"language"`
	FileURL     string `json:"fileUrl"`
	UploaderID  string `json:"uploaderId"`
}

type generateAudioRequest struct {
	Segments []models.TranscriptSegment `json:"segments"`
	Language string                     `json:"language"`
}

func (h *Handlers) handleCreateResource(c *gin.Context) {
	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	r := &models.Resource{
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		Language:    req.Language,
		FileURL:     req.FileURL,
		UploaderID:  req.UploaderID,
	}
	if err := h.pipeline.CreateResource(c.Request.Context(), r); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, r)
}

func (h *Handlers) handleGetResource(c *gin.Context) {
	r, err := h.pipeline.GetResource(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, r)
}

func (h *Handlers) handleDeleteResource(c *gin.Context) {
	if err := h.pipeline.DeleteResource(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// handleEvents 推送该资源的生成事件，直到客户端断开
func (h *Handlers) handleEvents(c *gin.Context) {
	if h.events == nil {
		h.fail(c, errors.NotFound("event stream is not enabled"))
		return
	}
	if _, err := h.pipeline.GetResource(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.events.Serve(c, c.Param("id"))
}

func (h *Handlers) handleTranscript(c *gin.Context) {
	t, err := h.pipeline.GetOrCreateTranscript(c.Request.Context(), c.Param("id"), c.Param("lang"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, t)
}

func (h *Handlers) handleDubbing(c *gin.Context) {
	d, err := h.pipeline.GetOrCreateDubbing(c.Request.Context(), c.Param("id"), c.Param("lang"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, d)
}

func (h *Handlers) handleGenerateAudio(c *gin.Context) {
	var req generateAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	segs, err := h.pipeline.GenerateAudio(c.Request.Context(), req.Segments, req.Language)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"segments": segs})
}

func (h *Handlers) handleSearch(c *gin.Context) {
	limit := cast.ToInt(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	hits, err := h.pipeline.Search(c.Request.Context(), c.Query("q"), c.Query("language"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"hits": hits})
}
