package handlers

import (
	stderrors "errors"
	"net/http"

	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/i18n"
	"VidyaSync/pkg/middleware"
	"VidyaSync/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusOf 错误码到 HTTP 状态码及消息 ID 的映射
func statusOf(err error) (int, string) {
	switch errors.GetCode(err) {
	case errors.CodeValidation:
		return http.StatusUnprocessableEntity, i18n.MsgValidation
	case errors.CodeDependencyMissing:
		return http.StatusConflict, i18n.MsgDependencyMissing
	case errors.CodeGeneration:
		return http.StatusBadGateway, i18n.MsgGeneration
	case errors.CodeNotFound:
		return http.StatusNotFound, i18n.MsgNotFound
	default:
		return http.StatusInternalServerError, i18n.MsgInternal
	}
}

// contextValue 读取错误上附带的上下文字段
func contextValue(err error, key string) string {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return ""
	}
	for _, kv := range e.Context {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// fail 记录并以本地化消息返回错误
func (h *Handlers) fail(c *gin.Context, err error) {
	h.failWithData(c, err, nil)
}

func (h *Handlers) failWithData(c *gin.Context, err error, payload interface{}) {
	status, msgID := statusOf(err)
	data := map[string]interface{}{
		"Detail":   errors.GetMessage(err),
		"Language": contextValue(err, "language"),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.RequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	response.FailWithData(c, status, errors.GetCode(err), h.i18n.T(middleware.Lang(c), msgID, data), payload)
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	response.Fail(c, http.StatusBadRequest, errors.CodeUnknown, h.i18n.T(middleware.Lang(c), i18n.MsgBadRequest, nil))
}

// RateLimited 限流拒绝响应
func (h *Handlers) RateLimited(c *gin.Context) {
	response.Fail(c, http.StatusTooManyRequests, errors.CodeUnknown, h.i18n.T(middleware.Lang(c), i18n.MsgRateLimited, nil))
}
