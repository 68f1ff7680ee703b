package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 统一响应结构
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    int         `json:"code,omitempty"`
}

// OK 200
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail 以指定状态码返回错误并终止后续处理
func Fail(c *gin.Context, status, code int, msg string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Error: msg, Code: code})
}

// FailWithData 错误响应附带数据，例如回滚后的状态
func FailWithData(c *gin.Context, status, code int, msg string, data interface{}) {
	c.AbortWithStatusJSON(status, Body{Success: false, Error: msg, Code: code, Data: data})
}
