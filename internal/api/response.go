package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realestate/internal/errcode"
	"realestate/internal/validation"
)

// 处理器使用的重定向路径。
const (
	dashboardPath = "/my-listings"
	notFoundPath  = "/404"
	homePath      = "/"
)

func Error(c *gin.Context, status, code int, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, errcode.Validation, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, errcode.NotFound, msg) }
func Conflict(c *gin.Context, code int, msg string) {
	Error(c, http.StatusConflict, code, msg)
}
func Internal(c *gin.Context, msg string) { Error(c, http.StatusInternalServerError, errcode.SystemError, msg) }

// Page 返回模板渲染所需的数据。
func Page(c *gin.Context, status int, title string, data gin.H) {
	body := gin.H{"page": title}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// ValidationFailed 重新渲染表单：字段错误加上回显的输入。
func ValidationFailed(c *gin.Context, title string, errs *validation.Errors, input any, extra gin.H) {
	data := gin.H{
		"errors": errs.Fields,
		"data":   input,
		"code":   errcode.Validation,
	}
	for k, v := range extra {
		data[k] = v
	}
	Page(c, http.StatusUnprocessableEntity, title, data)
}

// Redirect 以 302 跳转到 path。
func Redirect(c *gin.Context, path string) {
	c.Redirect(http.StatusFound, path)
}
