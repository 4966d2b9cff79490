package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HashIP 取 IP 的 SHA-256 前 8 字节，查询日志只存哈希不存原始地址
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

// APIResponse 聊天/清单/管理接口的统一返回结构
// ok 为 false 时 message 必填，data 省略；前端据此分流
type APIResponse struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{OK: true, Data: data})
}

// SuccessWithMessage 返回带提示消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{OK: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{OK: false, Message: message})
}

// BadRequest 参数校验失败
func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message)
}

// Unauthorized 未登录或登录态失效
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "请先登录"
	}
	fail(c, http.StatusUnauthorized, message)
}

// NotFound 目标记录不存在
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "记录不存在"
	}
	fail(c, http.StatusNotFound, message)
}

// InternalServerError 下游服务或数据库异常
func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "服务暂时不可用，请稍后重试"
	}
	fail(c, http.StatusInternalServerError, message)
}
