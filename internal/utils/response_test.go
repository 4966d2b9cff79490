package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordJSON(t *testing.T, fn func(c *gin.Context)) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

// 成功响应：ok 为 true，message 省略，data 原样透出
func TestSuccessEnvelope(t *testing.T) {
	code, body := recordJSON(t, func(c *gin.Context) {
		Success(c, gin.H{"reply": "hello"})
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	_, hasMessage := body["message"]
	assert.False(t, hasMessage, "成功响应不应携带 message")

	data, isMap := body["data"].(map[string]interface{})
	require.True(t, isMap)
	assert.Equal(t, "hello", data["reply"])
}

func TestSuccessWithMessage(t *testing.T) {
	code, body := recordJSON(t, func(c *gin.Context) {
		SuccessWithMessage(c, "已加入清单", nil)
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "已加入清单", body["message"])
}

// 失败响应：ok 为 false，空消息回落到默认文案，不携带 data
func TestErrorEnvelope(t *testing.T) {
	cases := []struct {
		name    string
		fn      func(c *gin.Context)
		status  int
		message string
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, "参数不完整") }, http.StatusBadRequest, "参数不完整"},
		{"unauthorized default", func(c *gin.Context) { Unauthorized(c, "") }, http.StatusUnauthorized, "请先登录"},
		{"not found default", func(c *gin.Context) { NotFound(c, "") }, http.StatusNotFound, "记录不存在"},
		{"internal default", func(c *gin.Context) { InternalServerError(c, "") }, http.StatusInternalServerError, "服务暂时不可用，请稍后重试"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := recordJSON(t, tc.fn)
			assert.Equal(t, tc.status, code)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, tc.message, body["message"])
			_, hasData := body["data"]
			assert.False(t, hasData, "失败响应不应携带 data")
		})
	}
}

// 哈希稳定且不可逆推，长度固定 16 个十六进制字符
func TestHashIP(t *testing.T) {
	a := HashIP("203.0.113.7")
	assert.Equal(t, a, HashIP("203.0.113.7"))
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, HashIP("203.0.113.8"))
}
