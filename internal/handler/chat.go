package handler

import (
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/frameiq/internal/middleware"
	"github.com/user/frameiq/internal/utils"
)

// chatRequest 聊天接口请求体
type chatRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// ChatAPI 对话接口
// 检索增强内部失败会自动降级为通识回答，只有补全服务全挂才报错
func (h *Handler) ChatAPI(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "消息不能为空且不超过 2000 字符")
		return
	}

	session := sessions.Default(c)
	result, err := h.Chat.Chat(
		c.Request.Context(),
		sessionKey(c, session),
		req.Message,
		middleware.GetUserIDPtr(c),
		utils.HashIP(c.ClientIP()),
	)
	if err != nil {
		log.Printf("[Chat] 对话处理失败: %v", err)
		utils.InternalServerError(c, "助手暂时不可用，请稍后重试")
		return
	}

	utils.Success(c, result)
}

// ClearChat 清空当前会话历史
func (h *Handler) ClearChat(c *gin.Context) {
	session := sessions.Default(c)
	h.Chat.ClearHistory(sessionKey(c, session))
	utils.SuccessWithMessage(c, "会话已清空", nil)
}
