package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/utils"
)

// ==================== 管理后台 ====================

// AdminDashboard 后台首页：向量库与用户概览
func (h *Handler) AdminDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	total, _ := h.Repos.Vector.Count(ctx)
	byType, _ := h.Repos.Vector.CountByType(ctx)
	lastUpdated, _ := h.Repos.Vector.LastUpdatedAt(ctx)
	userCount, _ := h.Repos.User.Count()
	trending, _ := h.Repos.QueryLog.GetTrending(24, 20)

	c.HTML(http.StatusOK, "admin_dashboard.html", h.RenderData(c, gin.H{
		"Title":       "管理后台 - " + h.Config.SiteName,
		"MediaCount":  total,
		"CountByType": byType,
		"LastUpdated": lastUpdated,
		"UserCount":   userCount,
		"Trending":    trending,
	}))
}

// AdminRAGStats 向量库统计接口
func (h *Handler) AdminRAGStats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.Repos.Vector.Count(ctx)
	if err != nil {
		utils.Success(c, gin.H{
			"enabled": false,
			"total":   0,
			"status":  "error: " + err.Error(),
		})
		return
	}

	byType, _ := h.Repos.Vector.CountByType(ctx)
	lastUpdated, _ := h.Repos.Vector.LastUpdatedAt(ctx)

	utils.Success(c, gin.H{
		"enabled":      true,
		"total":        total,
		"by_type":      byType,
		"last_updated": lastUpdated,
		"status":       "active",
	})
}

// AdminPurgeMedia 按复合键删除向量记录（管理员手动清理）
func (h *Handler) AdminPurgeMedia(c *gin.Context) {
	compositeID := c.Param("id")
	if _, _, ok := model.SplitCompositeID(compositeID); !ok {
		utils.BadRequest(c, "复合键格式应为 media_type_id，如 movie_42")
		return
	}

	deleted, err := h.Repos.Vector.Delete(c.Request.Context(), compositeID)
	if err != nil {
		utils.InternalServerError(c, "删除失败")
		return
	}
	if !deleted {
		utils.NotFound(c, "记录不存在")
		return
	}

	utils.SuccessWithMessage(c, "已删除 "+compositeID, nil)
}

// AdminTrending 热门查询接口
func (h *Handler) AdminTrending(c *gin.Context) {
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	trending, err := h.Repos.QueryLog.GetTrending(hours, limit)
	if err != nil {
		utils.InternalServerError(c, "获取失败")
		return
	}

	utils.Success(c, trending)
}

// AdminCacheClear 清空进程内缓存
func (h *Handler) AdminCacheClear(c *gin.Context) {
	utils.CacheClear()
	utils.SuccessWithMessage(c, "缓存已清空", nil)
}
