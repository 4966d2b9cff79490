package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/frameiq/internal/middleware"
	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/utils"
)

func init() {
	// year4: 四位数字年份，空值放行
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("year4", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if len(s) != 4 {
				return false
			}
			_, err := strconv.Atoi(s)
			return err == nil
		})
	}
}

// listItemRequest 清单操作请求体
type listItemRequest struct {
	MediaType string `json:"media_type" binding:"required,oneof=movie tv anime_movie anime_tv"`
	MediaID   int    `json:"media_id" binding:"required,gt=0"`
	ListType  string `json:"list_type" binding:"required,oneof=watchlist wishlist viewed"`
	Title     string `json:"title"`
	Year      string `json:"year" binding:"omitempty,year4"`
	PosterURL string `json:"poster_url"`
}

// AddToList 将作品加入清单
func (h *Handler) AddToList(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req listItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数不完整: "+err.Error())
		return
	}

	item := &model.UserMedia{
		UserID:    userID,
		MediaType: req.MediaType,
		MediaID:   req.MediaID,
		ListType:  req.ListType,
		Title:     req.Title,
		Year:      req.Year,
		PosterURL: req.PosterURL,
	}
	if err := h.Repos.UserMedia.Add(item); err != nil {
		utils.InternalServerError(c, "添加失败")
		return
	}

	utils.SuccessWithMessage(c, "已加入清单", nil)
}

// RemoveFromList 从清单移除作品
func (h *Handler) RemoveFromList(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req listItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数不完整: "+err.Error())
		return
	}

	if err := h.Repos.UserMedia.Remove(userID, req.MediaType, req.MediaID, req.ListType); err != nil {
		utils.InternalServerError(c, "移除失败")
		return
	}

	utils.SuccessWithMessage(c, "已从清单移除", nil)
}

// ListItems 获取当前用户某一清单
func (h *Handler) ListItems(c *gin.Context) {
	userID := middleware.GetUserID(c)
	listType := c.DefaultQuery("type", model.ListWatchlist)

	items, err := h.Repos.UserMedia.List(userID, listType)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	utils.Success(c, items)
}

// SimilarMedia 相似作品接口 GET /api/similar/:kind/:id
func (h *Handler) SimilarMedia(c *gin.Context) {
	kind := c.Param("kind")
	switch kind {
	case model.MediaTypeMovie, model.MediaTypeTV, model.MediaTypeAnimeMovie, model.MediaTypeAnimeTV:
	default:
		utils.BadRequest(c, "未知的媒体类型: "+kind)
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.BadRequest(c, "ID 必须为正整数")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))
	if limit <= 0 || limit > 20 {
		limit = 6
	}

	items, err := h.Similar.Similar(c.Request.Context(), kind, id, limit)
	if err != nil {
		utils.NotFound(c, err.Error())
		return
	}

	utils.Success(c, items)
}
