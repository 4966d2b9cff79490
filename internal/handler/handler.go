package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/frameiq/internal/config"
	"github.com/user/frameiq/internal/middleware"
	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/repository"
	"github.com/user/frameiq/internal/service"
	"github.com/user/frameiq/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Repos   *repository.Repositories
	Config  *config.Config
	Chat    *service.ChatService
	Similar *service.SimilarService
	TMDB    *service.TMDBService
}

// NewHandler 创建处理器并组装服务依赖
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	tmdb := service.NewTMDBService(cfg.TMDBAPIKey)
	groq := utils.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel)

	var fallback service.Completer
	if cfg.GeminiAPIKey != "" {
		fallback = utils.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	}

	rag := service.NewRAGService(repos.Vector, tmdb, groq, cfg)
	chat := service.NewChatService(rag, tmdb, groq, fallback, repos.QueryLog)
	similar := service.NewSimilarService(repos.Vector)

	return &Handler{
		Repos:   repos,
		Config:  cfg,
		Chat:    chat,
		Similar: similar,
		TMDB:    tmdb,
	}
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName": h.Config.SiteName,
		"SiteUrl":  h.Config.SiteUrl,
		"Path":     c.Request.URL.Path,
		"Referer":  c.Request.Referer(),
	}

	// 注入用户信息
	session := sessions.Default(c)
	if userinfo := session.Get("userinfo"); userinfo != nil {
		if su, ok := userinfo.(model.SessionUser); ok {
			res["UserInfo"] = su
		}
	}

	res["ActiveMenu"] = h.getActiveMenu(c.Request.URL.Path)

	for k, v := range data {
		res[k] = v
	}

	return res
}

// getActiveMenu 根据路径判断当前高亮菜单
func (h *Handler) getActiveMenu(path string) string {
	switch path {
	case "/":
		return "home"
	case "/chat":
		return "chat"
	case "/lists":
		return "lists"
	case "/dashboard", "/dashboard/settings":
		return "user"
	default:
		return ""
	}
}

// ==================== 公开页面 ====================

// Home 首页
func (h *Handler) Home(c *gin.Context) {
	trending, _ := h.Repos.QueryLog.GetTrending(24, 10)
	total, _ := h.Repos.Vector.Count(c.Request.Context())

	c.HTML(http.StatusOK, "home.html", h.RenderData(c, gin.H{
		"Title":      h.Config.SiteName + " - 智能影视推荐",
		"Trending":   trending,
		"MediaCount": total,
	}))
}

// ChatPage 对话推荐页
func (h *Handler) ChatPage(c *gin.Context) {
	session := sessions.Default(c)
	history := h.Chat.History(sessionKey(c, session))

	c.HTML(http.StatusOK, "chat.html", h.RenderData(c, gin.H{
		"Title":   "推荐助手 - " + h.Config.SiteName,
		"History": history,
	}))
}

// About 关于页面
func (h *Handler) About(c *gin.Context) {
	c.HTML(http.StatusOK, "about.html", h.RenderData(c, gin.H{
		"Title": "关于 - " + h.Config.SiteName,
	}))
}

// ==================== 认证 ====================

// LoginPage 登录页面
func (h *Handler) LoginPage(c *gin.Context) {
	if middleware.GetUserID(c) > 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", h.RenderData(c, gin.H{
		"Title":    "登录 - " + h.Config.SiteName,
		"Redirect": c.Query("redirect"),
	}))
}

// Login 登录处理
func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	redirect := c.PostForm("redirect")

	if redirect == "" {
		redirect = "/"
	}

	user, err := h.Repos.User.FindByEmail(email)
	if err != nil || user == nil || !h.Repos.User.CheckPassword(user, password) {
		c.HTML(http.StatusOK, "login.html", h.RenderData(c, gin.H{
			"Title": "登录 - " + h.Config.SiteName,
			"Error": "邮箱或密码错误",
		}))
		return
	}

	token, err := h.generateToken(user)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "login.html", h.RenderData(c, gin.H{
			"Title": "登录 - " + h.Config.SiteName,
			"Error": "登录失败，请重试",
		}))
		return
	}

	h.establishSession(c, user, token)
	c.Redirect(http.StatusFound, redirect)
}

// registerForm 注册表单，校验交给 binding
type registerForm struct {
	Email           string `form:"email" binding:"required,email"`
	Password        string `form:"password" binding:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

// RegisterPage 注册页面
func (h *Handler) RegisterPage(c *gin.Context) {
	if middleware.GetUserID(c) > 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "register.html", h.RenderData(c, gin.H{
		"Title": "注册 - " + h.Config.SiteName,
	}))
}

// Register 注册处理
func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "register.html", h.RenderData(c, gin.H{
			"Title": "注册 - " + h.Config.SiteName,
			"Error": "请检查邮箱格式与密码（至少 6 位且两次一致）",
		}))
		return
	}

	existing, _ := h.Repos.User.FindByEmail(form.Email)
	if existing != nil {
		c.HTML(http.StatusOK, "register.html", h.RenderData(c, gin.H{
			"Title": "注册 - " + h.Config.SiteName,
			"Error": "该邮箱已被注册",
		}))
		return
	}

	// 默认截取邮箱 @ 符号前的内容作为用户名
	username := form.Email
	if parts := strings.Split(form.Email, "@"); len(parts) > 0 {
		username = parts[0]
	}

	user, err := h.Repos.User.Create(form.Email, username, form.Password)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "register.html", h.RenderData(c, gin.H{
			"Title": "注册 - " + h.Config.SiteName,
			"Error": "注册失败，请重试",
		}))
		return
	}

	token, _ := h.generateToken(user)
	h.establishSession(c, user, token)
	c.Redirect(http.StatusFound, "/")
}

// Logout 登出
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", false, true)

	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

// establishSession 设置 JWT Cookie 并写入 Session
func (h *Handler) establishSession(c *gin.Context, user *model.User, token string) {
	c.SetCookie("token", token, int(h.Config.JWTExpiry.Seconds()), "/", "", false, true)

	session := sessions.Default(c)
	session.Set("userinfo", model.SessionUser{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	})
	session.Save()
}

// generateToken 生成 JWT
func (h *Handler) generateToken(user *model.User) (string, error) {
	claims := &middleware.Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.Config.JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.Config.AppSecret))
}

// ==================== 用户中心 ====================

// Dashboard 用户中心
func (h *Handler) Dashboard(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.Repos.User.FindByID(userID)
	if err != nil || user == nil {
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}

	counts, _ := h.Repos.UserMedia.CountByUser(userID)

	c.HTML(http.StatusOK, "dashboard.html", h.RenderData(c, gin.H{
		"Title":          "用户中心 - " + h.Config.SiteName,
		"User":           user,
		"WatchlistCount": counts[model.ListWatchlist],
		"WishlistCount":  counts[model.ListWishlist],
		"ViewedCount":    counts[model.ListViewed],
	}))
}

// Lists 用户清单页
func (h *Handler) Lists(c *gin.Context) {
	userID := middleware.GetUserID(c)
	listType := c.DefaultQuery("type", model.ListWatchlist)

	items, err := h.Repos.UserMedia.List(userID, listType)
	if err != nil {
		items = nil
	}

	c.HTML(http.StatusOK, "lists.html", h.RenderData(c, gin.H{
		"Title":    "我的清单 - " + h.Config.SiteName,
		"ListType": listType,
		"Items":    items,
	}))
}

// Settings 设置页
func (h *Handler) Settings(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.Repos.User.FindByID(userID)
	if err != nil || user == nil {
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}

	c.HTML(http.StatusOK, "settings.html", h.RenderData(c, gin.H{
		"Title": "设置 - " + h.Config.SiteName,
		"User":  user,
	}))
}

// UpdateUsername 更新用户名
func (h *Handler) UpdateUsername(c *gin.Context) {
	userID := middleware.GetUserID(c)
	username := strings.TrimSpace(c.PostForm("username"))

	if username == "" || len(username) > 32 {
		utils.BadRequest(c, "用户名不能为空且不超过 32 个字符")
		return
	}

	if err := h.Repos.User.UpdateUsername(userID, username); err != nil {
		utils.InternalServerError(c, "更新失败")
		return
	}
	utils.SuccessWithMessage(c, "用户名已更新", nil)
}

// UpdateEmail 更新邮箱
func (h *Handler) UpdateEmail(c *gin.Context) {
	userID := middleware.GetUserID(c)
	email := strings.TrimSpace(c.PostForm("email"))

	if email == "" || !strings.Contains(email, "@") {
		utils.BadRequest(c, "邮箱格式不正确")
		return
	}

	existing, _ := h.Repos.User.FindByEmail(email)
	if existing != nil && existing.ID != userID {
		utils.BadRequest(c, "该邮箱已被使用")
		return
	}

	if err := h.Repos.User.UpdateEmail(userID, email); err != nil {
		utils.InternalServerError(c, "更新失败")
		return
	}
	utils.SuccessWithMessage(c, "邮箱已更新", nil)
}

// UpdatePassword 更新密码
func (h *Handler) UpdatePassword(c *gin.Context) {
	userID := middleware.GetUserID(c)
	oldPassword := c.PostForm("old_password")
	newPassword := c.PostForm("new_password")

	if len(newPassword) < 6 {
		utils.BadRequest(c, "新密码至少需要 6 个字符")
		return
	}

	user, err := h.Repos.User.FindByID(userID)
	if err != nil || user == nil {
		utils.Unauthorized(c, "")
		return
	}
	if !h.Repos.User.CheckPassword(user, oldPassword) {
		utils.BadRequest(c, "原密码错误")
		return
	}

	if err := h.Repos.User.UpdatePassword(userID, newPassword); err != nil {
		utils.InternalServerError(c, "更新失败")
		return
	}
	utils.SuccessWithMessage(c, "密码已更新", nil)
}

// sessionKey 会话标识：登录用户用 ID，游客用匿名 IP 哈希
func sessionKey(c *gin.Context, session sessions.Session) string {
	if userID := middleware.GetUserID(c); userID > 0 {
		return "user:" + strconv.Itoa(userID)
	}
	if sid := session.Get("sid"); sid != nil {
		if s, ok := sid.(string); ok {
			return s
		}
	}
	return "ip:" + utils.HashIP(c.ClientIP())
}
