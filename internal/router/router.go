package router

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/user/frameiq/internal/handler"
	"github.com/user/frameiq/internal/middleware"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== 公开页面 ====================
	public := r.Group("")
	public.Use(middleware.OptionalAuth(h.Config.AppSecret))
	{
		public.GET("/", h.Home)
		public.GET("/chat", h.ChatPage)
		public.GET("/about", h.About)
	}

	// ==================== 认证页面 ====================
	auth := r.Group("/auth")
	auth.Use(middleware.OptionalAuth(h.Config.AppSecret))
	{
		auth.GET("/login", h.LoginPage)
		auth.POST("/login", h.Login)
		auth.GET("/register", h.RegisterPage)
		auth.POST("/register", h.Register)
		auth.POST("/logout", h.Logout)
	}

	// ==================== 对话接口 ====================
	chat := r.Group("")
	chat.Use(middleware.OptionalAuth(h.Config.AppSecret))
	{
		chat.POST("/chat_api", h.ChatAPI)
		chat.POST("/chat_api/clear", h.ClearChat)
	}

	// ==================== 用户中心（需要登录）====================
	dashboard := r.Group("/dashboard")
	dashboard.Use(middleware.RequireAuth(h.Config.AppSecret))
	{
		dashboard.GET("", h.Dashboard)
		dashboard.GET("/settings", h.Settings)
		dashboard.POST("/settings/email", h.UpdateEmail)
		dashboard.POST("/settings/username", h.UpdateUsername)
		dashboard.POST("/settings/password", h.UpdatePassword)
	}

	lists := r.Group("/lists")
	lists.Use(middleware.RequireAuth(h.Config.AppSecret))
	{
		lists.GET("", h.Lists)
	}

	// ==================== JSON API ====================
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(h.Config.AppSecret))
	{
		api.GET("/similar/:kind/:id", h.SimilarMedia)

		// 清单操作需要登录
		listAPI := api.Group("/lists")
		listAPI.Use(middleware.RequireAuth(h.Config.AppSecret))
		{
			listAPI.GET("", h.ListItems)
			listAPI.POST("", h.AddToList)
			listAPI.DELETE("", h.RemoveFromList)
		}
	}

	// ==================== 管理后台 ====================
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuth(h.Config.AppSecret))
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("", h.AdminDashboard)
		admin.GET("/rag/stats", h.AdminRAGStats)
		admin.DELETE("/rag/media/:id", h.AdminPurgeMedia)
		admin.GET("/trending", h.AdminTrending)
		admin.POST("/cache/clear", h.AdminCacheClear)
	}
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
func LoadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	partials, err := filepath.Glob(templatesDir + "/partials/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	// 模板函数
	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"default": func(defaultValue, value interface{}) interface{} {
			switch v := value.(type) {
			case string:
				if v == "" {
					return defaultValue
				}
			case int:
				if v == 0 {
					return defaultValue
				}
			case nil:
				return defaultValue
			}
			return value
		},
		"js": func(s string) template.JS {
			return template.JS(s)
		},
	}

	// 注册所有页面模板
	pages := []string{
		"home", "chat", "about", "404",
		"login", "register",
		"dashboard", "lists", "settings",
		"admin_dashboard",
	}

	for _, page := range pages {
		viewPath := templatesDir + "/pages/" + page + ".html"
		r.AddFromFilesFuncs(page+".html", funcMap, assemble(viewPath)...)
	}

	return r
}
