package app

import (
	"code_quest_backend/internal/config"
	"code_quest_backend/internal/middleware"
	"code_quest_backend/internal/model"
	"code_quest_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerGameRoutes(authGroup, c)
		a.registerPlayerRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/battle-messages", c.battleMessage.List)
		admin.POST("/battle-messages", c.battleMessage.Create)
		admin.PATCH("/battle-messages/:id", c.battleMessage.Toggle)
	}
}

func (a *App) registerGameRoutes(rg *gin.RouterGroup, c *controllers) {
	levels := rg.Group("/levels/:levelId")
	{
		levels.GET("/state", c.game.GetLevelState)
		levels.POST("/restart", c.game.RestartLevel)
		levels.POST("/complete", c.game.CompleteLevel)
		levels.POST("/challenges/:challengeId/submit", c.game.SubmitAnswer)
		levels.POST("/potions/:potionId/use", c.game.UsePotion)
	}

	// 实时事件
	rg.GET("/ws", c.realtime.HandleWS)
}

func (a *App) registerPlayerRoutes(rg *gin.RouterGroup, c *controllers) {
	// 药水商店
	rg.GET("/potions", c.potion.ListPotions)
	rg.GET("/potions/inventory", c.potion.GetInventory)
	rg.POST("/potions/:potionId/buy", c.potion.BuyPotion)

	// 成就/任务
	rg.GET("/achievements", c.achievement.GetUserAchievements)
	rg.GET("/achievements/leaderboard", c.achievement.GetLeaderboard)
	rg.GET("/quests", c.achievement.GetQuests)
}
