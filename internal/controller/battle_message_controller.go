package controller

import (
	"code_quest_backend/internal/model"
	"code_quest_backend/internal/repository"
	"code_quest_backend/internal/service"
	"code_quest_backend/internal/util"
	"code_quest_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BattleMessageController 管理员维护战斗提示语，修改后立即刷新缓存
type BattleMessageController struct {
	Repo  *repository.BattleMessageRepository
	Cache *service.MessageCache
}

func NewBattleMessageController(repo *repository.BattleMessageRepository, cache *service.MessageCache) *BattleMessageController {
	return &BattleMessageController{Repo: repo, Cache: cache}
}

type CreateBattleMessageRequest struct {
	Category model.MessageCategory `json:"category" binding:"required,oneof=correct wrong victory defeat blocked" example:"correct"`
	Content  string                `json:"content" binding:"required,max=255" example:"Direct hit!"`
}

type ToggleBattleMessageRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// @Summary 战斗提示语列表
// @Tags 管理员
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/battle-messages [get]
func (c *BattleMessageController) List(ctx *gin.Context) {
	messages, err := c.Repo.ListAll()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, messages)
}

// @Summary 新增战斗提示语
// @Tags 管理员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBattleMessageRequest true "提示语"
// @Success 200 {object} util.Response
// @Router /api/admin/battle-messages [post]
func (c *BattleMessageController) Create(ctx *gin.Context) {
	var req CreateBattleMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	msg := &model.BattleMessage{Category: req.Category, Content: req.Content, IsEnabled: true}
	if err := c.Repo.Create(msg); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.refresh()
	util.Success(ctx, msg)
}

// @Summary 启用/停用战斗提示语
// @Tags 管理员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "提示语ID"
// @Param request body ToggleBattleMessageRequest true "是否启用"
// @Success 200 {object} util.Response
// @Router /api/admin/battle-messages/{id} [patch]
func (c *BattleMessageController) Toggle(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req ToggleBattleMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if _, err := c.Repo.FindByID(id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	if err := c.Repo.SetEnabled(id, *req.Enabled); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	c.refresh()
	util.Success(ctx, gin.H{"id": id, "enabled": *req.Enabled})
}

func (c *BattleMessageController) refresh() {
	if err := c.Cache.Refresh(); err != nil {
		logger.Log.Warn("Battle message cache refresh failed", zap.Error(err))
	}
}
