package controller

import (
	"encoding/json"

	"code_quest_backend/internal/service"
	"code_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// GameController 处理关卡战斗相关的请求
type GameController struct {
	ChallengeService *service.ChallengeService
	PotionService    *service.PotionService
	RewardService    *service.RewardService
}

func NewGameController(challengeService *service.ChallengeService, potionService *service.PotionService, rewardService *service.RewardService) *GameController {
	return &GameController{
		ChallengeService: challengeService,
		PotionService:    potionService,
		RewardService:    rewardService,
	}
}

// SubmitAnswerRequest 提交答案请求
type SubmitAnswerRequest struct {
	Answer json.RawMessage `json:"answer" swaggertype:"array,string" example:"x,y"`
}

// UsePotionRequest 使用药水请求
type UsePotionRequest struct {
	PlayerPotionID uint `json:"playerPotionId" example:"1"`
}

// GetLevelState godoc
// @Summary 进入关卡
// @Description 获取关卡战斗状态，首次进入时创建进度
// @Tags 战斗
// @Produce json
// @Security BearerAuth
// @Param levelId path int true "关卡ID"
// @Success 200 {object} util.Response{data=service.LevelState}
// @Router /api/levels/{levelId}/state [get]
func (c *GameController) GetLevelState(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	levelID, err := util.ParseID(ctx.Param("levelId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	state, err := c.ChallengeService.EnterLevel(ctx.Request.Context(), user.UserID, levelID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// SubmitAnswer godoc
// @Summary 提交答案
// @Description 提交一道题的答案并结算一次攻防
// @Tags 战斗
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param levelId path int true "关卡ID"
// @Param challengeId path int true "题目ID"
// @Param request body SubmitAnswerRequest true "答案"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 400 {object} util.Response "参数错误"
// @Failure 403 {object} util.Response "关卡未解锁"
// @Router /api/levels/{levelId}/challenges/{challengeId}/submit [post]
func (c *GameController) SubmitAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	levelID, err := util.ParseID(ctx.Param("levelId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	challengeID, err := util.ParseID(ctx.Param("challengeId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	result, err := c.ChallengeService.SubmitAnswer(ctx.Request.Context(), user.UserID, levelID, challengeID, req.Answer)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// UsePotion godoc
// @Summary 使用药水
// @Tags 战斗
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param levelId path int true "关卡ID"
// @Param potionId path int true "药水ID"
// @Param request body UsePotionRequest true "背包条目"
// @Success 200 {object} util.Response{data=service.PotionResult}
// @Router /api/levels/{levelId}/potions/{potionId}/use [post]
func (c *GameController) UsePotion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	levelID, err := util.ParseID(ctx.Param("levelId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	potionID, err := util.ParseID(ctx.Param("potionId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	var req UsePotionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	result, err := c.PotionService.UsePotion(ctx.Request.Context(), user.UserID, levelID, potionID, req.PlayerPotionID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// RestartLevel godoc
// @Summary 重新开始关卡
// @Tags 战斗
// @Produce json
// @Security BearerAuth
// @Param levelId path int true "关卡ID"
// @Success 200 {object} util.Response{data=service.LevelState}
// @Router /api/levels/{levelId}/restart [post]
func (c *GameController) RestartLevel(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	levelID, err := util.ParseID(ctx.Param("levelId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	state, err := c.ChallengeService.RestartLevel(ctx.Request.Context(), user.UserID, levelID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// CompleteLevel 重复调用只会重新检查成就，不会重复发放奖励
func (c *GameController) CompleteLevel(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	levelID, err := util.ParseID(ctx.Param("levelId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	result, err := c.RewardService.CompleteLevel(ctx.Request.Context(), user.UserID, levelID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
