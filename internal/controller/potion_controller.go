package controller

import (
	"code_quest_backend/internal/service"
	"code_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PotionController struct {
	PotionService *service.PotionService
}

func NewPotionController(potionService *service.PotionService) *PotionController {
	return &PotionController{PotionService: potionService}
}

type BuyPotionRequest struct {
	Quantity int `json:"quantity" binding:"required" example:"1"`
}

// @Summary 药水商店
// @Tags 药水
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/potions [get]
func (c *PotionController) ListPotions(ctx *gin.Context) {
	potions, err := c.PotionService.ListPotions()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, potions)
}

// @Summary 我的药水
// @Tags 药水
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/potions/inventory [get]
func (c *PotionController) GetInventory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	items, err := c.PotionService.ListInventory(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// @Summary 购买药水
// @Tags 药水
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param potionId path int true "药水ID"
// @Param request body BuyPotionRequest true "数量"
// @Success 200 {object} util.Response{data=service.PurchaseResult}
// @Router /api/potions/{potionId}/buy [post]
func (c *PotionController) BuyPotion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	potionID, err := util.ParseID(ctx.Param("potionId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	var req BuyPotionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "quantity is required")
		return
	}

	result, err := c.PotionService.BuyPotion(ctx.Request.Context(), user.UserID, potionID, req.Quantity)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
