package controller

import (
	"code_quest_backend/internal/service"
	"code_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RealtimeController struct {
	Hub *service.GameHub
}

func NewRealtimeController(hub *service.GameHub) *RealtimeController {
	return &RealtimeController{Hub: hub}
}

// HandleWS godoc
// @Summary WebSocket 连接
// @Description 建立 WebSocket 连接以接收游戏事件
// @Tags 实时
// @Security ApiKeyAuth
// @Param token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/ws [get]
func (c *RealtimeController) HandleWS(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}
