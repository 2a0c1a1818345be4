package controller

import (
	"ielts_exam_backend/internal/service"
	"ielts_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GateController struct {
	GateService *service.GateService
}

func NewGateController(gateService *service.GateService) *GateController {
	return &GateController{GateService: gateService}
}

// Decide godoc
// @Summary 导航守卫决策
// @Description 前端每次路由跳转前询问是否放行
// @Tags 守卫
// @Produce  json
// @Param   path query string true "目标路径"
// @Success 200 {object} util.Response{data=service.Decision}
// @Failure 400 {object} util.Response "缺少 path 参数"
// @Router /api/gate/decide [get]
func (c *GateController) Decide(ctx *gin.Context) {
	path := ctx.Query("path")
	if path == "" {
		util.BadRequest(ctx, "path is required")
		return
	}

	session := service.Session{}
	if claims := util.GetUserFromContext(ctx); claims != nil {
		session = service.Session{UserID: claims.UserID, Authenticated: true}
	}

	util.Success(ctx, c.GateService.Decide(session, path))
}
