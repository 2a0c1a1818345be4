package controller

import (
	"errors"

	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/service"
	"ielts_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentTestController struct {
	StudentTests *service.StudentTestService
}

func NewStudentTestController(studentTests *service.StudentTestService) *StudentTestController {
	return &StudentTestController{StudentTests: studentTests}
}

// GetMyTest godoc
// @Summary 获取本人考试记录
// @Description 首次调用时随机分配三套试卷, 已有分配保持不变
// @Tags 学生考试
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.StudentTest}
// @Failure 404 {object} util.Response "暂无可用试卷"
// @Router /api/student/test [get]
func (c *StudentTestController) GetMyTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	record, err := c.StudentTests.AssignIfMissing(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrNoContentAvailable) {
			util.Error(ctx, 404, "暂无可用试卷")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, record)
}

// StageRequest names the stage being started or finished.
type StageRequest struct {
	Kind string `json:"kind" binding:"required,oneof=listening reading writing"`
}

// StartStage godoc
// @Summary 开始某阶段考试
// @Tags 学生考试
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body StageRequest true "阶段"
// @Success 200 {object} util.Response{data=model.StudentTest}
// @Failure 404 {object} util.Response "考试记录不存在"
// @Router /api/student/test/stage/start [post]
func (c *StudentTestController) StartStage(ctx *gin.Context) {
	c.mutateStage(ctx, c.StudentTests.MarkStageStarted)
}

// FinishStage godoc
// @Summary 结束某阶段考试
// @Description 记录结束时间并推进当前阶段, 阶段只前进不回退
// @Tags 学生考试
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body StageRequest true "阶段"
// @Success 200 {object} util.Response{data=model.StudentTest}
// @Failure 404 {object} util.Response "考试记录不存在"
// @Router /api/student/test/stage/finish [post]
func (c *StudentTestController) FinishStage(ctx *gin.Context) {
	c.mutateStage(ctx, c.StudentTests.MarkStageFinished)
}

func (c *StudentTestController) mutateStage(ctx *gin.Context, mutate func(uint, model.TestKind) (*model.StudentTest, error)) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req StageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	kind, err := model.ParseTestKind(req.Kind)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	record, err := mutate(claims.UserID, kind)
	if err != nil {
		if errors.Is(err, util.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else if util.IsValidationError(err) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, record)
}

// SaveScores godoc
// @Summary 保存阶段分数
// @Description 仅更新给出的阶段分数并重算总分
// @Tags 学生考试
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.StageScores true "分数"
// @Success 200 {object} util.Response{data=model.StudentTest}
// @Failure 404 {object} util.Response "考试记录不存在"
// @Router /api/student/test/scores [post]
func (c *StudentTestController) SaveScores(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.StageScores
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	record, err := c.StudentTests.SaveScores(claims.UserID, req)
	if err != nil {
		if errors.Is(err, util.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, record)
}
