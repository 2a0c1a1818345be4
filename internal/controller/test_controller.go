package controller

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/internal/service"
	"ielts_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TestController struct {
	Content *service.TestContentService
}

func NewTestController(content *service.TestContentService) *TestController {
	return &TestController{Content: content}
}

func parseKind(ctx *gin.Context) (model.TestKind, bool) {
	kind, err := model.ParseTestKind(ctx.Param("kind"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return "", false
	}
	return kind, true
}

// GetFullTest godoc
// @Summary 获取完整试卷树
// @Description 按 part/section/question 组装完整试卷内容
// @Tags 试卷
// @Produce  json
// @Security BearerAuth
// @Param   kind path string true "试卷类型" Enums(listening, reading, writing)
// @Param   id path string true "试卷 ID"
// @Success 200 {object} util.Response{data=service.TestTree}
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/tests/{kind}/{id}/full [get]
func (c *TestController) GetFullTest(ctx *gin.Context) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}

	tree, err := c.Content.GetFullTest(ctx.Request.Context(), kind, ctx.Param("id"))
	if err != nil {
		c.renderContentError(ctx, err)
		return
	}
	util.Success(ctx, tree)
}

// ListTests godoc
// @Summary 试卷列表
// @Tags 试卷管理
// @Produce  json
// @Security BearerAuth
// @Param   kind path string true "试卷类型" Enums(listening, reading, writing)
// @Success 200 {object} util.Response{data=[]model.Test}
// @Router /api/teacher/tests/{kind} [get]
func (c *TestController) ListTests(ctx *gin.Context) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}

	tests, err := c.Content.ListTests(ctx.Request.Context(), kind)
	if err != nil {
		c.renderContentError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// CreateTestRequest carries the scalar fields of a new test.
type CreateTestRequest struct {
	Title       string `json:"title" binding:"required"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
}

// CreateTest godoc
// @Summary 创建试卷
// @Description 仅创建试卷行, 内容随后通过整树替换写入
// @Tags 试卷管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   kind path string true "试卷类型" Enums(listening, reading, writing)
// @Param   body body CreateTestRequest true "试卷信息"
// @Success 201 {object} util.Response{data=model.Test}
// @Router /api/teacher/tests/{kind} [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}

	var req CreateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test := &model.Test{
		Title:       req.Title,
		Duration:    req.Duration,
		Description: req.Description,
	}
	if err := c.Content.CreateTest(ctx.Request.Context(), kind, test); err != nil {
		c.renderContentError(ctx, err)
		return
	}
	util.Created(ctx, test)
}

// UpdateTestRequest patches scalar fields; nil fields stay untouched.
type UpdateTestRequest struct {
	Title       *string `json:"title"`
	Duration    *int    `json:"duration"`
	Description *string `json:"description"`
}

// UpdateTest godoc
// @Summary 更新试卷基本信息
// @Tags 试卷管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   kind path string true "试卷类型" Enums(listening, reading, writing)
// @Param   id path string true "试卷 ID"
// @Param   body body UpdateTestRequest true "更新字段"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{kind}/{id} [put]
func (c *TestController) UpdateTest(ctx *gin.Context) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}

	var req UpdateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Duration != nil {
		fields["duration"] = *req.Duration
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if len(fields) == 0 {
		util.BadRequest(ctx, "no fields to update")
		return
	}

	if err := c.Content.UpdateTestScalars(ctx.Request.Context(), kind, ctx.Param("id"), fields); err != nil {
		c.renderContentError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// DeleteTest godoc
// @Summary 删除试卷
// @Tags 试卷管理
// @Produce  json
// @Security BearerAuth
// @Param   kind path string true "试卷类型" Enums(listening, reading, writing)
// @Param   id path string true "试卷 ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{kind}/{id} [delete]
func (c *TestController) DeleteTest(ctx *gin.Context) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}

	if err := c.Content.DeleteTest(ctx.Request.Context(), kind, ctx.Param("id")); err != nil {
		c.renderContentError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ReplaceFullTest godoc
// @Summary 整树替换试卷内容
// @Description 删除旧内容后按载荷重建, 支持 multipart 同时上传听力音频
// @Tags 试卷管理
// @Accept  json
// @Accept  mpfd
// @Produce  json
// @Security BearerAuth
// @Param   kind path string true "试卷类型" Enums(listening, reading, writing)
// @Param   id path string true "试卷 ID"
// @Success 200 {object} util.Response{data=service.TestTree}
// @Failure 400 {object} util.Response "载荷校验失败"
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/teacher/tests/{kind}/{id}/full [put]
func (c *TestController) ReplaceFullTest(ctx *gin.Context) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}
	testID := ctx.Param("id")

	var tree service.TestTree
	var audio *service.AudioUpload
	var cleanup func()

	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		payload := ctx.PostForm("payload")
		if payload == "" {
			util.BadRequest(ctx, "payload field is required")
			return
		}
		if err := json.Unmarshal([]byte(payload), &tree); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		if fh, err := ctx.FormFile("audio"); err == nil {
			var uploadErr error
			audio, cleanup, uploadErr = spoolAudio(fh)
			if uploadErr != nil {
				util.LogInternalError(ctx, uploadErr)
				return
			}
			defer cleanup()
		}
	} else {
		if err := ctx.ShouldBindJSON(&tree); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	if err := c.Content.ReplaceFullTest(ctx.Request.Context(), kind, testID, &tree, audio); err != nil {
		c.renderContentError(ctx, err)
		return
	}

	// 返回重建后的最新内容
	fresh, err := c.Content.GetFullTest(ctx.Request.Context(), kind, testID)
	if err != nil {
		c.renderContentError(ctx, err)
		return
	}
	util.Success(ctx, fresh)
}

// UploadAudio godoc
// @Summary 上传听力音频
// @Tags 试卷管理
// @Accept  mpfd
// @Produce  json
// @Security BearerAuth
// @Param   kind path string true "试卷类型, 仅 listening" Enums(listening)
// @Param   id path string true "试卷 ID"
// @Param   audio formData file true "音频文件"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/teacher/tests/{kind}/{id}/audio [post]
func (c *TestController) UploadAudio(ctx *gin.Context) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}

	fh, err := ctx.FormFile("audio")
	if err != nil {
		util.BadRequest(ctx, "audio file is required")
		return
	}

	audio, cleanup, err := spoolAudio(fh)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer cleanup()

	url, err := c.Content.UploadAudio(ctx.Request.Context(), kind, ctx.Param("id"), audio)
	if err != nil {
		c.renderContentError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"audioUrl": url})
}

// spoolAudio copies the upload to a temp file so it can be probed and
// then streamed to storage. cleanup closes and removes the temp file.
func spoolAudio(fh *multipart.FileHeader) (*service.AudioUpload, func(), error) {
	src, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "audio-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, nil, err
	}

	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	return &service.AudioUpload{
		Reader:      tmp,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
		LocalPath:   tmp.Name(),
	}, cleanup, nil
}

func (c *TestController) renderContentError(ctx *gin.Context, err error) {
	switch {
	case util.IsValidationError(err):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, util.ErrTestNotFound):
		util.NotFound(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
