package controller

import (
	"errors"

	"ielts_exam_backend/internal/service"
	"ielts_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TeacherController struct {
	TeacherService *service.TeacherService
}

func NewTeacherController(teacherService *service.TeacherService) *TeacherController {
	return &TeacherController{TeacherService: teacherService}
}

// ListStudents godoc
// @Summary 学生列表
// @Description 返回所有学生及其考试记录
// @Tags 教师面板
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]repository.StudentWithAttempt}
// @Router /api/teacher/students [get]
func (c *TeacherController) ListStudents(ctx *gin.Context) {
	students, err := c.TeacherService.ListStudents()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, students)
}

// CreateStudentRequest defines model for student provisioning
// swagger:model CreateStudentRequest
type CreateStudentRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// CreateStudent godoc
// @Summary 创建学生账号
// @Description 学生账号由教师创建, 不开放注册
// @Tags 教师面板
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CreateStudentRequest true "学生信息"
// @Success 201 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/teacher/students [post]
func (c *TeacherController) CreateStudent(ctx *gin.Context) {
	var req CreateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.TeacherService.CreateStudent(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, util.ErrEmailRegistered) {
			util.Error(ctx, 409, "该邮箱已被注册")
		} else if util.IsValidationError(err) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, gin.H{"id": user.ID, "name": user.Name, "email": user.Email})
}

// DeleteStudentResults godoc
// @Summary 重置学生考试
// @Description 删除学生的考试记录, 下次进入时重新随机分配
// @Tags 教师面板
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "学生 ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/students/{id}/results [delete]
func (c *TeacherController) DeleteStudentResults(ctx *gin.Context) {
	studentID := util.MustParseUint(ctx.Param("id"))
	if studentID == 0 {
		util.BadRequest(ctx, "invalid student id")
		return
	}

	if err := c.TeacherService.DeleteStudentResults(studentID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
