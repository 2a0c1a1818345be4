package app

import (
	"ielts_exam_backend/docs"
	"ielts_exam_backend/internal/config"
	"ielts_exam_backend/internal/middleware"
	"ielts_exam_backend/internal/model"
	"ielts_exam_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
		// 守卫对游客同样生效, 有 token 则解析
		public.GET("/gate/decide", middleware.TryAuthMiddleware(cfg), c.gate.Decide)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.Profile)
		authGroup.GET("/tests/:kind/:id/full", c.test.GetFullTest)

		student := authGroup.Group("/student")
		student.Use(middleware.RoleMiddleware(model.Student))
		{
			student.GET("/test", c.studentTest.GetMyTest)
			student.POST("/test/stage/start", c.studentTest.StartStage)
			student.POST("/test/stage/finish", c.studentTest.FinishStage)
			student.POST("/test/scores", c.studentTest.SaveScores)
		}

		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.GET("/students", c.teacher.ListStudents)
			teacher.POST("/students", c.teacher.CreateStudent)
			teacher.DELETE("/students/:id/results", c.teacher.DeleteStudentResults)

			teacher.GET("/tests/:kind", c.test.ListTests)
			teacher.POST("/tests/:kind", c.test.CreateTest)
			teacher.PUT("/tests/:kind/:id", c.test.UpdateTest)
			teacher.DELETE("/tests/:kind/:id", c.test.DeleteTest)
			teacher.PUT("/tests/:kind/:id/full", c.test.ReplaceFullTest)
			teacher.POST("/tests/:kind/:id/audio", c.test.UploadAudio)
		}
	}
}
