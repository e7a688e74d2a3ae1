package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/utils"
)

type HandlerManager struct {
	authHandler      *AuthHandler
	accountHandler   *AccountHandler
	branchHandler    *BranchHandler
	subjectHandler   *SubjectHandler
	questionHandler  *QuestionHandler
	examHandler      *ExamHandler
	resultHandler    *ResultHandler
	paymentHandler   *PaymentHandler
	dashboardHandler *DashboardHandler
	authMiddleware   *AuthMiddleware
	health           func(ctx context.Context) error
}

func NewHandlerManager(serviceManager services.ServiceManager, authMiddleware *AuthMiddleware, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		authHandler:     NewAuthHandler(serviceManager.Account(), logger),
		accountHandler:  NewAccountHandler(serviceManager.Account(), logger),
		branchHandler:   NewBranchHandler(serviceManager.Branch(), logger),
		subjectHandler:  NewSubjectHandler(serviceManager.Subject(), logger),
		questionHandler: NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), logger),
		examHandler: NewExamHandler(
			serviceManager.Exam(),
			serviceManager.Session(),
			serviceManager.Result(),
			serviceManager.ImportExport(),
			logger,
		),
		resultHandler:    NewResultHandler(serviceManager.Result(), logger),
		paymentHandler:   NewPaymentHandler(serviceManager.Payment(), logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		authMiddleware:   authMiddleware,
		health:           serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes. metrics may be nil; uploadDir is served
// under /uploads when set.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, metrics gin.HandlerFunc, uploadDir string) {
	router.GET("/health", hm.healthCheck)
	if metrics != nil {
		router.GET("/metrics", metrics)
	}
	if uploadDir != "" {
		router.Static("/uploads", uploadDir)
	}

	am := hm.authMiddleware
	perm := am.RequirePermission

	api := router.Group("/api/v1")
	api.POST("/auth/login", hm.authHandler.Login)

	v1 := api.Group("")
	v1.Use(am.Authenticate())
	{
		v1.GET("/auth/me", hm.authHandler.Me)

		branches := v1.Group("/branches")
		{
			branches.POST("", perm(access.ResourceBranch, access.ActionCreate), hm.branchHandler.CreateBranch)
			branches.GET("", perm(access.ResourceBranch, access.ActionList), hm.branchHandler.ListBranches)
			branches.GET("/:id", perm(access.ResourceBranch, access.ActionRead), hm.branchHandler.GetBranch)
			branches.PUT("/:id", perm(access.ResourceBranch, access.ActionUpdate), hm.branchHandler.UpdateBranch)
			branches.DELETE("/:id", perm(access.ResourceBranch, access.ActionDelete), hm.branchHandler.DeleteBranch)
		}

		accounts := v1.Group("/accounts")
		{
			accounts.POST("", perm(access.ResourceAccount, access.ActionCreate), hm.accountHandler.CreateAccount)
			accounts.GET("", perm(access.ResourceAccount, access.ActionList), hm.accountHandler.ListAccounts)
			accounts.GET("/:id", perm(access.ResourceAccount, access.ActionRead), hm.accountHandler.GetAccount)
			accounts.PUT("/:id", perm(access.ResourceAccount, access.ActionUpdate), hm.accountHandler.UpdateAccount)
			accounts.DELETE("/:id", perm(access.ResourceAccount, access.ActionDelete), hm.accountHandler.DeleteAccount)
		}

		subjects := v1.Group("/subjects")
		{
			subjects.POST("", perm(access.ResourceSubject, access.ActionCreate), hm.subjectHandler.CreateSubject)
			subjects.GET("", perm(access.ResourceSubject, access.ActionList), hm.subjectHandler.ListSubjects)
			subjects.DELETE("/:id", perm(access.ResourceSubject, access.ActionDelete), hm.subjectHandler.DeleteSubject)
		}

		questions := v1.Group("/questions")
		{
			questions.POST("", perm(access.ResourceQuestion, access.ActionCreate), hm.questionHandler.CreateQuestion)
			questions.POST("/import", perm(access.ResourceQuestion, access.ActionImport), hm.questionHandler.ImportQuestions)
			questions.GET("", perm(access.ResourceQuestion, access.ActionList), hm.questionHandler.ListQuestions)
			questions.GET("/:id", perm(access.ResourceQuestion, access.ActionRead), hm.questionHandler.GetQuestion)
			questions.PUT("/:id", perm(access.ResourceQuestion, access.ActionUpdate), hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", perm(access.ResourceQuestion, access.ActionDelete), hm.questionHandler.DeleteQuestion)
			questions.POST("/:id/image", perm(access.ResourceQuestion, access.ActionUpdate), hm.questionHandler.UploadImage)
		}

		exams := v1.Group("/exams")
		{
			// static segment first so it is not captured by /:id
			exams.GET("/student-exams", perm(access.ResourceExam, access.ActionListOwn), hm.examHandler.ListForLearner)

			exams.POST("", perm(access.ResourceExam, access.ActionCreate), hm.examHandler.CreateExam)
			exams.GET("", perm(access.ResourceExam, access.ActionList), hm.examHandler.ListExams)
			exams.GET("/:id", perm(access.ResourceExam, access.ActionRead), hm.examHandler.GetExam)
			exams.PUT("/:id", perm(access.ResourceExam, access.ActionUpdate), hm.examHandler.UpdateExam)
			exams.DELETE("/:id", perm(access.ResourceExam, access.ActionDelete), hm.examHandler.DeleteExam)
			exams.PUT("/:id/questions", perm(access.ResourceExam, access.ActionUpdate), hm.examHandler.SetQuestions)

			// Sitting an exam
			exams.GET("/:id/questions", perm(access.ResourceExam, access.ActionTake, access.ActionRead), hm.examHandler.GetQuestions)
			exams.GET("/:id/session", perm(access.ResourceSession, access.ActionRead), hm.examHandler.GetSession)
			exams.POST("/:id/submit", perm(access.ResourceSession, access.ActionSubmit), hm.examHandler.Submit)

			exams.GET("/:id/results", perm(access.ResourceResult, access.ActionList), hm.examHandler.ListResults)
			exams.GET("/:id/results/export", perm(access.ResourceResult, access.ActionExport), hm.examHandler.ExportResults)
		}

		results := v1.Group("/results")
		{
			results.GET("/my", perm(access.ResourceResult, access.ActionListOwn), hm.resultHandler.ListMyResults)
			results.GET("/:id", perm(access.ResourceResult, access.ActionRead), hm.resultHandler.GetResult)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/initiate", perm(access.ResourcePayment, access.ActionInitiate), hm.paymentHandler.InitiatePayment)
			payments.GET("/search", perm(access.ResourcePayment, access.ActionSearch), hm.paymentHandler.SearchPayment)
			payments.GET("/my", perm(access.ResourcePayment, access.ActionListOwn), hm.paymentHandler.ListMyPayments)
			payments.GET("", perm(access.ResourcePayment, access.ActionList), hm.paymentHandler.ListPayments)
			payments.GET("/:id", perm(access.ResourcePayment, access.ActionRead), hm.paymentHandler.GetPayment)
			payments.PUT("/:id/status", perm(access.ResourcePayment, access.ActionTransition), hm.paymentHandler.UpdatePaymentStatus)
		}

		dashboard := v1.Group("/dashboard")
		dashboard.Use(perm(access.ResourceDashboard, access.ActionRead))
		{
			dashboard.GET("/stats", hm.dashboardHandler.GetDashboardStats)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "cbt-service",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cbt-service",
	})
}
