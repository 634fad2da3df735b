package routes

import (
	"admissions-platform-api/controllers"
	"admissions-platform-api/middleware"
	"admissions-platform-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Admissions Platform API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Applications
			applications := protected.Group("/applications")
			{
				// Students, institution staff and admins see their slice
				applications.GET("", controllers.GetApplications)
				applications.GET("/:id", controllers.GetApplication)

				// Only students submit, accept and withdraw
				applications.POST("", middleware.RequireRole(models.RoleStudent), controllers.CreateApplication)
				applications.POST("/:id/accept", middleware.RequireRole(models.RoleStudent), controllers.AcceptOffer)
				applications.POST("/:id/withdraw", middleware.RequireRole(models.RoleStudent), controllers.WithdrawApplication)
			}

			// Institution review decisions
			review := protected.Group("/review")
			review.Use(middleware.RequireRole(models.RoleInstitution, models.RoleAdmin))
			{
				review.POST("/applications/:id/admit", controllers.AdmitApplication)
				review.POST("/applications/:id/waitlist", controllers.WaitlistApplication)
				review.POST("/applications/:id/reject", controllers.RejectApplication)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.GET("/unread-count", controllers.GetNotificationCounter)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}
		}
	}
}
