package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bloodlink/backend/internal/entity"
	"github.com/bloodlink/backend/internal/transport/middleware"
)

func InitRoutes(
	requestHandler *RequestHandler,
	responseHandler *ResponseHandler,
	inventoryHandler *InventoryHandler,
	notificationHandler *NotificationHandler,
	hospitalHandler *HospitalHandler,
	donationHandler *DonationHandler,
	historyHandler *HistoryHandler,
) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api")
	{
		requests := api.Group("/requests")
		{
			requests.POST("", requestHandler.CreateRequest)
			requests.GET("", requestHandler.ListRequests)
			requests.GET("/suggest-hospitals", requestHandler.SuggestHospitals)
			requests.GET("/:id", requestHandler.GetRequest)
			requests.PATCH("/:id/status", requestHandler.UpdateStatus)
			requests.POST("/:id/approve", requestHandler.Approve)
		}

		responses := api.Group("/donor-responses")
		{
			responses.POST("", responseHandler.SubmitResponse)
			responses.GET("/request/:requestId", responseHandler.ListByRequest)
			responses.GET("/donor/:donorId", responseHandler.ListByDonor)
		}

		inventory := api.Group("/inventory")
		{
			inventory.POST("", inventoryHandler.Upsert)
			inventory.POST("/adjust", inventoryHandler.Adjust)
			inventory.GET("/:hospitalId", inventoryHandler.ListByHospital)
			inventory.GET("/:hospitalId/summary", inventoryHandler.Summary)
			inventory.PATCH("/:id", inventoryHandler.UpdateByID)
			inventory.DELETE("/:id", inventoryHandler.Delete)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("/:recipientKey", notificationHandler.ListByRecipient)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		}

		hospitals := api.Group("/hospitals")
		{
			hospitals.GET("", hospitalHandler.List)
			hospitals.GET("/near", hospitalHandler.Near)
		}

		api.GET("/match/donors", hospitalHandler.MatchDonors)

		donations := api.Group("/donations")
		{
			donations.POST("", donationHandler.RecordDonation)
			donations.GET("/donor/:donorId", donationHandler.ListByDonor)
			donations.GET("/hospital/:hospitalId", donationHandler.ListByHospital)
			donations.GET("/nearest-hospital/:donorId", donationHandler.NearestHospital)
		}

		api.GET("/history", historyHandler.History)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return router
}

// respondError maps sentinel errors to HTTP statuses. Everything unmapped is
// a 500 with the raw message hidden behind a generic body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidInput),
		errors.Is(err, entity.ErrNoHospitalAvailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrRequestNotFound),
		errors.Is(err, entity.ErrHospitalNotFound),
		errors.Is(err, entity.ErrDonorNotFound),
		errors.Is(err, entity.ErrPatientNotFound),
		errors.Is(err, entity.ErrInventoryNotFound),
		errors.Is(err, entity.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
