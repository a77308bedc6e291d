package handler

import (
	"github.com/gin-gonic/gin"
)

func SetupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		bids := api.Group("/bids")
		{
			bids.POST("", h.PlaceBid)
			bids.GET("/:id", h.GetBid)
			bids.POST("/:id/confirm", h.ConfirmPayment)
			bids.POST("/:id/refund", h.RefundBid)
			bids.POST("/:id/settle", h.Settle)
			bids.GET("/:id/payouts", h.ListBidPayouts)
		}

		api.GET("/restaurants/:id/bids", h.ListRestaurantBids)

		payouts := api.Group("/payouts")
		{
			payouts.GET("/:id", h.GetPayout)
			payouts.POST("/:id/paid", h.MarkPayoutPaid)
			payouts.POST("/:id/refund", h.MarkPayoutRefunded)
		}

		api.GET("/transfers/:transfer_id/payout", h.GetPayoutByTransfer)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
