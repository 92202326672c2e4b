package api

import (
	"net/http"

	authDelivery "triagely-backend/internal/auth/delivery"
	emailDelivery "triagely-backend/internal/email/delivery"
	nlpDelivery "triagely-backend/internal/nlp/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, validator authDelivery.TokenValidator, gmailHandler *emailDelivery.GmailHandler, nlpHandler *nlpDelivery.NLPHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Gmail routes. The callback is hit by Google's redirect, so it
		// authenticates via the OAuth state instead of a bearer token.
		gmailGroup := api.Group("/gmail")
		{
			gmailGroup.GET("/callback", gmailHandler.Callback)

			protected := gmailGroup.Group("")
			protected.Use(authDelivery.AuthMiddleware(validator))
			{
				protected.GET("/connect", gmailHandler.Connect)
				protected.POST("/fetch", gmailHandler.FetchNow)
				protected.GET("/messages", gmailHandler.ListMessages)
				protected.GET("/accounts", gmailHandler.ListAccounts)
				protected.GET("/history", gmailHandler.SyncHistory)
				protected.DELETE("/accounts/:address", gmailHandler.Disconnect)
			}
		}

		// NLP routes (protected)
		nlp := api.Group("/nlp")
		nlp.Use(authDelivery.AuthMiddleware(validator))
		{
			nlp.POST("/summaries/:id", nlpHandler.CreateSummary)
			nlp.POST("/checklists/:id", nlpHandler.CreateChecklist)
		}
	}
}
