package api

import (
	authDelivery "triagely-backend/internal/auth/delivery"
	emailDelivery "triagely-backend/internal/email/delivery"
	nlpDelivery "triagely-backend/internal/nlp/delivery"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	validator    authDelivery.TokenValidator
	gmailHandler *emailDelivery.GmailHandler
	nlpHandler   *nlpDelivery.NLPHandler
}

func NewHandler(validator authDelivery.TokenValidator, gmailHandler *emailDelivery.GmailHandler, nlpHandler *nlpDelivery.NLPHandler) *Handler {
	return &Handler{
		validator:    validator,
		gmailHandler: gmailHandler,
		nlpHandler:   nlpHandler,
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.validator, h.gmailHandler, h.nlpHandler)

	return r.Run(addr)
}
