package server

import (
	"net/http"

	"examprep-billing/internal/handler"
	appmw "examprep-billing/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
	webhookHandler  *handler.WebhookHandler
	contentHandler  *handler.ContentHandler
	adminHandler    *handler.AdminHandler
}

func NewServer(
	jwtSecret string,
	checkoutHandler *handler.CheckoutHandler,
	webhookHandler *handler.WebhookHandler,
	contentHandler *handler.ContentHandler,
	adminHandler *handler.AdminHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestLogger())
	e.Use(appmw.AuthMiddleware(jwtSecret))

	s := &Server{
		echo:            e,
		checkoutHandler: checkoutHandler,
		webhookHandler:  webhookHandler,
		contentHandler:  contentHandler,
		adminHandler:    adminHandler,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api.GET("/catalog", s.contentHandler.GetCatalog)

	// checkout allows anonymous carts; fulfillment resolves the payer later
	api.POST("/checkout", s.checkoutHandler.Checkout)

	// -------- payment webhooks --------
	api.POST("/payments/webhook", s.webhookHandler.PaymentWebhook)

	// -------- gated content --------
	gated := api.Group("", appmw.RequireUser())
	gated.GET("/me/entitlements", s.contentHandler.GetMyEntitlements)
	gated.GET("/subjects/:id/questions", s.contentHandler.GetSubjectQuestions)
	gated.POST("/subjects/:id/attempts", s.contentHandler.RecordAttempts)
	gated.GET("/subjects/:id/print", s.contentHandler.PrintSubject)
	gated.GET("/subjects/:id/insights", s.contentHandler.SubjectInsights)
	gated.POST("/forums/:id/posts", s.contentHandler.PostInForum)

	// -------- admin overrides --------
	admin := api.Group("/admin", appmw.RequireAdmin())
	admin.POST("/grants", s.adminHandler.GrantOverride)
	admin.POST("/bundles", s.adminHandler.GrantBundle)
	admin.DELETE("/purchases/:id", s.adminHandler.RevokePurchase)
	admin.GET("/revenue", s.adminHandler.Revenue)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
