package router

import (
	"meetsync-api/core/middleware"
	"meetsync-api/modules/proposal/controller"

	"github.com/labstack/echo/v4"
)

// ProposalRouter handles proposal routes
type ProposalRouter struct {
	ProposalController *controller.ProposalController
}

func NewProposalRouter(proposalController *controller.ProposalController) *ProposalRouter {
	return &ProposalRouter{
		ProposalController: proposalController,
	}
}

// Setup registers proposal routes
func (r *ProposalRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	proposalRoutes := privateRoutes.Group("/events/:id/proposals", mw.AuthMiddleware())
	proposalRoutes.GET("", r.ProposalController.GetProposals)
	proposalRoutes.GET("/state", r.ProposalController.GetCacheState)
	proposalRoutes.POST("/refresh", r.ProposalController.Refresh)
	proposalRoutes.POST("/stale", r.ProposalController.MarkStale)

	// operator endpoint guarded by the internal key
	internalRoutes := v1.Group("/internal", mw.InternalKeyMiddleware())
	internalRoutes.POST("/proposals/regenerate-batch", r.ProposalController.RunBatch)
}
