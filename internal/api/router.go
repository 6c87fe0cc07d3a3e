package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "formbridge/internal/api/context"
	"formbridge/internal/api/handlers"
	"formbridge/internal/api/middleware"
)

type Dependencies struct {
	AuthHandler         *handlers.AuthHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	NotificationHandler *handlers.NotificationHandler
	MaintainHandler     *handlers.MaintainHandler
	HealthHandler       *handlers.HealthHandler
	RefererMiddleware   *middleware.RefererMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	referer := deps.RefererMiddleware

	// OAuth flow (browser navigation, no Referer requirement)
	router.GET("/open-auth-page", wrap(deps.AuthHandler.OpenAuthPage))
	router.GET("/oauth-callback", wrap(deps.AuthHandler.OAuthCallback))

	// Client API, only reachable from the add-in's own page
	router.POST("/generate-token", chain(deps.AuthHandler.GenerateToken, referer.Handle))
	router.POST("/revoke-token", chain(deps.AuthHandler.RevokeToken, referer.Handle))
	router.GET("/get-user-info", chain(deps.AuthHandler.GetUserInfo, referer.Handle))
	router.GET("/get-form-data", chain(deps.SubscriptionHandler.GetFormData, referer.Handle))
	router.POST("/subscribe", chain(deps.SubscriptionHandler.Subscribe, referer.Handle))
	router.POST("/unsubscribe", chain(deps.SubscriptionHandler.Unsubscribe, referer.Handle))

	// Provider-facing endpoints
	router.POST("/notification", wrap(deps.NotificationHandler.Receive))
	router.POST("/interactive-messages", wrap(deps.NotificationHandler.InteractiveMessages))

	// Operations
	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.GET("/maintain/remove-user-name", wrap(deps.MaintainHandler.RemoveUserNames))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
