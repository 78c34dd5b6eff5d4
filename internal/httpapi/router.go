package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/appstate"
)

// apiVersion is the path prefix every route mounts under, spec §4.I.
const apiVersion = "/v1"

// NewRouter builds the API server's Gin engine: panic recovery, CORS,
// session resolution, then the global rate limiter, exactly the order the
// teacher's main.go installs its own middleware chain in.
func NewRouter(state *appstate.State) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(apierror.Handler())
	r.Use(corsMiddleware(state))
	r.Use(resolveSession(state))
	r.Use(rateLimit(state))

	v1 := r.Group(apiVersion)
	registerIncognitoRoutes(v1, state)
	registerUserRoutes(v1, state)
	registerFoodRoutes(v1, state)
	registerMealRoutes(v1, state)
	registerPhotoRoutes(v1, state)
	registerAdminRoutes(v1, state)

	return r
}
