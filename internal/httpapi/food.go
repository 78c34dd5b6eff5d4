package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/appstate"
)

// registerFoodRoutes mounts /food/{all,category,last} behind
// isAuthenticated and /food/cache additionally behind isAdmin, matching
// original_source's FoodRoutes table.
func registerFoodRoutes(rg *gin.RouterGroup, state *appstate.State) {
	g := rg.Group("/food", isAuthenticated())

	g.GET("/all", foodAllHandler(state))
	g.GET("/category", foodCategoryHandler(state))
	g.GET("/last", foodLastHandler(state))
	g.DELETE("/cache", isAdmin(state), foodCacheHandler(state))
}

// audienceForUser scopes queries to the Jack-only audience unless the
// caller is admin, matching the incognito/authenticated split spec §4.G
// draws between the two feeds.
func audienceForUser(c *gin.Context, state *appstate.State) (bool, error) {
	user, err := currentUser(c, state)
	if err != nil {
		return false, err
	}
	return user.Admin, nil
}

func foodAllHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		both, err := audienceForUser(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		info, err := state.MealCache.GetAll(c.Request.Context(), both)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, info)
	}
}

func foodCategoryHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		both, err := audienceForUser(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		info, err := state.MealCache.GetAll(c.Request.Context(), both)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, info.Categories)
	}
}

func foodLastHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		both, err := audienceForUser(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		info, err := state.MealCache.GetAll(c.Request.Context(), both)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		if len(info.DateMeals) == 0 {
			apierror.Respond(c, http.StatusOK, nil)
			return
		}
		apierror.Respond(c, http.StatusOK, info.DateMeals[0])
	}
}

func foodCacheHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := state.MealCache.Invalidate(c.Request.Context()); err != nil {
			apierror.Fail(c, apierror.IO(err))
			return
		}
		apierror.Respond(c, http.StatusOK, "cache cleared")
	}
}
