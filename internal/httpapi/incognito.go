package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/appstate"
)

// registerIncognitoRoutes mounts every route spec §6 lists under
// /incognito: the register/verify/reset/signin flows run notAuthenticated,
// while online/meals/hash serve the public read-only surface.
func registerIncognitoRoutes(rg *gin.RouterGroup, state *appstate.State) {
	g := rg.Group("/incognito")

	authed := g.Group("", notAuthenticated())
	authed.POST("/register", registerHandler(state))
	authed.GET("/verify/:secret", verifyHandler(state))
	authed.POST("/reset", requestResetHandler(state))
	authed.GET("/reset/:secret", inspectResetHandler(state))
	authed.PATCH("/reset/:secret", consumeResetHandler(state))
	authed.POST("/signin", signinHandler(state))

	g.GET("/online", onlineHandler())
	g.GET("/meals", incognitoMealsHandler(state))
	g.GET("/hash", incognitoHashHandler(state))
}

type registerBody struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Password string `json:"password" binding:"required"`
	Invite   string `json:"invite" binding:"required"`
}

func registerHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body registerBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		pair, err := useragentIP(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Auth.Register(c.Request.Context(), body.Email, body.FullName, body.Password, body.Invite, pair); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "instructions have been sent to your email")
	}
}

func verifyHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.Param("secret")
		if err := state.Auth.Verify(c.Request.Context(), secret); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "instructions have been sent to your email")
	}
}

type requestResetBody struct {
	Email string `json:"email" binding:"required"`
}

func requestResetHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body requestResetBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		pair, err := useragentIP(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Auth.RequestReset(c.Request.Context(), body.Email, pair); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "instructions have been sent to your email")
	}
}

type inspectResetResponse struct {
	TwoFAActive bool `json:"two_fa_active"`
	TwoFABackup bool `json:"two_fa_backup"`
}

func inspectResetHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.Param("secret")
		active, backup, err := state.Auth.InspectReset(c.Request.Context(), secret)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, inspectResetResponse{TwoFAActive: active, TwoFABackup: backup})
	}
}

type consumeResetBody struct {
	Password string `json:"password" binding:"required"`
	Token    string `json:"token"`
}

func consumeResetHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.Param("secret")
		var body consumeResetBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Auth.ConsumeReset(c.Request.Context(), secret, body.Password, body.Token); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "password reset")
	}
}

type signinBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Token    string `json:"token"`
	Remember bool   `json:"remember"`
}

type signinResponse struct {
	TwoFARequired bool `json:"two_fa_required,omitempty"`
	TwoFABackup   bool `json:"two_fa_backup,omitempty"`
}

func signinHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body signinBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		pair, err := useragentIP(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		existingULID, _ := c.Get("mealpedant.sessionULID")
		existing, _ := existingULID.(string)

		result, err := state.Auth.Signin(c.Request.Context(), existing, body.Email, body.Password, body.Token, body.Remember, pair)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		if result.NeedsTwoFA {
			apierror.Respond(c, http.StatusAccepted, signinResponse{TwoFARequired: true, TwoFABackup: result.TwoFABackup})
			return
		}
		setSessionCookie(c, state, result.SessionULID, result.SessionTTL)
		apierror.Respond(c, http.StatusOK, "signed in")
	}
}

func onlineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, authenticated := sessionFromContext(c)
		apierror.Respond(c, http.StatusOK, gin.H{"uptime": true, "authenticated": authenticated})
	}
}

func incognitoMealsHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := state.MealCache.GetAll(c.Request.Context(), false)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, info)
	}
}

func incognitoHashHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		hash, err := state.MealCache.GetHash(c.Request.Context(), false)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, hash)
	}
}
