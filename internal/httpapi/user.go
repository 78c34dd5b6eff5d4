package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/appstate"
)

// registerUserRoutes mounts /user, matching the Rust define_routes! table:
// Base, Signout, Password, SetupTwoFA, TwoFA, all behind isAuthenticated.
func registerUserRoutes(rg *gin.RouterGroup, state *appstate.State) {
	g := rg.Group("/user", isAuthenticated())

	g.GET("", userGetHandler(state))
	g.POST("/signout", signoutHandler(state))
	g.PATCH("/password", changePasswordHandler(state))

	g.GET("/setup/twofa", startTwoFASetupHandler(state))
	g.POST("/setup/twofa", confirmTwoFASetupHandler(state))
	g.DELETE("/setup/twofa", cancelTwoFASetupHandler(state))
	g.PATCH("/setup/twofa", setAlwaysRequiredHandler(state))

	g.DELETE("/twofa", disableTwoFAHandler(state))
	g.POST("/twofa", generateBackupCodesHandler(state))
	g.PATCH("/twofa", rotateBackupCodesHandler(state))
	g.PUT("/twofa", clearBackupCodesHandler(state))
}

type userResponse struct {
	Email               string `json:"email"`
	FullName            string `json:"full_name"`
	Admin               bool   `json:"admin"`
	TwoFAActive         bool   `json:"two_fa_active"`
	TwoFAAlwaysRequired bool   `json:"two_fa_always_required"`
	TwoFABackupCount    int64  `json:"two_fa_backup_count"`
}

func userGetHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, userResponse{
			Email:               user.Email,
			FullName:            user.FullName,
			Admin:               user.Admin,
			TwoFAActive:         user.HasTwoFA(),
			TwoFAAlwaysRequired: user.TwoFAAlwaysRequired,
			TwoFABackupCount:    user.TwoFABackupCount,
		})
	}
}

func signoutHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ulidVal, _ := c.Get("mealpedant.sessionULID")
		ulid, _ := ulidVal.(string)
		if ulid != "" {
			if err := state.KV.DeleteSession(c.Request.Context(), ulid); err != nil {
				apierror.Fail(c, apierror.IO(err))
				return
			}
		}
		clearSessionCookie(c, state)
		apierror.Respond(c, http.StatusOK, "signed out")
	}
}

type changePasswordBody struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	Token           string `json:"token"`
}

func changePasswordHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		var body changePasswordBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Auth.ChangePassword(c.Request.Context(), sess.Email, body.CurrentPassword, body.NewPassword, body.Token); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "password changed")
	}
}

func startTwoFASetupHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		secret, err := state.Auth.StartTwoFASetup(c.Request.Context(), sess.Email)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, gin.H{"secret": secret})
	}
}

type confirmTwoFABody struct {
	Token string `json:"token" binding:"required"`
}

func confirmTwoFASetupHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		var body confirmTwoFABody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		pair, err := useragentIP(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Auth.ConfirmTwoFASetup(c.Request.Context(), sess.Email, body.Token, pair); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "two-factor authentication enabled")
	}
}

func cancelTwoFASetupHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		if err := state.Auth.CancelTwoFASetup(c.Request.Context(), sess.Email); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "two-factor setup cancelled")
	}
}

type setAlwaysRequiredBody struct {
	AlwaysRequired bool   `json:"always_required"`
	Password       string `json:"password"`
	Token          string `json:"token"`
}

func setAlwaysRequiredHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		var body setAlwaysRequiredBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Auth.SetAlwaysRequired(c.Request.Context(), sess.Email, body.AlwaysRequired, body.Password, body.Token); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "updated")
	}
}

type passwordTokenBody struct {
	Password string `json:"password" binding:"required"`
	Token    string `json:"token"`
}

func disableTwoFAHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		var body passwordTokenBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Auth.DisableTwoFA(c.Request.Context(), sess.Email, body.Password, body.Token); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "two-factor authentication disabled")
	}
}

func generateBackupCodesHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		pair, err := useragentIP(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		codes, err := state.Auth.GenerateBackupCodes(c.Request.Context(), sess.Email, pair)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, codes)
	}
}

func rotateBackupCodesHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		pair, err := useragentIP(c, state)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		codes, err := state.Auth.RotateBackupCodes(c.Request.Context(), sess.Email, pair)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, codes)
	}
}

func clearBackupCodesHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		var body passwordTokenBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Auth.ClearBackupCodes(c.Request.Context(), sess.Email, body.Password, body.Token); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "backup codes cleared")
	}
}
