package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/appstate"
)

// setSessionCookie writes the signed session cookie, matching spec §6's
// attributes: Path=/, configured Domain, HttpOnly, SameSite=Strict, Secure
// in production.
func setSessionCookie(c *gin.Context, state *appstate.State, ulid string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		state.Env.CookieName,
		state.CookieMAC.Sign(ulid),
		int(ttl.Seconds()),
		"/",
		state.Env.Domain,
		state.Env.Production,
		true,
	)
}

// clearSessionCookie expires the cookie immediately, used on signout.
func clearSessionCookie(c *gin.Context, state *appstate.State) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(state.Env.CookieName, "", -1, "/", state.Env.Domain, state.Env.Production, true)
}
