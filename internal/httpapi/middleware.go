// Package httpapi wires the API server's Gin router: CORS, the signed
// session cookie, the global rate limiter, the authentication guards, and
// every /v1 route spec §4.I and §6 name. Grounded on the teacher's
// api/cmd/main.go middleware chain and corsMiddleware, adapted from its
// bearer-JWT model to this module's signed-cookie session.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/appstate"
	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/kv"
)

const contextSessionKey = "mealpedant.session"

// sessionFromContext returns the resolved session, if the request passed
// through resolveSession and one was found.
func sessionFromContext(c *gin.Context) (kv.Session, bool) {
	v, ok := c.Get(contextSessionKey)
	if !ok {
		return kv.Session{}, false
	}
	return v.(kv.Session), true
}

// corsMiddleware mirrors the teacher's corsMiddleware: an explicit origin
// allowlist (here, just the configured domain) rather than a wildcard,
// since the cookie is credentialed.
func corsMiddleware(state *appstate.State) gin.HandlerFunc {
	scheme := "http://"
	if state.Env.Production {
		scheme = "https://"
	}
	allowedOrigin := scheme + state.Env.Domain

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && origin == allowedOrigin {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// resolveSession reads the cookie, verifies its MAC, looks up the session
// in KV, and stores it in the Gin context for downstream guards — it never
// itself rejects a request, since some routes (not_authenticated,
// /incognito/online) are valid with no session at all.
func resolveSession(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(state.Env.CookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}
		ulid, ok := state.CookieMAC.Verify(raw)
		if !ok {
			c.Next()
			return
		}
		sess, err := state.KV.GetSession(c.Request.Context(), ulid)
		if err != nil {
			c.Next()
			return
		}
		c.Set(contextSessionKey, sess)
		c.Set("mealpedant.sessionULID", ulid)
		c.Next()
	}
}

// rateLimit applies spec §4.D's escalating counter: identity-scoped once a
// session resolves the caller's email, IP-scoped otherwise.
func rateLimit(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var result kv.RateLimitResult
		var err error
		if sess, ok := sessionFromContext(c); ok {
			result, err = state.KV.CheckEmail(ctx, sess.Email)
		} else {
			result, err = state.KV.CheckIP(ctx, clientIP(c))
		}
		if err != nil {
			apierror.Fail(c, apierror.IO(err))
			return
		}
		if result.Blocked {
			apierror.Fail(c, apierror.RateLimited(result.Seconds))
			return
		}
		c.Next()
	}
}

// clientIP prefers X-Forwarded-For's first hop behind a reverse proxy,
// falling back to Gin's own RemoteIP resolution.
func clientIP(c *gin.Context) string {
	if fwd := c.Request.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(ip)
		}
		return strings.TrimSpace(fwd)
	}
	return c.ClientIP()
}

// isAuthenticated rejects any request with no resolved session.
func isAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := sessionFromContext(c); !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		c.Next()
	}
}

// notAuthenticated rejects any request that already carries a live
// session, used on the incognito register/signin/reset routes.
func notAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := sessionFromContext(c); ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		c.Next()
	}
}

// isAdmin additionally requires the session's user to carry the admin
// flag; it re-resolves the user row rather than trusting a cached bit on
// the session, since admin status can change after the session was issued.
func isAdmin(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		user, err := state.DB.GetUserByEmail(c.Request.Context(), sess.Email)
		if err != nil {
			apierror.Fail(c, apierror.SQL(err))
			return
		}
		if user == nil {
			// Session still live in KV but its backing user is gone; self-heal
			// by dropping the stale session rather than leaving it to expire.
			if ulid, ok := c.Get("mealpedant.sessionULID"); ok {
				if s, ok := ulid.(string); ok && s != "" {
					_ = state.KV.DeleteSession(c.Request.Context(), s)
				}
			}
			apierror.Fail(c, apierror.Authentication())
			return
		}
		if !user.Admin {
			apierror.Fail(c, apierror.Authentication())
			return
		}
		c.Set("mealpedant.user", user)
		c.Next()
	}
}

// currentUser fetches the full joined user row for the resolved session,
// used by handlers that need more than {user_id, email}.
func currentUser(c *gin.Context, state *appstate.State) (*db.User, error) {
	if v, ok := c.Get("mealpedant.user"); ok {
		return v.(*db.User), nil
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return nil, apierror.Authentication()
	}
	user, err := state.DB.GetUserByEmail(c.Request.Context(), sess.Email)
	if err != nil {
		return nil, apierror.SQL(err)
	}
	if user == nil {
		return nil, apierror.Authentication()
	}
	return user, nil
}

// useragentIP resolves (ip_id, user_agent_id) for the current request,
// inserting either row on first sight, per every DB write that needs it.
func useragentIP(c *gin.Context, state *appstate.State) (db.UserAgentIP, error) {
	ua := c.Request.UserAgent()
	pair, err := state.DB.ResolveUserAgentIP(c.Request.Context(), clientIP(c), ua)
	if err != nil {
		return db.UserAgentIP{}, apierror.SQL(err)
	}
	return pair, nil
}
