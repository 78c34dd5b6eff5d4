// Package staticserve implements the second of the two HTTP servers spec
// §4.I describes: a single /photo/<name> route enforcing the visibility
// table from §4.H, plus a fallback file server for the precompressed
// frontend asset bundle. Grounded on the teacher's static-file handling in
// api/cmd/main.go, sharing this module's Gin middleware stack rather than
// the teacher's bearer-auth one.
package staticserve

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/appstate"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/kv"
	"github.com/mrjackwills/mealpedant/internal/photo"
)

const longCacheControl = "max-age=8640000"
const noCacheControl = "no-cache"

// NewRouter builds the static server's Gin engine: the same panic-recovery,
// CORS, session-resolution and rate-limit chain the API server installs
// (spec §4.I: "under the same rate limiter and cookie key"), then the
// /photo/<name> route, then a catch-all precompressed asset server.
func NewRouter(state *appstate.State) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(apierror.Handler())
	r.Use(sharedMiddleware(state)...)

	r.GET("/photo/:name", photoHandler(state))
	r.NoRoute(assetHandler(state))

	return r
}

// sharedMiddleware wires package-local copies of the CORS, session and
// rate-limit middleware httpapi builds its chain from; staticserve has no
// handlers of its own that need the guards (is_authenticated etc), only
// session resolution and the rate limiter, and httpapi's versions are
// unexported, so they are duplicated here rather than imported.
func sharedMiddleware(state *appstate.State) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		corsMiddleware(state),
		resolveSessionMiddleware(state),
		rateLimitMiddleware(state),
	}
}

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
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

const contextSessionKey = "mealpedant.session"

func resolveSessionMiddleware(state *appstate.State) gin.HandlerFunc {
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
		c.Next()
	}
}

func rateLimitMiddleware(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var result kv.RateLimitResult
		var err error
		if v, ok := c.Get(contextSessionKey); ok {
			result, err = state.KV.CheckEmail(ctx, v.(kv.Session).Email)
		} else {
			result, err = state.KV.CheckIP(ctx, c.ClientIP())
		}
		if err != nil {
			noCacheNotFound(c)
			return
		}
		if result.Blocked {
			c.Writer.Header().Set("Cache-Control", noCacheControl)
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}

// photoHandler implements spec §4.H's serve table exactly: Jack-converted
// is public and long-cached; every other valid combination requires a live
// session and is never cached; anything unparseable or missing is a 404.
func photoHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		person, variant, ok := photo.Resolve(name)
		if !ok {
			noCacheNotFound(c)
			return
		}

		public := person == db.PersonJack && variant == photo.VariantConverted
		if !public {
			if _, authed := c.Get(contextSessionKey); !authed {
				noCacheNotFound(c)
				return
			}
		}

		path := state.Photo.Path(variant, name)
		if _, err := os.Stat(path); err != nil {
			noCacheNotFound(c)
			return
		}

		if public {
			c.Writer.Header().Set("Cache-Control", longCacheControl)
		} else {
			c.Writer.Header().Set("Cache-Control", noCacheControl)
		}
		c.File(path)
	}
}

func noCacheNotFound(c *gin.Context) {
	c.Writer.Header().Set("Cache-Control", noCacheControl)
	c.AbortWithStatus(http.StatusNotFound)
}

// assetHandler serves the precompressed frontend bundle out of
// LocationPublic, preferring a sibling ".gz" file when the client accepts
// gzip encoding, matching spec §4.I's "precompressed-asset directory"
// fallback.
func assetHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		rel := filepath.Clean(c.Request.URL.Path)
		if rel == "." || rel == "/" {
			rel = "/index.html"
		}
		base := filepath.Join(state.Env.LocationPublic, rel)

		if acceptsGzip(c) {
			gz := base + ".gz"
			if info, err := os.Stat(gz); err == nil && !info.IsDir() {
				c.Writer.Header().Set("Content-Encoding", "gzip")
				c.Writer.Header().Set("Cache-Control", longCacheControl)
				c.File(gz)
				return
			}
		}

		if info, err := os.Stat(base); err == nil && !info.IsDir() {
			c.Writer.Header().Set("Cache-Control", longCacheControl)
			c.File(base)
			return
		}

		noCacheNotFound(c)
	}
}

func acceptsGzip(c *gin.Context) bool {
	return strings.Contains(c.Request.Header.Get("Accept-Encoding"), "gzip")
}
