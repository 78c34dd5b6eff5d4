package apierror

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/logger"
)

// envelope is the {"response": ...} wrapper every JSON response — success or
// error — uses.
type envelope struct {
	Response interface{} `json:"response"`
}

// Respond writes a successful {"response": payload} body.
func Respond(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, envelope{Response: payload})
}

// Fail aborts the request with the error's mapped status and body, logging
// 5xx-class failures with their cause per the §7 propagation policy.
func Fail(c *gin.Context, err error) {
	ae := As(err)
	if ae.IsServerError() {
		logger.HTTP().Error().Err(ae).Str("kind", ae.kindString()).Msg("request failed")
	}
	c.AbortWithStatusJSON(ae.StatusCode(), envelope{Response: ae.Body()})
}

// Handler is the last-resort Gin middleware: any handler that called
// c.Error(err) instead of apierror.Fail directly gets converted here, and
// panics are recovered into a generic 500.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.HTTP().Error().Interface("panic", r).Msg("recovered from panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Response: "Internal"})
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Fail(c, c.Errors.Last().Err)
		}
	}
}
