package httpapi

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mrjackwills/mealpedant/internal/apierror"
)

func init() {
	gin.EnableJsonDecoderDisallowUnknownFields()
}

// bindJSON decodes the request body into dst, translating Gin/validator
// errors into spec §4.I's three shapes: missing required field -> "missing
// <field>", unknown field -> "invalid input", anything else -> generic
// "JSON". Handlers call this instead of c.ShouldBindJSON directly so every
// route gets identical error wording.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindWith(dst, binding.JSON); err != nil {
		return translateBindErr(err)
	}
	return nil
}

func translateBindErr(err error) error {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) && len(verr) > 0 {
		return apierror.MissingKey(jsonFieldName(verr[0]))
	}

	var unmarshalTypeErr *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeErr) {
		return apierror.InvalidValue("JSON")
	}

	if strings.Contains(err.Error(), "unknown field") {
		return apierror.InvalidValue("invalid input")
	}

	return apierror.InvalidValue("JSON")
}

// jsonFieldName converts validator's Go field name to lower_snake
// (FullName -> full_name), which is the json tag name of every bound field,
// matching the wire shape.
func jsonFieldName(fe validator.FieldError) string {
	var b strings.Builder
	for i, r := range fe.Field() {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
