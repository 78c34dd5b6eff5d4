package httpapi

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/appstate"
	"github.com/mrjackwills/mealpedant/internal/photo"
)

// isBodyTooLarge reports whether err stems from the http.MaxBytesReader
// installed on the request body in uploadPhotoHandler.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// registerPhotoRoutes mounts the admin-only photo upload/delete pair spec
// §6 lists under /photo, distinct from the read-only static /photo/<name>
// route internal/staticserve serves.
func registerPhotoRoutes(rg *gin.RouterGroup, state *appstate.State) {
	g := rg.Group("/photo", isAuthenticated(), isAdmin(state))
	g.POST("", uploadPhotoHandler(state))
	g.DELETE("", deletePhotoHandler(state))
}

type photoResponse struct {
	PhotoOriginal  string `json:"photo_original"`
	PhotoConverted string `json:"photo_converted"`
}

// uploadPhotoHandler reads a single multipart file field named "photo"; its
// filename's extension-stripped stem ("J" or "D") tells the pipeline which
// person the upload belongs to, per spec §4.H.
func uploadPhotoHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, photo.MaxUploadBytes)

		part, header, err := c.Request.FormFile("photo")
		if err != nil {
			if isBodyTooLarge(err) {
				apierror.Fail(c, apierror.BodySize())
				return
			}
			apierror.Fail(c, apierror.InvalidValue("photo"))
			return
		}
		defer part.Close()

		body, err := io.ReadAll(part)
		if err != nil {
			if isBodyTooLarge(err) {
				apierror.Fail(c, apierror.BodySize())
				return
			}
			apierror.Fail(c, apierror.IO(err))
			return
		}
		stem := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
		contentType := header.Header.Get("Content-Type")

		_, original, converted, err := state.Photo.Upload(contentType, stem, body)
		if err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, photoResponse{PhotoOriginal: original, PhotoConverted: converted})
	}
}

type deletePhotoBody struct {
	PhotoOriginal  string `json:"photo_original" binding:"required"`
	PhotoConverted string `json:"photo_converted" binding:"required"`
}

func deletePhotoHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body deletePhotoBody
		if err := bindJSON(c, &body); err != nil {
			apierror.Fail(c, err)
			return
		}
		if err := state.Photo.Delete(body.PhotoOriginal, body.PhotoConverted); err != nil {
			apierror.Fail(c, err)
			return
		}
		apierror.Respond(c, http.StatusOK, "photo deleted")
	}
}
