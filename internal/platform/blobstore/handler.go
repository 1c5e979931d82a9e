package blobstore

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/mediclass/mediclass/internal/platform/auth"
)

// Handler exposes the multipart upload and delete endpoints.
type Handler struct {
	store BlobStore
}

func NewHandler(store BlobStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/media", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	g.POST("", h.Upload)
	g.DELETE("/:category/:owner/:file", h.Delete)
}

// Upload accepts multipart form data ("file" plus a "category" field), spools
// the part to a temp file, then forwards it to the storage zone. Spooling
// keeps the multipart reader from holding the request body open for the
// whole duration of the CDN transfer.
func (h *Handler) Upload(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	category := c.FormValue("category")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, io.LimitReader(src, MaxFileSize+1)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	meta, err := h.store.Upload(c.Request().Context(), category, userID.String(), fileHeader.Filename, contentType, tmp)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidContentType), errors.Is(err, ErrMissingFileName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadGateway, "upload failed")
		}
	}

	return c.JSON(http.StatusCreated, meta)
}

// Delete removes an object. Only the owner referenced in the key may delete
// it.
func (h *Handler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	owner := c.Param("owner")
	if auth.RoleFromContext(c.Request().Context()) != auth.RoleAdmin && owner != userID.String() {
		return echo.NewHTTPError(http.StatusForbidden, "not the owner of this object")
	}

	key := c.Param("category") + "/" + owner + "/" + c.Param("file")
	if err := h.store.Delete(c.Request().Context(), key); err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "object not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}
