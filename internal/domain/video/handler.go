package video

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediclass/mediclass/internal/platform/auth"
	"github.com/mediclass/mediclass/internal/platform/blobstore"
	"github.com/mediclass/mediclass/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/videos", h.Publish)
	doctor.PATCH("/videos/:id", h.UpdateMeta)
	doctor.DELETE("/videos/:id", h.Remove)

	viewer := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	viewer.GET("/videos", h.List)
	viewer.GET("/videos/:id", h.Watch)
	viewer.POST("/videos/:id/like", h.ToggleLike)
}

// spool copies a multipart part to a temp file so the upload to storage does
// not hold the request body open. Caller must close and remove the file.
func spool(fh *multipart.FileHeader) (*os.File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "video-*")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, io.LimitReader(src, blobstore.MaxFileSize+1)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return tmp, nil
}

func (h *Handler) Publish(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}
	tmp, err := spool(fileHeader)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	req := UploadRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     tmp,
	}

	if thumbHeader, err := c.FormFile("thumbnail"); err == nil {
		thumb, err := spool(thumbHeader)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
		}
		defer os.Remove(thumb.Name())
		defer thumb.Close()
		req.ThumbnailName = thumbHeader.Filename
		req.ThumbnailContentType = thumbHeader.Header.Get("Content-Type")
		req.Thumbnail = thumb
	}

	v, err := h.svc.Publish(c.Request().Context(), actorID, req)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, blobstore.ErrInvalidContentType), errors.Is(err, blobstore.ErrMissingFileName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Watch(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	v, err := h.svc.Watch(c.Request().Context(), actorID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "video not found")
	}
	return c.JSON(http.StatusOK, v)
}

type updateMetaRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (h *Handler) UpdateMeta(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req updateMetaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	v, err := h.svc.UpdateMeta(c.Request().Context(), actorID, id, req.Title, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "video not found")
		case errors.Is(err, ErrNotAuthorized):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Remove(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.svc.Remove(c.Request().Context(), actorID, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "video not found")
		case errors.Is(err, ErrNotAuthorized):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var doctorID *uuid.UUID
	if raw := c.QueryParam("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = &id
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), actorID, doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ToggleLike(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	liked, count, err := h.svc.ToggleLike(c.Request().Context(), actorID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "video not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"liked": liked, "like_count": count})
}
