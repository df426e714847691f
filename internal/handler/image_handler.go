package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"picboard/internal/auth"
	apperrors "picboard/internal/errors"
	"picboard/internal/moderation"
	"picboard/internal/service"
)

// ImageHandler handles the gallery feed and uploads.
type ImageHandler struct {
	images service.ImageService
}

// NewImageHandler creates a new image handler.
func NewImageHandler(images service.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

// Home godoc
// @Summary Gallery home: the current user's images and paginated community images
// @Tags images
// @Produce json
// @Param page query int false "Community page number" default(1)
// @Param pageSize query int false "Community page size" default(21)
// @Success 200 {object} service.HomeFeed
// @Failure 500 {object} map[string]string
// @Router /images [get]
func (h *ImageHandler) Home(c echo.Context) error {
	page := intQueryParam(c, "page", 1)
	pageSize := intQueryParam(c, "pageSize", service.DefaultPageSize)

	currentUserID := ""
	if principal := auth.CurrentUser(c); principal != nil {
		currentUserID = principal.UserID
	}

	feed, err := h.images.Home(c.Request().Context(), currentUserID, page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load gallery")
	}

	c.Logger().Info("[GET] Home: returning gallery feed")
	return c.JSON(http.StatusOK, feed)
}

// Upload godoc
// @Summary Upload images, each checked by the moderation service before it is stored
// @Tags images
// @Accept mpfd
// @Param images formData file true "Image files"
// @Success 302
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /images [post]
func (h *ImageHandler) Upload(c echo.Context) error {
	principal := auth.CurrentUser(c)
	if principal == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}

	files := form.File["images"]
	uploads := make([]service.Upload, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file")
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file")
		}
		uploads = append(uploads, service.Upload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	c.Logger().Infof("[POST] Upload: sending %d uploaded images to moderation check", len(uploads))
	if err := h.images.Upload(c.Request().Context(), principal.UserID, uploads); err != nil {
		var checkErr *moderation.CheckError
		if errors.As(err, &checkErr) {
			c.Logger().Warn("[POST] Upload: moderation check did not return a success status, returning 400 Bad Request")
			return c.JSON(http.StatusBadRequest, apperrors.ErrorResponse{
				Error:          "image rejected by moderation",
				Code:           "MODERATION_REJECTED",
				UpstreamStatus: checkErr.StatusCode,
			})
		}
		return c.JSON(http.StatusInternalServerError, apperrors.ErrorResponse{
			Error: "failed to upload images",
			Code:  "UPLOAD_FAILED",
		})
	}

	c.Logger().Info("[POST] Upload: successfully uploaded all images, redirecting to gallery home")
	return redirectToHome(c)
}

func intQueryParam(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
