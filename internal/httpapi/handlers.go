package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cityfix/internal/auth"
	"cityfix/internal/blob"
	"cityfix/internal/perrors"
	"cityfix/internal/service"
)

// formOverhead is room for the text fields that travel with a photo.
const formOverhead = 1 << 20

type handlers struct {
	users     *service.Users
	reports   *service.Reports
	maxUpload int64
	log       *slog.Logger
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// reportRequest is the JSON form of a report. Coordinates may be numbers or
// numeric strings.
type reportRequest struct {
	Category    string  `json:"category"`
	Location    *string `json:"location"`
	Latitude    any     `json:"latitude"`
	Longitude   any     `json:"longitude"`
	Description *string `json:"description"`
}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.log, "register", perrors.New(perrors.KindValidation, "malformed JSON body", err))
		return
	}
	res, err := h.users.Register(c.Request.Context(), service.RegisterInput(req))
	if err != nil {
		abortWithError(c, h.log, "register", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.log, "login", perrors.New(perrors.KindValidation, "malformed JSON body", err))
		return
	}
	res, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, h.log, "login", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) submitReport(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := auth.RequireIdentity(ctx)
	if err != nil {
		abortWithError(c, h.log, "submit report", err)
		return
	}

	var in service.SubmitInput
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		var cleanup func()
		in, cleanup, err = h.multipartReport(c)
		if cleanup != nil {
			defer cleanup()
		}
	} else {
		in, err = jsonReport(c)
	}
	if err != nil {
		abortWithError(c, h.log, "submit report", err)
		return
	}

	reportID, err := h.reports.Submit(ctx, id, in)
	if err != nil {
		abortWithError(c, h.log, "submit report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reportId": reportID})
}

func (h *handlers) multipartReport(c *gin.Context) (service.SubmitInput, func(), error) {
	var in service.SubmitInput
	limit := h.maxUpload
	if limit <= 0 {
		limit = blob.DefaultMaxBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverhead)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return in, nil, perrors.New(perrors.KindValidation, blob.ErrTooLarge.Error(), err)
		}
		return in, nil, perrors.New(perrors.KindValidation, "malformed multipart form", err)
	}
	cleanup := func() { _ = c.Request.MultipartForm.RemoveAll() }

	in.Category = c.PostForm("category")
	in.Location = optForm(c, "location")
	in.Description = optForm(c, "description")
	var err error
	if in.Latitude, err = parseCoord(c.PostForm("latitude"), "latitude"); err != nil {
		return in, cleanup, err
	}
	if in.Longitude, err = parseCoord(c.PostForm("longitude"), "longitude"); err != nil {
		return in, cleanup, err
	}

	if len(c.Request.MultipartForm.File["photo"]) > 1 {
		return in, cleanup, perrors.Validation("only one photo allowed")
	}
	f, header, err := c.Request.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, cleanup, nil
	case err != nil:
		return in, cleanup, perrors.New(perrors.KindValidation, "malformed photo upload", err)
	}
	in.Photo = &blob.Upload{Filename: header.Filename, ContentType: header.Header.Get("Content-Type"), Body: f}
	return in, func() { _ = f.Close(); cleanup() }, nil
}

func jsonReport(c *gin.Context) (service.SubmitInput, error) {
	var (
		in  service.SubmitInput
		req reportRequest
		err error
	)
	if err := c.ShouldBindJSON(&req); err != nil {
		return in, perrors.New(perrors.KindValidation, "malformed JSON body", err)
	}
	in.Category = req.Category
	in.Location = req.Location
	in.Description = req.Description
	if in.Latitude, err = coordValue(req.Latitude, "latitude"); err != nil {
		return in, err
	}
	if in.Longitude, err = coordValue(req.Longitude, "longitude"); err != nil {
		return in, err
	}
	return in, nil
}

func optForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

func coordValue(v any, key string) (*float64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &t, nil
	case string:
		return parseCoord(t, key)
	default:
		return nil, perrors.Validation(fmt.Sprintf("%s must be a number", key))
	}
}

func parseCoord(s, key string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, perrors.Validation(fmt.Sprintf("%s must be a number", key))
	}
	return &f, nil
}
