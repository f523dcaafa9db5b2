package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/file"
)

var errFileRequired = echo.NewHTTPError(http.StatusBadRequest, "File is required")

type fileApi struct {
	svc file.Service
}

func registerFileAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc file.Service) {
	api := fileApi{svc: svc}

	g.POST("/files/upload", api.upload, jwt)
	g.GET("/files/presign/:objectKey", api.presign, jwt)
}

type (
	UploadResponse struct {
		OK bool `json:"ok"`
		file.Upload
	}

	PresignResponse struct {
		OK  bool   `json:"ok"`
		URL string `json:"url"`
	}
)

func (api *fileApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errFileRequired
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	up, err := api.svc.Upload(requestContext(ctx), fh.Filename, fh.Header.Get(echo.HeaderContentType), fh.Size, src)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, UploadResponse{OK: true, Upload: up})
}

func (api *fileApi) presign(ctx echo.Context) error {
	url, err := api.svc.Presign(requestContext(ctx), ctx.Param("objectKey"))
	if err != nil {
		return errors.Wrap(err, "presigning object")
	}
	return ctx.JSON(http.StatusOK, PresignResponse{OK: true, URL: url})
}
