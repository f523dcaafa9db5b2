package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/omr"
	"github.com/trezcool/darasa/core/user"
)

type omrApi struct {
	svc      omr.Service
	validate *validator.Validate
}

func registerOMRAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc omr.Service, validate *validator.Validate) {
	api := omrApi{svc: svc, validate: validate}

	og := g.Group("/omr", jwt, roleMiddleware(user.RoleAdmin))
	og.POST("/answer-key", api.answerKey)
	og.POST("/grade", api.grade)
	og.POST("/sample/answer-key", api.sampleAnswerKey)
	og.POST("/sample/grade", api.sampleGrade)
	og.POST("/export", api.export)
}

type ExportResponse struct {
	OK      bool                `json:"ok"`
	Results []grading.ExportRow `json:"results"`
}

// bindRequest binds and validates an OMR payload; any failure is an invalid payload.
func (api *omrApi) bindRequest(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		return errInvalidPayload
	}
	if err := api.validate.Struct(data); err != nil {
		return errInvalidPayload
	}
	return nil
}

func (api *omrApi) answerKey(ctx echo.Context) error {
	var data omr.Request
	if err := api.bindRequest(ctx, &data); err != nil {
		return err
	}
	res, err := api.svc.ProcessAnswerKey(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "processing answer key")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *omrApi) grade(ctx echo.Context) error {
	var data omr.Request
	if err := api.bindRequest(ctx, &data); err != nil {
		return err
	}
	res, err := api.svc.ProcessStudentSheet(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "processing student sheet")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *omrApi) sampleAnswerKey(ctx echo.Context) error {
	var data omr.CourseRequest
	if err := api.bindRequest(ctx, &data); err != nil {
		return err
	}
	res, err := api.svc.SampleAnswerKey(requestContext(ctx), data.CourseID)
	if err != nil {
		return errors.Wrap(err, "storing sample answer key")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *omrApi) sampleGrade(ctx echo.Context) error {
	var data omr.CourseRequest
	if err := api.bindRequest(ctx, &data); err != nil {
		return err
	}
	res, err := api.svc.SampleStudentSheet(requestContext(ctx), data.CourseID)
	if err != nil {
		return errors.Wrap(err, "grading sample sheet")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *omrApi) export(ctx echo.Context) error {
	var data omr.CourseRequest
	if err := api.bindRequest(ctx, &data); err != nil {
		return err
	}
	rows, err := api.svc.Export(requestContext(ctx), data.CourseID)
	if err != nil {
		return errors.Wrap(err, "exporting results")
	}
	return ctx.JSON(http.StatusOK, ExportResponse{OK: true, Results: rows})
}
