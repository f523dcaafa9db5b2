package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/user"
)

type gradingApi struct {
	svc      grading.Service
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc grading.Service, validate *validator.Validate) {
	api := gradingApi{svc: svc, validate: validate}
	student := roleMiddleware(user.RoleStudent)
	admin := roleMiddleware(user.RoleAdmin)

	g.POST("/courses/:id/grades", api.setGrade, jwt, admin)
	g.GET("/courses/:id/exam-results", api.listResults, jwt, admin)
	g.POST("/courses/:id/exam-results", api.recordResult, jwt, admin)
	g.GET("/courses/:id/exam-results/me", api.myResult, jwt, student)
	g.GET("/my-grades", api.myGrades, jwt, student)
	g.GET("/admin/metrics", api.metrics, jwt, admin)
}

func (api *gradingApi) setGrade(ctx echo.Context) error {
	var data grading.SetGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.SetGrade(requestContext(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *gradingApi) recordResult(ctx echo.Context) error {
	var data grading.RecordResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordResult")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.RecordResult(requestContext(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording exam result")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *gradingApi) listResults(ctx echo.Context) error {
	results, err := api.svc.ListResults(requestContext(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing exam results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *gradingApi) myResult(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	res, err := api.svc.MyResult(requestContext(ctx), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting exam result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradingApi) myGrades(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	grades, err := api.svc.MyGrades(requestContext(ctx), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradingApi) metrics(ctx echo.Context) error {
	m, err := api.svc.Metrics(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "computing metrics")
	}
	return ctx.JSON(http.StatusOK, m)
}
