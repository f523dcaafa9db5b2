package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/exam"
	"github.com/trezcool/darasa/core/user"
)

type examApi struct {
	svc      exam.Service
	validate *validator.Validate
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc exam.Service, validate *validator.Validate) {
	api := examApi{svc: svc, validate: validate}
	staff := roleMiddleware(user.RoleAdmin, user.RoleInstructor)

	g.GET("/exams/:examId", api.retrieve)
	g.POST("/courses/:id/exams", api.create, jwt, staff)
	g.POST("/exams/:examId/questions", api.addQuestion, jwt, staff)
	g.POST("/exams/:examId/attempts", api.submitAttempt, jwt)
}

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Create(requestContext(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *examApi) addQuestion(ctx echo.Context) error {
	var data exam.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.AddQuestion(requestContext(ctx), ctx.Param("examId"), data)
	if err != nil {
		return errors.Wrap(err, "adding exam question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	e, err := api.svc.Get(requestContext(ctx), ctx.Param("examId"))
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *examApi) submitAttempt(ctx echo.Context) error {
	var data exam.NewAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	res, err := api.svc.SubmitAttempt(requestContext(ctx), ctx.Param("examId"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusCreated, res)
}
