package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/question"
	"github.com/trezcool/darasa/core/user"
)

type questionApi struct {
	svc      question.Service
	validate *validator.Validate
}

func registerQuestionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc question.Service, validate *validator.Validate) {
	api := questionApi{svc: svc, validate: validate}

	g.GET("/courses/:id/questions", api.list, jwt)
	g.POST("/courses/:id/questions", api.create, jwt, roleMiddleware(user.RoleAdmin))
	g.GET("/courses/:id/questions/random", api.random, jwt)
	g.POST("/courses/:id/exams/submit", api.submit, jwt, roleMiddleware(user.RoleStudent))
}

func (api *questionApi) create(ctx echo.Context) error {
	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.Create(requestContext(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) list(ctx echo.Context) error {
	questions, err := api.svc.List(requestContext(ctx), ctx.Param("id"), contextHasAnyRole(ctx, user.RoleAdmin))
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *questionApi) random(ctx echo.Context) error {
	limit := question.DefaultRandomLimit
	if val := ctx.QueryParam("limit"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return question.ErrInvalidLimit
		}
		limit = n
	}

	questions, err := api.svc.Random(requestContext(ctx), ctx.Param("id"), limit, contextHasAnyRole(ctx, user.RoleAdmin))
	if err != nil {
		return errors.Wrap(err, "drawing random questions")
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *questionApi) submit(ctx echo.Context) error {
	var data question.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	res, err := api.svc.Submit(requestContext(ctx), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting exam")
	}
	return ctx.JSON(http.StatusCreated, res)
}
