package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
)

type enrollmentApi struct {
	svc enrollment.Service
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc enrollment.Service) {
	api := enrollmentApi{svc: svc}
	student := roleMiddleware(user.RoleStudent)
	admin := roleMiddleware(user.RoleAdmin)

	g.GET("/courses/:id/enroll", api.state, jwt, student)
	g.POST("/courses/:id/enroll", api.request, jwt, student)
	g.GET("/courses/:id/students", api.listStudents, jwt, admin)
	g.PATCH("/enrollments/:id/approve", api.approve, jwt, admin)
	g.PATCH("/enrollments/:id/reject", api.reject, jwt, admin)
}

type EnrollmentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (api *enrollmentApi) state(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	state, err := api.svc.State(requestContext(ctx), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting enrollment state")
	}
	return ctx.JSON(http.StatusOK, state)
}

func (api *enrollmentApi) request(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	state, created, err := api.svc.Request(requestContext(ctx), claims.Subject, ctx.Param("id"), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "requesting enrollment")
	}
	if created {
		return ctx.JSON(http.StatusCreated, state)
	}
	return ctx.JSON(http.StatusOK, state)
}

func (api *enrollmentApi) listStudents(ctx echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(ctx.QueryParam("status")))
	students, err := api.svc.ListStudents(requestContext(ctx), ctx.Param("id"), status)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *enrollmentApi) approve(ctx echo.Context) error {
	e, err := api.svc.Approve(requestContext(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving enrollment")
	}
	return ctx.JSON(http.StatusOK, EnrollmentResponse{ID: e.ID, Status: e.Status})
}

func (api *enrollmentApi) reject(ctx echo.Context) error {
	e, err := api.svc.Reject(requestContext(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rejecting enrollment")
	}
	return ctx.JSON(http.StatusOK, EnrollmentResponse{ID: e.ID, Status: e.Status})
}
