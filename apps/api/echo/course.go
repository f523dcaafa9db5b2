package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/file"
	"github.com/trezcool/darasa/core/user"
)

var (
	errMaterialNotFound = core.NotFound("Course material not found")
	errNotEnrolled      = core.Forbidden("Not enrolled in course")
)

type courseApi struct {
	svc       course.Service
	enrollSvc enrollment.Service
	fileSvc   file.Service
	validate  *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc course.Service,
	enrollSvc enrollment.Service,
	fileSvc file.Service,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:       svc,
		enrollSvc: enrollSvc,
		fileSvc:   fileSvc,
		validate:  validate,
	}
	staff := roleMiddleware(user.RoleAdmin, user.RoleInstructor)
	admin := roleMiddleware(user.RoleAdmin)

	// public endpoints
	g.GET("/courses", api.list)
	g.GET("/courses/:id", api.retrieve)

	// authed endpoints
	g.POST("/courses", api.create, jwt, staff)
	g.PUT("/courses/:id", api.update, jwt, staff)
	g.PATCH("/courses/:id/material", api.setMaterial, jwt, staff)
	g.GET("/courses/:id/material", api.material, jwt)
	g.POST("/courses/:id/clone", api.clone, jwt, admin)
	g.GET("/courses/:id/modules", api.listModules, jwt)
	g.POST("/courses/:id/modules", api.createModule, jwt, staff)
	g.PATCH("/modules/reorder", api.reorderModules, jwt, admin)
	g.POST("/modules/:moduleId/contents", api.createContent, jwt, staff)
}

func (api *courseApi) list(ctx echo.Context) error {
	courses, err := api.svc.List(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	detail, err := api.svc.GetDetail(requestContext(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	crs, err := api.svc.Create(requestContext(ctx), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(requestContext(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) setMaterial(ctx echo.Context) error {
	var data course.SetMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetMaterial")
	}
	data.Clean()

	crs, err := api.svc.SetMaterial(requestContext(ctx), ctx.Param("id"), data.MaterialKey)
	if err != nil {
		return errors.Wrap(err, "setting course material")
	}
	return ctx.JSON(http.StatusOK, crs)
}

// material returns a temporary download URL of the course material, for staff and enrolled students.
func (api *courseApi) material(ctx echo.Context) error {
	rctx := requestContext(ctx)
	crs, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.Role == user.RoleStudent {
		enrolled, err := api.enrollSvc.IsEnrolled(rctx, claims.Subject, crs.ID)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return errNotEnrolled
		}
	}

	if crs.MaterialKey == nil {
		return errMaterialNotFound
	}
	url, err := api.fileSvc.Presign(rctx, *crs.MaterialKey)
	if err != nil {
		return errors.Wrap(err, "presigning course material")
	}
	return ctx.JSON(http.StatusOK, PresignResponse{OK: true, URL: url})
}

func (api *courseApi) clone(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	summary, err := api.svc.Clone(requestContext(ctx), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "cloning course")
	}
	return ctx.JSON(http.StatusCreated, summary)
}

func (api *courseApi) listModules(ctx echo.Context) error {
	modules, err := api.svc.ListModules(requestContext(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing modules")
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *courseApi) createModule(ctx echo.Context) error {
	var data course.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mod, err := api.svc.CreateModule(requestContext(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *courseApi) reorderModules(ctx echo.Context) error {
	var data course.ReorderModules
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderModules")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ReorderModules(requestContext(ctx), data); err != nil {
		return errors.Wrap(err, "reordering modules")
	}
	return ctx.JSON(http.StatusOK, OKResponse{OK: true})
}

func (api *courseApi) createContent(ctx echo.Context) error {
	var data course.NewContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	content, err := api.svc.CreateContent(requestContext(ctx), ctx.Param("moduleId"), data)
	if err != nil {
		return errors.Wrap(err, "creating content")
	}
	return ctx.JSON(http.StatusCreated, content)
}
