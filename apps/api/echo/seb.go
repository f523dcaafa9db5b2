package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/seb"
)

func registerSEBAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	g.GET("/seb", sebInfo)
	g.POST("/seb/check", sebCheckToken, jwt)
	g.GET("/seb/check", sebCheckRequestHash, jwt)
}

func sebInfo(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"module": "seb"})
}

func sebCheckToken(ctx echo.Context) error {
	if err := seb.CheckToken(ctx.Request().Header); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, OKResponse{OK: true})
}

func sebCheckRequestHash(ctx echo.Context) error {
	if err := seb.CheckRequestHash(ctx.Request().Header); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, OKResponse{OK: true})
}
