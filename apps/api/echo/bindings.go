package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
)

const orderingParam = "ordering"

// queryOrdering parses `?ordering=-student_number,email` into DB orderings.
// A leading "-" sorts descending; blank and repeated fields are skipped.
func queryOrdering(ctx echo.Context) []core.DBOrdering {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	var orderings []core.DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		asc := !strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: asc})
	}
	return orderings
}
