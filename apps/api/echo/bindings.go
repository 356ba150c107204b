package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/practrac/practrac/core"
)

var orderingParam = "ordering"

// Ordering binds the `ordering` query param: comma separated fields, prefixed with "-" for descending order.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// boolQueryParam returns nil when the param is missing or not a boolean.
func boolQueryParam(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}

// versionQueryParam reads the optional `version` the client expects the object to be at.
func versionQueryParam(ctx echo.Context) *int {
	v, err := strconv.Atoi(ctx.QueryParam("version"))
	if err != nil {
		return nil
	}
	return &v
}
