package params

import (
	"strconv"

	"healthtrack-api/core/constants"

	"github.com/labstack/echo/v4"
)

type QueryParams struct {
	PageNumber int
	PageSize   int
}

// NewQueryParams reads page/limit from the query string, clamping to sane
// bounds.
func NewQueryParams(ctx echo.Context) *QueryParams {
	pageNumber, err := strconv.Atoi(ctx.QueryParam("page"))
	if err != nil || pageNumber < 1 {
		pageNumber = 1
	}

	pageSize, err := strconv.Atoi(ctx.QueryParam("limit"))
	if err != nil || pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}

	return &QueryParams{
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}
}
