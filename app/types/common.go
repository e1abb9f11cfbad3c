package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = int32(100)
	maxListLimit     = int32(500)
)

func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
}

func parseInt32Query(ctx echo.Context, name string, defaultValue int32) (int32, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

func parsePaging(ctx echo.Context) (int32, int32, error) {
	limit, err := parseInt32Query(ctx, "limit", defaultListLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := parseInt32Query(ctx, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func validatePaging(limit *int32, offset int32) error {
	if *limit == 0 {
		*limit = defaultListLimit
	}
	if *limit < 0 || *limit > maxListLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}
