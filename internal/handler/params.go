package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Validation(fmt.Sprintf("invalid %s %q", name, c.Param(name)))
	}
	return id, nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

func notFound(kind string, id int64) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %d not found", kind, id))
}
