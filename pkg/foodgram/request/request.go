// Package request holds small helpers for reading path and query values.
package request

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
)

// ID reads a positive integer path parameter. Anything else is reported
// as a missing resource, matching how an unmatched route behaves.
func ID(c *gin.Context, param, resource string) (uint, error) {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apierror.NewNotFound(resource)
	}
	return uint(id), nil
}

// Flag reports whether a query parameter is set to "1" or "true"
func Flag(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true":
		return true
	}
	return false
}

// PositiveInt reads an optional positive integer query parameter.
// Missing, malformed or non-positive values yield ok=false.
func PositiveInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
