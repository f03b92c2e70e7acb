package handlers

import (
	"strconv"

	"kb-portal/helper"

	"github.com/gin-gonic/gin"
)

// paramID parses a numeric path parameter. An id that cannot exist is
// answered with 404 and false.
func paramID(c *gin.Context, h *helper.HTTPHelper, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		h.SendNotFoundError(c, "Resource not found", h.EmptyJsonMap())
		return 0, false
	}
	return uint(id), true
}

// queryInt reads a query integer; missing or malformed values give 0 so
// paging falls back to its default for that value alone.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

func queryBool(c *gin.Context, name string) bool {
	b, _ := strconv.ParseBool(c.Query(name))
	return b
}
