// README: User handlers (activity summary).
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"poring/internal/modules/user"
)

type UserHandler struct {
	users *user.Store
}

func NewUserHandler(users *user.Store) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Summary(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid user id")
		return
	}
	sum, err := h.users.Summary(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sum)
}
