// README: Chat handler for the conversational front end.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poring/internal/modules/chat"
	"poring/internal/types"
)

type ChatHandler struct {
	chat *chat.Service
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{chat: svc}
}

type chatReq struct {
	UserID  int64    `json:"user_id"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

func (h *ChatHandler) Message(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID <= 0 || req.Message == "" {
		writeError(c, http.StatusBadRequest, "missing user_id or message")
		return
	}

	cmd := chat.Command{UserID: req.UserID, Message: req.Message}
	if req.Lat != nil && req.Lon != nil {
		cmd.At = &types.Point{Lat: *req.Lat, Lon: *req.Lon}
	}
	reply, err := h.chat.Handle(c.Request.Context(), cmd)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, reply)
}
