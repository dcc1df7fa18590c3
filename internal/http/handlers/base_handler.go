// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poring/internal/modules/bike"
	"poring/internal/modules/chat"
	"poring/internal/modules/fee"
	"poring/internal/modules/hub"
	"poring/internal/modules/mission"
	"poring/internal/modules/rental"
	"poring/internal/modules/user"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps module sentinel errors onto HTTP statuses.
func writeDomainError(c *gin.Context, err error) {
	switch err {
	case fee.ErrInvalidInterval:
		writeError(c, http.StatusBadRequest, err.Error())
	case hub.ErrHubNotFound, hub.ErrStationNotFound, hub.ErrZoneNotFound,
		bike.ErrNotFound, user.ErrNotFound,
		rental.ErrRentalNotFound, mission.ErrNoActiveMission, mission.ErrStationLocation:
		writeError(c, http.StatusNotFound, err.Error())
	case hub.ErrSlotConflict, hub.ErrStationFull, bike.ErrNotAvailable,
		rental.ErrRentalActive, rental.ErrRentalClosed, rental.ErrStationReturnRequired,
		mission.ErrMissionDuplicate, mission.ErrZoneSlotUnavailable,
		mission.ErrBikeNotInZone, mission.ErrTooFar:
		writeError(c, http.StatusConflict, err.Error())
	case chat.ErrInsufficientTokens:
		writeError(c, http.StatusTooManyRequests, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
