// README: Mission handlers for prepare/complete.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poring/internal/modules/mission"
	"poring/internal/types"
)

type MissionHandler struct {
	missions *mission.Service
}

func NewMissionHandler(missions *mission.Service) *MissionHandler {
	return &MissionHandler{missions: missions}
}

type prepareMissionReq struct {
	UserID          int64 `json:"user_id"`
	BikeID          int64 `json:"low_battery_bike_id"`
	TargetStationID int64 `json:"target_station_id"`
	Reward          int64 `json:"reward"`
}

func (h *MissionHandler) Prepare(c *gin.Context) {
	var req prepareMissionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID <= 0 || req.BikeID <= 0 || req.TargetStationID <= 0 {
		writeError(c, http.StatusBadRequest, "missing user_id, low_battery_bike_id, or target_station_id")
		return
	}
	if req.Reward < 0 {
		writeError(c, http.StatusBadRequest, "reward must not be negative")
		return
	}
	res, err := h.missions.Prepare(c.Request.Context(), mission.PrepareCommand{
		UserID:          req.UserID,
		BikeID:          req.BikeID,
		TargetStationID: req.TargetStationID,
		Reward:          req.Reward,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(c, status, res)
}

type completeMissionReq struct {
	UserID    int64   `json:"user_id"`
	BikeID    int64   `json:"bike_id"`
	StationID int64   `json:"station_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

func (h *MissionHandler) Complete(c *gin.Context) {
	var req completeMissionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID <= 0 || req.BikeID <= 0 || req.StationID <= 0 {
		writeError(c, http.StatusBadRequest, "missing user_id, bike_id, or station_id")
		return
	}
	res, err := h.missions.Complete(c.Request.Context(), mission.CompleteCommand{
		UserID:    req.UserID,
		BikeID:    req.BikeID,
		StationID: req.StationID,
		At:        types.Point{Lat: req.Lat, Lon: req.Lon},
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
