// README: Rental handlers for start/return.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poring/internal/modules/hub"
	"poring/internal/modules/rental"
)

type RentalHandler struct {
	rentals *rental.Service
	hubs    *hub.Service
}

func NewRentalHandler(rentals *rental.Service, hubs *hub.Service) *RentalHandler {
	return &RentalHandler{rentals: rentals, hubs: hubs}
}

type startRentalReq struct {
	UserID int64 `json:"user_id"`
	BikeID int64 `json:"bike_id"`
}

func (h *RentalHandler) Start(c *gin.Context) {
	var req startRentalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID <= 0 || req.BikeID <= 0 {
		writeError(c, http.StatusBadRequest, "missing user_id or bike_id")
		return
	}
	res, err := h.rentals.Start(c.Request.Context(), rental.StartCommand{
		UserID: req.UserID,
		BikeID: req.BikeID,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

type returnRentalReq struct {
	UserID  int64  `json:"user_id"`
	HubName string `json:"hub_name"`
	// Kind is "station" or "zone"; empty defaults to station.
	Kind string `json:"kind"`
}

func (h *RentalHandler) Return(c *gin.Context) {
	var req returnRentalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID <= 0 || req.HubName == "" {
		writeError(c, http.StatusBadRequest, "missing user_id or hub_name")
		return
	}

	var kind hub.LocationKind
	switch req.Kind {
	case "", "station":
		kind = hub.KindStation
	case "zone":
		kind = hub.KindZone
	default:
		writeError(c, http.StatusBadRequest, "kind must be station or zone")
		return
	}

	hb, err := h.hubs.Get(c.Request.Context(), req.HubName)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	res, err := h.rentals.Close(c.Request.Context(), rental.CloseCommand{
		UserID: req.UserID,
		HubID:  hb.ID,
		Kind:   kind,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
