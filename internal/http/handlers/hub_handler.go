// README: Hub handlers: board, availability, nearby lookup, rent recommendation.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"poring/internal/modules/bike"
	"poring/internal/modules/hub"
	"poring/internal/types"
)

type HubHandler struct {
	hubs  *hub.Service
	bikes *bike.Store

	fullBattery     int
	defaultRadiusKm float64
}

func NewHubHandler(hubs *hub.Service, bikes *bike.Store, fullBattery int, defaultRadiusKm float64) *HubHandler {
	return &HubHandler{hubs: hubs, bikes: bikes, fullBattery: fullBattery, defaultRadiusKm: defaultRadiusKm}
}

func (h *HubHandler) Board(c *gin.Context) {
	overviews, err := h.hubs.Overview(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(overviews))
	for _, o := range overviews {
		out = append(out, gin.H{
			"hub_id":     o.ID,
			"hub_name":   o.Name,
			"latitude":   o.Lat,
			"longitude":  o.Lon,
			"parked_sum": o.ParkedSum,
			"total_sum":  o.TotalSum,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"hubs": out})
}

func (h *HubHandler) Availability(c *gin.Context) {
	name := c.Query("hub_name")
	if name == "" {
		writeError(c, http.StatusBadRequest, "missing hub_name")
		return
	}
	avail, err := h.hubs.Availability(c.Request.Context(), name)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, avail)
}

func (h *HubHandler) Nearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, "invalid lat/lon")
		return
	}
	radius := h.defaultRadiusKm
	if v := c.Query("r_km"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			writeError(c, http.StatusBadRequest, "invalid r_km")
			return
		}
		radius = r
	}
	limit := 5
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	nearby, err := h.hubs.Nearby(c.Request.Context(), types.Point{Lat: lat, Lon: lon}, radius, limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(nearby))
	for _, n := range nearby {
		item := gin.H{
			"hub_id":          n.ID,
			"hub_name":        n.Name,
			"distance_km":     n.DistanceKm,
			"available_bikes": n.AvailableBikes,
		}
		if n.WalkingETA != "" {
			item["walking_eta"] = n.WalkingETA
		}
		out = append(out, item)
	}
	writeJSON(c, http.StatusOK, gin.H{"hubs": out})
}

// Recommend ranks the hub's rentable bikes and returns them best first.
func (h *HubHandler) Recommend(c *gin.Context) {
	name := c.Query("hub_name")
	if name == "" {
		writeError(c, http.StatusBadRequest, "missing hub_name")
		return
	}
	hb, err := h.hubs.Get(c.Request.Context(), name)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	candidates, err := h.bikes.AvailableByHub(c.Request.Context(), hb.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	bike.SortForRental(candidates, h.fullBattery)

	out := make([]gin.H, 0, len(candidates))
	for _, b := range candidates {
		out = append(out, gin.H{
			"bike_id":       b.ID,
			"serial_number": b.SerialNumber,
			"battery_level": b.BatteryLevel,
			"where_parked":  b.WhereParked,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"hub_name": hb.Name, "bikes": out})
}
