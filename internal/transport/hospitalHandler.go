package transport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloodlink/backend/internal/service"
)

type HospitalHandler struct {
	hospitalService service.HospitalService
}

func NewHospitalHandler(hospitalService service.HospitalService) *HospitalHandler {
	return &HospitalHandler{hospitalService: hospitalService}
}

func (h *HospitalHandler) List(c *gin.Context) {
	hospitals, err := h.hospitalService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hospitals": hospitals})
}

func (h *HospitalHandler) Near(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude"})
		return
	}

	radiusKm := 50.0
	if v := c.Query("radius_km"); v != "" {
		radiusKm, err = strconv.ParseFloat(v, 64)
		if err != nil || radiusKm <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius_km"})
			return
		}
	}

	hospitals, err := h.hospitalService.Near(c.Request.Context(), lat, lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hospitals": hospitals})
}

func (h *HospitalHandler) MatchDonors(c *gin.Context) {
	hospitalID, err := strconv.ParseInt(c.Query("hospital_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hospital_id"})
		return
	}

	bloodGroup := c.Query("blood_group")
	if bloodGroup == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blood_group is required"})
		return
	}

	matches, err := h.hospitalService.MatchDonors(c.Request.Context(), hospitalID, bloodGroup)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
