package transport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloodlink/backend/internal/service"
)

type DonationHandler struct {
	donationService service.DonationService
}

func NewDonationHandler(donationService service.DonationService) *DonationHandler {
	return &DonationHandler{donationService: donationService}
}

func (h *DonationHandler) RecordDonation(c *gin.Context) {
	var input service.RecordDonationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	donation, err := h.donationService.RecordDonation(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"donation": donation})
}

func (h *DonationHandler) ListByDonor(c *gin.Context) {
	donorID, err := strconv.ParseInt(c.Param("donorId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donor id"})
		return
	}

	donations, err := h.donationService.ListByDonor(c.Request.Context(), donorID, listLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"donations": donations})
}

func (h *DonationHandler) ListByHospital(c *gin.Context) {
	hospitalID, err := strconv.ParseInt(c.Param("hospitalId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hospital id"})
		return
	}

	donations, err := h.donationService.ListByHospital(c.Request.Context(), hospitalID, listLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"donations": donations})
}

func (h *DonationHandler) NearestHospital(c *gin.Context) {
	donorID, err := strconv.ParseInt(c.Param("donorId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donor id"})
		return
	}

	hospital, err := h.donationService.NearestHospital(c.Request.Context(), donorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hospital": hospital})
}

func listLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}
