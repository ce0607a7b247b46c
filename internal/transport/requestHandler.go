package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloodlink/backend/internal/entity"
	"github.com/bloodlink/backend/internal/service"
)

type RequestHandler struct {
	dispatchService service.DispatchService
}

func NewRequestHandler(dispatchService service.DispatchService) *RequestHandler {
	return &RequestHandler{dispatchService: dispatchService}
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.dispatchService.CreateRequest(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	details, err := h.dispatchService.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *RequestHandler) ListRequests(c *gin.Context) {
	filter := &service.RequestFilterInput{
		Status: c.Query("status"),
	}

	if v := c.Query("hospital_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hospital_id"})
			return
		}
		filter.HospitalID = id
	}
	if v := c.Query("patient_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient_id"})
			return
		}
		filter.PatientID = id
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	filter.Limit = limit

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	filter.Offset = offset

	requests, err := h.dispatchService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var input service.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.dispatchService.UpdateRequestStatus(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request})
}

// Approve confirms an inventory reservation. A 409 means stock ran out since
// dispatch; the body then carries how many donors were contacted instead.
func (h *RequestHandler) Approve(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	// hospital_id is optional; without it the approval runs against the
	// request's assigned hospital.
	var input struct {
		HospitalID *int64 `json:"hospital_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.dispatchService.Approve(c.Request.Context(), id, input.HospitalID)
	if errors.Is(err, entity.ErrInsufficientStock) {
		c.JSON(http.StatusConflict, gin.H{
			"error":          "insufficient inventory at approval time",
			"donorsNotified": result.DonorsNotified,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "request": result.Request})
}

func (h *RequestHandler) SuggestHospitals(c *gin.Context) {
	input := &service.SuggestHospitalsInput{
		BloodGroup: c.Query("blood_group"),
		Component:  c.Query("component"),
		City:       c.Query("city"),
	}

	if v := c.Query("units_required"); v != "" {
		units, err := strconv.Atoi(v)
		if err != nil || units < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid units_required"})
			return
		}
		input.UnitsRequired = units
	}
	if v := c.Query("latitude"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude"})
			return
		}
		input.Latitude = &lat
	}
	if v := c.Query("longitude"); v != "" {
		lng, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude"})
			return
		}
		input.Longitude = &lng
	}

	suggestions, err := h.dispatchService.SuggestHospitals(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
