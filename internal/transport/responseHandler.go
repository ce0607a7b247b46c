package transport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloodlink/backend/internal/service"
)

type ResponseHandler struct {
	responseService service.ResponseService
}

func NewResponseHandler(responseService service.ResponseService) *ResponseHandler {
	return &ResponseHandler{responseService: responseService}
}

func (h *ResponseHandler) SubmitResponse(c *gin.Context) {
	var input service.SubmitResponseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.responseService.SubmitResponse(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ResponseHandler) ListByRequest(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("requestId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	responses, err := h.responseService.ListByRequest(c.Request.Context(), requestID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

func (h *ResponseHandler) ListByDonor(c *gin.Context) {
	donorID, err := strconv.ParseInt(c.Param("donorId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donor id"})
		return
	}

	responses, err := h.responseService.ListByDonor(c.Request.Context(), donorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"responses": responses})
}
