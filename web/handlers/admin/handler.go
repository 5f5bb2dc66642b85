// Package admin is the JWT-protected read side used by back office
// tooling: punch search, evidence lookup, and manual ATTLOG backfill.
// The tenant dashboard proper lives elsewhere and reads the same
// tables directly.
package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"rollcall.net.au/rollcall/core"
	"rollcall.net.au/rollcall/web/common"
	"rollcall.net.au/rollcall/web/handlers/device"
)

type Endpoint struct {
	store  *core.Store
	ingest *device.Endpoint
}

func Register(r *gin.RouterGroup, store *core.Store, ingest *device.Endpoint) {
	ep := &Endpoint{store: store, ingest: ingest}
	r.POST("/punches/search", ep.SearchPunches)
	r.GET("/evidence/:id", ep.GetEvidence)
	r.POST("/attlog/upload", ep.UploadAttlog)
}

type SearchParams struct {
	TenantId      uint             `json:"tenantId" binding:"required"`
	StartDate     *common.DateOnly `json:"startDate" binding:"required"`
	EndDate       *common.DateOnly `json:"endDate" binding:"required"`
	EmployeeIds   []uint           `json:"employeeIds"`
	DeviceIds     []uint           `json:"deviceIds"`
	Pin           string           `json:"pin"`
	UnmatchedOnly bool             `json:"unmatchedOnly"`
}

func (ep *Endpoint) SearchPunches(c *gin.Context) {
	var params SearchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	limit := 1000
	offset := 0
	if val, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = val
	}
	if val, err := strconv.Atoi(c.Query("offset")); err == nil {
		offset = val
	}

	punches, total, err := ep.store.SearchPunches(c.Request.Context(), core.PunchSearchParams{
		TenantId:      params.TenantId,
		From:          params.StartDate.Time,
		To:            params.EndDate.Time.AddDate(0, 0, 1), // end date inclusive
		EmployeeIds:   params.EmployeeIds,
		DeviceIds:     params.DeviceIds,
		Pin:           params.Pin,
		UnmatchedOnly: params.UnmatchedOnly,
	}, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, common.NewSearchResponse(punches, total))
}

func (ep *Endpoint) GetEvidence(c *gin.Context) {
	rec, err := ep.store.FindRawInbound(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, common.NewErrorResponse("evidence record not found"))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(rec))
}
