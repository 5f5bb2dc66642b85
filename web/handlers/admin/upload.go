package admin

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"rollcall.net.au/rollcall/iclock"
	"rollcall.net.au/rollcall/web/common"
)

// UploadAttlog lets back office replay an ATTLOG file a device never
// managed to deliver (exported from the terminal's USB dump). The file
// runs through the same pipeline as live pushes, attributed to the
// device named by the serial query parameter.
func (ep *Endpoint) UploadAttlog(c *gin.Context) {
	serial := c.Query("serial")
	if serial == "" {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("serial query parameter is required"))
		return
	}

	dev, err := ep.store.FindDeviceBySerial(c.Request.Context(), serial)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	if dev == nil {
		c.JSON(http.StatusNotFound, common.NewErrorResponse(fmt.Sprintf("no active device with serial %q", serial)))
		return
	}

	// Parse multipart form (max 8 MB)
	if err := c.Request.ParseMultipartForm(8 << 20); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("file form field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}

	lines := iclock.ParseAttlogBody(string(body))
	ep.ingest.ProcessAttlog(c.Request.Context(), dev, serial, iclock.TableAttlog, string(body))

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"lines": len(lines),
	}))
}
