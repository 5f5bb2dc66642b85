// Package device exposes the HTTP surfaces ZKTeco-style terminals push
// to and orchestrates the ingestion pipeline behind them: device
// authentication, raw evidence capture, ATTLOG parsing, timezone
// normalization, employee resolution and punch persistence.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"rollcall.net.au/rollcall/core"
	"rollcall.net.au/rollcall/iclock"
	"rollcall.net.au/rollcall/infrastructure/devops"
)

// Store is the slice of core.Store the protocol endpoints need.
type Store interface {
	FindDeviceBySerial(ctx context.Context, serial string) (*core.Device, error)
	InsertRawInbound(ctx context.Context, rec *core.RawInboundRecord) error
	ResolveEmployeeCodes(ctx context.Context, tenantID uint, pins []string) (map[string]uint, error)
	InsertPunches(ctx context.Context, punches []core.AttendancePunch) error
	TouchDeviceLastSeen(ctx context.Context, deviceID uint, at time.Time) error
}

// Notifier posts ops alerts. Satisfied by communication.Slack.
type Notifier interface {
	Error(message string) error
}

// ArchiveFunc mirrors an evidence record to long-term storage (S3).
// Best effort; runs outside the request goroutine.
type ArchiveFunc func(ctx context.Context, rec *core.RawInboundRecord)

type Endpoint struct {
	store   Store
	cfg     devops.Config
	notify  Notifier
	archive ArchiveFunc
}

func NewEndpoint(store Store, cfg devops.Config, notify Notifier, archive ArchiveFunc) *Endpoint {
	return &Endpoint{store: store, cfg: cfg, notify: notify, archive: archive}
}

func Register(r gin.IRouter, ep *Endpoint) {
	// The paths are fixed by the terminals' firmware, not by us.
	r.GET("/iclock/cdata", ep.Handshake)
	r.POST("/iclock/cdata", ep.DataUpload)
	r.GET("/iclock/getrequest", ep.CommandPoll)
}

// Handshake answers the GET a terminal issues on boot/check-in. The
// terminal only needs the ack.
func (ep *Endpoint) Handshake(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// CommandPoll answers the outbound-command poll. No command queue is
// implemented, so the answer is always an empty ack.
func (ep *Endpoint) CommandPoll(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// DataUpload receives one pushed table payload. Every request is
// evidenced before any policy decision; only the unknown-device
// rejection ever changes the response away from the protocol's OK.
func (ep *Endpoint) DataUpload(c *gin.Context) {
	ctx := c.Request.Context()
	serial := strings.TrimSpace(QueryCI(c, "SN"))
	table := strings.TrimSpace(QueryCI(c, "table"))

	body := ep.readBody(c)
	device := ep.resolveDevice(ctx, serial)

	rec := ep.buildRawRecord(c, serial, device, body)
	if err := ep.store.InsertRawInbound(ctx, rec); err != nil {
		log.Printf("device: audit insert failed for serial %q: %v", serial, err)
	}
	if ep.archive != nil {
		go ep.archive(context.WithoutCancel(ctx), rec)
	}

	if device == nil && ep.cfg.RejectUnknownSerials {
		if ep.notify != nil {
			msg := fmt.Sprintf("rejected unknown device serial %q from %s", serial, c.ClientIP())
			go func() {
				if err := ep.notify.Error(msg); err != nil {
					log.Printf("device: slack notify failed: %v", err)
				}
			}()
		}
		c.String(http.StatusForbidden, "UNKNOWN_DEVICE")
		return
	}

	if strings.EqualFold(table, iclock.TableAttlog) {
		ep.ProcessAttlog(ctx, device, serial, table, body)
	}

	c.String(http.StatusOK, "OK")
}

// resolveDevice is fail-closed: a store error is logged and degrades
// to not-found, never to a request failure. Terminals retry anyway.
func (ep *Endpoint) resolveDevice(ctx context.Context, serial string) *core.Device {
	device, err := ep.store.FindDeviceBySerial(ctx, serial)
	if err != nil {
		log.Printf("device: lookup failed for serial %q: %v", serial, err)
		return nil
	}
	return device
}

func (ep *Endpoint) readBody(c *gin.Context) string {
	maxKiB := ep.cfg.MaxBodyKiB
	if maxKiB <= 0 {
		maxKiB = 256
	}
	b, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(maxKiB)*1024))
	if err != nil {
		log.Printf("device: body read failed: %v", err)
		return ""
	}
	return string(b)
}

func (ep *Endpoint) buildRawRecord(c *gin.Context, serial string, device *core.Device, body string) *core.RawInboundRecord {
	query, _ := json.Marshal(c.Request.URL.Query())
	headers, _ := json.Marshal(c.Request.Header)

	rec := &core.RawInboundRecord{
		SerialNo: serial,
		Path:     c.Request.URL.Path,
		Query:    query,
		Headers:  headers,
		Body:     body,
		ClientIP: c.ClientIP(),
	}
	if device != nil {
		rec.TenantId = &device.TenantId
		rec.DeviceId = &device.DeviceId
	}
	return rec
}

// EvidenceKey is the S3 object key a raw record is archived under.
func EvidenceKey(rec *core.RawInboundRecord) string {
	tenant := "unknown"
	if rec.TenantId != nil {
		tenant = fmt.Sprint(*rec.TenantId)
	}
	serial := rec.SerialNo
	if serial == "" {
		serial = "unknown"
	}
	return fmt.Sprintf("raw/%s/%s/%s.txt", tenant, serial, rec.ID)
}

// QueryCI returns the first query value whose name matches key
// case-insensitively. Firmware versions disagree on SN vs sn vs Sn.
func QueryCI(c *gin.Context, key string) string {
	for name, values := range c.Request.URL.Query() {
		if strings.EqualFold(name, key) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
