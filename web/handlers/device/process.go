package device

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"rollcall.net.au/rollcall/core"
	"rollcall.net.au/rollcall/iclock"
	"rollcall.net.au/rollcall/utils"
)

type normalizedPunch struct {
	pin string
	at  time.Time
}

// ProcessAttlog runs one ATTLOG body through parse, timezone
// normalization, employee resolution and persistence. device is nil
// when the serial was unresolved and soft-accept is in effect; the
// batch then lands under the configured default tenant and timezone.
//
// Nothing here can fail the request: storage errors reduce how much of
// the batch is recorded, never the protocol response. Also reused by
// the S3 backfill lambda and the manual upload endpoint.
func (ep *Endpoint) ProcessAttlog(ctx context.Context, device *core.Device, serial string, table string, body string) {
	tenantID := ep.cfg.DefaultTenantId
	tzName := ep.cfg.DefaultTimezone
	var deviceID *uint
	if device != nil {
		tenantID = device.TenantId
		deviceID = &device.DeviceId
		if device.Timezone != "" {
			tzName = device.Timezone
		}
	}

	lines := iclock.ParseAttlogBody(body)
	if len(lines) == 0 {
		return
	}

	loc := iclock.LoadZone(tzName, ep.cfg.DefaultTimezone)

	var normalized []normalizedPunch
	for _, line := range lines {
		at, err := iclock.LocalToUTC(line.Timestamp, loc)
		if err != nil {
			// Treat like a parse failure: skip the line, keep the batch.
			log.Printf("device: skipping punch for pin %q: %v", line.Pin, err)
			continue
		}
		normalized = append(normalized, normalizedPunch{pin: line.Pin, at: at})
	}
	if len(normalized) == 0 {
		return
	}

	pins := utils.Uniq(utils.Map(normalized, func(n normalizedPunch) string { return n.pin }))
	resolved, err := ep.store.ResolveEmployeeCodes(ctx, tenantID, pins)
	if err != nil {
		// Punches are still worth keeping; they just land unmatched.
		log.Printf("device: employee resolution failed for tenant %d: %v", tenantID, err)
		resolved = nil
	}

	metadata, _ := json.Marshal(map[string]string{
		"serialNo": serial,
		"table":    table,
		"timezone": loc.String(),
		"batchId":  uuid.NewString(),
	})

	punches := utils.Map(normalized, func(n normalizedPunch) core.AttendancePunch {
		var employeeID *uint
		if id, ok := resolved[n.pin]; ok {
			employeeID = &id
		}
		return core.AttendancePunch{
			TenantId:   tenantID,
			EmployeeId: employeeID,
			DeviceId:   deviceID,
			Pin:        n.pin,
			PunchedAt:  n.at,
			Source:     core.SourceBiometric,
			Metadata:   metadata,
		}
	})

	if err := ep.store.InsertPunches(ctx, punches); err != nil {
		log.Printf("device: punch insert failed for tenant %d: %v", tenantID, err)
		return
	}

	if device != nil {
		if err := ep.store.TouchDeviceLastSeen(ctx, device.DeviceId, time.Now().UTC()); err != nil {
			log.Printf("device: last-seen update failed for device %d: %v", device.DeviceId, err)
		}
	}
}
