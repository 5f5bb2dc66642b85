package core

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const SourceBiometric = "biometric"

// AttendancePunch is one normalized attendance event. PunchedAt is
// always UTC; the device's local rendering never leaves the ingestion
// pipeline. EmployeeId is null when the PIN matched nobody, but the
// raw PIN is always kept so back office can reconcile later. Rows are
// append-only; there is no de-duplication key, so a retransmitted
// batch inserts again (see DESIGN.md).
type AttendancePunch struct {
	PunchId    uint  `gorm:"primaryKey;autoIncrement"`
	TenantId   uint  `gorm:"index;not null"`
	EmployeeId *uint `gorm:"index"`
	DeviceId   *uint
	Pin        string    `gorm:"size:32"`
	PunchedAt  time.Time `gorm:"index;not null"`
	Source     string    `gorm:"size:20"`
	Metadata   datatypes.JSON
	CreatedAt  time.Time
}

func (AttendancePunch) TableName() string {
	return "attendance_punches"
}

// InsertPunches appends one request's punches as a single batch.
func (s *Store) InsertPunches(ctx context.Context, punches []AttendancePunch) error {
	if len(punches) == 0 {
		return nil
	}
	return s.Dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Create(&punches).Error
	})
}

type PunchSearchParams struct {
	TenantId      uint
	From          time.Time
	To            time.Time
	EmployeeIds   []uint
	DeviceIds     []uint
	Pin           string
	UnmatchedOnly bool
}

// SearchPunches is the read side used by the ops API and the export
// tooling. Results are newest first.
func (s *Store) SearchPunches(ctx context.Context, params PunchSearchParams, limit int, offset int) ([]AttendancePunch, int64, error) {
	var punches []AttendancePunch
	var total int64

	err := s.Dm.Exec(ctx, func(db *gorm.DB) error {
		q := db.Model(&AttendancePunch{}).
			Where("tenant_id = ?", params.TenantId).
			Where("punched_at >= ? AND punched_at < ?", params.From, params.To)

		if len(params.EmployeeIds) > 0 {
			q = q.Where("employee_id IN ?", params.EmployeeIds)
		}
		if len(params.DeviceIds) > 0 {
			q = q.Where("device_id IN ?", params.DeviceIds)
		}
		if params.Pin != "" {
			q = q.Where("pin = ?", params.Pin)
		}
		if params.UnmatchedOnly {
			q = q.Where("employee_id IS NULL")
		}

		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return q.Order("punched_at DESC").Limit(limit).Offset(offset).Find(&punches).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return punches, total, nil
}
