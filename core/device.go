package core

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Device is a registered biometric terminal. The vendor-assigned serial
// number doubles as the terminal's authentication credential: a serial
// that is missing or belongs to an inactive device is treated as
// unauthenticated. Devices are created and edited from the admin
// dashboard; this service only ever updates LastSeenAt.
type Device struct {
	DeviceId   uint   `gorm:"primaryKey;autoIncrement"`
	TenantId   uint   `gorm:"index;not null"`
	SerialNo   string `gorm:"size:64;uniqueIndex;not null"`
	Name       string `gorm:"size:100"`
	Timezone   string `gorm:"size:64"` // IANA zone name, e.g. "America/Guayaquil"
	Active     bool   `gorm:"default:true"`
	LastSeenAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Device) TableName() string {
	return "devices"
}

// FindDeviceBySerial looks a device up by exact serial-number match.
// Inactive devices are reported as not found, same as an unknown
// serial. Not found is (nil, nil).
func (s *Store) FindDeviceBySerial(ctx context.Context, serial string) (*Device, error) {
	if serial == "" {
		return nil, nil
	}

	var dev Device
	err := s.Dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("serial_no = ? AND active = ?", serial, true).First(&dev).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

// TouchDeviceLastSeen records that a device delivered a successful
// punch batch. Called only after the batch insert went through.
func (s *Store) TouchDeviceLastSeen(ctx context.Context, deviceID uint, at time.Time) error {
	return s.Dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Model(&Device{}).
			Where("device_id = ?", deviceID).
			Update("last_seen_at", at).Error
	})
}
