package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RawInboundRecord is the immutable evidence of one device request:
// whatever arrived, exactly as it arrived, attributed as far as
// attribution was possible. Tenant and device are null when the serial
// could not be resolved. Rows are written once and never updated; the
// dashboard's evidence views read them as-is.
type RawInboundRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	TenantId  *uint  `gorm:"index"`
	DeviceId  *uint  `gorm:"index"`
	SerialNo  string `gorm:"size:64;index"` // as claimed by the request
	Path      string `gorm:"size:255"`
	Query     datatypes.JSON
	Headers   datatypes.JSON
	Body      string `gorm:"type:mediumtext"`
	ClientIP  string `gorm:"size:45"`
	CreatedAt time.Time
}

func (RawInboundRecord) TableName() string {
	return "raw_inbound_records"
}

// InsertRawInbound appends one evidence row, assigning the id when the
// caller left it empty.
func (s *Store) InsertRawInbound(ctx context.Context, rec *RawInboundRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return s.Dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Create(rec).Error
	})
}

// FindRawInbound fetches one evidence row by id. Not found is (nil, nil).
func (s *Store) FindRawInbound(ctx context.Context, id string) (*RawInboundRecord, error) {
	var rec RawInboundRecord
	err := s.Dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("id = ?", id).First(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
