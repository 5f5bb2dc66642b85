package core

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Employee is the tenant-scoped person record punches resolve against.
// Terminals only know PINs, so an employee is matchable through two
// codes: the general employee code and an optional code configured on
// the biometric terminals specifically. Read-only from this service.
type Employee struct {
	EmployeeId    uint    `gorm:"primaryKey;autoIncrement"`
	TenantId      uint    `gorm:"index;not null"`
	Code          string  `gorm:"size:32;index"`
	BiometricCode *string `gorm:"size:32;index"`
	FirstName     string
	Surname       string
	Email         *string
	Status        string `gorm:"size:20;default:active"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Employee) TableName() string {
	return "employees"
}

// ResolveEmployeeCodes maps the distinct PINs of one request to
// employee ids with a single tenant-scoped query. PINs that match no
// employee are simply absent from the result.
func (s *Store) ResolveEmployeeCodes(ctx context.Context, tenantID uint, pins []string) (map[string]uint, error) {
	if len(pins) == 0 {
		return map[string]uint{}, nil
	}

	var employees []Employee
	err := s.Dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("tenant_id = ?", tenantID).
			Where("code IN ? OR biometric_code IN ?", pins, pins).
			Find(&employees).Error
	})
	if err != nil {
		return nil, err
	}

	return mapPinsToEmployees(pins, employees), nil
}

// mapPinsToEmployees applies the match priority: a PIN hitting an
// employee's biometric code wins over the same PIN hitting another
// employee's general code, since the biometric code was configured for
// exactly this kind of device.
func mapPinsToEmployees(pins []string, employees []Employee) map[string]uint {
	wanted := make(map[string]bool, len(pins))
	for _, pin := range pins {
		wanted[pin] = true
	}

	resolved := make(map[string]uint)
	for _, emp := range employees {
		if wanted[emp.Code] {
			resolved[emp.Code] = emp.EmployeeId
		}
	}
	for _, emp := range employees {
		if emp.BiometricCode != nil && wanted[*emp.BiometricCode] {
			resolved[*emp.BiometricCode] = emp.EmployeeId
		}
	}
	return resolved
}
