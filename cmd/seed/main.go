// seed creates the ingestion tables and a demo tenant layout for local
// development: one device and a couple of employees its PINs match.
package main

import (
	"log"
	"os"

	"rollcall.net.au/rollcall/core"
	"rollcall.net.au/rollcall/utils"
)

func main() {
	dsn := os.Getenv("DSN") // e.g. "root:development@tcp(localhost:3306)/rollcall?parseTime=true"
	db := core.ConnectDB(dsn)

	models := []interface{}{
		&core.Device{},
		&core.Employee{},
		&core.RawInboundRecord{},
		&core.AttendancePunch{},
	}

	for _, m := range models {
		if !db.Migrator().HasTable(m) {
			if err := db.Migrator().CreateTable(m); err != nil {
				log.Fatalf("failed to create table for %T: %v", m, err)
			}
		}
	}

	device := core.Device{
		TenantId: 1,
		SerialNo: "ZK123456",
		Name:     "Front door terminal",
		Timezone: "Australia/Brisbane",
		Active:   true,
	}
	if err := db.Where("serial_no = ?", device.SerialNo).FirstOrCreate(&device).Error; err != nil {
		log.Fatalf("failed to seed device: %v", err)
	}

	employees := []core.Employee{
		{TenantId: 1, Code: "1001", FirstName: "Alice", Surname: "Nguyen", Status: "active"},
		{TenantId: 1, Code: "1002", BiometricCode: utils.Ptr("77"), FirstName: "Bob", Surname: "Singh", Status: "active"},
	}
	for i := range employees {
		if err := db.Where("tenant_id = ? AND code = ?", employees[i].TenantId, employees[i].Code).
			FirstOrCreate(&employees[i]).Error; err != nil {
			log.Fatalf("failed to seed employee: %v", err)
		}
	}

	log.Printf("seeded device %s and %d employees", device.SerialNo, len(employees))
}
