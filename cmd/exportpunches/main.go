// exportpunches writes a tenant's punches for a date range to an xlsx
// workbook for payroll hand-off.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
	"rollcall.net.au/rollcall/core"
)

func main() {
	tenant := flag.Uint("tenant", 0, "tenant id")
	from := flag.String("from", "", "start date (YYYY-MM-DD, inclusive)")
	to := flag.String("to", "", "end date (YYYY-MM-DD, inclusive)")
	out := flag.String("out", "punches.xlsx", "output file")
	flag.Parse()

	if *tenant == 0 || *from == "" || *to == "" {
		flag.Usage()
		os.Exit(2)
	}

	fromDate, err := time.Parse("2006-01-02", *from)
	if err != nil {
		log.Fatalf("invalid -from: %v", err)
	}
	toDate, err := time.Parse("2006-01-02", *to)
	if err != nil {
		log.Fatalf("invalid -to: %v", err)
	}

	dm, err := core.New(os.Getenv("DSN"), 2)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()
	store := core.NewStore(dm)

	punches, total, err := store.SearchPunches(context.Background(), core.PunchSearchParams{
		TenantId: *tenant,
		From:     fromDate,
		To:       toDate.AddDate(0, 0, 1),
	}, 100000, 0)
	if err != nil {
		log.Fatal(err)
	}

	f := excelize.NewFile()
	sheet := "Punches"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Punch ID", "Employee ID", "PIN", "Punched At (UTC)", "Device ID", "Source"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, p := range punches {
		values := []interface{}{
			p.PunchId,
			formatPtr(p.EmployeeId),
			p.Pin,
			p.PunchedAt.Format("2006-01-02 15:04:05"),
			formatPtr(p.DeviceId),
			p.Source,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.SaveAs(*out); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d of %d punches to %s", len(punches), total, *out)
}

func formatPtr(v *uint) interface{} {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}
