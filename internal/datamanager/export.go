package datamanager

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"grocery-tracker/internal/database"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/projection"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

func optInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optString(v *string) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func stamp(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func exportSheets(recs projection.Records) []sheet {
	weekly := sheet{name: "Weekly", header: []interface{}{"Week", "Orders", "Deliveries", "Consumption", "Total"}}
	for _, b := range projection.New(recs, projection.Options{}).WeeklyHistory() {
		weekly.rows = append(weekly.rows, []interface{}{
			b.WeekID,
			b.Totals.Orders.InexactFloat64(),
			b.Totals.Deliveries.InexactFloat64(),
			b.Totals.Consumption.InexactFloat64(),
			b.Totals.GrandTotal.InexactFloat64(),
		})
	}

	products := sheet{name: "Products", header: []interface{}{"ID", "Name", "Created"}}
	for _, p := range recs.Products {
		products.rows = append(products.rows, []interface{}{p.ID, p.Name, stamp(p.CreatedAt)})
	}

	orders := sheet{name: "Orders", header: []interface{}{"ID", "Week", "Product ID", "Name", "Price", "Qty", "Total", "Est. weeks", "Created"}}
	for _, o := range recs.Orders {
		orders.rows = append(orders.rows, []interface{}{
			o.ID, o.WeekID, o.ProductID, o.Name,
			o.Price.InexactFloat64(), o.Qty, o.Total().InexactFloat64(),
			o.EstDuration, stamp(o.CreatedAt),
		})
	}

	deliveries := sheet{name: "Deliveries", header: []interface{}{"ID", "Week", "Order ID", "Product ID", "Name", "Price", "Qty", "Total", "Est. weeks", "Variant", "Created"}}
	for _, d := range recs.Deliveries {
		deliveries.rows = append(deliveries.rows, []interface{}{
			d.ID, d.WeekID, optString(d.OrderID), d.ProductID, d.Name,
			d.Price.InexactFloat64(), d.Qty, d.Total().InexactFloat64(),
			d.EstDuration, d.Variant, stamp(d.CreatedAt),
		})
	}

	consumption := sheet{name: "Consumption", header: []interface{}{"ID", "Start week", "Source type", "Source ID", "Name", "Qty", "Cost", "Est. weeks", "Eff. weeks", "Completed", "Created"}}
	for _, c := range recs.Consumption {
		consumption.rows = append(consumption.rows, []interface{}{
			c.ID, c.StartDate, string(c.SourceType), c.SourceID, c.Name,
			c.Qty, c.Cost.InexactFloat64(), c.EstDuration, optInt(c.EffDuration),
			c.Completed, stamp(c.CreatedAt),
		})
	}

	return []sheet{weekly, products, orders, deliveries, consumption}
}

// BuildWorkbook lays the records out one sheet per kind, with a weekly
// totals sheet first.
func BuildWorkbook(recs projection.Records) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, s := range exportSheets(recs) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			f.Close()
			return nil, err
		}

		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetRowStyle(s.name, 1, 1, bold); err != nil {
			f.Close()
			return nil, err
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				f.Close()
				return nil, fmt.Errorf("sheet %s row %d: %w", s.name, r+2, err)
			}
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// GET /api/export/xlsx
func ExportXLSXHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		recs, err := database.LoadRecords(c.UserContext())
		if err != nil {
			logger.L().Error("load records", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not load records")
		}

		f, err := BuildWorkbook(recs)
		if err != nil {
			logger.L().Error("build workbook", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not build workbook")
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			logger.L().Error("write workbook", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not build workbook")
		}

		c.Attachment(fmt.Sprintf("grocery-export-%s.xlsx", time.Now().Format("2006-01-02")))
		c.Set(fiber.HeaderContentType, xlsxContentType)
		return c.Send(buf.Bytes())
	}
}
