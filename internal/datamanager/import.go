package datamanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"grocery-tracker/internal/audit"
	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/inventory"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/models"
)

type ImportResult struct {
	Mode        ImportMode           `json:"mode"`
	GroupID     string               `json:"groupId"` // undo the whole import through the audit log
	Imported    int                  `json:"imported"`
	Orders      []models.Order       `json:"orders,omitempty"`
	Deliveries  []models.Delivery    `json:"deliveries,omitempty"`
	Consumption []models.Consumption `json:"consumption,omitempty"`
}

// Import stores rows in one transaction. In order mode every row becomes an
// order. In delivery mode every row becomes an ad-hoc delivery whose
// consumption is closed after one week, as imported lists describe past
// shopping. Products are matched by name and created when missing.
func Import(ctx context.Context, rows []ImportRow, mode ImportMode, now time.Time) (ImportResult, error) {
	res := ImportResult{Mode: mode, GroupID: models.NewID()}

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			switch mode {
			case ModeOrder:
				o, err := inventory.CreateOrder(tx, inventory.CreateOrderRequest{
					Name:   row.Name,
					Price:  row.Price,
					Qty:    row.Qty,
					WeekID: row.WeekID.String(),
				}, res.GroupID, now)
				if err != nil {
					return fmt.Errorf("line %d: %w", row.Line, err)
				}
				res.Orders = append(res.Orders, o)

			default:
				price, qty := row.Price, row.Qty
				d, c, err := inventory.CreateDelivery(tx, inventory.CreateDeliveryRequest{
					Name:   row.Name,
					Price:  &price,
					Qty:    &qty,
					WeekID: row.WeekID.String(),
				}, res.GroupID, now)
				if err != nil {
					return fmt.Errorf("line %d: %w", row.Line, err)
				}
				c, err = closeImported(tx, c, res.GroupID)
				if err != nil {
					return fmt.Errorf("line %d: %w", row.Line, err)
				}
				res.Deliveries = append(res.Deliveries, d)
				res.Consumption = append(res.Consumption, c)
			}
			res.Imported++
		}
		return nil
	})
	return res, err
}

func closeImported(tx *gorm.DB, c models.Consumption, groupID string) (models.Consumption, error) {
	before := c
	eff := 1
	c.Completed = true
	c.EffDuration = &eff
	if err := tx.Save(&c).Error; err != nil {
		return c, err
	}
	return c, audit.WriteLog(audit.LogOptions{
		Tx:          tx,
		EntityType:  models.EntityConsumption,
		EntityID:    c.ID,
		Action:      models.AuditActionUpdate,
		Description: "Imported consumption closed: " + c.Name,
		Before:      before,
		After:       c,
		GroupID:     groupID,
	})
}

// importParams reads ?mode= and ?year= shared by both import endpoints.
func importParams(c *fiber.Ctx) (ImportMode, int, error) {
	mode, err := ParseMode(c.Query("mode"))
	if err != nil {
		return "", 0, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	year := c.QueryInt("year", time.Now().Year())
	if year < 1900 || year > 9999 {
		return "", 0, fiber.NewError(fiber.StatusBadRequest, "year is out of range")
	}
	return mode, year, nil
}

func runImport(c *fiber.Ctx, rows []ImportRow, mode ImportMode, source string) error {
	if len(rows) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no product rows found; rows must follow a date header such as 3/3")
	}

	ctx := c.UserContext()
	res, err := Import(ctx, rows, mode, time.Now())
	if err != nil {
		return toHTTPError(err)
	}
	cache.Invalidate(ctx)

	logger.L().Info("list imported",
		zap.String("source", source),
		zap.String("mode", string(mode)),
		zap.Int("rows", res.Imported),
		zap.String("group_id", res.GroupID))
	return c.Status(fiber.StatusCreated).JSON(res)
}

// POST /api/import/tsv?mode=order|delivery&year=2025
// The list is the request body, or an uploaded "file" field.
func ImportTSVHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode, year, err := importParams(c)
		if err != nil {
			return err
		}

		var r io.Reader = bytes.NewReader(c.Body())
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "could not open uploaded file")
			}
			defer f.Close()
			r = f
		}

		rows, err := ParseTSV(r, year)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return runImport(c, rows, mode, "tsv")
	}
}

// POST /api/import/xlsx?mode=order|delivery&year=2025 (multipart "file")
// The first sheet uses the same layout as the pasted list.
func ImportXLSXHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode, year, err := importParams(c)
		if err != nil {
			return err
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "upload the workbook as the \"file\" field")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files can be imported")
		}
		file, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not open uploaded file")
		}
		defer file.Close()

		wb, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read workbook: "+err.Error())
		}
		defer wb.Close()

		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "workbook has no sheets")
		}
		cells, err := wb.GetRows(sheets[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read sheet: "+err.Error())
		}
		return runImport(c, parseRows(cells, year), mode, "xlsx")
	}
}

// toHTTPError keeps the row context of import errors in the response.
func toHTTPError(err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fiber.NewError(fe.Code, err.Error())
	case errors.Is(err, models.ErrInvalidRecord):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		logger.L().Error("import failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not import list")
	}
}
