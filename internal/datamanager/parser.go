// Package datamanager moves whole data sets in and out of the tracker: the
// JSON backup (export, merge restore, clear), shopping lists pasted from a
// spreadsheet or uploaded as XLSX, and the XLSX export.
package datamanager

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"grocery-tracker/internal/models"
	"grocery-tracker/internal/week"
)

type ImportMode string

const (
	ModeOrder    ImportMode = "order"
	ModeDelivery ImportMode = "delivery"
)

func ParseMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDelivery:
		return ModeDelivery, nil
	case ModeOrder:
		return ModeOrder, nil
	default:
		return "", fmt.Errorf("unknown import mode %q, expected %q or %q", s, ModeOrder, ModeDelivery)
	}
}

// ImportRow is one product line of a shopping list.
type ImportRow struct {
	Line   int             `json:"line"`
	WeekID week.ID         `json:"weekId"`
	Name   string          `json:"name"`
	Qty    float64         `json:"qty"`
	Price  decimal.Decimal `json:"price"`
}

// day/month, optionally followed by anything ("3/3", "10/03 wk 11")
var dayMonthRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})`)

// ParseTSV reads a shopping list copied from a spreadsheet. The list is a
// sequence of week blocks: a header row starting with a day/month date (or a
// week id such as 2025-W10) followed by rows of name, quantity and unit
// price separated by tabs. Rows before the first header, blank rows and rows
// with fewer than three filled cells are ignored. Dates are taken in year.
func ParseTSV(r io.Reader, year int) ([]ImportRow, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var rows [][]string
	for scanner.Scan() {
		rows = append(rows, strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}
	return parseRows(rows, year), nil
}

// parseRows applies the list grammar of ParseTSV to already split cells, as
// they come from a spreadsheet sheet.
func parseRows(rows [][]string, year int) []ImportRow {
	out := []ImportRow{}
	var current week.ID

	for i, row := range rows {
		cells := filledCells(row)
		if len(cells) == 0 {
			continue
		}
		if id, ok := weekHeader(cells[0], year); ok {
			current = id
			continue
		}
		if current == "" || len(cells) < 3 {
			continue
		}
		out = append(out, ImportRow{
			Line:   i + 1,
			WeekID: current,
			Name:   cells[0],
			Qty:    parseQty(cells[1]),
			Price:  parsePrice(cells[2]),
		})
	}
	return out
}

func filledCells(row []string) []string {
	cells := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

func weekHeader(cell string, year int) (week.ID, bool) {
	if id, err := week.Parse(cell); err == nil {
		return id, true
	}
	m := dayMonthRe.FindStringSubmatch(cell)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 || day < 1 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.Local)
	if t.Day() != day {
		// 31/2 and friends
		return "", false
	}
	return week.FromDate(t), true
}

// parseLocaleFloat accepts "1,50", "1.234,50", "€ 2.10" and plain numbers.
func parseLocaleFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		// comma is the decimal separator, dots group thousands
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

// parseQty reads the leading number of a quantity cell ("2", "1,5 kg",
// "3 pak"). Anything unreadable or not positive counts as one.
func parseQty(s string) float64 {
	var num strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			break
		}
		num.WriteRune(r)
	}
	qty, err := parseLocaleFloat(num.String())
	if err != nil || qty <= 0 {
		return 1
	}
	return qty
}

// parsePrice returns the unit price in cents precision; unreadable prices
// are zero.
func parsePrice(s string) decimal.Decimal {
	v, err := parseLocaleFloat(s)
	if err != nil || v < 0 {
		return decimal.Zero
	}
	return models.Money(v)
}
