package datamanager

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-tracker/internal/week"
)

const sampleList = "Boodschappen\t\t\n" +
	"3/3\t\t\n" +
	"Melk\t4\t1,05\n" +
	"Brood\t\t1\t2.50\n" +
	"Kaas\t1\t\n" +
	"10/3 week 11\n" +
	"Eieren\t2 doos\t€ 3,10\r\n" +
	"Appels\tx\tabc\n" +
	"2025-W13\n" +
	"Rijst\t1,5\t1.234,50\n" +
	"31/2\n"

func TestParseTSV(t *testing.T) {
	rows, err := ParseTSV(strings.NewReader(sampleList), 2025)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	want := []struct {
		line  int
		week  week.ID
		name  string
		qty   float64
		price string
	}{
		{3, "2025-W10", "Melk", 4, "1.05"},
		{4, "2025-W10", "Brood", 1, "2.5"},
		{7, "2025-W11", "Eieren", 2, "3.1"},
		{8, "2025-W11", "Appels", 1, "0"},
		{10, "2025-W13", "Rijst", 1.5, "1234.5"},
	}
	for i, w := range want {
		got := rows[i]
		assert.Equal(t, w.line, got.Line, w.name)
		assert.Equal(t, w.week, got.WeekID, w.name)
		assert.Equal(t, w.name, got.Name)
		assert.Equal(t, w.qty, got.Qty, w.name)
		assert.Equal(t, w.price, got.Price.String(), w.name)
	}
}

func TestParseTSVWithoutHeader(t *testing.T) {
	rows, err := ParseTSV(strings.NewReader("Melk\t1\t1,00\nBrood\t1\t2,00\n"), 2025)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWeekHeader(t *testing.T) {
	tests := []struct {
		cell string
		year int
		want week.ID
		ok   bool
	}{
		{"3/3", 2025, "2025-W10", true},
		{"29/2", 2024, "2024-W09", true},
		{"29/2", 2025, "", false},
		{"31/2", 2025, "", false},
		{"0/3", 2025, "", false},
		{"5/13", 2025, "", false},
		{"30/12", 2024, "2025-W01", true},
		{"2025-W01", 1999, "2025-W01", true},
		{"Melk", 2025, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, ok := weekHeader(tt.cell, tt.year)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocaleFloat(t *testing.T) {
	tests := map[string]float64{
		"1,50":     1.5,
		"1.234,50": 1234.5,
		"€ 2.10":   2.1,
		"2,10 €":   2.1,
		"7":        7,
	}
	for in, want := range tests {
		got, err := parseLocaleFloat(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	_, err := parseLocaleFloat("abc")
	assert.Error(t, err)
}

func TestParseQty(t *testing.T) {
	assert.Equal(t, 3.0, parseQty("3 pak"))
	assert.Equal(t, 1.5, parseQty("1,5 kg"))
	assert.Equal(t, 1.0, parseQty("0"))
	assert.Equal(t, 1.0, parseQty(""))
	assert.Equal(t, 1.0, parseQty("some"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeDelivery, m)

	m, err = ParseMode("ORDER")
	require.NoError(t, err)
	assert.Equal(t, ModeOrder, m)

	_, err = ParseMode("consumption")
	assert.Error(t, err)
}
