package services

import (
	"math"

	"market-dss/models"
	"market-dss/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func strp(s string) *string { return &s }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func tableOf(columns []string, rows ...[]string) *models.Table {
	t := models.NewTable(columns)
	t.Rows = rows
	return t
}
