package main

import (
	"strings"
	"testing"

	"github.com/alexshd/safeband"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResample(t *testing.T) {
	short := []float64{1, 2, 3}
	assert.Equal(t, short, resample(short, 10))

	got := resample([]float64{1, 3, 5, 7, 9, 11}, 3)
	assert.Equal(t, []float64{2, 6, 10}, got)
}

func TestChartRows(t *testing.T) {
	rows := chartRows([]float64{0, 1, 2, 3}, PlotOptions{Width: 10, Height: 4}, nil)

	require.Len(t, rows, 4)
	assert.Contains(t, rows[0], "  3.000")
	assert.Contains(t, rows[3], "  0.000")
	// Tallest column reaches the top row, every column reaches the bottom.
	assert.Equal(t, 1, strings.Count(rows[0], barCell))
	assert.Equal(t, 4, strings.Count(rows[3], barCell))
}

func TestChartRows_Band(t *testing.T) {
	band := safeband.Band{Low: 0.5, High: 1.5}
	rows := chartRows([]float64{1.0, 1.0}, PlotOptions{Width: 10, Height: 5}, &band)

	require.Len(t, rows, 5)
	assert.Contains(t, rows[0], "  1.500")
	assert.Contains(t, rows[4], "  0.500")
	assert.Contains(t, rows[0], bandCell)
}

func TestChartRows_Empty(t *testing.T) {
	rows := chartRows(nil, PlotOptions{Width: 10, Height: 5}, nil)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "no data")
}

func TestChartRows_MinimumHeight(t *testing.T) {
	rows := chartRows([]float64{1, 2}, PlotOptions{Width: 0, Height: 0}, nil)
	assert.Len(t, rows, 2)
}
