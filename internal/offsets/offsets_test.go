package offsets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultWidthsAndPositions(t *testing.T) {
	s := New()
	require.Equal(t, DefaultColumnWidth, s.ColumnWidth(1))
	require.Equal(t, 0.0, s.ColumnPosition(1))
	require.Equal(t, DefaultColumnWidth, s.ColumnPosition(2))
}

func TestSetColumnWidthShiftsLaterPositions(t *testing.T) {
	s := New()
	prev := s.SetColumnWidth(1, 50)
	require.Equal(t, DefaultColumnWidth, prev)
	require.Equal(t, 50.0, s.ColumnWidth(1))
	require.Equal(t, 50.0, s.ColumnPosition(2))
	require.Equal(t, 50.0+DefaultColumnWidth, s.ColumnPosition(3))
}

func TestColumnFromXRoundTrips(t *testing.T) {
	s := New()
	s.SetColumnWidth(1, 50)
	col, start := s.ColumnFromX(50)
	require.Equal(t, int64(2), col)
	require.Equal(t, 50.0, start)
}

func TestDeleteColumnShiftsOverridesLeft(t *testing.T) {
	s := New()
	s.SetColumnWidth(3, 40)
	s.DeleteColumn(1)
	require.Equal(t, 40.0, s.ColumnWidth(2))
	require.Equal(t, DefaultColumnWidth, s.ColumnWidth(3))
}

func TestInsertColumnShiftsOverridesRight(t *testing.T) {
	s := New()
	s.SetColumnWidth(2, 40)
	s.InsertColumn(1)
	require.Equal(t, DefaultColumnWidth, s.ColumnWidth(2))
	require.Equal(t, 40.0, s.ColumnWidth(3))
}

func TestRowHeightInvariant(t *testing.T) {
	s := New()
	s.SetRowHeight(1, 30)
	s.SetRowHeight(2, 10)
	require.Equal(t, s.RowPosition(1)+s.RowHeight(1), s.RowPosition(2))
	require.Equal(t, s.RowPosition(2)+s.RowHeight(2), s.RowPosition(3))
}
