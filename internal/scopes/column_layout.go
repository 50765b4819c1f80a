package scopes

import (
	"fmt"

	"github.com/roach88/goscope/internal/protocol"
)

// ColumnLayout is used to represent different representations of a widget.
// Each layout holds the widget ids shown in each of its columns.
type ColumnLayout struct {
	numColumns int
	columns    [][]string
}

// NewColumnLayout creates a layout with numColumns columns.
func NewColumnLayout(numColumns int) *ColumnLayout {
	return &ColumnLayout{numColumns: numColumns}
}

// AddColumn adds a new column holding widgetIDs. An empty column is allowed.
func (l *ColumnLayout) AddColumn(widgetIDs ...string) error {
	if len(l.columns) >= l.numColumns {
		return fmt.Errorf("column layout already has %d columns", l.numColumns)
	}
	l.columns = append(l.columns, append([]string{}, widgetIDs...))
	return nil
}

// NumberOfColumns returns the number of columns the layout was created for.
func (l *ColumnLayout) NumberOfColumns() int { return l.numColumns }

// Size returns the number of columns added so far.
func (l *ColumnLayout) Size() int { return len(l.columns) }

// Column returns the widget ids of column i.
func (l *ColumnLayout) Column(i int) ([]string, error) {
	if i < 0 || i >= len(l.columns) {
		return nil, fmt.Errorf("column index %d out of range [0, %d)", i, len(l.columns))
	}
	return append([]string{}, l.columns[i]...), nil
}

func (l *ColumnLayout) wire() protocol.Layout {
	cols := make([][]string, len(l.columns))
	for i, c := range l.columns {
		cols[i] = append([]string{}, c...)
	}
	return protocol.Layout{Columns: cols}
}
