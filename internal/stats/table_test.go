package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextTableAlignsColumns(t *testing.T) {
	tbl := newTextTable(
		column{title: "Glyph"},
		column{title: "Accuracy", align: alignRight},
		column{title: "Correct", align: alignRight},
	)
	tbl.add("K", "97.50%", "12")
	tbl.add("?", "8.00%", "3")

	assert.Equal(t, []string{
		"Glyph Accuracy Correct",
		"K       97.50%      12",
		"?        8.00%       3",
	}, tbl.lines())
}

func TestTextTableShortRow(t *testing.T) {
	tbl := newTextTable(column{title: "A"}, column{title: "B", align: alignRight})
	tbl.add("x")

	assert.Equal(t, []string{"A B", "x  "}, tbl.lines())
}
