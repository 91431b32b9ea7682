package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteforge/backend/internal/model"
)

func TestBuildQuote(t *testing.T) {
	p := sampleProduct()
	sel := model.Selection{
		"extra_pages":   model.IntValue(5),
		"custom_design": model.BoolValue(true),
		"ssl":           model.BoolValue(true),
	}

	q := BuildQuote("business", p, sel, sampleOrder())

	assert.Equal(t, "business", q.Product)
	assert.Equal(t, int64(900000), q.Base)
	assert.Equal(t, int64(850000), q.FinalBase)
	assert.Equal(t, int64(35000), q.OptionsTotal)
	assert.Equal(t, int64(885000), q.Total)

	require.Len(t, q.Lines, 3)
	assert.Equal(t, []string{"ssl", "custom_design", "extra_pages"},
		[]string{q.Lines[0].Option, q.Lines[1].Option, q.Lines[2].Option})
	assert.Equal(t, int64(0), q.Lines[0].Amount)
	assert.Equal(t, "Custom design", q.Lines[1].Name)
	assert.Equal(t, int64(20000), q.Lines[1].Amount)

	pages := q.Lines[2]
	assert.Equal(t, int64(3), pages.Units)
	assert.Equal(t, int64(5000), pages.Unit)
	assert.Equal(t, int64(15000), pages.Amount)

	var sum int64
	for _, l := range q.Lines {
		sum += l.Amount
	}
	assert.Equal(t, q.OptionsTotal, sum)
}

func TestBuildQuote_KeysOutsideOrder(t *testing.T) {
	p := sampleProduct()
	p.Options.Set("support", intBinding(0, 1000))

	q := BuildQuote("business", p, model.Selection{
		"support": model.IntValue(2),
		"ghost":   model.BoolValue(true),
	}, sampleOrder())

	require.Len(t, q.Lines, 1)
	assert.Equal(t, "support", q.Lines[0].Name)
	assert.Equal(t, int64(2000), q.Total-q.FinalBase)
}
