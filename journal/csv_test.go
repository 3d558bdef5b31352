package journal

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTradesCSV(t *testing.T) {
	t.Parallel()

	open := closedTrade()
	open.ExitPrice, open.ExitTime, open.PnLPips, open.PnLAmount = nil, nil, nil, nil
	open.Status, open.BehaviorFlags = TradeOpen, nil

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, []Trade{closedTrade(), open}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, tradeHeader, records[0])

	row := records[1]
	assert.Equal(t, "EUR/USD", row[2])
	assert.Equal(t, "long", row[3])
	assert.Equal(t, "0.2", row[4])
	assert.Equal(t, "1.105", row[6])
	assert.Equal(t, "2025-03-04T11:30:00Z", row[10])
	assert.Equal(t, "100", row[14])
	assert.Equal(t, "early_exit", row[17])

	row = records[2]
	assert.Empty(t, row[6])
	assert.Empty(t, row[10])
	assert.Empty(t, row[14])
	assert.Equal(t, "open", row[16])
}

func TestWriteTradesCSV_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
