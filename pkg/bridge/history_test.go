package bridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tron-bridge/pkg/types"
)

func testStatus(hash string) types.TransferStatus {
	return types.TransferStatus{
		Status:                 types.StatusPending,
		TxHash:                 hash,
		Amount:                 "100",
		SourceTokenSymbol:      "USDT",
		DestinationTokenSymbol: "USDT",
		DestinationAddress:     "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		AmountToReceive:        "99.5",
		EstimatedTime:          "4 minutes",
		Route:                  "USDT (Ethereum) → USDT (Tron)",
		CreatedAt:              time.Now().Truncate(time.Second),
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	history, err := NewHistory(path)
	require.NoError(t, err)
	assert.Zero(t, history.Count())

	require.NoError(t, history.Append(testStatus("0xaaa")))
	require.NoError(t, history.Append(testStatus("0xbbb")))

	// A fresh instance reads the same records back
	reopened, err := NewHistory(path)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Count())

	records := reopened.List()
	assert.Equal(t, "0xbbb", records[0].TxHash, "newest first")
	assert.Equal(t, "0xaaa", records[1].TxHash)
	assert.Equal(t, types.StatusPending, records[0].Status)
}

func TestHistoryMissingFile(t *testing.T) {
	history, err := NewHistory(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Empty(t, history.List())
}

func TestHistoryCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewHistory(path)
	assert.Error(t, err)
}

func TestHistoryListReturnsCopy(t *testing.T) {
	history, err := NewHistory(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	require.NoError(t, history.Append(testStatus("0xaaa")))

	records := history.List()
	records[0].TxHash = "mutated"

	assert.Equal(t, "0xaaa", history.List()[0].TxHash)
}
