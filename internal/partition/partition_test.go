package partition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextier/outreach-cli/internal/model"
)

func makeRecords(n int) []model.RawRecord {
	records := make([]model.RawRecord, n)
	for i := range records {
		records[i] = model.RawRecord{
			FirstName: fmt.Sprintf("First%d", i),
			LastName:  fmt.Sprintf("Last%d", i),
		}
	}
	return records
}

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		n          int
		blockSize  int
		wantBlocks int
		wantSizes  []int
	}{
		{"empty input yields zero blocks", 0, 1000, 0, nil},
		{"exact single block", 1000, 1000, 1, []int{1000}},
		{"one over", 1001, 1000, 2, []int{1000, 1}},
		{"2500 at 2000", 2500, 2000, 2, []int{2000, 500}},
		{"2500 at 1000", 2500, 1000, 3, []int{1000, 1000, 500}},
		{"smaller than block", 7, 2000, 1, []int{7}},
		{"non-positive size falls back to default", 4500, 0, 3, []int{2000, 2000, 500}},
		{"oversized block size is clamped", 4500, 5000, 3, []int{2000, 2000, 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blocks := Split("run1", makeRecords(tt.n), tt.blockSize)
			require.Len(t, blocks, tt.wantBlocks)

			total := 0
			for i, b := range blocks {
				assert.Equal(t, i+1, b.BlockNumber)
				assert.Equal(t, fmt.Sprintf("run1_%d", i+1), b.ID)
				assert.Equal(t, model.BlockPending, b.Status)
				assert.Equal(t, tt.wantSizes[i], len(b.Records))
				total += len(b.Records)
			}
			assert.Equal(t, tt.n, total, "block sizes must sum to input length")
		})
	}
}

func TestSplitPreservesOrderWithoutDuplication(t *testing.T) {
	t.Parallel()
	records := makeRecords(2500)
	blocks := Split("run1", records, 1000)

	seen := make(map[string]bool, len(records))
	i := 0
	for _, b := range blocks {
		for _, r := range b.Records {
			assert.Equal(t, records[i].FirstName, r.FirstName, "input order preserved")
			require.False(t, seen[r.FirstName], "record %s appears twice", r.FirstName)
			seen[r.FirstName] = true
			i++
		}
	}
	assert.Equal(t, len(records), len(seen))
}
