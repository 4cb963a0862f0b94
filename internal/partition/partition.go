// Package partition splits an ingested record set into bounded execution
// blocks so that downstream API batches stay a manageable size.
package partition

import (
	"fmt"

	"github.com/nextier/outreach-cli/internal/model"
)

// DefaultBlockSize is used when the caller passes a non-positive size.
const DefaultBlockSize = 2000

// MaxBlockSize bounds a single block regardless of configuration.
const MaxBlockSize = 2000

// Split partitions records into ceil(N/B) blocks of at most B records each.
// Block numbers start at 1 and block IDs are "{runID}_{blockNumber}". The
// input order is preserved and no record appears in more than one block.
// Empty input yields zero blocks.
func Split(runID string, records []model.RawRecord, blockSize int) []model.ExecutionBlock {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if blockSize > MaxBlockSize {
		blockSize = MaxBlockSize
	}

	if len(records) == 0 {
		return nil
	}

	blocks := make([]model.ExecutionBlock, 0, (len(records)+blockSize-1)/blockSize)
	for start := 0; start < len(records); start += blockSize {
		end := start + blockSize
		if end > len(records) {
			end = len(records)
		}
		n := len(blocks) + 1
		blocks = append(blocks, model.ExecutionBlock{
			ID:          fmt.Sprintf("%s_%d", runID, n),
			BlockNumber: n,
			Records:     records[start:end:end],
			Status:      model.BlockPending,
		})
	}
	return blocks
}
