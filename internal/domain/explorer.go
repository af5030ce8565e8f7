package domain

import "time"

// BlockExplorerHeight is a row of the block_explorer_heights table:
// one observation of a third-party block explorer's reported chain
// height, used by the explorers comparison view.
type BlockExplorerHeight struct {
	Explorer       string
	Chain          string
	BlockHeight    uint64
	ResponseTimeMs float64
	Error          string
	CheckedAt      time.Time
}
