package memutils

import "math"

// Statistics is a summary of the live blocks in a heap
type Statistics struct {
	BlockCount int
	BlockBytes int
}

func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.BlockBytes = 0
}

func (s *Statistics) AddBlock(size int) {
	s.BlockCount++
	s.BlockBytes += size
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BlockCount += other.BlockCount
	s.BlockBytes += other.BlockBytes
}

// DetailedStatistics extends Statistics with block size extremes and collector activity
type DetailedStatistics struct {
	Statistics
	BlockSizeMin int
	BlockSizeMax int

	CollectionCount int
	ReclaimedBlocks int
	ReclaimedBytes  int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.BlockSizeMin = math.MaxInt
	s.BlockSizeMax = 0
	s.CollectionCount = 0
	s.ReclaimedBlocks = 0
	s.ReclaimedBytes = 0
}

func (s *DetailedStatistics) AddBlock(size int) {
	s.Statistics.AddBlock(size)

	if size < s.BlockSizeMin {
		s.BlockSizeMin = size
	}

	if size > s.BlockSizeMax {
		s.BlockSizeMax = size
	}
}

func (s *DetailedStatistics) AddCollection(reclaimedBlocks, reclaimedBytes int) {
	s.CollectionCount++
	s.ReclaimedBlocks += reclaimedBlocks
	s.ReclaimedBytes += reclaimedBytes
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.CollectionCount += other.CollectionCount
	s.ReclaimedBlocks += other.ReclaimedBlocks
	s.ReclaimedBytes += other.ReclaimedBytes

	if other.BlockSizeMin < s.BlockSizeMin {
		s.BlockSizeMin = other.BlockSizeMin
	}

	if other.BlockSizeMax > s.BlockSizeMax {
		s.BlockSizeMax = other.BlockSizeMax
	}
}
