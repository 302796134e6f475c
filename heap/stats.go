package heap

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/mlrt/memutils"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// AddStatistics sums the heap's live block statistics into stats
func (h *Heap) AddStatistics(stats *memutils.Statistics) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for block := h.root; block != nil; block = block.next {
		stats.AddBlock(BlockBytes(block.size))
	}
}

// AddDetailedStatistics sums the heap's live block statistics and collector activity into stats
func (h *Heap) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	h.addDetailedStatistics(stats)
}

func (h *Heap) addDetailedStatistics(stats *memutils.DetailedStatistics) {
	for block := h.root; block != nil; block = block.next {
		stats.AddBlock(BlockBytes(block.size))
	}

	stats.CollectionCount += h.collectionStats.CollectionCount
	stats.ReclaimedBlocks += h.collectionStats.ReclaimedBlocks
	stats.ReclaimedBytes += h.collectionStats.ReclaimedBytes
}

// BuildStatsString renders the heap's statistics as a json document. If detailedMap is true,
// every live block is listed as well. Unless the heap is externally synchronized it may be
// called from any goroutine. The root stack belongs to the mutator, so only its capacity
// is reported.
func (h *Heap) BuildStatsString(detailedMap bool) string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()

	var stats memutils.DetailedStatistics
	stats.Clear()
	h.addDetailedStatistics(&stats)

	totalObj := obj.Name("Total").Object()
	printStatistics(&totalObj, &stats)
	totalObj.End()

	gcObj := obj.Name("Collector").Object()
	gcObj.Name("Threshold").Int(h.collectThreshold)
	gcObj.Name("MinThreshold").Int(h.minCollectThreshold)
	gcObj.Name("HeapSizeLimit").Int(h.heapSizeLimit)
	gcObj.Name("RootStackCapacity").Int(len(h.roots.stack))
	gcObj.Name("RootSets").Int(len(h.rootSets))
	gcObj.End()

	h.printTagStatistics(&obj)

	if detailedMap {
		h.printDetailedMap(&obj)
	}

	obj.End()
	return string(writer.Bytes())
}

func printStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("BlockBytes").Int(stats.BlockBytes)

	if stats.BlockCount > 0 {
		json.Name("BlockSizeMin").Int(stats.BlockSizeMin)
		json.Name("BlockSizeMax").Int(stats.BlockSizeMax)
	}

	json.Name("Collections").Int(stats.CollectionCount)
	json.Name("ReclaimedBlocks").Int(stats.ReclaimedBlocks)
	json.Name("ReclaimedBytes").Int(stats.ReclaimedBytes)
}

func (h *Heap) printTagStatistics(json *jwriter.ObjectState) {
	byTag := make(map[Tag]*memutils.Statistics)
	for block := h.root; block != nil; block = block.next {
		stats, ok := byTag[block.tag]
		if !ok {
			stats = &memutils.Statistics{}
			byTag[block.tag] = stats
		}
		stats.AddBlock(BlockBytes(block.size))
	}

	tags := maps.Keys(byTag)
	slices.Sort(tags)

	tagsObj := json.Name("Tags").Object()
	defer tagsObj.End()

	for _, tag := range tags {
		tagObj := tagsObj.Name(tag.String()).Object()
		tagObj.Name("BlockCount").Int(byTag[tag].BlockCount)
		tagObj.Name("BlockBytes").Int(byTag[tag].BlockBytes)
		tagObj.End()
	}
}

func (h *Heap) printDetailedMap(json *jwriter.ObjectState) {
	arrayState := json.Name("Blocks").Array()
	defer arrayState.End()

	for block := h.root; block != nil; block = block.next {
		obj := arrayState.Object()
		obj.Name("Handle").String(block.Handle().String())
		obj.Name("Tag").String(block.tag.String())
		obj.Name("Size").Int(block.size)
		obj.Name("Bytes").Int(BlockBytes(block.size))
		obj.End()
	}
}
