package heap_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/mlrt/heap"
	"github.com/vkngwrapper/mlrt/memutils"
	"github.com/vkngwrapper/mlrt/value"
)

func TestBuildStatsString(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})
	allocTuple(t, h, value.Unit, value.Unit)

	require.JSONEq(t, `{
		"Total": {
			"BlockCount": 1,
			"BlockBytes": 51,
			"BlockSizeMin": 51,
			"BlockSizeMax": 51,
			"Collections": 0,
			"ReclaimedBlocks": 0,
			"ReclaimedBytes": 0
		},
		"Collector": {
			"Threshold": 680,
			"MinThreshold": 0,
			"HeapSizeLimit": 0,
			"RootStackCapacity": 1024,
			"RootSets": 0
		},
		"Tags": {
			"Tuple": {"BlockCount": 1, "BlockBytes": 51}
		}
	}`, h.BuildStatsString(false))
}

func TestBuildStatsStringDetailed(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})
	block := allocTuple(t, h, value.Unit)
	_, err := h.AllocateBlock(1, heap.TagString)
	require.NoError(t, err)

	stats := h.BuildStatsString(true)
	require.True(t, strings.Contains(stats, `"Blocks":[`))
	require.True(t, strings.Contains(stats, `"Handle":"`+block.Handle().String()+`"`))
	require.True(t, strings.Contains(stats, `"String":{"BlockCount":1,"BlockBytes":43}`))
}

func TestStatisticsCountCollections(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	allocTuple(t, h, value.Unit)
	allocTuple(t, h, value.Unit, value.Unit)
	h.Collect()

	frame := h.Roots().Enter()
	defer frame.Leave()
	_, err := frame.Push(allocTuple(t, h, value.Unit, value.Unit, value.Unit).Handle())
	require.NoError(t, err)

	var stats memutils.DetailedStatistics
	stats.Clear()
	h.AddDetailedStatistics(&stats)

	require.Equal(t, 1, stats.BlockCount)
	require.Equal(t, heap.BlockBytes(3), stats.BlockBytes)
	// The empty heap left by the first collection has a threshold of zero, so the
	// next allocation collects again
	require.Equal(t, 2, stats.CollectionCount)
	require.Equal(t, 2, stats.ReclaimedBlocks)
	require.Equal(t, heap.BlockBytes(1)+heap.BlockBytes(2), stats.ReclaimedBytes)

	var simple memutils.Statistics
	h.AddStatistics(&simple)
	require.Equal(t, 1, simple.BlockCount)
}

func TestBuildStatsStringConcurrentWithMutator(t *testing.T) {
	h, _ := readyHeap(t, heap.CreateOptions{})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}

			var stats memutils.DetailedStatistics
			stats.Clear()
			h.AddDetailedStatistics(&stats)
			_ = h.BuildStatsString(true)
		}
	}()

	for i := 0; i < 200; i++ {
		frame := h.Roots().Enter()
		_, err := frame.Push(allocTuple(t, h, value.FromInt(int64(i))).Handle())
		require.NoError(t, err)
		allocTuple(t, h, value.Unit, value.Unit)
		frame.Leave()
	}

	close(done)
	wg.Wait()
	require.NoError(t, h.Validate())
}
