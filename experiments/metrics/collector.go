package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Duration time.Duration
	Nodes    int // Minimax positions visited
	MemoHits int
	Prunes   int
	Depth    int // Deepest completed minimax iteration
	Episodes int // MCTS iterations
	TreeSize int // MCTS nodes in the arena
}

type MoveMetric struct {
	Step     int
	Player   int // 0 moves first
	Agent    string
	Column   int
	Fallback bool // Column was substituted by the driver
	Elapsed  time.Duration
	SearchMetric
}

type GameMetric struct {
	Agents     [2]string
	Outcome    int // 0 first player won, 1 second player won, 2 draw
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalMoves int
}

type Collector interface {
	Start()
	AddNodes(n int)
	AddMemoHits(n int)
	AddPrunes(n int)
	AddEpisode()
	SetDepth(depth int)
	SetTreeSize(size int)
	Complete() SearchMetric
}

type collector struct {
	startTime time.Time
	nodes     atomic.Int64
	memoHits  atomic.Int64
	prunes    atomic.Int64
	episodes  atomic.Int64
	depth     atomic.Int32
	treeSize  atomic.Int32
}

func NewCollector() Collector {
	return &collector{}
}

// Start resets the counters for a new search.
func (m *collector) Start() {
	m.startTime = time.Now()
	m.nodes.Store(0)
	m.memoHits.Store(0)
	m.prunes.Store(0)
	m.episodes.Store(0)
	m.depth.Store(0)
	m.treeSize.Store(0)
}

func (m *collector) AddNodes(n int) {
	m.nodes.Add(int64(n))
}

func (m *collector) AddMemoHits(n int) {
	m.memoHits.Add(int64(n))
}

func (m *collector) AddPrunes(n int) {
	m.prunes.Add(int64(n))
}

func (m *collector) AddEpisode() {
	m.episodes.Add(1)
}

func (m *collector) SetDepth(depth int) {
	m.depth.Store(int32(depth))
}

func (m *collector) SetTreeSize(size int) {
	m.treeSize.Store(int32(size))
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Duration: time.Since(m.startTime),
		Nodes:    int(m.nodes.Load()),
		MemoHits: int(m.memoHits.Load()),
		Prunes:   int(m.prunes.Load()),
		Depth:    int(m.depth.Load()),
		Episodes: int(m.episodes.Load()),
		TreeSize: int(m.treeSize.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start()                 {}
func (m *dummyCollector) AddNodes(n int)         {}
func (m *dummyCollector) AddMemoHits(n int)      {}
func (m *dummyCollector) AddPrunes(n int)        {}
func (m *dummyCollector) AddEpisode()            {}
func (m *dummyCollector) SetDepth(depth int)     {}
func (m *dummyCollector) SetTreeSize(size int)   {}
func (m *dummyCollector) Complete() SearchMetric { return SearchMetric{} }
