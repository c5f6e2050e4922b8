package experiments

import (
	"context"
	"fmt"
	"strconv"

	"connect4/engine"
	"connect4/experiments/metrics"

	"github.com/rs/zerolog/log"
)

const pairwiseFile = "pairwiseDepthTrials.csv"

// DepthMatrix holds one game per pair of minimax depths. Cells are +1 when
// X won, -1 when O won and 0 for a draw.
type DepthMatrix struct {
	Depths []int
	Cells  [][]int // [x][o]
	XSums  []int   // Per X depth
	OSums  []int   // Per O depth, from O's point of view
}

// DepthTrials plays minimax against minimax for every pair of depths in
// [MinDepth, MaxDepth].
func (r *Runner) DepthTrials(ctx context.Context) (DepthMatrix, error) {
	var depths []int
	for d := r.config.MinDepth; d <= r.config.MaxDepth; d++ {
		depths = append(depths, d)
	}

	var matchups []matchup
	configs := make([]metrics.AgentConfig, 0, len(depths))
	for _, x := range depths {
		configs = append(configs, metrics.AgentConfig{ID: x, Name: "Minimax", Depth: x, Budget: r.config.Budget})
		for _, o := range depths {
			matchups = append(matchups, matchup{
				first:  player{id: x, build: r.minimax(x)},
				second: player{id: o, build: r.minimax(o)},
			})
		}
	}

	log.Info().Msgf("starting %s experiment...", ModeDepth)
	played, err := r.playGames(ctx, matchups, r.config.Budget)
	if err != nil {
		return DepthMatrix{}, err
	}
	log.Info().Msgf("completed %s experiment", ModeDepth)

	m := DepthMatrix{
		Depths: depths,
		Cells:  make([][]int, len(depths)),
		XSums:  make([]int, len(depths)),
		OSums:  make([]int, len(depths)),
	}
	for xi := range depths {
		m.Cells[xi] = make([]int, len(depths))
		for oi := range depths {
			cell := xScore(played[xi*len(depths)+oi].record.Outcome)
			m.Cells[xi][oi] = cell
			m.XSums[xi] += cell
			m.OSums[oi] -= cell
		}
	}

	w, err := metrics.NewWriter(r.config.Out, ModeDepth)
	if err != nil {
		return m, err
	}
	if err := w.WriteTable(pairwiseFile, nil, m.rows()); err != nil {
		return m, err
	}
	log.Info().Str("file", pairwiseFile).Msg("stored pairwise depth trials")
	if err := r.writeRecords(w, configs, played); err != nil {
		return m, fmt.Errorf("failed to store %s results: %w", ModeDepth, err)
	}
	return m, nil
}

func xScore(outcome int) int {
	switch outcome {
	case engine.FirstWins:
		return 1
	case engine.SecondWins:
		return -1
	}
	return 0
}

// rows lays the matrix out with a header row of O depths, one row per X
// depth ending in its win sum, then the O win sums and the total per depth.
func (m DepthMatrix) rows() [][]string {
	header := []string{"O depth of:"}
	for _, d := range m.Depths {
		header = append(header, strconv.Itoa(d))
	}
	header = append(header, "X win sum")
	rows := [][]string{header}

	for xi, d := range m.Depths {
		row := []string{"X depth of " + strconv.Itoa(d)}
		for _, cell := range m.Cells[xi] {
			row = append(row, strconv.Itoa(cell))
		}
		rows = append(rows, append(row, strconv.Itoa(m.XSums[xi])))
	}

	oRow := []string{"O win sum"}
	total := []string{"Total win sum:"}
	for i := range m.Depths {
		oRow = append(oRow, strconv.Itoa(m.OSums[i]))
		total = append(total, strconv.Itoa(m.XSums[i]+m.OSums[i]))
	}
	return append(rows, oRow, total)
}
