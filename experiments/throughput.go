package experiments

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"connect4/experiments/metrics"
	"connect4/game"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	benchmarkID = 0
	firstMoves  = 5 // Moves in the opening average
)

// TimeTrial holds how long minimax of one depth took to decide each of its
// moves as O against the benchmark agent.
type TimeTrial struct {
	Depth    int
	Times    [][]time.Duration // [trial][move]
	Averages []float64         // Per move in milliseconds, over the trials that reached it
	Average  float64           // Mean of Averages
	Opening  float64           // Sum of the first five Averages over five
}

// TimeTrials plays Trials games of the benchmark agent against minimax for
// every depth in [MinDepth, MaxDepth] and writes one CSV per depth.
func (r *Runner) TimeTrials(ctx context.Context) ([]TimeTrial, error) {
	w, err := metrics.NewWriter(r.config.Out, ModeTime)
	if err != nil {
		return nil, err
	}

	var trials []TimeTrial
	for depth := r.config.MinDepth; depth <= r.config.MaxDepth; depth++ {
		log.Info().Msgf(">> Depth %d", depth)

		benchmark := player{id: benchmarkID, build: r.agent("benchmark")}
		minimax := player{id: depth, build: r.minimax(depth)}
		matchups := lo.Times(r.config.Trials, func(int) matchup {
			return matchup{first: benchmark, second: minimax}
		})

		played, err := r.playGames(ctx, matchups, r.config.TimeLimit)
		if err != nil {
			return trials, err
		}

		trial := timeTrial(depth, played)
		trials = append(trials, trial)
		log.Info().Int("depth", depth).Msgf("average of the first %d moves: %.3f ms", firstMoves, trial.Opening)

		name := fmt.Sprintf("%d-%s.csv", depth, r.config.Tag)
		if err := w.WriteTable(name, nil, trial.rows()); err != nil {
			return trials, err
		}
	}
	return trials, nil
}

func timeTrial(depth int, played []playedGame) TimeTrial {
	trial := TimeTrial{Depth: depth}
	for _, p := range played {
		moves := lo.Filter(p.moves, func(m metrics.MoveMetric, _ int) bool {
			return m.Player == game.O
		})
		trial.Times = append(trial.Times, lo.Map(moves, func(m metrics.MoveMetric, _ int) time.Duration {
			return m.Elapsed
		}))
	}

	for move := 0; ; move++ {
		var samples []float64
		for _, times := range trial.Times {
			if move < len(times) {
				samples = append(samples, milliseconds(times[move]))
			}
		}
		if len(samples) == 0 {
			break
		}
		trial.Averages = append(trial.Averages, mean(samples))
	}

	trial.Average = mean(trial.Averages)
	trial.Opening = lo.Sum(trial.Averages[:min(firstMoves, len(trial.Averages))]) / firstMoves
	return trial
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func formatMillis(ms float64) string {
	return strconv.FormatFloat(ms, 'f', -1, 64)
}

// rows lays the trial out with a header of trial numbers, one row per move
// with a blank cell for trials that ended before it, the move average last,
// then a row of the overall and opening averages.
func (t TimeTrial) rows() [][]string {
	header := lo.Times(len(t.Times), func(i int) string {
		return "Trial " + strconv.Itoa(i+1)
	})
	rows := [][]string{append(header, "Average")}

	for move, average := range t.Averages {
		row := make([]string, 0, len(t.Times)+1)
		for _, times := range t.Times {
			cell := ""
			if move < len(times) {
				cell = formatMillis(milliseconds(times[move]))
			}
			row = append(row, cell)
		}
		rows = append(rows, append(row, formatMillis(average)))
	}
	return append(rows, []string{formatMillis(t.Average), formatMillis(t.Opening)})
}
