package experiments

import (
	"context"
	"fmt"

	"connect4/engine"
	"connect4/experiments/metrics"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	mctsID    = 1
	minimaxID = 2
)

// WinReport holds the results of MCTS against minimax, seen from MCTS.
type WinReport struct {
	XWins   int `json:"x_wins"`
	XLosses int `json:"x_losses"`
	XDraws  int `json:"x_draws"`
	OWins   int `json:"o_wins"`
	OLosses int `json:"o_losses"`
	ODraws  int `json:"o_draws"`

	Stats ArenaStats `json:"stats"`

	Score float64 `json:"score"` // Mean of 1 per win, 0.5 per draw
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
}

// WinTrials plays Trials games of MCTS as X against minimax, then Trials
// games with the seats swapped.
func (r *Runner) WinTrials(ctx context.Context) (WinReport, error) {
	mcts := player{id: mctsID, build: r.agent("mcts")}
	minimax := player{id: minimaxID, build: r.minimax(r.config.Minimax.Depth)}

	matchups := make([]matchup, 0, 2*r.config.Trials)
	for i := 0; i < r.config.Trials; i++ {
		matchups = append(matchups, matchup{first: mcts, second: minimax})
	}
	for i := 0; i < r.config.Trials; i++ {
		matchups = append(matchups, matchup{first: minimax, second: mcts})
	}

	log.Info().Msgf("starting %s experiment...", ModeWin)
	played, err := r.playGames(ctx, matchups, r.config.Budget)
	if err != nil {
		return WinReport{}, err
	}
	log.Info().Msgf("completed %s experiment", ModeWin)

	records := gameRecords(played)
	report := winReport(records)
	log.Info().Msgf("X wins: %d", report.XWins)
	log.Info().Msgf("X loses: %d", report.XLosses)
	log.Info().Msgf("X draws: %d", report.XDraws)
	log.Info().Msgf("O wins: %d", report.OWins)
	log.Info().Msgf("O loses: %d", report.OLosses)
	log.Info().Msgf("O draws: %d", report.ODraws)
	log.Info().
		Interface("stats", report.Stats).
		Msgf("MCTS score %.3f, %d%% confidence interval [%.3f, %.3f]", report.Score, Confidence, report.Low, report.High)

	w, err := metrics.NewWriter(r.config.Out, ModeWin)
	if err != nil {
		return report, err
	}
	configs := []metrics.AgentConfig{
		{ID: mctsID, Name: "MCTS", Budget: r.config.Budget},
		{ID: minimaxID, Name: "Minimax", Depth: r.config.Minimax.Depth, Budget: r.config.Budget},
	}
	if err := r.writeRecords(w, configs, played); err != nil {
		return report, fmt.Errorf("failed to store %s results: %w", ModeWin, err)
	}
	return report, nil
}

func winReport(records []metrics.GameRecord) WinReport {
	asX := lo.Filter(records, func(r metrics.GameRecord, _ int) bool { return r.Agent1 == mctsID })
	asO := lo.Filter(records, func(r metrics.GameRecord, _ int) bool { return r.Agent2 == mctsID })
	outcomes := func(records []metrics.GameRecord, outcome int) int {
		return lo.CountBy(records, func(r metrics.GameRecord) bool { return r.Outcome == outcome })
	}

	report := WinReport{
		XWins:   outcomes(asX, engine.FirstWins),
		XLosses: outcomes(asX, engine.SecondWins),
		XDraws:  outcomes(asX, engine.Draw),
		OWins:   outcomes(asO, engine.SecondWins),
		OLosses: outcomes(asO, engine.FirstWins),
		ODraws:  outcomes(asO, engine.Draw),
		Stats:   Summarize(mctsID, records),
	}

	scores := lo.Map(records, func(r metrics.GameRecord, _ int) float64 {
		return score(r, mctsID)
	})
	report.Score, report.Low, report.High = confidenceInterval(scores, Confidence)
	return report
}

// score is 1 if agent id won the game, 0.5 for a draw, 0 otherwise.
func score(r metrics.GameRecord, id int) float64 {
	switch {
	case r.Outcome == engine.Draw:
		return 0.5
	case r.Outcome == engine.FirstWins && r.Agent1 == id, r.Outcome == engine.SecondWins && r.Agent2 == id:
		return 1
	}
	return 0
}
