package experiments

import (
	"context"
	"fmt"
	"time"

	"connect4/agent"
	"connect4/engine"
	"connect4/experiments/metrics"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// player builds a fresh agent for every game so that games running at once
// never share search state.
type player struct {
	id    int // metrics.AgentConfig.ID
	build func() (agent.Agent, error)
}

type matchup struct {
	first, second player
}

type playedGame struct {
	record metrics.GameRecord
	moves  []metrics.MoveMetric
}

// ArenaStats counts the results of the games between two agents. P1 and P2
// name the agents, whichever seat they took.
type ArenaStats struct {
	Games      int `json:"games"`
	P1Wins     int `json:"p1_wins"`
	P2Wins     int `json:"p2_wins"`
	Draws      int `json:"draws"`
	FirstWins  int `json:"first_to_move_wins"`
	SecondWins int `json:"second_to_move_wins"`
}

// Summarize counts the games of records from the point of view of agent p1.
func Summarize(p1 int, records []metrics.GameRecord) ArenaStats {
	won := func(r metrics.GameRecord) bool {
		return (r.Outcome == engine.FirstWins && r.Agent1 == p1) ||
			(r.Outcome == engine.SecondWins && r.Agent2 == p1)
	}
	return ArenaStats{
		Games:  len(records),
		P1Wins: lo.CountBy(records, won),
		P2Wins: lo.CountBy(records, func(r metrics.GameRecord) bool {
			return r.Outcome != engine.Draw && !won(r)
		}),
		Draws: lo.CountBy(records, func(r metrics.GameRecord) bool {
			return r.Outcome == engine.Draw
		}),
		FirstWins: lo.CountBy(records, func(r metrics.GameRecord) bool {
			return r.Outcome == engine.FirstWins
		}),
		SecondWins: lo.CountBy(records, func(r metrics.GameRecord) bool {
			return r.Outcome == engine.SecondWins
		}),
	}
}

// playGames runs every matchup with at most r.config.Parallel games at once
// and returns the games in matchup order.
func (r *Runner) playGames(ctx context.Context, matchups []matchup, budget time.Duration) ([]playedGame, error) {
	played := make([]playedGame, len(matchups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Parallel)
	for i, m := range matchups {
		i, m := i, m
		g.Go(func() error {
			first, err := m.first.build()
			if err != nil {
				return fmt.Errorf("failed to create first agent: %w", err)
			}
			second, err := m.second.build()
			if err != nil {
				return fmt.Errorf("failed to create second agent: %w", err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			log.Info().Msgf("starting game %d of %d between %s and %s...", i+1, len(matchups), first.Name(), second.Name())
			e := engine.NewLocal(first, second,
				engine.WithBudget(budget),
				engine.WithGrace(r.config.Grace),
				engine.WithVerbose(r.config.Verbose),
			)
			outcome, gameMetric, moveMetrics := e.Run(ctx)
			log.Info().Msgf("completed game %d of %d with outcome: %s", i+1, len(matchups), engine.OutcomeString(outcome))

			played[i] = playedGame{
				record: metrics.GameRecord{
					ID:         i + 1,
					Agent1:     m.first.id,
					Agent2:     m.second.id,
					GameMetric: gameMetric,
				},
				moves: moveMetrics,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return played, nil
}

func gameRecords(played []playedGame) []metrics.GameRecord {
	return lo.Map(played, func(p playedGame, _ int) metrics.GameRecord {
		return p.record
	})
}

func moveRecords(played []playedGame) []metrics.MoveRecord {
	return lo.FlatMap(played, func(p playedGame, _ int) []metrics.MoveRecord {
		return lo.Map(p.moves, func(m metrics.MoveMetric, _ int) metrics.MoveRecord {
			return metrics.MoveRecord{Game: p.record.ID, MoveMetric: m}
		})
	})
}

// writeRecords stores the agent configs, game and move records of an
// experiment under a new run directory.
func (r *Runner) writeRecords(w *metrics.Writer, configs []metrics.AgentConfig, played []playedGame) error {
	if err := w.WriteAgentConfigs(configs); err != nil {
		return fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Info().Msg("stored agent configs")

	if err := w.WriteGameRecords(gameRecords(played)); err != nil {
		return fmt.Errorf("failed to write game records: %w", err)
	}
	log.Info().Msg("stored game records")

	if err := w.WriteMoveRecords(moveRecords(played)); err != nil {
		return fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msg("stored move records")
	return nil
}
