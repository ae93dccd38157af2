package evaluate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/cmd/app"
	"github.com/mpapenbr/f1-prediction-engine/pkg/config"
	"github.com/mpapenbr/f1-prediction-engine/pkg/evaluate"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

func NewEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "compares predictions with the actual outcome of past events",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := model.Qualifying
			if config.EvalRace {
				kind = model.Race
			}
			return run(cmd.Context(), kind, os.Stdout)
		},
	}
	cmd.Flags().BoolVar(&config.EvalRace,
		"race",
		false,
		"evaluate race predictions instead of qualifying")
	cmd.Flags().IntSliceVar(&config.EvalEvents,
		"events",
		nil,
		"events to evaluate (default: events of overrides or evaluation events)")
	cmd.Flags().StringVar(&config.OverridesFile,
		"overrides",
		"",
		"yaml file with archived predictions per event")
	cmd.Flags().IntVar(&config.EvalParallel,
		"parallel",
		4,
		"max number of concurrent live predictions")
	return cmd
}

func run(ctx context.Context, kind model.SessionKind, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var overrides evaluate.Overrides
	if config.OverridesFile != "" {
		var err error
		if overrides, err = evaluate.LoadOverrides(config.OverridesFile); err != nil {
			return err
		}
	}
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	h := evaluate.NewHarness(a.Source,
		evaluate.WithParallel(config.EvalParallel),
		evaluate.WithPredictor(evaluate.PredictorFunc(
			func(ctx context.Context, kind model.SessionKind, eventID int) (
				model.Ranking, error,
			) {
				p, err := a.Service.Predict(ctx, kind, eventID, false)
				if err != nil {
					return nil, err
				}
				return p.Ranking, nil
			})))
	report, err := h.Evaluate(ctx, kind, config.EvalEvents, overrides)
	if err != nil {
		return err
	}
	if len(report.Skipped) > 0 {
		log.Info("Skipped events", log.Ints("events", report.Skipped))
	}
	Render(w, kind, report)
	return nil
}

// Render writes the per event scores and the summary as tables.
func Render(w io.Writer, kind model.SessionKind, r *evaluate.Report) {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s evaluation", kind))
	t.AppendHeader(table.Row{
		"Event", "Drivers", "Spearman", "Winner", "Podium", "Podium (any order)", "Positions",
	})
	for _, s := range r.Scores {
		t.AppendRow(table.Row{
			s.EventID,
			s.Drivers,
			fmt.Sprintf("%.3f", s.Coefficient),
			yesNo(s.WinnerCorrect),
			yesNo(s.PodiumCorrect),
			yesNo(s.PodiumAnyOrder),
			fmt.Sprintf("%d/%d", s.PositionsCorrect, s.Drivers),
		})
	}
	t.AppendSeparator()
	m := r.Metrics
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d events", m.Events),
		"",
		fmt.Sprintf("%.3f", m.AverageCoefficient),
		fmt.Sprintf("%.3f", m.WinnersCorrect),
		fmt.Sprintf("%.3f", m.PodiumsCorrect),
		fmt.Sprintf("%.3f", m.PodiumsAnyOrder),
		fmt.Sprintf("%.3f", m.PositionsCorrect),
	})
	t.Render()
}
