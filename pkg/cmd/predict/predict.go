package predict

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
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predict"
)

func NewPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "predicts the outcome of a qualifying or race",
	}
	cmd.PersistentFlags().IntVarP(&config.EventID,
		"event",
		"e",
		0,
		"event to predict (default: next event without data)")
	cmd.PersistentFlags().BoolVar(&config.DisableCache,
		"disable-cache",
		false,
		"always ask the oracle, ignore archived predictions")

	cmd.AddCommand(newKindCmd(model.Qualifying, "predicts the qualifying order"))
	cmd.AddCommand(newKindCmd(model.Race, "predicts the race result"))
	return cmd
}

func newKindCmd(kind model.SessionKind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(kind),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), kind, os.Stdout)
		},
	}
}

func run(ctx context.Context, kind model.SessionKind, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	eventID := config.EventID
	if eventID == 0 {
		next, err := a.Source.NextEvent(ctx, kind)
		if err != nil {
			return fmt.Errorf("next event: %w", err)
		}
		eventID = next.ID
		log.Info("Predicting next event", log.Int("event", eventID))
	}
	p, err := a.Service.Predict(ctx, kind, eventID, config.DisableCache)
	if err != nil {
		return err
	}
	Render(w, p)
	return nil
}

// Render writes the prediction as table.
func Render(w io.Writer, p *predict.Prediction) {
	source := "oracle"
	if p.CacheHit {
		source = "archive"
	}
	fmt.Fprintf(w, "%d %s (round %d) %s, source: %s\n",
		p.Event.Year, p.Event.Name, p.Event.Round, p.Kind, source)

	marginHeader := "Gap"
	if p.Kind == model.Race {
		marginHeader = "Weight"
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Pos", "Driver", "Team", marginHeader})
	for _, e := range p.Ranking {
		margin := ""
		if v, ok := e.Margin.Get(); ok {
			margin = fmt.Sprintf("%.3f", v)
		}
		t.AppendRow(table.Row{e.Position, e.Driver.Ref, e.Driver.ConstructorRef, margin})
	}
	t.Render()
}
