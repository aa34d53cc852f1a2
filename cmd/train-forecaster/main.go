// train-forecaster fits the monthly consumption model on a series CSV (or a
// synthetic series), reports the holdout MAE, writes the model artifact and
// prints the next months' forecast.
//
// Usage:
//
//	train-forecaster
//	train-forecaster -input data/monthly.csv -output models/forecast_model.json
//	train-forecaster -kind mlp -epochs 500 -horizon 6
//	train-forecaster -csv > forecast.csv
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/longlife4everest/energy-ai-dashboard/internal/features"
	"github.com/longlife4everest/energy-ai-dashboard/internal/forecast"
	"github.com/longlife4everest/energy-ai-dashboard/internal/ingest"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
	"github.com/longlife4everest/energy-ai-dashboard/internal/predictor"
	"github.com/longlife4everest/energy-ai-dashboard/internal/store"
)

func main() {
	input := flag.String("input", "", "series CSV (empty = synthetic series)")
	months := flag.Int("months", ingest.DefaultSyntheticMonths, "synthetic series length")
	dataSeed := flag.Uint64("data-seed", 42, "synthetic series seed")
	output := flag.String("output", "models/forecast_model.json", "path to write the model artifact (empty = don't save)")
	kind := flag.String("kind", string(predictor.KindRandomForest), "regressor: random_forest or mlp")
	seed := flag.Uint64("seed", forecast.DefaultSeed, "training seed")
	trees := flag.Int("trees", predictor.DefaultForestConfig().Trees, "random forest size")
	epochs := flag.Int("epochs", predictor.DefaultMLPConfig().Train.Epochs, "MLP training epochs")
	horizon := flag.Int("horizon", forecast.DefaultHorizon, "months to forecast")
	csvOut := flag.Bool("csv", false, "output the forecast as CSV")
	verbose := flag.Bool("v", false, "log training progress")
	flag.Parse()

	series, err := readSeries(*input, *months, *dataSeed, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := forecast.DefaultConfig()
	cfg.Kind = predictor.Kind(*kind)
	cfg.Seed = *seed
	cfg.Options.Forest.Trees = *trees
	cfg.Options.MLP.Train.Epochs = *epochs

	var logOut io.Writer = io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logOut, nil))

	var artifact *store.Artifact
	if *output != "" {
		artifact = store.NewArtifact(*output)
	}
	engine := forecast.New(cfg, artifact, log)

	rows, err := features.Build(series)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building features: %v\n", err)
		os.Exit(1)
	}
	res, err := engine.Train(rows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error training: %v\n", err)
		os.Exit(1)
	}
	if res.Model == nil {
		fmt.Fprintf(os.Stderr, "Not enough data to train: %d feature rows, need %d\n", len(rows), forecast.MinTrainingRows)
		os.Exit(1)
	}

	fc := engine.ForecastNext(res.Model, *horizon, model.EnergyValues(series), series[len(series)-1].Date)

	if *csvOut {
		fmt.Println("date,energy_consumption_kwh")
		for _, p := range fc {
			fmt.Printf("%s,%.2f\n", p.Date.Format("2006-01-02"), p.EnergyKWh)
		}
		return
	}

	fmt.Printf("Series: %d months (%s to %s)\n", len(series),
		series[0].Date.Format("2006-01"), series[len(series)-1].Date.Format("2006-01"))
	fmt.Printf("Model:  %s, seed=%d\n", cfg.Kind, cfg.Seed)
	fmt.Printf("Rows:   %d train, %d holdout\n", res.TrainRows, res.HoldoutRows)
	fmt.Printf("Holdout MAE: %.2f kWh\n", res.MAE)
	if *output != "" {
		fmt.Printf("Model saved to %s (run %s)\n", *output, res.RunID)
	}

	fmt.Println()
	fmt.Printf("%-10s  %14s\n", "Month", "Forecast (kWh)")
	fmt.Printf("%-10s  %14s\n", "----------", "--------------")
	for _, p := range fc {
		fmt.Printf("%-10s  %14.2f\n", p.Date.Format("2006-01"), p.EnergyKWh)
	}
}

func readSeries(path string, months int, seed uint64, now time.Time) ([]model.SeriesPoint, error) {
	if path != "" {
		return ingest.ReadFile(path)
	}
	if months <= 0 {
		return nil, fmt.Errorf("synthetic months must be positive, got %d", months)
	}
	return ingest.Synthetic(months, seed, ingest.SyntheticStart(now, months)), nil
}
