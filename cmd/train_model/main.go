package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"burnoutwatch/db"
	"burnoutwatch/logging"
	"burnoutwatch/ml"
	"burnoutwatch/models"
	"burnoutwatch/pipeline"

	"go.uber.org/zap"
)

type options struct {
	dataPath  string
	modelPath string
	dbPath    string
	testRatio float64
	clean     bool
	cleaning  pipeline.CleanerConfig
	forest    ml.ForestConfig
}

func (o options) validate() error {
	if !(o.testRatio > 0 && o.testRatio < 1) {
		return fmt.Errorf("test_ratio must be between 0 and 1 (exclusive), got %g", o.testRatio)
	}
	if o.forest.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", o.forest.Trees)
	}
	return nil
}

// splitLabels parses the -labels flag. Blank entries are ignored.
func splitLabels(value string) []string {
	var labels []string
	for _, label := range strings.Split(value, ",") {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

func main() {
	defaults := ml.DefaultForestConfig()
	dataPath := flag.String("data", "work_from_home_burnout_dataset.csv", "training CSV")
	modelPath := flag.String("model_path", "burnout_rf_model.json", "model output path")
	trees := flag.Int("trees", defaults.Trees, "number of trees")
	seed := flag.Int64("seed", defaults.Seed, "random seed for split and forest")
	testRatio := flag.Float64("test_ratio", 0.2, "held-out share of the dataset")
	workers := flag.Int("workers", 0, "trees grown in parallel (0 = GOMAXPROCS)")
	dbPath := flag.String("db", "", "database to record the training run in (optional)")
	clean := flag.Bool("clean", true, "drop rows with NaN or infinite values")
	strict := flag.Bool("strict", false, "also drop rows with out-of-range values or fractional counts")
	labels := flag.String("labels", "", "comma-separated allowed labels; rows with other labels are dropped")
	watch := flag.Bool("watch", false, "retrain whenever the dataset changes")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	logger, err := logging.New(logging.Options{Debug: *debug})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	forest := defaults
	forest.Trees = *trees
	forest.Seed = *seed
	forest.Workers = *workers

	opts := options{
		dataPath:  *dataPath,
		modelPath: *modelPath,
		dbPath:    *dbPath,
		testRatio: *testRatio,
		clean:     *clean,
		cleaning:  pipeline.CleanerConfig{Strict: *strict, Labels: splitLabels(*labels)},
		forest:    forest,
	}
	if err := opts.validate(); err != nil {
		logger.Fatal("invalid options", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
	if *watch {
		if err := watchDataset(ctx, opts, logger); err != nil {
			logger.Fatal("watch failed", zap.Error(err))
		}
	}
}

// run trains one model from the dataset, saves it and optionally records the
// run.
func run(ctx context.Context, opts options, logger *zap.Logger) error {
	record, err := train(opts, logger)
	if err != nil {
		return err
	}
	fmt.Printf("Model Accuracy: %.2f%%\n", record.Accuracy*100)
	fmt.Printf("model saved to %s\n", opts.modelPath)

	if opts.dbPath == "" {
		return nil
	}
	store, err := db.Open(ctx, opts.dbPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordTrainingRun(ctx, record)
}

func train(opts options, logger *zap.Logger) (*models.TrainingRun, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	dataset, err := ml.LoadDataset(opts.dataPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if opts.clean {
		if dataset, err = cleanDataset(dataset, opts.cleaning, logger); err != nil {
			return nil, err
		}
	}
	trainX, trainY, testX, testY := ml.StratifiedSplit(dataset.Features, dataset.Labels, opts.testRatio, opts.forest.Seed)
	logger.Info("dataset loaded",
		zap.String("path", opts.dataPath),
		zap.Int("train", len(trainY)),
		zap.Int("test", len(testY)),
	)

	start := time.Now()
	model := ml.NewRandomForest(opts.forest)
	if err := model.Train(trainX, trainY); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	logger.Info("forest trained", zap.Int("trees", len(model.Trees)), zap.Duration("elapsed", time.Since(start)))

	accuracy, err := ml.Accuracy(model, testX, testY)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	if dir := filepath.Dir(opts.modelPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create model dir: %w", err)
		}
	}
	if err := model.Save(opts.modelPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}

	return &models.TrainingRun{
		ModelPath:    opts.modelPath,
		Accuracy:     accuracy,
		TrainSamples: len(trainY),
		TestSamples:  len(testY),
		TrainedAt:    model.TrainedAt,
	}, nil
}

const maxReportedIssues = 10

func cleanDataset(dataset *ml.Dataset, cfg pipeline.CleanerConfig, logger *zap.Logger) (*ml.Dataset, error) {
	cleaner := pipeline.NewDataCleaner(cfg)
	cleaned, issues := cleaner.Clean(dataset)
	for i, issue := range issues {
		if i == maxReportedIssues {
			logger.Warn("further rejected rows not shown", zap.Int("remaining", len(issues)-i))
			break
		}
		logger.Warn("rejected row", zap.Int("row", issue.Row), zap.String("rule", issue.Rule), zap.String("reason", issue.Message))
	}
	stats := cleaner.Stats()
	logger.Info("dataset cleaned", zap.Int("passed", stats.Passed), zap.Int("rejected", stats.Rejected))
	if cleaned.Len() == 0 {
		return nil, fmt.Errorf("no usable rows in dataset")
	}
	return cleaned, nil
}
