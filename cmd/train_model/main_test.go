package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"burnoutwatch/db"
	"burnoutwatch/ml"
	"burnoutwatch/pipeline"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeDataset writes a separable dataset whose label follows work hours.
func writeDataset(t *testing.T, path string, rows int) {
	t.Helper()
	writeLabeledDataset(t, path, rows, [3]string{"Low", "Medium", "High"})
}

func writeLabeledDataset(t *testing.T, path string, rows int, classes [3]string) {
	t.Helper()
	rnd := rand.New(rand.NewSource(7))
	var b strings.Builder
	b.WriteString("employee_id,work_hours,screen_time_hours,meetings_count,breaks_taken,after_hours_work,sleep_hours,task_completion_rate,burnout_risk\n")
	for i := 0; i < rows; i++ {
		var hours float64
		var label string
		switch i % 3 {
		case 0:
			hours, label = 4+rnd.Float64()*2, classes[0]
		case 1:
			hours, label = 7+rnd.Float64()*2, classes[1]
		default:
			hours, label = 10+rnd.Float64()*2, classes[2]
		}
		fmt.Fprintf(&b, "E%d,%.2f,%.2f,%d,%d,%d,%.2f,%.2f,%s\n",
			i, hours, hours+rnd.Float64(), rnd.Intn(6), rnd.Intn(4), rnd.Intn(2), 5+rnd.Float64()*3, 50+rnd.Float64()*50, label)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
}

func testOptions(t *testing.T) options {
	dir := t.TempDir()
	opts := options{
		dataPath:  filepath.Join(dir, "data.csv"),
		modelPath: filepath.Join(dir, "models", "forest.json"),
		testRatio: 0.2,
		clean:     true,
		forest:    ml.DefaultForestConfig(),
	}
	opts.forest.Trees = 15
	writeDataset(t, opts.dataPath, 150)
	return opts
}

func TestTrainSavesLoadableModel(t *testing.T) {
	opts := testOptions(t)
	record, err := train(opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 120, record.TrainSamples)
	assert.Equal(t, 30, record.TestSamples)
	assert.Greater(t, record.Accuracy, 0.8)

	model, err := ml.LoadModel(opts.modelPath)
	require.NoError(t, err)
	label, _, err := model.Predict([]float64{11, 11.5, 2, 1, 1, 6, 70})
	require.NoError(t, err)
	assert.Equal(t, "High", label)
}

func TestRunRecordsTrainingRun(t *testing.T) {
	opts := testOptions(t)
	opts.dbPath = filepath.Join(t.TempDir(), "users.db")
	require.NoError(t, run(context.Background(), opts, zap.NewNop()))

	store, err := db.Open(context.Background(), opts.dbPath, nil)
	require.NoError(t, err)
	defer store.Close()
	latest, err := store.LatestTrainingRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, opts.modelPath, latest.ModelPath)
	assert.Equal(t, 30, latest.TestSamples)
}

func TestTrainMissingDataset(t *testing.T) {
	opts := testOptions(t)
	opts.dataPath = filepath.Join(t.TempDir(), "absent.csv")
	_, err := train(opts, zap.NewNop())
	require.Error(t, err)
}

func TestIsDatasetChange(t *testing.T) {
	target := filepath.Join(t.TempDir(), "data.csv")
	assert.True(t, isDatasetChange(fsnotify.Event{Name: target, Op: fsnotify.Write}, target))
	assert.True(t, isDatasetChange(fsnotify.Event{Name: target, Op: fsnotify.Create}, target))
	assert.False(t, isDatasetChange(fsnotify.Event{Name: target, Op: fsnotify.Chmod}, target))
	assert.False(t, isDatasetChange(fsnotify.Event{Name: target + ".swp", Op: fsnotify.Write}, target))
}

func TestTrainDropsInvalidRows(t *testing.T) {
	opts := testOptions(t)
	f, err := os.OpenFile(opts.dataPath, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("E900,30,8,2,1,0,7,80,High\nE901,8,8,2,1,0,7,80,Extreme\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// default cleaning only screens non-finite values
	record, err := train(opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 152, record.TrainSamples+record.TestSamples)

	opts.cleaning = pipeline.CleanerConfig{Strict: true, Labels: splitLabels("Low, Medium,High")}
	record, err = train(opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 150, record.TrainSamples+record.TestSamples)

	opts.clean = false
	record, err = train(opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 152, record.TrainSamples+record.TestSamples)
}

func TestTrainAcceptsAnyLabelSpelling(t *testing.T) {
	opts := testOptions(t)
	writeLabeledDataset(t, opts.dataPath, 150, [3]string{"low", "medium", "high"})

	record, err := train(opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 120, record.TrainSamples)
	assert.Equal(t, 30, record.TestSamples)

	model, err := ml.LoadModel(opts.modelPath)
	require.NoError(t, err)
	label, _, err := model.Predict([]float64{11, 11.5, 2, 1, 1, 6, 70})
	require.NoError(t, err)
	assert.Equal(t, "high", label)
}

func TestTrainRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*options)
		want   string
	}{
		{"ratio above one", func(o *options) { o.testRatio = 1.5 }, "test_ratio"},
		{"ratio of one", func(o *options) { o.testRatio = 1 }, "test_ratio"},
		{"zero ratio", func(o *options) { o.testRatio = 0 }, "test_ratio"},
		{"negative ratio", func(o *options) { o.testRatio = -0.1 }, "test_ratio"},
		{"no trees", func(o *options) { o.forest.Trees = 0 }, "trees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			tt.modify(&opts)
			_, err := train(opts, zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.NoFileExists(t, opts.modelPath)
		})
	}
}

func TestSplitLabels(t *testing.T) {
	assert.Nil(t, splitLabels(""))
	assert.Equal(t, []string{"Low", "High"}, splitLabels(" Low,, High ,"))
}
