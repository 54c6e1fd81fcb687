package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// Dataset is a labeled feature matrix with rows in FeatureNames order.
type Dataset struct {
	Features [][]float64
	Labels   []string
}

func (d *Dataset) Len() int {
	return len(d.Labels)
}

// LoadDataset reads a CSV whose header names every column of FeatureNames
// plus LabelColumn. Column order in the file is free and extra columns are
// ignored.
func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadDataset(file)
}

func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	names := FeatureNames()
	positions := make([]int, len(names))
	for i, name := range names {
		pos, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("dataset missing column %q", name)
		}
		positions[i] = pos
	}
	labelPos, ok := columns[LabelColumn]
	if !ok {
		return nil, fmt.Errorf("dataset missing column %q", LabelColumn)
	}

	ds := &Dataset{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(positions))
		for i, pos := range positions {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[pos]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, names[i], err)
			}
			row[i] = value
		}
		label := strings.TrimSpace(record[labelPos])
		if label == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, LabelColumn)
		}
		ds.Features = append(ds.Features, row)
		ds.Labels = append(ds.Labels, label)
	}

	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

// StratifiedSplit partitions the rows so that every label keeps its share in
// both partitions. The test size is ceil(n * testRatio); per-label quotas are
// the floors of their exact shares, with leftover slots going to the labels
// with the largest remainders.
func StratifiedSplit(features [][]float64, labels []string, testRatio float64, seed int64) (trainX [][]float64, trainY []string, testX [][]float64, testY []string) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	n := len(labels)
	rnd := rand.New(rand.NewSource(seed))

	classes, encoded := encodeLabels(labels)
	byClass := make([][]int, len(classes))
	for i, c := range encoded {
		byClass[c] = append(byClass[c], i)
	}

	testTotal := int(math.Ceil(float64(n) * testRatio))
	quotas := make([]int, len(classes))
	remainders := make([]float64, len(classes))
	assigned := 0
	for c, rows := range byClass {
		exact := float64(len(rows)) * float64(testTotal) / float64(n)
		quotas[c] = int(math.Floor(exact))
		remainders[c] = exact - float64(quotas[c])
		assigned += quotas[c]
	}
	for assigned < testTotal {
		best := -1
		for c := range remainders {
			if quotas[c] >= len(byClass[c]) {
				continue
			}
			if best == -1 || remainders[c] > remainders[best] {
				best = c
			}
		}
		if best == -1 {
			break
		}
		quotas[best]++
		remainders[best] = -1
		assigned++
	}

	isTest := make([]bool, n)
	for c, rows := range byClass {
		perm := rnd.Perm(len(rows))
		for _, p := range perm[:quotas[c]] {
			isTest[rows[p]] = true
		}
	}

	for _, i := range rnd.Perm(n) {
		if isTest[i] {
			testX = append(testX, features[i])
			testY = append(testY, labels[i])
		} else {
			trainX = append(trainX, features[i])
			trainY = append(trainY, labels[i])
		}
	}
	return trainX, trainY, testX, testY
}

// Accuracy is the share of rows whose prediction equals the label.
func Accuracy(model Classifier, features [][]float64, labels []string) (float64, error) {
	if len(features) == 0 {
		return 0, nil
	}
	correct := 0
	for i, row := range features {
		label, _, err := model.Predict(row)
		if err != nil {
			return 0, err
		}
		if label == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(features)), nil
}
