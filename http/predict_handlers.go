package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"burnoutwatch/db"
	"burnoutwatch/ml"
	"burnoutwatch/models"

	"go.uber.org/zap"
)

type predictionResponse struct {
	Level      string  `json:"level"`
	Confidence float64 `json:"confidence"`
	Date       string  `json:"date"`
}

// historyResponse holds the recent entries oldest first, one array per
// column so the client can chart them directly.
type historyResponse struct {
	Dates        []string  `json:"dates"`
	WorkHours    []float64 `json:"work_hours"`
	ScreenTime   []float64 `json:"screen_time"`
	Meetings     []int     `json:"meetings"`
	Breaks       []int     `json:"breaks"`
	AfterHours   []int     `json:"after_hours"`
	SleepHours   []float64 `json:"sleep_hours"`
	TaskRate     []float64 `json:"task_rate"`
	BurnoutLevel []string  `json:"burnout_level"`
}

type dashboardResponse struct {
	UserID         string              `json:"user_id"`
	ModelLoaded    bool                `json:"model_loaded"`
	Entries        int                 `json:"entries"`
	LatestTraining *models.TrainingRun `json:"latest_training"`
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		http.Error(w, "ML model not loaded", http.StatusServiceUnavailable)
		return
	}

	features, err := parseFeatures(r)
	if err != nil {
		h.logger.Debug("rejected prediction input", zap.Error(err))
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	level, confidence, err := h.model.Predict(ml.FeatureVector(features))
	if err != nil {
		h.serverError(w, r, "predict", err)
		return
	}

	userID := GetSession(r.Context()).UserID
	entry := &models.DailyEntry{
		UserID:       userID,
		LogDate:      h.now().Format(models.LogDateLayout),
		WorkHours:    features.WorkHours,
		ScreenTime:   features.ScreenTime,
		Meetings:     features.Meetings,
		Breaks:       features.Breaks,
		AfterHours:   features.AfterHours,
		Sleep:        features.Sleep,
		TaskRate:     features.TaskRate,
		BurnoutLevel: level,
	}
	if err := h.store.InsertDailyEntry(r.Context(), entry); err != nil {
		h.serverError(w, r, "store daily entry", err)
		return
	}

	h.logger.Info("prediction stored",
		zap.String("user_id", userID),
		zap.String("level", level),
		zap.Float64("confidence", confidence),
	)
	respondJSON(w, http.StatusOK, predictionResponse{
		Level:      level,
		Confidence: confidence,
		Date:       entry.LogDate,
	})
}

// parseFeatures reads the seven form fields from a urlencoded or multipart
// body. Every field is required and must be a finite number; the three
// counts must be integers.
func parseFeatures(r *http.Request) (ml.Features, error) {
	if err := r.ParseMultipartForm(maxRequestSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return ml.Features{}, err
	}
	var (
		f   ml.Features
		err error
	)
	floats := []struct {
		name string
		dst  *float64
	}{
		{"work_hours", &f.WorkHours},
		{"screen_time", &f.ScreenTime},
		{"sleep", &f.Sleep},
		{"task_rate", &f.TaskRate},
	}
	for _, field := range floats {
		if *field.dst, err = formFloat(r, field.name); err != nil {
			return ml.Features{}, err
		}
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"meetings", &f.Meetings},
		{"breaks", &f.Breaks},
		{"after_hours", &f.AfterHours},
	}
	for _, field := range ints {
		if *field.dst, err = formInt(r, field.name); err != nil {
			return ml.Features{}, err
		}
	}
	return f, nil
}

func formValue(r *http.Request, name string) (string, error) {
	values, ok := r.PostForm[name]
	if !ok || len(values) == 0 {
		return "", fmt.Errorf("missing field %s", name)
	}
	return strings.TrimSpace(values[0]), nil
}

func formFloat(r *http.Request, name string) (float64, error) {
	raw, err := formValue(r, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("field %s: not a finite number", name)
	}
	return v, nil
}

func formInt(r *http.Request, name string) (int, error) {
	raw, err := formValue(r, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.RecentDailyEntries(r.Context(), GetSession(r.Context()).UserID, db.HistoryLimit)
	if err != nil {
		h.serverError(w, r, "load history", err)
		return
	}
	slices.Reverse(entries)

	resp := historyResponse{
		Dates:        make([]string, 0, len(entries)),
		WorkHours:    make([]float64, 0, len(entries)),
		ScreenTime:   make([]float64, 0, len(entries)),
		Meetings:     make([]int, 0, len(entries)),
		Breaks:       make([]int, 0, len(entries)),
		AfterHours:   make([]int, 0, len(entries)),
		SleepHours:   make([]float64, 0, len(entries)),
		TaskRate:     make([]float64, 0, len(entries)),
		BurnoutLevel: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Dates = append(resp.Dates, e.LogDate)
		resp.WorkHours = append(resp.WorkHours, e.WorkHours)
		resp.ScreenTime = append(resp.ScreenTime, e.ScreenTime)
		resp.Meetings = append(resp.Meetings, e.Meetings)
		resp.Breaks = append(resp.Breaks, e.Breaks)
		resp.AfterHours = append(resp.AfterHours, e.AfterHours)
		resp.SleepHours = append(resp.SleepHours, e.Sleep)
		resp.TaskRate = append(resp.TaskRate, e.TaskRate)
		resp.BurnoutLevel = append(resp.BurnoutLevel, e.BurnoutLevel)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := GetSession(r.Context()).UserID
	count, err := h.store.CountDailyEntries(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, "count entries", err)
		return
	}
	run, err := h.store.LatestTrainingRun(r.Context())
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.serverError(w, r, "load training run", err)
		return
	}
	respondJSON(w, http.StatusOK, dashboardResponse{
		UserID:         userID,
		ModelLoaded:    h.model != nil,
		Entries:        count,
		LatestTraining: run,
	})
}
