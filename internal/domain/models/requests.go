package models

import (
	"fmt"
	"time"
)

// Requests for the HTTP endpoints. Defined in domain for consistency and reuse.

type TrainingRunRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02,date_gtefield=StartDate"`
	HoldYears []int  `json:"hold_years" validate:"omitempty,min=1,max=5,dive,gte=1,lte=30"`
	TopK      int    `json:"top_k" default:"5" validate:"gte=1,lte=50"`
}

// RunRequest converts the validated body into a backtest request.
func (r TrainingRunRequest) RunRequest() (RunRequest, error) {
	start, err := time.Parse(time.DateOnly, r.StartDate)
	if err != nil {
		return RunRequest{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, r.EndDate)
	if err != nil {
		return RunRequest{}, fmt.Errorf("end_date: %w", err)
	}
	return RunRequest{StartDate: start, EndDate: end, HoldYears: r.HoldYears, TopK: r.TopK}, nil
}

type AnalysisRunRequest struct {
	TrainingRunRequest
	Weights   *Weights `json:"weights"`
	ModelID   string   `json:"scoring_model_id"`
	Threshold float64  `json:"threshold" validate:"gte=0,lte=100"`
}

type EvaluateRequest struct {
	RunID     string          `json:"run_id" validate:"required"`
	HoldYears int             `json:"hold_years" default:"2" validate:"gte=1,lte=30"`
	Threshold float64         `json:"threshold" default:"65" validate:"gte=0,lte=100"`
	Weights   *Weights        `json:"weights"`
	Formula   *ScoringFormula `json:"formula"`
}

type CreateModelRequest struct {
	Name          string          `json:"name" validate:"required,max=128"`
	TrainingRunID string          `json:"training_run_id"`
	HoldYears     int             `json:"hold_years" default:"2" validate:"gte=1,lte=30"`
	Weights       *Weights        `json:"weights"`
	Formula       *ScoringFormula `json:"formula"`
	Threshold     float64         `json:"threshold" default:"65" validate:"gte=0,lte=100"`
	AvgReturn     *float64        `json:"avg_return"`
	WinRate       *float64        `json:"win_rate"`
}
