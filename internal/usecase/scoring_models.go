package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"LoserLab/internal/domain/models"
	drepo "LoserLab/internal/domain/repository"
)

// ModelsUseCase manages saved scoring models.
type ModelsUseCase struct {
	store     drepo.RunStore
	jobs      *JobManager
	threshold float64
}

func NewModelsUseCase(store drepo.RunStore, jobs *JobManager, threshold float64) *ModelsUseCase {
	if threshold <= 0 {
		threshold = models.DefaultThreshold
	}
	return &ModelsUseCase{store: store, jobs: jobs, threshold: threshold}
}

// Defaults is the rule formula and threshold used when nothing was learned.
type Defaults struct {
	Weights   models.Weights `json:"weights"`
	Threshold float64        `json:"threshold"`
}

func (uc *ModelsUseCase) Defaults() Defaults {
	return Defaults{Weights: models.DefaultWeights(), Threshold: uc.threshold}
}

// Create saves a model. Its formula comes from, in order: the explicit
// formula, explicit weights, or the suggestion of a completed training run.
func (uc *ModelsUseCase) Create(ctx context.Context, req models.CreateModelRequest) (*models.ScoringModel, error) {
	m := &models.ScoringModel{
		ID:            uuid.NewString(),
		Name:          req.Name,
		TrainingRunID: req.TrainingRunID,
		Threshold:     req.Threshold,
		AvgReturn:     req.AvgReturn,
		WinRate:       req.WinRate,
		CreatedAt:     time.Now().UTC(),
	}

	switch {
	case req.Formula != nil:
		m.Formula = *req.Formula
	case req.Weights != nil:
		m.Formula = models.ScoringFormula{HoldYears: req.HoldYears, Mode: models.ModeDefault, Weights: *req.Weights}
	case req.TrainingRunID != "":
		run, err := uc.jobs.Result(ctx, req.TrainingRunID)
		if err != nil {
			return nil, fmt.Errorf("training run %s: %w", req.TrainingRunID, err)
		}
		f, ok := run.FormulaFor(req.HoldYears)
		if !ok {
			return nil, fmt.Errorf("training run %s has no %dy formula: %w", req.TrainingRunID, req.HoldYears, models.ErrNotFound)
		}
		m.Formula = f
		if s, ok := run.SummaryFor(req.HoldYears); ok && s.TotalPicks > 0 {
			if m.AvgReturn == nil {
				m.AvgReturn = models.Float(s.AvgReturn)
			}
			if m.WinRate == nil {
				m.WinRate = models.Float(s.WinRate)
			}
		}
	default:
		m.Formula = models.DefaultFormula(req.HoldYears, "")
	}
	if m.Threshold <= 0 {
		m.Threshold = uc.threshold
	}

	if err := uc.store.SaveModel(ctx, m); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	return m, nil
}

func (uc *ModelsUseCase) List(ctx context.Context) ([]models.ScoringModel, error) {
	return uc.store.ListModels(ctx)
}

func (uc *ModelsUseCase) Get(ctx context.Context, id string) (*models.ScoringModel, error) {
	return uc.store.GetModel(ctx, id)
}

func (uc *ModelsUseCase) Delete(ctx context.Context, id string) error {
	return uc.store.DeleteModel(ctx, id)
}

// ResolveFormula picks the formula for a request: a saved model wins over
// inline weights; with neither the defaults apply. The returned threshold is
// the model's when fallback is not positive.
func (uc *ModelsUseCase) ResolveFormula(ctx context.Context, modelID string, weights *models.Weights, formula *models.ScoringFormula, threshold float64) (models.ScoringFormula, float64, error) {
	if modelID != "" {
		m, err := uc.store.GetModel(ctx, modelID)
		if err != nil {
			return models.ScoringFormula{}, 0, fmt.Errorf("scoring model %s: %w", modelID, err)
		}
		if threshold <= 0 {
			threshold = m.Threshold
		}
		return m.Formula, threshold, nil
	}
	if threshold <= 0 {
		threshold = uc.threshold
	}
	switch {
	case formula != nil:
		return *formula, threshold, nil
	case weights != nil:
		return models.ScoringFormula{Mode: models.ModeDefault, Weights: *weights}, threshold, nil
	default:
		return models.DefaultFormula(0, ""), threshold, nil
	}
}
