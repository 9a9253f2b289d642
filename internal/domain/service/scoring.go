package service

import "LoserLab/internal/domain/models"

// Scorer assigns a 0..100 confidence score to a loser candidate.
type Scorer interface {
	Score(attrs models.Attributes, dailyLossPct float64, rank int) float64
}

// WeightSuggester learns a scoring formula for one holding period from historical picks.
type WeightSuggester interface {
	Suggest(picks []models.Pick, holdYears int) models.ScoringFormula
}
