package repository

import (
	"context"

	"LoserLab/internal/domain/models"
	"LoserLab/internal/domain/repository"
	pkgkafka "LoserLab/pkg/kafka"
	"LoserLab/pkg/util"
)

// KafkaPublisher implements Publisher for Kafka. Run summaries and picks go
// to separate topics, keyed by run ID so one run stays on one partition.
type KafkaPublisher struct {
	producer   *pkgkafka.Producer
	runTopic   string
	picksTopic string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, runTopic, picksTopic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, runTopic: runTopic, picksTopic: picksTopic}
}

// PublishRun sends the run without its picks.
func (p *KafkaPublisher) PublishRun(ctx context.Context, run *models.RunResult) error {
	return p.producer.PublishBatch(ctx, p.runTopic, []pkgkafka.Message{{
		Key:     []byte(run.RunID),
		Value:   runMessage(run),
		Headers: map[string]string{"type": "run", "run_id": run.RunID},
	}})
}

func (p *KafkaPublisher) PublishPicks(ctx context.Context, runID string, picks []models.Pick) error {
	if len(picks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(picks))
	for i, pk := range picks {
		msgs[i] = pkgkafka.Message{
			Key:     []byte(runID),
			Value:   pickMessage(runID, pk),
			Headers: map[string]string{"type": "pick", "run_id": runID},
		}
	}
	return p.producer.PublishBatch(ctx, p.picksTopic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func runMessage(run *models.RunResult) map[string]interface{} {
	return map[string]interface{}{
		"run_id":             run.RunID,
		"start_date":         util.FormatDate(run.Request.StartDate),
		"end_date":           util.FormatDate(run.Request.EndDate),
		"hold_years":         run.Request.HoldYears,
		"top_k":              run.Request.TopK,
		"total_trading_days": run.TotalTradingDays,
		"total_picks":        len(run.Picks),
		"summaries":          run.Summaries,
		"suggested_formulas": run.Formulas,
		"completed_at":       run.CompletedAt.Unix(),
	}
}

func pickMessage(runID string, pk models.Pick) map[string]interface{} {
	return map[string]interface{}{
		"run_id":           runID,
		"loser_date":       util.FormatDate(pk.LoserDate),
		"ticker":           pk.Ticker,
		"daily_loss_pct":   pk.DailyLossPct,
		"rank":             pk.Rank,
		"industry":         pk.Industry,
		"confidence_score": pk.ConfidenceScore,
		"purchase_price":   pk.PurchasePrice,
		"returns":          pk.Returns,
	}
}
