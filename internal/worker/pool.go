package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueReceipt = "jobs:receipt"

// Job is the generic envelope for async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ReceiptPayload identifies the invoice to render.
type ReceiptPayload struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
}

// Dispatcher enqueues fire-and-forget jobs into redis lists; the worker pool
// dequeues them via BRPOP. Enqueue failures are the caller's to ignore — the
// checkout outcome never depends on a receipt.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher { return &Dispatcher{rdb: rdb} }

// EnqueueReceipt pushes a receipt render job.
func (d *Dispatcher) EnqueueReceipt(ctx context.Context, invoiceID uuid.UUID) error {
	payload, err := json.Marshal(ReceiptPayload{InvoiceID: invoiceID})
	if err != nil {
		return err
	}
	job := Job{Type: "receipt", Payload: payload}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueReceipt, encoded).Err()
}

// ReceiptHandler renders the receipt for a completed invoice.
type ReceiptHandler interface {
	Render(ctx context.Context, invoiceID uuid.UUID) error
}

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, receipts ReceiptHandler, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, receipts, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, receipts ReceiptHandler, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueReceipt).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, receipts, result[1])
		}
	}
}

func processJob(ctx context.Context, receipts ReceiptHandler, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Msg("worker: failed to unmarshal job")
		return
	}
	switch job.Type {
	case "receipt":
		var payload ReceiptPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			log.Error().Err(err).Msg("worker: bad receipt payload")
			return
		}
		if err := receipts.Render(ctx, payload.InvoiceID); err != nil {
			log.Error().Err(err).Str("invoice_id", payload.InvoiceID.String()).
				Msg("worker: receipt render failed")
		}
	default:
		log.Warn().Str("type", job.Type).Msg("worker: unknown job type")
	}
}
