package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tablereach/rengage-backend/internal/model"
	"github.com/tablereach/rengage-backend/internal/transport"
)

const (
	DefaultWorkers     = 10
	DefaultSendTimeout = 10 * time.Second
)

// OutcomeSink receives every outcome as soon as it is recorded, before the
// batch finishes. It is always called from a single collector goroutine,
// so implementations need no locking of their own.
type OutcomeSink func(model.DeliveryOutcome)

// Dispatcher fans personalized messages out to the transport with a
// bounded worker pool. One recipient's failure or timeout never blocks or
// aborts the rest of the batch.
type Dispatcher struct {
	Transport   transport.Transport
	Workers     int
	SendTimeout time.Duration
	Log         *zap.Logger
}

func New(t transport.Transport, workers int, sendTimeout time.Duration, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{Transport: t, Workers: workers, SendTimeout: sendTimeout, Log: log}
}

type job struct {
	index int
	msg   model.PersonalizedMessage
}

// Dispatch sends the batch and returns one outcome per message, in the
// original submission order. On cancellation no new sends start, in-flight
// sends run to completion, and only the outcomes actually recorded are
// returned. sink may be nil.
func (d *Dispatcher) Dispatch(ctx context.Context, campaignID string, messages []model.PersonalizedMessage, sink OutcomeSink) []model.DeliveryOutcome {
	if len(messages) == 0 {
		return []model.DeliveryOutcome{}
	}

	workers := d.Workers
	if workers > len(messages) {
		workers = len(messages)
	}

	jobs := make(chan job)
	results := make(chan model.DeliveryOutcome)

	go func() {
		defer close(jobs)
		for i, msg := range messages {
			select {
			case jobs <- job{index: i, msg: msg}:
			case <-ctx.Done():
				d.Log.Info("dispatch cancelled, no new sends will start",
					zap.String("campaign_id", campaignID),
					zap.Int("submitted", i))
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- d.sendOne(ctx, campaignID, j)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single collector goroutine (this one) owns the outcome slice and the
	// sink; workers never touch shared state directly.
	outcomes := make([]model.DeliveryOutcome, 0, len(messages))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
		if sink != nil {
			sink(outcome)
		}
	}

	// Completion order is nondeterministic; reports are not.
	sort.Slice(outcomes, func(a, b int) bool {
		return outcomes[a].MessageIndex < outcomes[b].MessageIndex
	})
	return outcomes
}

// sendOne performs a single transport call under the per-send timeout. The
// send context is detached from the batch context so that cancelling the
// batch lets in-flight calls finish instead of abandoning them in an
// ambiguous provider-side state.
func (d *Dispatcher) sendOne(ctx context.Context, campaignID string, j job) model.DeliveryOutcome {
	outcome := model.DeliveryOutcome{
		CampaignID:   campaignID,
		MessageIndex: j.index,
		Phone:        j.msg.Customer.Phone,
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.SendTimeout)
	defer cancel()

	result, err := d.Transport.Send(sendCtx, j.msg.Customer.Phone, j.msg.Body)
	outcome.OccurredAt = time.Now().UTC()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome.Status = model.DeliveryFailed
		outcome.ErrorCode = model.ErrCodeTimeout
		outcome.ErrorMessage = "send timed out after " + d.SendTimeout.String()
		d.Log.Warn("send timed out",
			zap.String("campaign_id", campaignID),
			zap.Int("message_index", j.index))
	case err != nil:
		outcome.Status = model.DeliveryFailed
		outcome.ErrorCode = model.ErrCodeTransportFailure
		outcome.ErrorMessage = err.Error()
	case result.ErrorCode != "":
		outcome.Status = model.DeliveryFailed
		outcome.ProviderMessageID = result.ProviderMessageID
		outcome.ErrorCode = result.ErrorCode
		outcome.ErrorMessage = result.ErrorMessage
	case result.Pending:
		outcome.Status = model.DeliveryPending
		outcome.ProviderMessageID = result.ProviderMessageID
	default:
		outcome.Status = model.DeliverySent
		outcome.ProviderMessageID = result.ProviderMessageID
	}

	return outcome
}
