package service

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tablereach/rengage-backend/internal/apperrors"
	"github.com/tablereach/rengage-backend/internal/dispatch"
	"github.com/tablereach/rengage-backend/internal/idempotency"
	"github.com/tablereach/rengage-backend/internal/ingest"
	"github.com/tablereach/rengage-backend/internal/model"
	"github.com/tablereach/rengage-backend/internal/personalize"
	"github.com/tablereach/rengage-backend/internal/queue"
	"github.com/tablereach/rengage-backend/internal/repository"
	"github.com/tablereach/rengage-backend/internal/segment"
	"github.com/tablereach/rengage-backend/internal/textgen"
)

// CampaignService orchestrates the re-engagement pipeline: ingestion,
// segmentation, personalization, dispatch, and the campaign ledger.
type CampaignService struct {
	Store       repository.CampaignStore
	Dispatcher  *dispatch.Dispatcher
	Idempotency idempotency.Store
	Publisher   queue.Publisher
	Generator   textgen.Generator
	Log         *zap.Logger

	ThresholdDays     int
	PerMessageCost    float64
	IdempotencyWindow time.Duration
	PreviewSampleSize int

	// Now is the clock used for segmentation; tests override it.
	Now func() time.Time
}

// CampaignRequest is one upload plus its campaign parameters, shared by
// preview and commit.
type CampaignRequest struct {
	RestaurantName string
	Offer          string
	OfferCode      string
	Template       string
	Upload         []byte
}

// CampaignPreview is the non-mutating dry run shown before commit. It is
// never persisted and carries no campaign ID.
type CampaignPreview struct {
	RestaurantName    string                      `json:"restaurant_name"`
	TotalUploaded     int                         `json:"total_uploaded"`
	TotalInvalidRows  int                         `json:"total_invalid_rows"`
	SegmentSize       int                         `json:"segment_size"`
	NoLapsedCustomers bool                        `json:"no_lapsed_customers"`
	SampleMessages    []model.PersonalizedMessage `json:"sample_messages"`
	RowErrors         []model.RowError            `json:"csv_errors"`
}

// CommitResult is the outcome of one commit. Record is nil when the
// segment was empty: nothing to dispatch means no record and no cost.
type CommitResult struct {
	Record            *model.CampaignRecord
	Report            *model.CampaignReport
	RowErrors         []model.RowError
	TotalUploaded     int
	NoLapsedCustomers bool
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Preview runs ingestion, segmentation, and personalization on a sample of
// the segment. Safe to repeat: it never creates a CampaignRecord and never
// touches the transport.
func (s *CampaignService) Preview(ctx context.Context, req CampaignRequest) (*CampaignPreview, error) {
	customers, rowErrors, totalRows, err := s.ingest(req.Upload)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, apperrors.NewEmptyInput(totalRows)
	}

	lapsed := segment.Lapsed(customers, s.ThresholdDays, s.now())

	preview := &CampaignPreview{
		RestaurantName:    req.RestaurantName,
		TotalUploaded:     totalRows,
		TotalInvalidRows:  len(rowErrors),
		SegmentSize:       len(lapsed),
		NoLapsedCustomers: len(lapsed) == 0,
		SampleMessages:    []model.PersonalizedMessage{},
		RowErrors:         rowErrors,
	}

	template := s.resolveTemplate(ctx, req)

	sample := lapsed
	if s.PreviewSampleSize > 0 && len(sample) > s.PreviewSampleSize {
		sample = sample[:s.PreviewSampleSize]
	}
	for _, customer := range sample {
		preview.SampleMessages = append(preview.SampleMessages, personalize.Personalize(customer, template, personalize.Vars{
			Restaurant: req.RestaurantName,
			Offer:      req.Offer,
			Code:       req.OfferCode,
		}))
	}

	return preview, nil
}

// Commit runs the full pipeline and persists a CampaignRecord. The record
// moves created -> dispatching -> completed; outcomes are appended
// incrementally so status queries see progress while a batch is sending.
// Cancellation lets in-flight sends finish, starts no new ones, and still
// closes the record as completed over whatever was recorded.
func (s *CampaignService) Commit(ctx context.Context, req CampaignRequest) (*CommitResult, error) {
	customers, rowErrors, totalRows, err := s.ingest(req.Upload)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, apperrors.NewEmptyInput(totalRows)
	}

	lapsed := segment.Lapsed(customers, s.ThresholdDays, s.now())
	if len(lapsed) == 0 {
		s.Log.Info("no lapsed customers, nothing to dispatch",
			zap.String("restaurant", req.RestaurantName),
			zap.Int("valid_customers", len(customers)))
		return &CommitResult{
			RowErrors:         rowErrors,
			TotalUploaded:     totalRows,
			NoLapsedCustomers: true,
		}, nil
	}

	key := idempotency.Key(req.RestaurantName, req.OfferCode, req.Upload)
	reserved, err := s.Idempotency.Reserve(ctx, key, s.IdempotencyWindow)
	if err != nil {
		// The guard failing open beats refusing every commit while the
		// store is down.
		s.Log.Warn("idempotency store unavailable, allowing commit", zap.Error(err))
	} else if !reserved {
		return nil, apperrors.NewDuplicateCommit(key)
	}

	template := s.resolveTemplate(ctx, req)

	record := &model.CampaignRecord{
		ID:               uuid.NewString(),
		RestaurantName:   req.RestaurantName,
		Offer:            req.Offer,
		OfferCode:        req.OfferCode,
		Template:         template,
		State:            model.CampaignCreated,
		TotalUploaded:    totalRows,
		TotalInvalidRows: len(rowErrors),
		SegmentSize:      len(lapsed),
	}
	if err := s.Store.Create(ctx, record); err != nil {
		return nil, err
	}

	messages := make([]model.PersonalizedMessage, 0, len(lapsed))
	for _, customer := range lapsed {
		messages = append(messages, personalize.Personalize(customer, template, personalize.Vars{
			Restaurant: req.RestaurantName,
			Offer:      req.Offer,
			Code:       req.OfferCode,
		}))
	}

	if err := s.Store.UpdateState(ctx, record.ID, model.CampaignDispatching); err != nil {
		return nil, err
	}
	record.State = model.CampaignDispatching

	s.Log.Info("dispatching campaign",
		zap.String("campaign_id", record.ID),
		zap.String("restaurant", req.RestaurantName),
		zap.Int("segment_size", len(messages)))

	// Persistence of outcomes must survive a cancelled commit; the record
	// is closed out over whatever was actually recorded.
	persistCtx := context.WithoutCancel(ctx)

	sink := func(outcome model.DeliveryOutcome) {
		if err := s.Store.AppendOutcome(persistCtx, outcome); err != nil {
			s.Log.Error("failed to append outcome",
				zap.String("campaign_id", record.ID),
				zap.Int("message_index", outcome.MessageIndex),
				zap.Error(err))
		}
		s.publish(persistCtx, queue.Event{
			Type:       queue.EventDeliveryOutcome,
			CampaignID: record.ID,
			Outcome:    &outcome,
			OccurredAt: outcome.OccurredAt,
		})
	}

	record.Outcomes = s.Dispatcher.Dispatch(ctx, record.ID, messages, sink)

	if err := s.Store.UpdateState(persistCtx, record.ID, model.CampaignCompleted); err != nil {
		return nil, err
	}
	record.State = model.CampaignCompleted

	s.publish(persistCtx, queue.Event{
		Type:       queue.EventCampaignCompleted,
		CampaignID: record.ID,
		OccurredAt: time.Now().UTC(),
	})

	report := model.BuildReport(record, s.PerMessageCost)

	s.Log.Info("campaign completed",
		zap.String("campaign_id", record.ID),
		zap.Int("sent", report.MessagesSent),
		zap.Int("pending", report.MessagesPending),
		zap.Int("failed", report.MessagesFailed),
		zap.Float64("total_cost", report.TotalCost))

	return &CommitResult{
		Record:        record,
		Report:        &report,
		RowErrors:     rowErrors,
		TotalUploaded: totalRows,
	}, nil
}

// GetStatus recomputes the report from the persisted record. A record
// still dispatching yields a partial report over outcomes so far.
func (s *CampaignService) GetStatus(ctx context.Context, campaignID string) (*model.CampaignReport, error) {
	record, err := s.Store.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NewCampaignNotFound(campaignID)
	}

	report := model.BuildReport(record, s.PerMessageCost)
	return &report, nil
}

// ListCampaigns returns persisted campaign records with pagination.
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int) ([]model.CampaignRecord, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	campaigns, total, err := s.Store.List(ctx, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

func (s *CampaignService) ingest(upload []byte) ([]model.CustomerRecord, []model.RowError, int, error) {
	table, err := ingest.ReadTable(bytes.NewReader(upload))
	if err != nil {
		return nil, nil, 0, err
	}
	customers, rowErrors, err := ingest.Ingest(table)
	if err != nil {
		return nil, nil, 0, err
	}
	return customers, rowErrors, len(table.Rows), nil
}

// resolveTemplate prefers the caller's template, then generated copy, then
// the literal default. Generation failures degrade, never abort.
func (s *CampaignService) resolveTemplate(ctx context.Context, req CampaignRequest) string {
	if req.Template != "" {
		return req.Template
	}
	if s.Generator == nil {
		return personalize.DefaultTemplate
	}

	generated, err := s.Generator.Generate(ctx, textgen.KindSMS, textgen.Context{
		RestaurantName: req.RestaurantName,
		Offer:          req.Offer,
		OfferCode:      req.OfferCode,
	})
	if err != nil || generated == "" {
		s.Log.Warn("text generation unavailable, using default template", zap.Error(err))
		return personalize.DefaultTemplate
	}
	return generated
}

func (s *CampaignService) publish(ctx context.Context, event queue.Event) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Log.Warn("failed to publish campaign event",
			zap.String("type", event.Type),
			zap.String("campaign_id", event.CampaignID),
			zap.Error(err))
	}
}
