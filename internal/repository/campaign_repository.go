package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tablereach/rengage-backend/internal/model"
)

// CampaignStore persists campaign records and their delivery outcomes.
// GetByID returns (nil, nil) for unknown IDs; the service layer owns the
// not-found error.
type CampaignStore interface {
	Create(ctx context.Context, record *model.CampaignRecord) error
	UpdateState(ctx context.Context, id string, state model.CampaignState) error
	AppendOutcome(ctx context.Context, outcome model.DeliveryOutcome) error
	GetByID(ctx context.Context, id string) (*model.CampaignRecord, error)
	List(ctx context.Context, offset, limit int) ([]model.CampaignRecord, int, error)
}

// PostgresCampaignStore is the production CampaignStore.
type PostgresCampaignStore struct {
	DB *sql.DB
}

func (r *PostgresCampaignStore) Create(ctx context.Context, c *model.CampaignRecord) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
        INSERT INTO campaigns
        (id, restaurant_name, offer, offer_code, template, state,
         total_uploaded, total_invalid_rows, segment_size, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.RestaurantName, c.Offer, c.OfferCode, c.Template, c.State,
		c.TotalUploaded, c.TotalInvalidRows, c.SegmentSize, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *PostgresCampaignStore) UpdateState(ctx context.Context, id string, state model.CampaignState) error {
	query := `UPDATE campaigns SET state=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, state, time.Now().UTC(), id)
	return err
}

func (r *PostgresCampaignStore) AppendOutcome(ctx context.Context, o model.DeliveryOutcome) error {
	query := `
        INSERT INTO delivery_outcomes
        (campaign_id, message_index, phone, status, provider_message_id,
         error_code, error_message, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.DB.ExecContext(ctx, query,
		o.CampaignID, o.MessageIndex, o.Phone, o.Status, o.ProviderMessageID,
		o.ErrorCode, o.ErrorMessage, o.OccurredAt,
	)
	return err
}

func (r *PostgresCampaignStore) GetByID(ctx context.Context, id string) (*model.CampaignRecord, error) {
	query := `
        SELECT id, restaurant_name, offer, offer_code, template, state,
               total_uploaded, total_invalid_rows, segment_size, created_at, updated_at
        FROM campaigns
        WHERE id = $1
    `
	row := r.DB.QueryRowContext(ctx, query, id)

	var c model.CampaignRecord
	if err := row.Scan(
		&c.ID, &c.RestaurantName, &c.Offer, &c.OfferCode, &c.Template, &c.State,
		&c.TotalUploaded, &c.TotalInvalidRows, &c.SegmentSize, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}

	outcomes, err := r.outcomesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Outcomes = outcomes
	return &c, nil
}

func (r *PostgresCampaignStore) outcomesFor(ctx context.Context, campaignID string) ([]model.DeliveryOutcome, error) {
	query := `
        SELECT campaign_id, message_index, phone, status, provider_message_id,
               error_code, error_message, occurred_at
        FROM delivery_outcomes
        WHERE campaign_id = $1
        ORDER BY message_index
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outcomes := []model.DeliveryOutcome{}
	for rows.Next() {
		var o model.DeliveryOutcome
		if err := rows.Scan(
			&o.CampaignID, &o.MessageIndex, &o.Phone, &o.Status, &o.ProviderMessageID,
			&o.ErrorCode, &o.ErrorMessage, &o.OccurredAt,
		); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func (r *PostgresCampaignStore) List(ctx context.Context, offset, limit int) ([]model.CampaignRecord, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, restaurant_name, offer, offer_code, template, state,
               total_uploaded, total_invalid_rows, segment_size, created_at, updated_at
        FROM campaigns
        ORDER BY created_at DESC
        OFFSET $1 LIMIT $2
    `
	rows, err := r.DB.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []model.CampaignRecord{}
	for rows.Next() {
		var c model.CampaignRecord
		if err := rows.Scan(
			&c.ID, &c.RestaurantName, &c.Offer, &c.OfferCode, &c.Template, &c.State,
			&c.TotalUploaded, &c.TotalInvalidRows, &c.SegmentSize, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}
