package repository

import (
	"context"
	"database/sql"
	"time"
)

// EventRepository archives delivery events consumed off the broker into
// an append-only audit table.
type EventRepository struct {
	DB *sql.DB
}

func (r *EventRepository) Archive(ctx context.Context, eventType, campaignID string, payload []byte) error {
	query := `
        INSERT INTO campaign_events (event_type, campaign_id, payload, received_at)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.DB.ExecContext(ctx, query, eventType, campaignID, payload, time.Now().UTC())
	return err
}
