package model

import "time"

// CampaignState is the lifecycle state of a committed campaign.
type CampaignState string

const (
	CampaignCreated     CampaignState = "created"
	CampaignDispatching CampaignState = "dispatching"
	CampaignCompleted   CampaignState = "completed"
)

// CampaignRecord is the aggregate root for one committed re-engagement
// campaign. It is created only by a commit (never a preview), mutated
// only by appending outcomes and advancing state, and immutable once
// the state reaches completed.
type CampaignRecord struct {
	ID               string            `db:"id" json:"id"`
	RestaurantName   string            `db:"restaurant_name" json:"restaurant_name"`
	Offer            string            `db:"offer" json:"offer"`
	OfferCode        string            `db:"offer_code" json:"offer_code"`
	Template         string            `db:"template" json:"template"`
	State            CampaignState     `db:"state" json:"state"`
	TotalUploaded    int               `db:"total_uploaded" json:"total_uploaded"`
	TotalInvalidRows int               `db:"total_invalid_rows" json:"total_invalid_rows"`
	SegmentSize      int               `db:"segment_size" json:"segment_size"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
	Outcomes         []DeliveryOutcome `json:"outcomes"`
}
