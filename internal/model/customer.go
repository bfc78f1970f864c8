package model

import "time"

// CustomerRecord is one validated row from an uploaded customer export.
// Immutable once created by ingestion.
type CustomerRecord struct {
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	LastOrderDate time.Time `json:"last_order_date"`
	RowIndex      int       `json:"row_index"` // 1-based position in the upload
}

// RowError describes a single rejected row. Every input row becomes
// exactly one of CustomerRecord or RowError.
type RowError struct {
	RowIndex int    `json:"row_index"`
	Reason   string `json:"reason"`
}
