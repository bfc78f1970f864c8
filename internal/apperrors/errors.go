package apperrors

import "fmt"

// ErrSchemaInvalid means the upload is structurally unusable (a required
// column is missing or the file is not parseable). Batch-fatal: nothing
// downstream runs.
type ErrSchemaInvalid struct {
	Reason string
}

func (e *ErrSchemaInvalid) Error() string {
	return fmt.Sprintf("upload schema invalid: %s", e.Reason)
}

func NewSchemaInvalid(reason string) error {
	return &ErrSchemaInvalid{Reason: reason}
}

// ErrEmptyInput means no row in the upload survived validation.
type ErrEmptyInput struct {
	TotalRows int
}

func (e *ErrEmptyInput) Error() string {
	return fmt.Sprintf("no valid customer rows in upload (%d rows rejected)", e.TotalRows)
}

func NewEmptyInput(totalRows int) error {
	return &ErrEmptyInput{TotalRows: totalRows}
}

// ErrCampaignNotFound is returned by status queries for unknown campaign IDs.
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrDuplicateCommit means an identical commit was already accepted inside
// the idempotency window. Duplicate submissions are rejected, not re-run.
type ErrDuplicateCommit struct {
	IdempotencyKey string
}

func (e *ErrDuplicateCommit) Error() string {
	return fmt.Sprintf("duplicate campaign commit (key %s) inside idempotency window", e.IdempotencyKey)
}

func NewDuplicateCommit(key string) error {
	return &ErrDuplicateCommit{IdempotencyKey: key}
}
