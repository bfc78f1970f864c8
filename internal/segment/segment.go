package segment

import (
	"time"

	"github.com/tablereach/rengage-backend/internal/model"
)

// DefaultThresholdDays is the recency cutoff used when none is configured.
const DefaultThresholdDays = 30

// Lapsed filters customers whose last order predates asOf by more than
// thresholdDays. Membership is a pure function of the inputs; an empty
// result is a valid outcome, not an error. Input order is preserved.
func Lapsed(customers []model.CustomerRecord, thresholdDays int, asOf time.Time) []model.CustomerRecord {
	if thresholdDays <= 0 {
		thresholdDays = DefaultThresholdDays
	}

	cutoff := time.Duration(thresholdDays) * 24 * time.Hour

	lapsed := []model.CustomerRecord{}
	for _, customer := range customers {
		if asOf.Sub(customer.LastOrderDate) > cutoff {
			lapsed = append(lapsed, customer)
		}
	}
	return lapsed
}
