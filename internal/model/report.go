package model

// CampaignReport is derived from a CampaignRecord's outcomes. It is never
// stored; callers recompute it so it can never drift from the outcomes.
type CampaignReport struct {
	CampaignID      string        `json:"campaign_id"`
	State           CampaignState `json:"state"`
	SegmentSize     int           `json:"segment_size"`
	MessagesSent    int           `json:"messages_sent"`
	MessagesPending int           `json:"messages_pending"`
	MessagesFailed  int           `json:"messages_failed"`
	DeliveryRate    float64       `json:"delivery_rate"`
	TotalCost       float64       `json:"total_cost"`
}

// BuildReport rolls the record's outcomes up into a report. A record still
// in the dispatching state yields a partial report over the outcomes
// recorded so far.
func BuildReport(record *CampaignRecord, perMessageCost float64) CampaignReport {
	report := CampaignReport{
		CampaignID:  record.ID,
		State:       record.State,
		SegmentSize: record.SegmentSize,
	}

	for _, outcome := range record.Outcomes {
		switch outcome.Status {
		case DeliverySent:
			report.MessagesSent++
		case DeliveryPending:
			report.MessagesPending++
		case DeliveryFailed:
			report.MessagesFailed++
		}
	}

	if record.SegmentSize > 0 {
		report.DeliveryRate = float64(report.MessagesSent) / float64(record.SegmentSize)
	}
	report.TotalCost = float64(report.MessagesSent) * perMessageCost

	return report
}
