// Package reporting keeps a journal of executed connector flows and summarizes it.
package reporting

import (
	"time"
)

const (
	outcomeSuccess = "SUCCESS"
	outcomePending = "PENDING"
	outcomeFailure = "FAILURE"

	flowAuthorize = "authorize"
	flowPSync     = "psync"
	flowRefund    = "refund"
	flowRSync     = "rsync"
)

// RetrospectiveReport summarizes connector activity over a set of journal entries.
type RetrospectiveReport struct {
	TotalRequests        int              `json:"total_requests"`
	SuccessfulFlows      int              `json:"successful_flows"`
	PendingFlows         int              `json:"pending_flows"`
	FailedFlows          int              `json:"failed_flows"`
	TotalAmountProcessed int64            `json:"total_amount_processed"` // Successful payment flows only
	AmountByCurrency     map[string]int64 `json:"amount_by_currency"`     // Successful payment flows, by currency
	RefundedByCurrency   map[string]int64 `json:"refunded_by_currency"`   // Successful refund flows, by currency
	ErrorBreakdown       map[string]int   `json:"error_breakdown"`        // Count of each ErrorCode for failed flows
	FlowUsage            map[string]int   `json:"flow_usage"`
	ConnectorUsage       map[string]int   `json:"connector_usage"`
	DateFrom             time.Time        `json:"date_from"`
	DateTo               time.Time        `json:"date_to"`
	ProcessingDuration   time.Duration    `json:"processing_duration"`
}

// RetrospectiveReporter generates retrospective reports from journal entries.
type RetrospectiveReporter struct{}

// NewRetrospectiveReporter creates a new RetrospectiveReporter.
func NewRetrospectiveReporter() *RetrospectiveReporter {
	return &RetrospectiveReporter{}
}

func newReport() *RetrospectiveReport {
	return &RetrospectiveReport{
		AmountByCurrency:   make(map[string]int64),
		RefundedByCurrency: make(map[string]int64),
		ErrorBreakdown:     make(map[string]int),
		FlowUsage:          make(map[string]int),
		ConnectorUsage:     make(map[string]int),
	}
}

// GenerateRetrospective analyzes entries and produces a RetrospectiveReport.
func (rr *RetrospectiveReporter) GenerateRetrospective(entries []JournalEntry) (*RetrospectiveReport, error) {
	report := newReport()
	if len(entries) == 0 {
		return report, nil
	}

	report.DateFrom = entries[0].Timestamp
	report.DateTo = entries[0].Timestamp
	for _, e := range entries {
		report.TotalRequests++

		if e.Timestamp.Before(report.DateFrom) {
			report.DateFrom = e.Timestamp
		}
		if e.Timestamp.After(report.DateTo) {
			report.DateTo = e.Timestamp
		}
		if e.Flow != "" {
			report.FlowUsage[e.Flow]++
		}
		if e.Connector != "" {
			report.ConnectorUsage[e.Connector]++
		}

		switch e.Outcome {
		case outcomeSuccess:
			report.SuccessfulFlows++
			switch e.Flow {
			case flowAuthorize, flowPSync:
				report.TotalAmountProcessed += e.Amount
				report.AmountByCurrency[e.Currency] += e.Amount
			case flowRefund, flowRSync:
				report.RefundedByCurrency[e.Currency] += e.Amount
			}
		case outcomePending:
			report.PendingFlows++
		case outcomeFailure:
			report.FailedFlows++
			if e.ErrorCode != "" {
				report.ErrorBreakdown[e.ErrorCode]++
			}
		}
	}
	report.ProcessingDuration = report.DateTo.Sub(report.DateFrom)
	return report, nil
}
