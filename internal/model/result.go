package model

import "time"

// VerificationStatus is the terminal classification of a verification.
type VerificationStatus string

const (
	StatusVerified          VerificationStatus = "VERIFIED"
	StatusPartiallyVerified VerificationStatus = "PARTIALLY_VERIFIED"
	StatusUnverified        VerificationStatus = "UNVERIFIED"
)

// Confidence thresholds shared by the reconciler and the orchestrator.
// A result is VERIFIED only above VerifiedThreshold with a clean discrepancy
// set; below PartialThreshold (or with too many discrepancies) it is
// UNVERIFIED.
const (
	VerifiedThreshold = 0.8
	PartialThreshold  = 0.5

	// MaxDiscrepanciesForPartial is the discrepancy count above which a
	// result is UNVERIFIED regardless of confidence.
	MaxDiscrepanciesForPartial = 2
)

// StatusFor derives a verification status from a confidence score and a
// discrepancy count using the shared thresholds.
func StatusFor(confidence float64, discrepancies int) VerificationStatus {
	switch {
	case confidence >= VerifiedThreshold && discrepancies == 0:
		return StatusVerified
	case confidence < PartialThreshold || discrepancies > MaxDiscrepanciesForPartial:
		return StatusUnverified
	default:
		return StatusPartiallyVerified
	}
}

// Clamp01 constrains a score to [0,1]. Every score and impact stored on a
// model type passes through this.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SourceReliability is the trust assessment of a content source.
// Immutable once computed.
type SourceReliability struct {
	Domain              string  `json:"domain"`
	Score               float64 `json:"score"` // [0,1]
	IsVerifiedPublisher bool    `json:"is_verified_publisher"`
}

// Discrepancy records one field that diverged between reported and extracted
// facts. Impact weights how material the divergence is to verification.
type Discrepancy struct {
	Field          string  `json:"field"`
	ReportedValue  string  `json:"reported_value"`
	ExtractedValue string  `json:"extracted_value"`
	Impact         float64 `json:"impact"` // [0,1]
}

// VerificationResult is the terminal artifact of the pipeline for one
// announcement. Written once, appended to the output store.
type VerificationResult struct {
	VerificationID string             `json:"verification_id"`
	AnnouncementID string             `json:"announcement_id"`
	CompanyName    string             `json:"company_name"`
	Status         VerificationStatus `json:"verification_status"`
	Confidence     float64            `json:"overall_confidence"` // [0,1]
	SourceURL      string             `json:"source_url,omitempty"`
	Reliability    *SourceReliability `json:"source_reliability,omitempty"`
	Discrepancies  []Discrepancy      `json:"discrepancies"`
	Notes          string             `json:"verification_notes"`
	VerifiedAt     time.Time          `json:"verified_at"`
}

// RunSummary aggregates a completed batch run.
type RunSummary struct {
	RunID          string                     `json:"run_id"`
	Total          int                        `json:"total"`
	Processed      int                        `json:"processed"`
	Verified       int                        `json:"verified"`
	Errors         int                        `json:"errors"`
	ByStatus       map[VerificationStatus]int `json:"by_status"`
	MeanConfidence float64                    `json:"mean_confidence"`
	StartedAt      time.Time                  `json:"started_at"`
	FinishedAt     time.Time                  `json:"finished_at"`
}
