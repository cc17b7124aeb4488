package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PointsReason codes every way the points engine credits or debits a user.
// (ref_id, reason) is the idempotency key: at most one entry may exist per
// triggering event per reason, so re-delivery of an event is a no-op.
type PointsReason string

const (
	PointsReasonZeroVarianceBonus        PointsReason = "ZERO_VARIANCE_BONUS"
	PointsReasonPositiveVarianceBonus    PointsReason = "POSITIVE_VARIANCE_BONUS"
	PointsReasonNegativeVariancePenalty  PointsReason = "NEGATIVE_VARIANCE_PENALTY"
	PointsReasonOnTimeSubmission         PointsReason = "ON_TIME_SUBMISSION"
	PointsReasonLateSubmission           PointsReason = "LATE_SUBMISSION"
	PointsReasonRepeatedNegativeVariance PointsReason = "REPEATED_NEGATIVE_VARIANCE"
	PointsReasonMissedSettlement         PointsReason = "MISSED_SETTLEMENT"
	PointsReasonTransferApproved         PointsReason = "TRANSFER_APPROVED"
	PointsReasonManualAdjustment         PointsReason = "MANUAL_ADJUSTMENT"
)

// Referenced entity kinds for points entries
const (
	PointsRefTypeSettlement = "SETTLEMENT"
	PointsRefTypeVariance   = "VARIANCE"
	PointsRefTypeTransfer   = "TRANSFER"
	PointsRefTypeShopDate   = "SHOP_DATE"
)

// StaffPointsEntry is one immutable performance credit or debit
type StaffPointsEntry struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ShopID        uuid.UUID
	PointsChange  int // positive reward, negative penalty
	Reason        PointsReason
	ReasonDetails string
	RefID         uuid.UUID
	RefType       string
	EffectiveDate time.Time
	CreatedAt     time.Time
}

// PointsConfig holds the tunable scoring values. Defaults follow the shipped
// configuration; individual keys may be overridden from storage.
type PointsConfig struct {
	ZeroVarianceBonus        int
	PositiveVarianceBonus    int
	NegativePenaltyPerKg     int // applied per started kg, negative
	OnTimeSubmissionBonus    int
	LateSubmissionPenalty    int
	RepeatedNegativePenalty  int
	MissedSettlementPenalty  int
	TransferApprovedBonus    int
	RepeatedNegativeWindow   int // trailing days scanned
	RepeatedNegativeOccurred int // distinct dates that trip the penalty
}

// DefaultPointsConfig returns the shipped scoring values
func DefaultPointsConfig() PointsConfig {
	return PointsConfig{
		ZeroVarianceBonus:        5,
		PositiveVarianceBonus:    3,
		NegativePenaltyPerKg:     -8,
		OnTimeSubmissionBonus:    2,
		LateSubmissionPenalty:    -3,
		RepeatedNegativePenalty:  -20,
		MissedSettlementPenalty:  -5,
		TransferApprovedBonus:    0,
		RepeatedNegativeWindow:   3,
		RepeatedNegativeOccurred: 3,
	}
}

// NegativeVariancePoints computes the penalty for a deducted stock variance:
// the per-kg penalty times the weight rounded up to whole kilograms. A zero
// weight (LIVE count-only variances) scores zero.
func (c PointsConfig) NegativeVariancePoints(weightKg decimal.Decimal) int {
	if !weightKg.IsPositive() {
		return 0
	}
	wholeKg := weightKg.Ceil().IntPart()
	return c.NegativePenaltyPerKg * int(wholeKg)
}

// CurrencyVariancePoints computes the penalty for a deducted cash or UPI
// variance. Currency shortfalls have no weight, so the base per-kg penalty is
// applied once.
func (c PointsConfig) CurrencyVariancePoints() int {
	return c.NegativePenaltyPerKg
}

// TimelinessPoints scores a first submission: on time when the submission
// instant, viewed in the shop's timezone, falls on or before the settlement
// date's calendar day.
func (c PointsConfig) TimelinessPoints(submittedAt time.Time, settlementDate time.Time, loc *time.Location) (PointsReason, int) {
	local := submittedAt.In(loc)
	submittedDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	settleDay := time.Date(settlementDate.Year(), settlementDate.Month(), settlementDate.Day(), 0, 0, 0, 0, time.UTC)
	if !submittedDay.After(settleDay) {
		return PointsReasonOnTimeSubmission, c.OnTimeSubmissionBonus
	}
	return PointsReasonLateSubmission, c.LateSubmissionPenalty
}

// PointsSummary aggregates a user's balance over common windows
type PointsSummary struct {
	UserID      uuid.UUID
	Total       int
	MonthToDate int
	Today       int
	Rank        int // 0 when unranked
}

// LeaderboardRow is one row of the points leaderboard
type LeaderboardRow struct {
	Rank        int
	UserID      uuid.UUID
	TotalPoints int
}

// PointsFilter narrows points history listings
type PointsFilter struct {
	UserID   uuid.UUID
	ShopID   uuid.UUID
	FromDate time.Time
	ToDate   time.Time
	Limit    int
	Offset   int
}
