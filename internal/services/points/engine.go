package points

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
	"github.com/poultryops/settlement-service/pkg/observability"
)

// Configuration override keys stored in points_config
const (
	configKeyZeroVarianceBonus        = "zero_variance_bonus"
	configKeyPositiveVarianceBonus    = "positive_variance_bonus"
	configKeyNegativePenaltyPerKg     = "negative_penalty_per_kg"
	configKeyOnTimeSubmissionBonus    = "on_time_submission_bonus"
	configKeyLateSubmissionPenalty    = "late_submission_penalty"
	configKeyRepeatedNegativePenalty  = "repeated_negative_penalty"
	configKeyMissedSettlementPenalty  = "missed_settlement_penalty"
	configKeyTransferApprovedBonus    = "transfer_approved_bonus"
	configKeyRepeatedNegativeWindow   = "repeated_negative_window_days"
	configKeyRepeatedNegativeOccurred = "repeated_negative_occurrences"
)

const leaderboardCacheTTL = 5 * time.Minute

// Engine scores staff performance from settlement and transfer events. Every
// write goes through the (ref_id, reason) idempotency key, so reactors may be
// re-invoked safely and scheduled scans may overlap previous runs.
type Engine struct {
	db          ports.DBPort
	points      ports.PointsRepository
	variances   ports.VarianceRepository
	settlements ports.SettlementRepository
	directory   ports.ShopDirectory
	cache       ports.LeaderboardCache
	clock       ports.Clock
	logger      *zap.Logger
}

func NewEngine(
	db ports.DBPort,
	points ports.PointsRepository,
	variances ports.VarianceRepository,
	settlements ports.SettlementRepository,
	directory ports.ShopDirectory,
	cache ports.LeaderboardCache,
	clock ports.Clock,
	logger *zap.Logger,
) *Engine {
	if cache == nil {
		cache = ports.NoopLeaderboardCache{}
	}
	return &Engine{
		db:          db,
		points:      points,
		variances:   variances,
		settlements: settlements,
		directory:   directory,
		cache:       cache,
		clock:       clock,
		logger:      logger,
	}
}

// Config merges stored overrides over the shipped defaults. A failed read
// falls back to defaults; scoring must not block on the config table.
func (e *Engine) Config(ctx context.Context, q ports.DBTX) domain.PointsConfig {
	cfg := domain.DefaultPointsConfig()

	overrides, err := e.points.ConfigOverrides(ctx, q)
	if err != nil {
		e.logger.Warn("points config read failed, using defaults", zap.Error(err))
		return cfg
	}

	apply := func(key string, dst *int) {
		if v, ok := overrides[key]; ok {
			*dst = v
		}
	}
	apply(configKeyZeroVarianceBonus, &cfg.ZeroVarianceBonus)
	apply(configKeyPositiveVarianceBonus, &cfg.PositiveVarianceBonus)
	apply(configKeyNegativePenaltyPerKg, &cfg.NegativePenaltyPerKg)
	apply(configKeyOnTimeSubmissionBonus, &cfg.OnTimeSubmissionBonus)
	apply(configKeyLateSubmissionPenalty, &cfg.LateSubmissionPenalty)
	apply(configKeyRepeatedNegativePenalty, &cfg.RepeatedNegativePenalty)
	apply(configKeyMissedSettlementPenalty, &cfg.MissedSettlementPenalty)
	apply(configKeyTransferApprovedBonus, &cfg.TransferApprovedBonus)
	apply(configKeyRepeatedNegativeWindow, &cfg.RepeatedNegativeWindow)
	apply(configKeyRepeatedNegativeOccurred, &cfg.RepeatedNegativeOccurred)

	return cfg
}

// insert writes one entry through the idempotency key and records the outcome
func (e *Engine) insert(ctx context.Context, q ports.DBTX, entry *domain.StaffPointsEntry) error {
	inserted, err := e.points.Insert(ctx, q, entry)
	if err != nil {
		return err
	}
	observability.RecordPointsEntry(string(entry.Reason), inserted)
	if !inserted {
		e.logger.Debug("points entry already exists, skipped",
			zap.String("ref_id", entry.RefID.String()),
			zap.String("reason", string(entry.Reason)),
		)
	}
	return nil
}

// AwardTimeliness scores a first submission as on-time or late, judged on the
// calendar day in the shop's timezone. Called inside the submit transaction.
func (e *Engine) AwardTimeliness(ctx context.Context, q ports.DBTX, s *domain.Settlement, submittedAt time.Time) error {
	if s.SubmittedBy == nil {
		return nil
	}
	cfg := e.Config(ctx, q)

	tzName, err := e.directory.ShopTimezone(ctx, s.ShopID)
	if err != nil {
		e.logger.Warn("shop timezone lookup failed, using UTC",
			zap.String("shop_id", s.ShopID.String()),
			zap.Error(err),
		)
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
	}

	reason, pts := cfg.TimelinessPoints(submittedAt, s.SettlementDate, loc)
	entry := &domain.StaffPointsEntry{
		ID:            uuid.New(),
		UserID:        *s.SubmittedBy,
		ShopID:        s.ShopID,
		PointsChange:  pts,
		Reason:        reason,
		ReasonDetails: fmt.Sprintf("settlement for %s submitted %s", s.SettlementDate.Format("2006-01-02"), submittedAt.Format(time.RFC3339)),
		RefID:         s.ID,
		RefType:       domain.PointsRefTypeSettlement,
		EffectiveDate: s.SettlementDate,
		CreatedAt:     e.clock.Now(),
	}
	return e.insert(ctx, q, entry)
}

// AwardVarianceResolution scores one resolved variance for the settlement's
// submitter. LIVE count-only variances and zero-valued awards write nothing.
// Called inside the transaction that resolved the variance.
func (e *Engine) AwardVarianceResolution(ctx context.Context, q ports.DBTX, v *domain.VarianceRecord, shopID, userID uuid.UUID, settlementDate time.Time) error {
	cfg := e.Config(ctx, q)

	var (
		pts    int
		reason domain.PointsReason
	)
	switch v.VarianceType {
	case domain.VarianceTypePositive:
		pts = cfg.PositiveVarianceBonus
		reason = domain.PointsReasonPositiveVarianceBonus
	case domain.VarianceTypeNegative:
		reason = domain.PointsReasonNegativeVariancePenalty
		switch {
		case v.CountOnly():
			pts = 0
		case v.Category == domain.VarianceCategoryStock:
			pts = cfg.NegativeVariancePoints(v.Magnitude)
		default:
			pts = cfg.CurrencyVariancePoints()
		}
	}
	if pts == 0 {
		return nil
	}

	entry := &domain.StaffPointsEntry{
		ID:            uuid.New(),
		UserID:        userID,
		ShopID:        shopID,
		PointsChange:  pts,
		Reason:        reason,
		ReasonDetails: fmt.Sprintf("%s variance %s, magnitude %s", v.Category, v.VarianceType, v.Magnitude.String()),
		RefID:         v.ID,
		RefType:       domain.PointsRefTypeVariance,
		EffectiveDate: settlementDate,
		CreatedAt:     e.clock.Now(),
	}
	return e.insert(ctx, q, entry)
}

// AwardZeroVariance scores a clean approval, one where the submission raised
// no variance at all. Called inside the approve transaction.
func (e *Engine) AwardZeroVariance(ctx context.Context, q ports.DBTX, s *domain.Settlement) error {
	if s.SubmittedBy == nil {
		return nil
	}
	cfg := e.Config(ctx, q)
	if cfg.ZeroVarianceBonus == 0 {
		return nil
	}

	entry := &domain.StaffPointsEntry{
		ID:            uuid.New(),
		UserID:        *s.SubmittedBy,
		ShopID:        s.ShopID,
		PointsChange:  cfg.ZeroVarianceBonus,
		Reason:        domain.PointsReasonZeroVarianceBonus,
		ReasonDetails: fmt.Sprintf("settlement for %s approved with no variance", s.SettlementDate.Format("2006-01-02")),
		RefID:         s.ID,
		RefType:       domain.PointsRefTypeSettlement,
		EffectiveDate: s.SettlementDate,
		CreatedAt:     e.clock.Now(),
	}
	return e.insert(ctx, q, entry)
}

// AwardTransferApproved scores an approved transfer for its initiator. The
// bonus ships disabled; with a zero configured value nothing is written.
func (e *Engine) AwardTransferApproved(ctx context.Context, q ports.DBTX, t *domain.StockTransfer) error {
	cfg := e.Config(ctx, q)
	if cfg.TransferApprovedBonus == 0 {
		return nil
	}

	entry := &domain.StaffPointsEntry{
		ID:            uuid.New(),
		UserID:        t.InitiatedBy,
		ShopID:        t.FromShop,
		PointsChange:  cfg.TransferApprovedBonus,
		Reason:        domain.PointsReasonTransferApproved,
		ReasonDetails: fmt.Sprintf("transfer of %s kg %s/%s approved", t.Weight.String(), t.BirdType, t.InventoryType),
		RefID:         t.ID,
		RefType:       domain.PointsRefTypeTransfer,
		EffectiveDate: t.TransferDate,
		CreatedAt:     e.clock.Now(),
	}
	return e.insert(ctx, q, entry)
}

// ScanRepeatedNegative issues the repeated-negative-variance penalty: a user
// who accrued deducted negative variances on the configured number of
// distinct dates within the trailing window. The penalty is keyed to the
// settlement that completed the window, so re-running the scan cannot
// double-charge.
func (e *Engine) ScanRepeatedNegative(ctx context.Context, asOf time.Time) (int, error) {
	q := e.db.Querier()
	cfg := e.Config(ctx, q)

	day := asOf.Truncate(24 * time.Hour)
	from := day.AddDate(0, 0, -(cfg.RepeatedNegativeWindow - 1))

	days, err := e.variances.NegativeVarianceDays(ctx, q, from, day)
	if err != nil {
		return 0, fmt.Errorf("scan negative variance days: %w", err)
	}

	type userShop struct {
		userID uuid.UUID
		shopID uuid.UUID
	}
	grouped := make(map[userShop][]ports.NegativeVarianceDay)
	for _, d := range days {
		k := userShop{userID: d.UserID, shopID: d.ShopID}
		grouped[k] = append(grouped[k], d)
	}

	issued := 0
	for k, group := range grouped {
		if len(group) < cfg.RepeatedNegativeOccurred {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })
		latest := group[len(group)-1]

		entry := &domain.StaffPointsEntry{
			ID:           uuid.New(),
			UserID:       k.userID,
			ShopID:       k.shopID,
			PointsChange: cfg.RepeatedNegativePenalty,
			ReasonDetails: fmt.Sprintf("negative variance on %d distinct dates in %d days",
				len(group), cfg.RepeatedNegativeWindow),
			Reason:        domain.PointsReasonRepeatedNegativeVariance,
			RefID:         latest.SettlementID,
			RefType:       domain.PointsRefTypeSettlement,
			EffectiveDate: latest.Date,
			CreatedAt:     e.clock.Now(),
		}
		inserted, err := e.points.Insert(ctx, q, entry)
		if err != nil {
			return issued, fmt.Errorf("insert repeated-negative penalty: %w", err)
		}
		observability.RecordPointsEntry(string(entry.Reason), inserted)
		if inserted {
			issued++
			observability.RecordCronFinding("variance_scan")
			e.logger.Info("repeated negative variance penalty issued",
				zap.String("user_id", k.userID.String()),
				zap.String("shop_id", k.shopID.String()),
				zap.Int("distinct_dates", len(group)),
			)
		}
	}
	return issued, nil
}

// ScanMissedSettlements penalizes the assigned manager of every active shop
// with no settlement row for the given date. The reference ID is derived from
// the shop and date, so the scan is idempotent without a settlement to key on.
func (e *Engine) ScanMissedSettlements(ctx context.Context, date time.Time) (int, error) {
	q := e.db.Querier()
	cfg := e.Config(ctx, q)

	shops, err := e.settlements.ShopsWithoutSettlement(ctx, q, date)
	if err != nil {
		return 0, fmt.Errorf("query shops without settlement: %w", err)
	}

	issued := 0
	for _, sm := range shops {
		entry := &domain.StaffPointsEntry{
			ID:            uuid.New(),
			UserID:        sm.ManagerID,
			ShopID:        sm.ShopID,
			PointsChange:  cfg.MissedSettlementPenalty,
			Reason:        domain.PointsReasonMissedSettlement,
			ReasonDetails: fmt.Sprintf("no settlement submitted for %s", date.Format("2006-01-02")),
			RefID:         missedSettlementRef(sm.ShopID, date),
			RefType:       domain.PointsRefTypeShopDate,
			EffectiveDate: date,
			CreatedAt:     e.clock.Now(),
		}
		inserted, err := e.points.Insert(ctx, q, entry)
		if err != nil {
			return issued, fmt.Errorf("insert missed-settlement penalty: %w", err)
		}
		observability.RecordPointsEntry(string(entry.Reason), inserted)
		if inserted {
			issued++
			observability.RecordCronFinding("missed_settlements")
		}
	}
	return issued, nil
}

// missedSettlementRef derives a stable UUID for a (shop, date) pair
func missedSettlementRef(shopID uuid.UUID, date time.Time) uuid.UUID {
	name := fmt.Sprintf("missed-settlement/%s/%s", shopID, date.Format("2006-01-02"))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

// AdjustManually writes an owner-initiated correction entry
func (e *Engine) AdjustManually(ctx context.Context, actorID, userID, shopID uuid.UUID, pointsChange int, details string) (*domain.StaffPointsEntry, error) {
	if ok, err := e.directory.IsApprover(ctx, actorID); err != nil {
		return nil, fmt.Errorf("check approver role: %w", err)
	} else if !ok {
		return nil, domain.ErrForbidden.WithDetail("user_id", actorID.String())
	}
	if pointsChange == 0 {
		return nil, domain.ErrValidationFailed.WithDetail("points_change", "must be non-zero")
	}

	now := e.clock.Now()
	entry := &domain.StaffPointsEntry{
		ID:            uuid.New(),
		UserID:        userID,
		ShopID:        shopID,
		PointsChange:  pointsChange,
		Reason:        domain.PointsReasonManualAdjustment,
		ReasonDetails: details,
		RefType:       domain.PointsRefTypeShopDate,
		EffectiveDate: now.Truncate(24 * time.Hour),
		CreatedAt:     now,
	}
	// Each adjustment is its own event; the entry ID doubles as ref
	entry.RefID = entry.ID
	if err := e.insert(ctx, e.db.Querier(), entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Summary aggregates a user's balance over the common dashboard windows
func (e *Engine) Summary(ctx context.Context, userID, shopID uuid.UUID) (*domain.PointsSummary, error) {
	now := e.clock.Now()
	today := now.Truncate(24 * time.Hour)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	summary := &domain.PointsSummary{UserID: userID}

	q := e.db.Querier()
	total, err := e.points.SumForUser(ctx, q, userID, shopID, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("sum total points: %w", err)
	}
	mtd, err := e.points.SumForUser(ctx, q, userID, shopID, monthStart, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("sum month-to-date points: %w", err)
	}
	dayTotal, err := e.points.SumForUser(ctx, q, userID, shopID, today, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("sum today points: %w", err)
	}

	summary.Total = total
	summary.MonthToDate = mtd
	summary.Today = dayTotal

	rows, err := e.Leaderboard(ctx, shopID, 100)
	if err == nil {
		for _, row := range rows {
			if row.UserID == userID {
				summary.Rank = row.Rank
				break
			}
		}
	}
	return summary, nil
}

// History returns a user's points entries, newest first
func (e *Engine) History(ctx context.Context, filter domain.PointsFilter) ([]domain.StaffPointsEntry, error) {
	return e.points.History(ctx, e.db.Querier(), filter)
}

// Leaderboard returns the month-to-date ranking, served read-through from the
// cache. Cache failures degrade to the database query.
func (e *Engine) Leaderboard(ctx context.Context, shopID uuid.UUID, limit int) ([]domain.LeaderboardRow, error) {
	now := e.clock.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	key := fmt.Sprintf("leaderboard:%s:%s", shopID, monthStart.Format("2006-01"))

	if rows, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		return rows, nil
	} else if err != nil {
		e.logger.Warn("leaderboard cache read failed", zap.Error(err))
	}

	rows, err := e.points.Leaderboard(ctx, e.db.Querier(), shopID, monthStart, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}

	if err := e.cache.Set(ctx, key, rows, leaderboardCacheTTL); err != nil {
		e.logger.Warn("leaderboard cache write failed", zap.Error(err))
	}
	return rows, nil
}
