package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
	"github.com/poultryops/settlement-service/pkg/observability"
)

// PointsRecorder is the slice of the points engine the settlement lifecycle
// drives. Awards run inside the transaction that caused them, so a rollback
// takes the points with it.
type PointsRecorder interface {
	AwardTimeliness(ctx context.Context, q ports.DBTX, s *domain.Settlement, submittedAt time.Time) error
	AwardVarianceResolution(ctx context.Context, q ports.DBTX, v *domain.VarianceRecord, shopID, userID uuid.UUID, settlementDate time.Time) error
	AwardZeroVariance(ctx context.Context, q ports.DBTX, s *domain.Settlement) error
}

// Service implements the settlement lifecycle: draft, submit with variance
// detection, approve with variance resolution, reject, lock.
type Service struct {
	db          ports.DBPort
	settlements ports.SettlementRepository
	variances   ports.VarianceRepository
	ledger      ports.LedgerRepository
	sales       ports.SalesRepository
	directory   ports.ShopDirectory
	points      PointsRecorder
	clock       ports.Clock
	logger      *zap.Logger
}

func NewService(
	db ports.DBPort,
	settlements ports.SettlementRepository,
	variances ports.VarianceRepository,
	ledger ports.LedgerRepository,
	sales ports.SalesRepository,
	directory ports.ShopDirectory,
	points PointsRecorder,
	clock ports.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:          db,
		settlements: settlements,
		variances:   variances,
		ledger:      ledger,
		sales:       sales,
		directory:   directory,
		points:      points,
		clock:       clock,
		logger:      logger,
	}
}

// CreateDraft opens a DRAFT settlement for a shop and date. The unique
// (shop, date) constraint rejects a second draft for the same day.
func (s *Service) CreateDraft(ctx context.Context, userID, shopID uuid.UUID, date time.Time) (*domain.Settlement, error) {
	if err := s.requireManager(ctx, userID, shopID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	settlement := &domain.Settlement{
		ID:             uuid.New(),
		ShopID:         shopID,
		SettlementDate: dateOnly(date),
		Status:         domain.SettlementStatusDraft,
		DeclaredStock:  domain.NewStockSheet(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.settlements.Create(ctx, s.db.Querier(), settlement); err != nil {
		return nil, err
	}

	s.logger.Info("settlement draft created",
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("shop_id", shopID.String()),
		zap.String("settlement_date", settlement.SettlementDate.Format("2006-01-02")),
	)
	return settlement, nil
}

// Submit stores the manager's declaration, computes expected values inside
// the same transaction, and materializes one variance record per discrepancy.
// Resubmission after rejection replaces the declaration and re-detects
// variances; timeliness points are only scored on the first submission.
func (s *Service) Submit(ctx context.Context, userID, settlementID uuid.UUID, decl domain.Declaration) (*domain.Settlement, error) {
	if err := decl.Validate(); err != nil {
		return nil, err
	}

	start := s.clock.Now()
	var (
		settlement *domain.Settlement
		outcome    = "ok"
	)

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.settlements.GetByID(ctx, tx, settlementID)
		if err != nil {
			return err
		}
		if err := s.requireManager(ctx, userID, existing.ShopID); err != nil {
			return err
		}
		if !existing.CanSubmit() {
			outcome = "conflict"
			return domain.ErrSettlementInvalidState.
				WithDetail("status", string(existing.Status)).
				WithDetail("operation", "submit")
		}

		targetDate := existing.SettlementDate
		if !decl.SettlementDate.IsZero() && !dateOnly(decl.SettlementDate).Equal(targetDate) {
			ok, err := s.directory.HasBackdateCapability(ctx, userID)
			if err != nil {
				return fmt.Errorf("check backdate capability: %w", err)
			}
			if !ok {
				return domain.ErrForbidden.WithDetail("reason", "changing the settlement date requires the backdate capability")
			}
			targetDate = dateOnly(decl.SettlementDate)
		}

		expected := s.computeExpected(ctx, tx, existing.ShopID, targetDate)

		first := existing.IsFirstSubmission()
		now := s.clock.Now()

		existing.SettlementDate = targetDate
		existing.DeclaredCash = decl.Cash
		existing.DeclaredUPI = decl.UPI
		existing.DeclaredStock = decl.Stock
		existing.ExpenseAmount = decl.ExpenseAmount
		existing.ExpenseNotes = decl.ExpenseNotes
		existing.SubmittedBy = &userID
		existing.SubmittedAt = &now

		ok, err := s.settlements.MarkSubmitted(ctx, tx, existing)
		if err != nil {
			return err
		}
		if !ok {
			outcome = "conflict"
			return domain.ErrSettlementInvalidState.
				WithDetail("operation", "submit").
				WithDetail("reason", "settlement left DRAFT under a concurrent submit")
		}
		existing.Status = domain.SettlementStatusSubmitted

		records := s.detectVariances(existing, decl, expected, now)
		if len(records) > 0 {
			if err := s.variances.CreateBatch(ctx, tx, records); err != nil {
				return err
			}
		}
		for _, v := range records {
			observability.RecordVariance(
				existing.ShopID.String(),
				string(v.Category),
				string(v.VarianceType),
				stockMagnitudeKg(v),
			)
		}

		if first {
			if err := s.points.AwardTimeliness(ctx, tx, existing, now); err != nil {
				return fmt.Errorf("award timeliness points: %w", err)
			}
		}

		settlement = existing
		return nil
	})

	if err != nil {
		if outcome == "ok" {
			outcome = "error"
		}
		observability.RecordSettlementSubmit(settlementID.String(), outcome, s.clock.Now().Sub(start).Seconds())
		return nil, err
	}

	observability.RecordSettlementTransition(settlement.ShopID.String(), "submitted")
	observability.RecordSettlementSubmit(settlement.ShopID.String(), outcome, s.clock.Now().Sub(start).Seconds())
	s.logger.Info("settlement submitted",
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("shop_id", settlement.ShopID.String()),
	)
	return settlement, nil
}

// Approve moves a SUBMITTED settlement to APPROVED and resolves every still
// pending variance: positive variances are APPROVED, negative DEDUCTED, and
// each resolution writes its ledger adjustment and points entry in the same
// transaction. A concurrent approver loses the CAS and gets AlreadyApproved.
func (s *Service) Approve(ctx context.Context, userID, settlementID uuid.UUID) (*domain.Settlement, error) {
	if err := s.requireApprover(ctx, userID); err != nil {
		return nil, err
	}

	var settlement *domain.Settlement
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.settlements.GetByID(ctx, tx, settlementID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		ok, err := s.settlements.MarkApproved(ctx, tx, settlementID, userID, now)
		if err != nil {
			return err
		}
		if !ok {
			if existing.Status == domain.SettlementStatusApproved || existing.Status == domain.SettlementStatusLocked {
				return domain.ErrAlreadyApproved.WithDetail("settlement_id", settlementID.String())
			}
			return domain.ErrSettlementInvalidState.
				WithDetail("status", string(existing.Status)).
				WithDetail("operation", "approve")
		}

		records, err := s.variances.ListBySettlement(ctx, tx, settlementID)
		if err != nil {
			return err
		}
		// IGNORED rows are leftovers from a rejected submission and do not
		// count against the current one.
		active := 0
		for i := range records {
			v := &records[i]
			if v.Status == domain.VarianceStatusIgnored {
				continue
			}
			active++
			if v.Status != domain.VarianceStatusPending {
				continue
			}
			if err := s.resolveVarianceTx(ctx, tx, existing, v, v.ResolutionFor(), userID, now, ""); err != nil {
				return err
			}
		}

		if active == 0 {
			if err := s.points.AwardZeroVariance(ctx, tx, existing); err != nil {
				return fmt.Errorf("award zero-variance bonus: %w", err)
			}
		}

		existing.Status = domain.SettlementStatusApproved
		existing.ApprovedBy = &userID
		existing.ApprovedAt = &now
		settlement = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordSettlementTransition(settlement.ShopID.String(), "approved")
	s.logger.Info("settlement approved",
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("approved_by", userID.String()),
	)
	return settlement, nil
}

// Reject returns a SUBMITTED settlement to the manager for correction. Its
// pending variances are marked IGNORED; resubmission detects fresh ones.
func (s *Service) Reject(ctx context.Context, userID, settlementID uuid.UUID, reason string) (*domain.Settlement, error) {
	if err := s.requireApprover(ctx, userID); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reason")
	}

	var settlement *domain.Settlement
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.settlements.GetByID(ctx, tx, settlementID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		ok, err := s.settlements.MarkRejected(ctx, tx, settlementID, userID, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			if existing.Status == domain.SettlementStatusApproved || existing.Status == domain.SettlementStatusLocked {
				return domain.ErrAlreadyApproved.WithDetail("settlement_id", settlementID.String())
			}
			return domain.ErrSettlementInvalidState.
				WithDetail("status", string(existing.Status)).
				WithDetail("operation", "reject")
		}

		records, err := s.variances.ListBySettlement(ctx, tx, settlementID)
		if err != nil {
			return err
		}
		for i := range records {
			v := &records[i]
			if v.Status != domain.VarianceStatusPending {
				continue
			}
			if _, err := s.variances.Resolve(ctx, tx, v.ID, domain.VarianceStatusIgnored, userID, now, "settlement rejected"); err != nil {
				return err
			}
		}

		existing.Status = domain.SettlementStatusRejected
		existing.RejectionReason = reason
		settlement = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordSettlementTransition(settlement.ShopID.String(), "rejected")
	s.logger.Info("settlement rejected",
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("reason", reason),
	)
	return settlement, nil
}

// Lock freezes an APPROVED settlement. A locked settlement becomes the cut
// line for the next expected-stock computation and is never edited again.
func (s *Service) Lock(ctx context.Context, userID, settlementID uuid.UUID) (*domain.Settlement, error) {
	if err := s.requireApprover(ctx, userID); err != nil {
		return nil, err
	}

	var settlement *domain.Settlement
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.settlements.GetByID(ctx, tx, settlementID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		ok, err := s.settlements.MarkLocked(ctx, tx, settlementID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrSettlementInvalidState.
				WithDetail("status", string(existing.Status)).
				WithDetail("operation", "lock")
		}

		existing.Status = domain.SettlementStatusLocked
		existing.LockedAt = &now
		settlement = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordSettlementTransition(settlement.ShopID.String(), "locked")
	return settlement, nil
}

// ResolveVariance lets an approver settle a single variance ahead of the
// settlement approval. The action must match the sign: positive variances are
// approved, negative deducted. Resolution writes the ledger adjustment and
// points entry atomically; a concurrent resolver loses the CAS.
func (s *Service) ResolveVariance(ctx context.Context, userID, varianceID uuid.UUID, status domain.VarianceStatus, notes string) (*domain.VarianceRecord, error) {
	if err := s.requireApprover(ctx, userID); err != nil {
		return nil, err
	}
	if status != domain.VarianceStatusApproved && status != domain.VarianceStatusDeducted {
		return nil, domain.ErrValidationFailed.WithDetail("status", string(status))
	}

	var resolved *domain.VarianceRecord
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		v, err := s.variances.GetByID(ctx, tx, varianceID)
		if err != nil {
			return err
		}
		if v.Status != domain.VarianceStatusPending {
			return domain.ErrVarianceAlreadyResolved.
				WithDetail("variance_id", varianceID.String()).
				WithDetail("status", string(v.Status))
		}
		if v.ResolutionFor() != status {
			return domain.ErrVarianceWrongSign.
				WithDetail("variance_type", string(v.VarianceType)).
				WithDetail("requested", string(status))
		}

		settlement, err := s.settlements.GetByID(ctx, tx, v.SettlementID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.resolveVarianceTx(ctx, tx, settlement, v, status, userID, now, notes); err != nil {
			return err
		}
		resolved = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolveVarianceTx performs one resolution: CAS out of PENDING, the ledger
// adjustment for stock variances, and the points award.
func (s *Service) resolveVarianceTx(ctx context.Context, tx pgx.Tx, settlement *domain.Settlement, v *domain.VarianceRecord, status domain.VarianceStatus, resolvedBy uuid.UUID, now time.Time, notes string) error {
	ok, err := s.variances.Resolve(ctx, tx, v.ID, status, resolvedBy, now, notes)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrVarianceAlreadyResolved.WithDetail("variance_id", v.ID.String())
	}
	v.Status = status
	v.ResolvedBy = &resolvedBy
	v.ResolvedAt = &now

	if v.Category == domain.VarianceCategoryStock {
		if err := s.appendVarianceAdjustment(ctx, tx, settlement, v, resolvedBy, now); err != nil {
			return err
		}
	}

	submitter := resolvedBy
	if settlement.SubmittedBy != nil {
		submitter = *settlement.SubmittedBy
	}
	if err := s.points.AwardVarianceResolution(ctx, tx, v, settlement.ShopID, submitter, settlement.SettlementDate); err != nil {
		return fmt.Errorf("award variance points: %w", err)
	}
	return nil
}

// appendVarianceAdjustment realigns the ledger with the declared count: after
// resolution the ledger-derived expected stock equals what the shop declared.
func (s *Service) appendVarianceAdjustment(ctx context.Context, tx pgx.Tx, settlement *domain.Settlement, v *domain.VarianceRecord, recordedBy uuid.UUID, now time.Time) error {
	reason := domain.LedgerReasonVariancePositive
	delta := v.Declared.Sub(v.Expected)
	if v.VarianceType == domain.VarianceTypeNegative {
		reason = domain.LedgerReasonVarianceNegative
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		ShopID:        settlement.ShopID,
		BirdType:      v.BirdType,
		InventoryType: v.InventoryType,
		Reason:        reason,
		EntryDate:     settlement.SettlementDate,
		RefID:         &v.ID,
		RefType:       domain.PointsRefTypeVariance,
		RecordedBy:    recordedBy,
		CreatedAt:     now,
	}
	if v.InventoryType == domain.InventoryTypeLive {
		entry.BirdCountChange = int(delta.IntPart())
	} else {
		entry.QuantityChange = delta.Round(3)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return s.ledger.Append(ctx, tx, entry)
}

// Get returns one settlement with its variance records
func (s *Service) Get(ctx context.Context, userID, settlementID uuid.UUID) (*domain.Settlement, []domain.VarianceRecord, error) {
	q := s.db.Querier()
	settlement, err := s.settlements.GetByID(ctx, q, settlementID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireManagerOrApprover(ctx, userID, settlement.ShopID); err != nil {
		return nil, nil, err
	}
	records, err := s.variances.ListBySettlement(ctx, q, settlementID)
	if err != nil {
		return nil, nil, err
	}
	return settlement, records, nil
}

// List returns settlements matching the filter
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter domain.SettlementFilter) ([]domain.Settlement, error) {
	if filter.ShopID != uuid.Nil {
		if err := s.requireManagerOrApprover(ctx, userID, filter.ShopID); err != nil {
			return nil, err
		}
	} else if err := s.requireApprover(ctx, userID); err != nil {
		return nil, err
	}
	return s.settlements.List(ctx, s.db.Querier(), filter)
}

// ListVariances returns variance records matching the filter
func (s *Service) ListVariances(ctx context.Context, userID uuid.UUID, filter domain.VarianceFilter) ([]domain.VarianceRecord, error) {
	if err := s.requireApprover(ctx, userID); err != nil {
		return nil, err
	}
	return s.variances.List(ctx, s.db.Querier(), filter)
}

// detectVariances compares the declaration to expected values across stock
// cells and both currency buckets. Declared cash plus recorded expenses is
// compared against expected cash: money spent from the drawer is not missing.
func (s *Service) detectVariances(settlement *domain.Settlement, decl domain.Declaration, expected *domain.ExpectedValues, now time.Time) []domain.VarianceRecord {
	var records []domain.VarianceRecord

	for _, diff := range decl.Stock.Diff(expected.Stock) {
		records = append(records, domain.NewStockVariance(settlement.ID, diff, now))
	}

	effectiveCash := decl.Cash.Add(decl.ExpenseAmount)
	if !effectiveCash.Equal(expected.Cash) {
		records = append(records, domain.NewCurrencyVariance(
			settlement.ID, domain.VarianceCategoryCash, expected.Cash, effectiveCash, now))
	}
	if !decl.UPI.Equal(expected.UPI) {
		records = append(records, domain.NewCurrencyVariance(
			settlement.ID, domain.VarianceCategoryUPI, expected.UPI, decl.UPI, now))
	}
	return records
}

func (s *Service) requireManager(ctx context.Context, userID, shopID uuid.UUID) error {
	ok, err := s.directory.IsManagerOf(ctx, userID, shopID)
	if err != nil {
		return fmt.Errorf("check manager role: %w", err)
	}
	if !ok {
		return domain.ErrForbidden.
			WithDetail("user_id", userID.String()).
			WithDetail("shop_id", shopID.String())
	}
	return nil
}

func (s *Service) requireApprover(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.directory.IsApprover(ctx, userID)
	if err != nil {
		return fmt.Errorf("check approver role: %w", err)
	}
	if !ok {
		return domain.ErrForbidden.WithDetail("user_id", userID.String())
	}
	return nil
}

func (s *Service) requireManagerOrApprover(ctx context.Context, userID, shopID uuid.UUID) error {
	if err := s.requireManager(ctx, userID, shopID); err == nil {
		return nil
	}
	return s.requireApprover(ctx, userID)
}

func stockMagnitudeKg(v domain.VarianceRecord) float64 {
	if v.Category != domain.VarianceCategoryStock || v.CountOnly() {
		return 0
	}
	f, _ := v.Magnitude.Float64()
	return f
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func intToDecimal(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
