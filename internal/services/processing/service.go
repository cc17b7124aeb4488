package processing

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
)

const refTypeProcessing = "PROCESSING"

// Request describes one processing batch: live birds converted into a
// processed category, with the effective wastage rate absorbing the loss.
type Request struct {
	ShopID        uuid.UUID
	BirdType      domain.BirdType
	Target        domain.InventoryType
	BirdCount     int
	LiveWeight    decimal.Decimal // kg
	ProcessedDate time.Time
	Notes         string

	// IdempotencyKey, when set, dedupes retried submissions of the same batch
	IdempotencyKey string
}

// Result reports the batch outcome. Replayed means the batch was already
// booked under the same idempotency key and no new ledger entries were written.
type Result struct {
	BatchID  uuid.UUID
	Rate     *domain.WastageRate
	Yield    domain.YieldResult
	Replayed bool
}

// Service converts live stock into processed stock through the versioned
// wastage table, writing the ledger triple in one transaction: a live debit,
// a gross credit to the target category, and the wastage debit.
type Service struct {
	db        ports.DBPort
	ledger    ports.LedgerRepository
	wastage   ports.WastageRepository
	directory ports.ShopDirectory
	clock     ports.Clock
	logger    *zap.Logger
}

func NewService(
	db ports.DBPort,
	ledger ports.LedgerRepository,
	wastage ports.WastageRepository,
	directory ports.ShopDirectory,
	clock ports.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		ledger:    ledger,
		wastage:   wastage,
		directory: directory,
		clock:     clock,
		logger:    logger,
	}
}

// RecordBatch validates and books one processing batch
func (s *Service) RecordBatch(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	if ok, err := s.directory.IsManagerOf(ctx, userID, req.ShopID); err != nil {
		return nil, fmt.Errorf("check manager role: %w", err)
	} else if !ok {
		return nil, domain.ErrForbidden.
			WithDetail("user_id", userID.String()).
			WithDetail("shop_id", req.ShopID.String())
	}

	if req.BirdCount <= 0 {
		return nil, domain.ErrValidationFailed.WithDetail("bird_count", "must be positive")
	}
	if !req.LiveWeight.IsPositive() {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("live_weight", req.LiveWeight.String())
	}
	if req.Target != domain.InventoryTypeSkin && req.Target != domain.InventoryTypeSkinless {
		return nil, domain.ErrValidationFailed.WithDetail("target", string(req.Target))
	}
	date := dateOnly(req.ProcessedDate)
	if req.ProcessedDate.IsZero() {
		date = dateOnly(s.clock.Now())
	}

	rate, err := s.wastage.RateFor(ctx, s.db.Querier(), req.BirdType, req.Target, date)
	if err != nil {
		return nil, err
	}
	yield := domain.ApplyWastage(req.LiveWeight, rate.Percentage)

	batchID := uuid.New()
	if req.IdempotencyKey != "" {
		batchID = batchRef(req.ShopID, req.IdempotencyKey)
	}
	now := s.clock.Now()

	replayed := false
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if req.IdempotencyKey != "" {
			exists, err := s.ledger.RefExists(ctx, tx, batchID, refTypeProcessing)
			if err != nil {
				return err
			}
			if exists {
				replayed = true
				return nil
			}
		}

		liveKey := domain.StockKey{BirdType: req.BirdType, InventoryType: domain.InventoryTypeLive}
		_, onHand, err := s.ledger.OnHand(ctx, tx, req.ShopID, liveKey)
		if err != nil {
			return err
		}
		if onHand < req.BirdCount {
			return domain.ErrValidationFailed.
				WithDetail("bird_count", fmt.Sprintf("have %d live birds, batch needs %d", onHand, req.BirdCount))
		}

		entries := []*domain.LedgerEntry{
			{
				ID:              uuid.New(),
				ShopID:          req.ShopID,
				BirdType:        req.BirdType,
				InventoryType:   domain.InventoryTypeLive,
				BirdCountChange: -req.BirdCount,
				Reason:          domain.LedgerReasonProcessingDebit,
				EntryDate:       date,
				RefID:           &batchID,
				RefType:         refTypeProcessing,
				RecordedBy:      userID,
				Notes:           req.Notes,
				CreatedAt:       now,
			},
			{
				ID:             uuid.New(),
				ShopID:         req.ShopID,
				BirdType:       req.BirdType,
				InventoryType:  req.Target,
				QuantityChange: yield.InputWeight,
				Reason:         domain.LedgerReasonProcessingCredit,
				EntryDate:      date,
				RefID:          &batchID,
				RefType:        refTypeProcessing,
				RecordedBy:     userID,
				CreatedAt:      now,
			},
		}
		// Wastage debit nets the credit down to the yield output
		if yield.WastageWeight.IsPositive() {
			entries = append(entries, &domain.LedgerEntry{
				ID:             uuid.New(),
				ShopID:         req.ShopID,
				BirdType:       req.BirdType,
				InventoryType:  req.Target,
				QuantityChange: yield.WastageWeight.Neg(),
				Reason:         domain.LedgerReasonWastage,
				EntryDate:      date,
				RefID:          &batchID,
				RefType:        refTypeProcessing,
				RecordedBy:     userID,
				Notes:          fmt.Sprintf("wastage at %s%%", rate.Percentage.String()),
				CreatedAt:      now,
			})
		}

		for _, e := range entries {
			if err := e.Validate(); err != nil {
				return err
			}
			if err := s.ledger.Append(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		s.logger.Info("processing batch replayed, ledger untouched",
			zap.String("batch_id", batchID.String()),
			zap.String("idempotency_key", req.IdempotencyKey),
		)
		return &Result{BatchID: batchID, Rate: rate, Yield: yield, Replayed: true}, nil
	}

	s.logger.Info("processing batch recorded",
		zap.String("batch_id", batchID.String()),
		zap.String("shop_id", req.ShopID.String()),
		zap.String("target", string(req.Target)),
		zap.String("input_kg", yield.InputWeight.String()),
		zap.String("output_kg", yield.OutputWeight.String()),
	)

	return &Result{BatchID: batchID, Rate: rate, Yield: yield}, nil
}

// SetWastageRate versions in a new rate; existing rows stay for audit and
// historical lookups
func (s *Service) SetWastageRate(ctx context.Context, userID uuid.UUID, rate *domain.WastageRate) (*domain.WastageRate, error) {
	if ok, err := s.directory.IsApprover(ctx, userID); err != nil {
		return nil, fmt.Errorf("check approver role: %w", err)
	} else if !ok {
		return nil, domain.ErrForbidden.WithDetail("user_id", userID.String())
	}
	if err := rate.Validate(); err != nil {
		return nil, err
	}

	rate.ID = uuid.New()
	rate.Active = true
	rate.CreatedBy = &userID
	rate.CreatedAt = s.clock.Now()
	if rate.EffectiveDate.IsZero() {
		rate.EffectiveDate = dateOnly(rate.CreatedAt)
	} else {
		rate.EffectiveDate = dateOnly(rate.EffectiveDate)
	}

	if err := s.wastage.Create(ctx, s.db.Querier(), rate); err != nil {
		return nil, err
	}
	s.logger.Info("wastage rate created",
		zap.String("bird_type", string(rate.BirdType)),
		zap.String("target", string(rate.TargetInventoryType)),
		zap.String("percentage", rate.Percentage.String()),
	)
	return rate, nil
}

// ListWastageRates returns all rates for a bird type, newest first
func (s *Service) ListWastageRates(ctx context.Context, birdType domain.BirdType) ([]domain.WastageRate, error) {
	return s.wastage.List(ctx, s.db.Querier(), birdType)
}

// StockOnHand returns the current ledger position for one shop and key
func (s *Service) StockOnHand(ctx context.Context, shopID uuid.UUID, key domain.StockKey) (decimal.Decimal, int, error) {
	return s.ledger.OnHand(ctx, s.db.Querier(), shopID, key)
}

// LedgerHistory lists a shop's ledger entries for a date window
func (s *Service) LedgerHistory(ctx context.Context, shopID uuid.UUID, from, to time.Time, limit, offset int) ([]domain.LedgerEntry, error) {
	return s.ledger.ListByShop(ctx, s.db.Querier(), shopID, dateOnly(from), dateOnly(to), limit, offset)
}

// batchRef derives a stable batch ID from the caller's idempotency key
func batchRef(shopID uuid.UUID, key string) uuid.UUID {
	name := fmt.Sprintf("processing/%s/%s", shopID, key)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
