package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
	"github.com/poultryops/settlement-service/pkg/observability"
)

// PointsRecorder is the slice of the points engine transfer approval drives
type PointsRecorder interface {
	AwardTransferApproved(ctx context.Context, q ports.DBTX, t *domain.StockTransfer) error
}

// Service implements the inter-shop stock transfer workflow. The inventory
// ledger is touched exactly once per transfer, on the transition into
// APPROVED; every other transition only moves status.
type Service struct {
	db        ports.DBPort
	transfers ports.TransferRepository
	ledger    ports.LedgerRepository
	directory ports.ShopDirectory
	points    PointsRecorder
	clock     ports.Clock
	logger    *zap.Logger
}

func NewService(
	db ports.DBPort,
	transfers ports.TransferRepository,
	ledger ports.LedgerRepository,
	directory ports.ShopDirectory,
	points PointsRecorder,
	clock ports.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		transfers: transfers,
		ledger:    ledger,
		directory: directory,
		points:    points,
		clock:     clock,
		logger:    logger,
	}
}

// Create opens a transfer in SENT. Only a manager of the source shop may
// initiate; stock is not debited until approval.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, t *domain.StockTransfer) (*domain.StockTransfer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	ok, err := s.directory.IsManagerOf(ctx, userID, t.FromShop)
	if err != nil {
		return nil, fmt.Errorf("check manager role: %w", err)
	}
	if !ok {
		return nil, domain.ErrForbidden.
			WithDetail("user_id", userID.String()).
			WithDetail("shop_id", t.FromShop.String())
	}

	now := s.clock.Now()
	t.ID = uuid.New()
	t.Status = domain.TransferStatusSent
	t.InitiatedBy = userID
	if t.TransferDate.IsZero() {
		t.TransferDate = dateOnly(now)
	} else {
		t.TransferDate = dateOnly(t.TransferDate)
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := s.transfers.Create(ctx, s.db.Querier(), t); err != nil {
		return nil, err
	}

	observability.RecordTransferTransition("created")
	s.logger.Info("stock transfer created",
		zap.String("transfer_id", t.ID.String()),
		zap.String("from_shop", t.FromShop.String()),
		zap.String("to_shop", t.ToShop.String()),
		zap.String("weight_kg", t.Weight.String()),
	)
	return t, nil
}

// Receive records the destination shop's physical acknowledgement. No ledger
// effect; the stock still belongs to the source until approval.
func (s *Service) Receive(ctx context.Context, userID, transferID uuid.UUID) (*domain.StockTransfer, error) {
	q := s.db.Querier()
	t, err := s.transfers.GetByID(ctx, q, transferID)
	if err != nil {
		return nil, err
	}

	ok, err := s.directory.IsManagerOf(ctx, userID, t.ToShop)
	if err != nil {
		return nil, fmt.Errorf("check manager role: %w", err)
	}
	if !ok {
		return nil, domain.ErrForbidden.
			WithDetail("user_id", userID.String()).
			WithDetail("shop_id", t.ToShop.String())
	}

	now := s.clock.Now()
	updated, err := s.transfers.MarkReceived(ctx, q, transferID, userID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, s.transitionConflict(ctx, transferID, "receive")
	}

	t.Status = domain.TransferStatusReceived
	t.ReceivedBy = &userID
	t.ReceivedAt = &now
	observability.RecordTransferTransition("received")
	return t, nil
}

// Approve finalizes the transfer and moves the stock: a debit entry at the
// source and a credit at the destination, appended in the same transaction
// the status flips in. The CAS guard means concurrent approvers write the
// ledger pair at most once.
func (s *Service) Approve(ctx context.Context, userID, transferID uuid.UUID) (*domain.StockTransfer, error) {
	if err := s.requireApprover(ctx, userID); err != nil {
		return nil, err
	}

	var approved *domain.StockTransfer
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		t, err := s.transfers.GetByID(ctx, tx, transferID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		ok, err := s.transfers.MarkApproved(ctx, tx, transferID, userID, now)
		if err != nil {
			return err
		}
		if !ok {
			if t.Status.Terminal() {
				return domain.ErrTransferAlreadyResolved.
					WithDetail("transfer_id", transferID.String()).
					WithDetail("status", string(t.Status))
			}
			return domain.ErrTransferInvalidState.
				WithDetail("status", string(t.Status)).
				WithDetail("operation", "approve")
		}

		if err := s.appendLedgerPair(ctx, tx, t, userID, now); err != nil {
			return err
		}

		if err := s.points.AwardTransferApproved(ctx, tx, t); err != nil {
			return fmt.Errorf("award transfer points: %w", err)
		}

		t.Status = domain.TransferStatusApproved
		t.ApprovedBy = &userID
		t.ApprovedAt = &now
		approved = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	weight, _ := approved.Weight.Float64()
	observability.RecordTransferApproved(string(approved.BirdType), string(approved.InventoryType), weight)
	s.logger.Info("stock transfer approved",
		zap.String("transfer_id", approved.ID.String()),
		zap.String("approved_by", userID.String()),
	)
	return approved, nil
}

// Reject closes the transfer with no ledger effect
func (s *Service) Reject(ctx context.Context, userID, transferID uuid.UUID, reason string) (*domain.StockTransfer, error) {
	if err := s.requireApprover(ctx, userID); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "reason")
	}

	q := s.db.Querier()
	t, err := s.transfers.GetByID(ctx, q, transferID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ok, err := s.transfers.MarkRejected(ctx, q, transferID, userID, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionConflict(ctx, transferID, "reject")
	}

	t.Status = domain.TransferStatusRejected
	t.RejectionReason = reason
	observability.RecordTransferTransition("rejected")
	s.logger.Info("stock transfer rejected",
		zap.String("transfer_id", t.ID.String()),
		zap.String("reason", reason),
	)
	return t, nil
}

// Get returns one transfer
func (s *Service) Get(ctx context.Context, userID, transferID uuid.UUID) (*domain.StockTransfer, error) {
	t, err := s.transfers.GetByID(ctx, s.db.Querier(), transferID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(ctx, userID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns transfers matching the filter
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter domain.TransferFilter) ([]domain.StockTransfer, error) {
	authorized := false
	if ok, err := s.directory.IsApprover(ctx, userID); err == nil && ok {
		authorized = true
	}
	if !authorized && filter.FromShop != uuid.Nil {
		if ok, err := s.directory.IsManagerOf(ctx, userID, filter.FromShop); err == nil && ok {
			authorized = true
		}
	}
	if !authorized && filter.ToShop != uuid.Nil {
		if ok, err := s.directory.IsManagerOf(ctx, userID, filter.ToShop); err == nil && ok {
			authorized = true
		}
	}
	if !authorized {
		return nil, domain.ErrForbidden.WithDetail("user_id", userID.String())
	}
	return s.transfers.List(ctx, s.db.Querier(), filter)
}

// appendLedgerPair writes the TRANSFER_OUT debit and TRANSFER_IN credit
func (s *Service) appendLedgerPair(ctx context.Context, tx pgx.Tx, t *domain.StockTransfer, recordedBy uuid.UUID, now time.Time) error {
	out := &domain.LedgerEntry{
		ID:             uuid.New(),
		ShopID:         t.FromShop,
		BirdType:       t.BirdType,
		InventoryType:  t.InventoryType,
		QuantityChange: t.Weight.Neg(),
		Reason:         domain.LedgerReasonTransferOut,
		EntryDate:      t.TransferDate,
		RefID:          &t.ID,
		RefType:        domain.PointsRefTypeTransfer,
		RecordedBy:     recordedBy,
		CreatedAt:      now,
	}
	in := &domain.LedgerEntry{
		ID:             uuid.New(),
		ShopID:         t.ToShop,
		BirdType:       t.BirdType,
		InventoryType:  t.InventoryType,
		QuantityChange: t.Weight,
		Reason:         domain.LedgerReasonTransferIn,
		EntryDate:      t.TransferDate,
		RefID:          &t.ID,
		RefType:        domain.PointsRefTypeTransfer,
		RecordedBy:     recordedBy,
		CreatedAt:      now,
	}
	if t.InventoryType == domain.InventoryTypeLive {
		out.BirdCountChange = -t.BirdCount
		in.BirdCountChange = t.BirdCount
	}

	if err := s.ledger.Append(ctx, tx, out); err != nil {
		return fmt.Errorf("append transfer-out entry: %w", err)
	}
	if err := s.ledger.Append(ctx, tx, in); err != nil {
		return fmt.Errorf("append transfer-in entry: %w", err)
	}
	return nil
}

// transitionConflict distinguishes a terminal loser from a plain bad state
func (s *Service) transitionConflict(ctx context.Context, transferID uuid.UUID, op string) error {
	current, err := s.transfers.GetByID(ctx, s.db.Querier(), transferID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return domain.ErrTransferAlreadyResolved.
			WithDetail("transfer_id", transferID.String()).
			WithDetail("status", string(current.Status))
	}
	return domain.ErrTransferInvalidState.
		WithDetail("status", string(current.Status)).
		WithDetail("operation", op)
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

// requireParty allows either shop's manager or any approver to read
func (s *Service) requireParty(ctx context.Context, userID uuid.UUID, t *domain.StockTransfer) error {
	if ok, err := s.directory.IsManagerOf(ctx, userID, t.FromShop); err == nil && ok {
		return nil
	}
	if ok, err := s.directory.IsManagerOf(ctx, userID, t.ToShop); err == nil && ok {
		return nil
	}
	return s.requireApprover(ctx, userID)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
