package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	stderrors "errors"

	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/gateway"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/observability"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/redis"
	"github.com/andrewseusebio/Rc-Store/internal/repository"
	pkgerrors "github.com/andrewseusebio/Rc-Store/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// awaitingTTL caps how long an account stays in AWAITING_AMOUNT with no
// follow-up message.
const awaitingTTL = 15 * time.Minute

// paymentMarkerTTL keeps the redis fast-path marker around long enough to
// absorb webhook retry bursts; the deposits table is the durable guard.
const paymentMarkerTTL = 24 * time.Hour

type DepositService interface {
	Start(ctx context.Context, accountID int64) error
	Awaiting(ctx context.Context, accountID int64) bool
	SubmitAmount(ctx context.Context, accountID int64, text string) (string, error)
	Confirm(ctx context.Context, chargeID string, accountID, amount int64) (bool, error)
}

type depositService struct {
	accountRepo repository.AccountRepository
	depositRepo repository.DepositRepository
	catalogRepo repository.CatalogRepository
	redisClient redis.RedisClient
	gateway     gateway.PaymentGateway
}

func NewDepositService(
	accountRepo repository.AccountRepository,
	depositRepo repository.DepositRepository,
	catalogRepo repository.CatalogRepository,
	redisClient redis.RedisClient,
	gw gateway.PaymentGateway,
) *depositService {
	return &depositService{
		accountRepo: accountRepo,
		depositRepo: depositRepo,
		catalogRepo: catalogRepo,
		redisClient: redisClient,
		gateway:     gw,
	}
}

func awaitingKey(accountID int64) string {
	return fmt.Sprintf("deposit:%d:awaiting", accountID)
}

// Start moves the account to AWAITING_AMOUNT. Starting again while already
// awaiting just refreshes the TTL, so the front-end re-prompts without
// stacking requests.
func (s *depositService) Start(ctx context.Context, accountID int64) error {
	tracer := otel.Tracer("deposit-service")
	ctx, span := tracer.Start(ctx, "StartDeposit")
	span.SetAttributes(attribute.Int64("account_id", accountID))
	defer span.End()

	if err := s.redisClient.Set(ctx, awaitingKey(accountID), "1", awaitingTTL); err != nil {
		span.RecordError(err)
		slog.Error("failed to set deposit state", "account_id", accountID, "error", err)
		return err
	}
	slog.Info("deposit started", "account_id", accountID)
	return nil
}

func (s *depositService) Awaiting(ctx context.Context, accountID int64) bool {
	_, err := s.redisClient.Get(ctx, awaitingKey(accountID))
	return err == nil
}

// SubmitAmount handles the one text message the state machine is waiting for.
// Whatever happens the account leaves AWAITING_AMOUNT before this returns.
func (s *depositService) SubmitAmount(ctx context.Context, accountID int64, text string) (string, error) {
	tracer := otel.Tracer("deposit-service")
	ctx, span := tracer.Start(ctx, "SubmitDepositAmount")
	span.SetAttributes(attribute.Int64("account_id", accountID))
	defer span.End()

	if !s.Awaiting(ctx, accountID) {
		span.SetStatus(codes.Error, "no pending deposit")
		return "", pkgerrors.ErrDepositNotPending
	}
	defer func() {
		if err := s.redisClient.Del(ctx, awaitingKey(accountID)); err != nil {
			slog.Error("failed to clear deposit state", "account_id", accountID, "error", err)
		}
	}()

	amount, err := parseAmount(text)
	if err != nil {
		span.SetStatus(codes.Error, "invalid amount")
		slog.Warn("invalid deposit amount", "account_id", accountID, "text", text)
		return "", pkgerrors.ErrInvalidAmount
	}

	charge, err := s.gateway.CreateCharge(ctx, amount,
		fmt.Sprintf("Deposit RC Store - %d", accountID),
		strconv.FormatInt(accountID, 10))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "charge creation failed")
		slog.Error("failed to create charge", "account_id", accountID, "amount", amount, "error", err)
		return "", pkgerrors.ErrPaymentGateway
	}
	if charge.Status != gateway.StatusCreated {
		span.SetStatus(codes.Error, "unexpected charge status")
		slog.Error("unexpected charge status", "account_id", accountID, "status", charge.Status)
		return "", pkgerrors.ErrPaymentGateway
	}

	slog.Info("charge created for deposit", "account_id", accountID, "amount", amount)
	return charge.Code, nil
}

// Confirm applies a gateway-confirmed payment. Crediting is keyed by the
// charge id: the redis marker short-circuits retries, and CreditOnce is the
// durable exactly-once guarantee underneath it.
func (s *depositService) Confirm(ctx context.Context, chargeID string, accountID, amount int64) (bool, error) {
	tracer := otel.Tracer("deposit-service")
	ctx, span := tracer.Start(ctx, "ConfirmDeposit")
	span.SetAttributes(
		attribute.String("charge_id", chargeID),
		attribute.Int64("account_id", accountID),
		attribute.Int64("amount", amount),
	)
	defer span.End()

	if chargeID == "" || amount <= 0 {
		span.SetStatus(codes.Error, "invalid confirmation")
		return false, pkgerrors.ErrInvalidInput
	}

	markerKey := fmt.Sprintf("payment:%s", chargeID)
	fresh, markerErr := s.redisClient.SetNX(ctx, markerKey, "credited", paymentMarkerTTL)
	if markerErr != nil {
		span.RecordError(markerErr)
		slog.Error("failed to set payment marker", "charge_id", chargeID, "error", markerErr)
		// Fall through: the deposits table still protects against doubles.
	} else if !fresh {
		slog.Info("payment confirmation already seen", "charge_id", chargeID)
		return false, nil
	}

	policy, err := s.catalogRepo.GetBonusPolicy(ctx)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to load bonus policy", "error", err)
		policy.Active = false
	}
	bonus := policy.BonusFor(amount)

	applied, err := s.depositRepo.CreditOnce(ctx, chargeID, accountID, amount, bonus)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credit failed")
		slog.Error("failed to credit deposit", "charge_id", chargeID, "account_id", accountID, "error", err)
		// The credit did not land; release the marker so the next delivery
		// can try again instead of hitting the already-seen fast path.
		if markerErr == nil {
			if delErr := s.redisClient.Del(ctx, markerKey); delErr != nil {
				slog.Error("failed to release payment marker", "charge_id", chargeID, "error", delErr)
			}
		}
		return false, err
	}
	if applied {
		observability.DepositsCredited.Inc()
		slog.Info("deposit confirmed", "charge_id", chargeID, "account_id", accountID, "amount", amount, "bonus", bonus)
	}
	return applied, nil
}

// parseAmount turns user text like "50", "49.90" or "49,90" into cents.
func parseAmount(text string) (int64, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if text == "" {
		return 0, stderrors.New("empty amount")
	}

	whole, frac, hasFrac := strings.Cut(text, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, stderrors.New("not a positive decimal")
	}
	// units*100+99 must stay within int64.
	if units >= math.MaxInt64/100 {
		return 0, stderrors.New("amount too large")
	}

	cents := units * 100
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, stderrors.New("at most two decimal places")
		}
		if len(frac) == 1 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || f < 0 {
			return 0, stderrors.New("not a positive decimal")
		}
		cents += f
	}

	if cents <= 0 {
		return 0, stderrors.New("amount must be positive")
	}
	return cents, nil
}
