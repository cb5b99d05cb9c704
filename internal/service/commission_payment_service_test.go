package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/models"
)

func TestPaymentStateMachine(t *testing.T) {
	env := setupSettlementTest(t, "payment_state_machine")
	ctx := context.Background()
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)
	payment := env.manualPayment(t, partner.ID, 50000, "")

	if _, err := env.payments.MarkAsPaid(ctx, payment.ID, "REF-1"); !errors.Is(err, ErrPaymentNotProcessing) {
		t.Fatalf("expected not processing, got %v", err)
	}
	unchanged, err := env.payments.GetPayment(ctx, payment.ID)
	if err != nil || unchanged.Status != constants.CommissionPaymentStatusPending || unchanged.PaidAt != nil {
		t.Fatalf("rejected transition must not mutate: %+v err=%v", unchanged, err)
	}

	processing, err := env.payments.ProcessPayment(ctx, payment.ID, 77)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if processing.Status != constants.CommissionPaymentStatusProcessing || processing.ProcessedBy == nil || *processing.ProcessedBy != 77 || processing.ProcessedAt == nil {
		t.Fatalf("unexpected processing payment: %+v", processing)
	}
	if _, err := env.payments.ProcessPayment(ctx, payment.ID, 77); !errors.Is(err, ErrPaymentNotPending) {
		t.Fatalf("expected not pending on second process, got %v", err)
	}

	paid, err := env.payments.MarkAsPaid(ctx, payment.ID, "REF-1")
	if err != nil {
		t.Fatalf("mark as paid failed: %v", err)
	}
	if paid.Status != constants.CommissionPaymentStatusPaid || paid.PaidAt == nil || paid.PaymentReference != "REF-1" {
		t.Fatalf("unexpected paid payment: %+v", paid)
	}
	if len(env.notifier.calls) != 1 || env.notifier.calls[0] != payment.ID {
		t.Fatalf("expected one notification, got %v", env.notifier.calls)
	}

	if _, err := env.payments.MarkAsFailed(ctx, payment.ID, "late"); !errors.Is(err, ErrPaymentTerminal) {
		t.Fatalf("paid payment must be terminal, got %v", err)
	}
}

func TestMarkAsPaidSurvivesNotificationFailure(t *testing.T) {
	env := setupSettlementTest(t, "payment_notify_failure")
	ctx := context.Background()
	env.notifier.err = errors.New("queue unavailable")
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)
	payment := env.manualPayment(t, partner.ID, 1000, "")

	if _, err := env.payments.ProcessPayment(ctx, payment.ID, 1); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	paid, err := env.payments.MarkAsPaid(ctx, payment.ID, "")
	if err != nil {
		t.Fatalf("notification failure must not fail the transition: %v", err)
	}
	if paid.Status != constants.CommissionPaymentStatusPaid || !strings.HasPrefix(paid.PaymentReference, "PAY-") {
		t.Fatalf("unexpected paid payment: %+v", paid)
	}
}

func TestMarkAsFailedAppendsNotes(t *testing.T) {
	env := setupSettlementTest(t, "payment_failed_notes")
	ctx := context.Background()
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)
	payment := env.manualPayment(t, partner.ID, 1000, "initial note")

	failed, err := env.payments.MarkAsFailed(ctx, payment.ID, "bank rejected transfer")
	if err != nil {
		t.Fatalf("mark as failed failed: %v", err)
	}
	if failed.Status != constants.CommissionPaymentStatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if !strings.HasPrefix(failed.Notes, "initial note") || !strings.Contains(failed.Notes, "bank rejected transfer") {
		t.Fatalf("reason must be appended to notes, got %q", failed.Notes)
	}
	if _, err := env.payments.MarkAsFailed(ctx, payment.ID, "again"); !errors.Is(err, ErrPaymentTerminal) {
		t.Fatalf("failed payment must be terminal, got %v", err)
	}
	if _, err := env.payments.MarkAsFailed(ctx, payment.ID, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty reason should be rejected, got %v", err)
	}
}

func TestBulkProcessSkipsNonPending(t *testing.T) {
	env := setupSettlementTest(t, "payment_bulk")
	ctx := context.Background()
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)
	first := env.manualPayment(t, partner.ID, 1000, "")
	second := env.manualPayment(t, partner.ID, 2000, "")
	third := env.manualPayment(t, partner.ID, 3000, "")
	if _, err := env.payments.ProcessPayment(ctx, second.ID, 1); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	processed, err := env.payments.BulkProcessPayments(ctx, []uint{first.ID, second.ID, third.ID, third.ID, 9999}, 5)
	if err != nil {
		t.Fatalf("bulk process failed: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 processed, got %d", processed)
	}
	for _, id := range []uint{first.ID, second.ID, third.ID} {
		payment, err := env.payments.GetPayment(ctx, id)
		if err != nil || payment.Status != constants.CommissionPaymentStatusProcessing {
			t.Fatalf("payment %d should be processing: %+v err=%v", id, payment, err)
		}
	}
	if processed, err := env.payments.BulkProcessPayments(ctx, nil, 5); err != nil || processed != 0 {
		t.Fatalf("empty bulk should be a no-op, got %d err=%v", processed, err)
	}
}

func TestPaymentStatisticsAggregates(t *testing.T) {
	env := setupSettlementTest(t, "payment_statistics")
	ctx := context.Background()
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)
	env.manualPayment(t, partner.ID, 1000, "")
	paidLater := env.manualPayment(t, partner.ID, 4000, "")
	env.percentCoupon(t, "STATS10", 10, &partner.ID, 0)
	if _, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "STATS10", UserID: 3, Amount: models.NewMoney(100000)}); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if _, err := env.payments.ProcessPayment(ctx, paidLater.ID, 1); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	stats, err := env.payments.GetPaymentStatistics(ctx)
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.TotalCount != 3 || !moneyEquals(stats.TotalAmount, 14000) {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if bucket := stats.ByStatus[constants.CommissionPaymentStatusPending]; bucket.Count != 2 || !moneyEquals(bucket.Amount, 10000) {
		t.Fatalf("unexpected pending bucket: %+v", bucket)
	}
	if bucket := stats.ByType[constants.CommissionPaymentTypeCoupon]; bucket.Count != 1 || !moneyEquals(bucket.Amount, 9000) {
		t.Fatalf("unexpected coupon bucket: %+v", bucket)
	}
	if bucket := stats.ByType[constants.CommissionPaymentTypeManual]; bucket.Count != 2 || !moneyEquals(bucket.Amount, 5000) {
		t.Fatalf("unexpected manual bucket: %+v", bucket)
	}
}

func TestCreateManualPaymentValidation(t *testing.T) {
	env := setupSettlementTest(t, "payment_manual_validation")
	ctx := context.Background()
	if _, err := env.payments.CreateManualPayment(ctx, CreateManualPaymentInput{PartnerID: 404, Amount: models.NewMoney(10)}); !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("expected partner not found, got %v", err)
	}
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)
	if _, err := env.payments.CreateManualPayment(ctx, CreateManualPaymentInput{PartnerID: partner.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}
