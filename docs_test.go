package chainpay_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/chainpayid/chainpay"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/store/memory"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		treasury := chainpay.MustParseAddress("0x1000000000000000000000000000000000000001")
		shop := chainpay.MustParseAddress("0x2000000000000000000000000000000000000002")
		payer := chainpay.MustParseAddress("0x3000000000000000000000000000000000000003")

		engine, err := chainpay.New(memory.New(),
			chainpay.WithLogger(slog.New(slog.DiscardHandler)),
			chainpay.WithFeeCollector(treasury),
			chainpay.WithFaucet(0),
		)
		if err != nil {
			t.Fatal(err)
		}
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop(ctx)

		if _, err := engine.Register(ctx, shop, merchant.Profile{
			BusinessName: "Warung Kopi",
			Category:     "Food & Beverage",
		}); err != nil {
			t.Fatal(err)
		}

		if _, err := engine.Faucet(ctx, payer); err != nil {
			t.Fatal(err)
		}
		if err := engine.Approve(ctx, payer, engine.ProcessorAddress(), chainpay.MaxAmount); err != nil {
			t.Fatal(err)
		}

		paymentID, err := engine.ProcessPayment(ctx, payer, shop, chainpay.IDRX(100))
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("payment %s settled\n", paymentID.Short())

		if got := engine.BalanceOf(ctx, shop); got != chainpay.MustParseAmount("99.5") {
			t.Errorf("merchant balance: got %s, want 99.5", got)
		}
		if got := engine.BalanceOf(ctx, treasury); got != chainpay.MustParseAmount("0.5") {
			t.Errorf("fee collector balance: got %s, want 0.5", got)
		}

		invoiceID, err := engine.CreateInvoice(ctx, shop, chainpay.IDRX(75), "Order #42", 30)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := engine.PayInvoice(ctx, payer, invoiceID); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.PayInvoice(ctx, payer, invoiceID); !chainpay.IsStateConflict(err) {
			t.Errorf("second payment: got %v, want state conflict", err)
		}
	})

	t.Run("AmountExamples", func(t *testing.T) {
		if chainpay.IDRX(100) != 100_000000 {
			t.Error("IDRX(100) should be 100_000000 micro-units")
		}
		if s := chainpay.MustParseAmount("99.5").String(); s != "99.5" {
			t.Errorf("String: got %q", s)
		}

		engine, err := chainpay.New(memory.New(),
			chainpay.WithFeeCollector(chainpay.MustParseAddress("0x1000000000000000000000000000000000000001")))
		if err != nil {
			t.Fatal(err)
		}
		if fee, _ := engine.Quote(199); fee != 0 {
			t.Errorf("Quote(199): fee %d, want 0", fee)
		}
		if fee, _ := engine.Quote(200); fee != 1 {
			t.Errorf("Quote(200): fee %d, want 1", fee)
		}
	})
}
