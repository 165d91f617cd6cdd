package chainpay_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainpayid/chainpay"
	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/store/memory"
	"github.com/chainpayid/chainpay/types"
)

var (
	shop      = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	customer  = types.MustParseAddress("0x00000000000000000000000000000000000000b2")
	collector = types.MustParseAddress("0x00000000000000000000000000000000000000fe")
	bystander = types.MustParseAddress("0x00000000000000000000000000000000000000cc")
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type eventLog struct {
	mu     sync.Mutex
	names  []event.Name
	failed []string
}

func (l *eventLog) Name() string { return "event-log" }

func (l *eventLog) OnEventCommitted(_ context.Context, rec event.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, rec.Name)
	return nil
}

func (l *eventLog) OnOperationFailed(_ context.Context, op string, _ error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, op)
	return nil
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names, l.failed = nil, nil
}

type flakyStore struct {
	*memory.Store
	fail bool
}

func (s *flakyStore) Apply(ctx context.Context, cs *store.Changeset) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.Store.Apply(ctx, cs)
}

type harness struct {
	engine *chainpay.Engine
	store  store.Store
	clock  *clock
	log    *eventLog
}

func newHarness(t *testing.T, s store.Store, opts ...chainpay.Option) *harness {
	t.Helper()

	h := &harness{
		store: s,
		clock: &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		log:   &eventLog{},
	}
	base := []chainpay.Option{
		chainpay.WithLogger(slog.New(slog.DiscardHandler)),
		chainpay.WithFeeCollector(collector),
		chainpay.WithClock(h.clock.Now),
		chainpay.WithPlugin(h.log),
	}

	e, err := chainpay.New(s, append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	h.engine = e
	return h
}

// setup registers the merchant and funds the customer with an unlimited
// approval, the way a wallet does before its first payment.
func (h *harness) setup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := h.engine.Register(ctx, shop, merchant.Profile{BusinessName: "Test Merchant", Category: "Retail"})
	require.NoError(t, err)
	require.NoError(t, h.engine.Mint(ctx, customer, 10_000_000000))
	require.NoError(t, h.engine.Approve(ctx, customer, h.engine.ProcessorAddress(), chainpay.MaxAmount))
	h.log.reset()
}

func TestNewRequiresFeeCollector(t *testing.T) {
	_, err := chainpay.New(memory.New())
	require.ErrorIs(t, err, chainpay.ErrInvalidFeeConfig)

	_, err = chainpay.New(memory.New(), chainpay.WithFeeCollector(collector), chainpay.WithFeeBasisPoints(10_001))
	require.ErrorIs(t, err, chainpay.ErrInvalidFeeConfig)

	e, err := chainpay.New(memory.New(), chainpay.WithFeeCollector(collector))
	require.NoError(t, err)
	require.Equal(t, uint64(50), e.FeeBasisPoints())
	require.Equal(t, collector, e.FeeCollector())
}

func TestRegisterThenPay(t *testing.T) {
	h := newHarness(t, memory.New())
	h.setup(t)
	ctx := context.Background()

	supply := h.engine.TotalSupply(ctx)
	paymentID, err := h.engine.ProcessPayment(ctx, customer, shop, 100_000000)
	require.NoError(t, err)
	require.False(t, paymentID.IsNil())

	require.Equal(t, types.Amount(99_500000), h.engine.BalanceOf(ctx, shop))
	require.Equal(t, types.Amount(500000), h.engine.BalanceOf(ctx, collector))
	require.Equal(t, types.Amount(9_900_000000), h.engine.BalanceOf(ctx, customer))
	require.Equal(t, supply, h.engine.TotalSupply(ctx))
	require.Equal(t, chainpay.MaxAmount, h.engine.Allowance(ctx, customer, h.engine.ProcessorAddress()))

	m, err := h.engine.GetMerchant(ctx, shop)
	require.NoError(t, err)
	require.Equal(t, uint64(1), m.TotalTransactions)
	require.Equal(t, types.Amount(100_000000), m.TotalVolume)

	require.Equal(t, []event.Name{event.NameTransfer, event.NameTransfer, event.NamePaymentProcessed}, h.log.names)

	recs, err := h.engine.Events(ctx, event.Query{Name: event.NamePaymentProcessed})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	decoded, err := recs[0].Decode()
	require.NoError(t, err)
	require.Equal(t, event.PaymentProcessed{
		Payer:     customer,
		Merchant:  shop,
		Amount:    100_000000,
		Fee:       500000,
		NetAmount: 99_500000,
		Timestamp: uint64(h.clock.Now().Unix()),
		PaymentID: paymentID,
	}, decoded)
}

func TestRegisterTwice(t *testing.T) {
	h := newHarness(t, memory.New())
	ctx := context.Background()

	_, err := h.engine.Register(ctx, shop, merchant.Profile{BusinessName: "First", Category: "Retail"})
	require.NoError(t, err)

	_, err = h.engine.Register(ctx, shop, merchant.Profile{BusinessName: "Second", Category: "Other"})
	require.ErrorIs(t, err, chainpay.ErrAlreadyRegistered)
	require.Equal(t, chainpay.CodeAuthorization, chainpay.CodeOf(err))

	m, err := h.engine.GetMerchant(ctx, shop)
	require.NoError(t, err)
	require.Equal(t, "First", m.BusinessName)
	require.Contains(t, h.log.failed, "Register")
}

func TestInvoiceLifecycle(t *testing.T) {
	h := newHarness(t, memory.New())
	h.setup(t)
	ctx := context.Background()

	invoiceID, err := h.engine.CreateInvoice(ctx, shop, 75_000000, "Test Invoice", 30)
	require.NoError(t, err)

	status, err := h.engine.InvoiceStatus(ctx, invoiceID)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusOpen, status)

	paymentID, err := h.engine.PayInvoice(ctx, customer, invoiceID)
	require.NoError(t, err)
	require.Equal(t, types.Amount(74_625000), h.engine.BalanceOf(ctx, shop))

	inv, err := h.engine.GetInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.True(t, inv.IsPaid)
	require.Equal(t, customer, inv.PaidBy)
	require.Equal(t, paymentID, inv.PaymentID)

	_, err = h.engine.PayInvoice(ctx, customer, invoiceID)
	require.ErrorIs(t, err, chainpay.ErrInvoiceAlreadyPaid)
	require.True(t, chainpay.IsStateConflict(err))
	require.Equal(t, types.Amount(74_625000), h.engine.BalanceOf(ctx, shop))

	require.Equal(t, []event.Name{
		event.NameInvoiceCreated,
		event.NameTransfer, event.NameTransfer,
		event.NamePaymentProcessed,
		event.NameInvoicePaid,
	}, h.log.names)

	list := h.engine.ListInvoices(ctx, shop)
	require.Len(t, list, 1)
}

func TestInvoiceExpiry(t *testing.T) {
	h := newHarness(t, memory.New())
	h.setup(t)
	ctx := context.Background()

	invoiceID, err := h.engine.CreateInvoice(ctx, shop, 1_000000, "coffee", 1)
	require.NoError(t, err)

	h.clock.Advance(61 * time.Second)

	status, err := h.engine.InvoiceStatus(ctx, invoiceID)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusExpired, status)

	_, err = h.engine.PayInvoice(ctx, customer, invoiceID)
	require.ErrorIs(t, err, chainpay.ErrInvoiceExpired)

	_, err = h.engine.PayInvoice(ctx, customer, id.Derive("missing"))
	require.ErrorIs(t, err, chainpay.ErrInvoiceNotFound)
	require.True(t, chainpay.IsNotFound(err))
}

func TestPaymentFailuresLeaveNoTrace(t *testing.T) {
	h := newHarness(t, memory.New())
	h.setup(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Approve(ctx, customer, h.engine.ProcessorAddress(), 99_500000))
	before, err := h.engine.Events(ctx, event.Query{})
	require.NoError(t, err)

	_, err = h.engine.ProcessPayment(ctx, customer, shop, 100_000000)
	require.ErrorIs(t, err, chainpay.ErrInsufficientAllowance)
	require.True(t, chainpay.IsFundsError(err))

	require.Equal(t, types.Amount(0), h.engine.BalanceOf(ctx, shop))
	require.Equal(t, types.Amount(10_000_000000), h.engine.BalanceOf(ctx, customer))
	require.Equal(t, types.Amount(99_500000), h.engine.Allowance(ctx, customer, h.engine.ProcessorAddress()))

	m, err := h.engine.GetMerchant(ctx, shop)
	require.NoError(t, err)
	require.Zero(t, m.TotalTransactions)

	after, err := h.engine.Events(ctx, event.Query{})
	require.NoError(t, err)
	require.Len(t, after, len(before))
}

func TestPayInvoiceRollbackOnFeeFailure(t *testing.T) {
	h := newHarness(t, memory.New())
	h.setup(t)
	ctx := context.Background()

	invoiceID, err := h.engine.CreateInvoice(ctx, shop, 100_000000, "big order", 0)
	require.NoError(t, err)
	require.NoError(t, h.engine.Approve(ctx, customer, h.engine.ProcessorAddress(), 99_500000))

	_, err = h.engine.PayInvoice(ctx, customer, invoiceID)
	require.ErrorIs(t, err, chainpay.ErrInsufficientAllowance)

	inv, err := h.engine.GetInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.False(t, inv.IsPaid)
	require.True(t, inv.PaidBy.IsZero())
	require.Equal(t, types.Amount(0), h.engine.BalanceOf(ctx, shop))

	// A fresh approval makes the same invoice payable.
	require.NoError(t, h.engine.Approve(ctx, customer, h.engine.ProcessorAddress(), chainpay.MaxAmount))
	_, err = h.engine.PayInvoice(ctx, customer, invoiceID)
	require.NoError(t, err)
}

func TestReentrantPayInvoiceRejected(t *testing.T) {
	var (
		engine  *chainpay.Engine
		target  id.ID
		reentry []error
	)

	h := newHarness(t, memory.New(), chainpay.WithTransferHook(
		func(ctx context.Context, _, to types.Address, _ types.Amount) error {
			if to == shop && !target.IsNil() {
				_, err := engine.PayInvoice(ctx, customer, target)
				reentry = append(reentry, err)
			}
			return nil
		}))
	engine = h.engine
	h.setup(t)
	ctx := context.Background()

	invoiceID, err := h.engine.CreateInvoice(ctx, shop, 10_000000, "reentrant", 0)
	require.NoError(t, err)
	target = invoiceID

	_, err = h.engine.PayInvoice(ctx, customer, invoiceID)
	require.NoError(t, err)

	require.Len(t, reentry, 1)
	require.ErrorIs(t, reentry[0], chainpay.ErrInvoiceAlreadyPaid)
	require.Equal(t, types.Amount(9_950000), h.engine.BalanceOf(ctx, shop))

	m, err := h.engine.GetMerchant(ctx, shop)
	require.NoError(t, err)
	require.Equal(t, uint64(1), m.TotalTransactions)
}

func TestNestedCallJoinsOuterOperation(t *testing.T) {
	var engine *chainpay.Engine
	forward := false

	h := newHarness(t, memory.New(), chainpay.WithTransferHook(
		func(ctx context.Context, _, to types.Address, amount types.Amount) error {
			if forward && to == shop {
				// The merchant forwards part of what it received.
				return engine.Transfer(ctx, shop, bystander, 1_000000)
			}
			return nil
		}))
	engine = h.engine
	h.setup(t)
	ctx := context.Background()
	forward = true

	// Outer failure undoes the nested transfer as well.
	require.NoError(t, h.engine.Approve(ctx, customer, h.engine.ProcessorAddress(), 99_500000))
	_, err := h.engine.ProcessPayment(ctx, customer, shop, 100_000000)
	require.ErrorIs(t, err, chainpay.ErrInsufficientAllowance)
	require.Equal(t, types.Amount(0), h.engine.BalanceOf(ctx, bystander))
	require.Equal(t, types.Amount(0), h.engine.BalanceOf(ctx, shop))

	// Outer success keeps it.
	require.NoError(t, h.engine.Approve(ctx, customer, h.engine.ProcessorAddress(), chainpay.MaxAmount))
	h.log.reset()
	_, err = h.engine.ProcessPayment(ctx, customer, shop, 100_000000)
	require.NoError(t, err)
	require.Equal(t, types.Amount(1_000000), h.engine.BalanceOf(ctx, bystander))
	require.Equal(t, types.Amount(98_500000), h.engine.BalanceOf(ctx, shop))
	require.Equal(t, []event.Name{
		event.NameTransfer, event.NameTransfer, event.NameTransfer, event.NamePaymentProcessed,
	}, h.log.names)
}

func TestPersistFailureRollsBack(t *testing.T) {
	s := &flakyStore{Store: memory.New()}
	h := newHarness(t, s)
	h.setup(t)
	ctx := context.Background()

	s.fail = true
	_, err := h.engine.ProcessPayment(ctx, customer, shop, 100_000000)
	require.ErrorIs(t, err, chainpay.ErrTransactionFailed)
	require.True(t, chainpay.IsRetryable(err))
	require.Equal(t, types.Amount(0), h.engine.BalanceOf(ctx, shop))
	require.Equal(t, types.Amount(10_000_000000), h.engine.BalanceOf(ctx, customer))
	require.Empty(t, h.log.names)

	s.fail = false
	_, err = h.engine.ProcessPayment(ctx, customer, shop, 100_000000)
	require.NoError(t, err)
	require.Equal(t, types.Amount(99_500000), h.engine.BalanceOf(ctx, shop))
}

func TestRestartRestoresState(t *testing.T) {
	s := memory.New()
	h := newHarness(t, s)
	h.setup(t)
	ctx := context.Background()

	invoiceID, err := h.engine.CreateInvoice(ctx, shop, 5_000000, "persisted", 0)
	require.NoError(t, err)
	_, err = h.engine.ProcessPayment(ctx, customer, shop, 2_000000)
	require.NoError(t, err)

	restarted := newHarness(t, s)
	e := restarted.engine

	require.True(t, e.IsActiveMerchant(ctx, shop))
	require.Equal(t, h.engine.BalanceOf(ctx, shop), e.BalanceOf(ctx, shop))
	require.Equal(t, h.engine.TotalSupply(ctx), e.TotalSupply(ctx))
	require.Equal(t, chainpay.MaxAmount, e.Allowance(ctx, customer, e.ProcessorAddress()))

	inv, err := e.GetInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.False(t, inv.IsPaid)

	_, err = e.PayInvoice(ctx, customer, invoiceID)
	require.NoError(t, err)

	recs, err := e.Events(ctx, event.Query{})
	require.NoError(t, err)
	for i := 1; i < len(recs); i++ {
		require.Equal(t, recs[i-1].Seq+1, recs[i].Seq)
	}
}

func TestFaucet(t *testing.T) {
	h := newHarness(t, memory.New())
	ctx := context.Background()

	_, err := h.engine.Faucet(ctx, customer)
	require.ErrorIs(t, err, chainpay.ErrFaucetDisabled)

	f := newHarness(t, memory.New(), chainpay.WithFaucet(0))
	minted, err := f.engine.Faucet(ctx, customer)
	require.NoError(t, err)
	require.Equal(t, chainpay.IDRX(10_000), minted)
	require.Equal(t, chainpay.IDRX(10_000), f.engine.BalanceOf(ctx, customer))
}

func TestQuote(t *testing.T) {
	h := newHarness(t, memory.New())

	fee, net := h.engine.Quote(1000_000000)
	require.Equal(t, types.Amount(5_000000), fee)
	require.Equal(t, types.Amount(995_000000), net)
}

func TestConcurrentPayments(t *testing.T) {
	h := newHarness(t, memory.New())
	h.setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.ProcessPayment(ctx, customer, shop, 1_000000)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, types.Amount(50*995000), h.engine.BalanceOf(ctx, shop))
	require.Equal(t, types.Amount(50*5000), h.engine.BalanceOf(ctx, collector))

	m, err := h.engine.GetMerchant(ctx, shop)
	require.NoError(t, err)
	require.Equal(t, uint64(50), m.TotalTransactions)
}
