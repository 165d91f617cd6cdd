// Package sqldb implements store.Store over GORM. It is dialect-neutral;
// store/sqlite and store/postgres open the connection and hand it here.
package sqldb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/invoice"
	"github.com/chainpayid/chainpay/ledger"
	"github.com/chainpayid/chainpay/merchant"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on a GORM connection.
type Store struct {
	db     *gorm.DB
	closed atomic.Bool
}

// New wraps an open GORM connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying GORM connection for direct access.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates the ChainPay tables.
func (s *Store) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	err := s.db.WithContext(ctx).AutoMigrate(
		&accountModel{},
		&allowanceModel{},
		&merchantModel{},
		&invoiceModel{},
		&eventModel{},
		&counterModel{},
	)
	if err != nil {
		return fmt.Errorf("chainpay/sqldb: migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ==================== State ====================

// Load reads every table into a Snapshot.
func (s *Store) Load(ctx context.Context) (*store.Snapshot, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	db := s.db.WithContext(ctx)
	snap := &store.Snapshot{}

	var accounts []accountModel
	if err := db.Order("address").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("chainpay/sqldb: load accounts: %w", err)
	}
	for i := range accounts {
		a, err := fromAccountModel(&accounts[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/sqldb: account %s: %w", accounts[i].Address, err)
		}
		snap.Accounts = append(snap.Accounts, a)
	}

	var allowances []allowanceModel
	if err := db.Order("owner, spender").Find(&allowances).Error; err != nil {
		return nil, fmt.Errorf("chainpay/sqldb: load allowances: %w", err)
	}
	for i := range allowances {
		a, err := fromAllowanceModel(&allowances[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/sqldb: allowance %s:%s: %w", allowances[i].Owner, allowances[i].Spender, err)
		}
		snap.Allowances = append(snap.Allowances, a)
	}

	var merchants []merchantModel
	if err := db.Order("address").Find(&merchants).Error; err != nil {
		return nil, fmt.Errorf("chainpay/sqldb: load merchants: %w", err)
	}
	for i := range merchants {
		m, err := fromMerchantModel(&merchants[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/sqldb: merchant %s: %w", merchants[i].Address, err)
		}
		snap.Merchants = append(snap.Merchants, m)
	}

	var invoices []invoiceModel
	if err := db.Order("created_at, id").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("chainpay/sqldb: load invoices: %w", err)
	}
	for i := range invoices {
		inv, err := fromInvoiceModel(&invoices[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/sqldb: invoice %s: %w", invoices[i].ID, err)
		}
		snap.Invoices = append(snap.Invoices, inv)
	}

	var counters []counterModel
	if err := db.Find(&counters).Error; err != nil {
		return nil, fmt.Errorf("chainpay/sqldb: load counters: %w", err)
	}
	for _, c := range counters {
		switch c.Name {
		case counterNonce:
			snap.Counters.Nonce = uint64(c.Value)
		case counterEventSeq:
			snap.Counters.EventSeq = uint64(c.Value)
		}
	}

	return snap, nil
}

// Apply writes cs in a single database transaction.
func (s *Store) Apply(ctx context.Context, cs *store.Changeset) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertAccounts(tx, cs.Accounts, now); err != nil {
			return err
		}
		if err := upsertAllowances(tx, cs.Allowances, now); err != nil {
			return err
		}
		if err := upsertMerchants(tx, cs.Merchants); err != nil {
			return err
		}
		if err := upsertInvoices(tx, cs.Invoices); err != nil {
			return err
		}
		if err := insertEvents(tx, cs.Events); err != nil {
			return err
		}
		return upsertCounters(tx, cs.Counters)
	})
	if err != nil {
		return fmt.Errorf("chainpay/sqldb: apply: %w", err)
	}
	return nil
}

func upsertAccounts(tx *gorm.DB, accounts []ledger.Account, at time.Time) error {
	if len(accounts) == 0 {
		return nil
	}
	models := make([]accountModel, 0, len(accounts))
	for _, a := range accounts {
		models = append(models, toAccountModel(a, at))
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(&models).Error
}

func upsertAllowances(tx *gorm.DB, allowances []ledger.Allowance, at time.Time) error {
	if len(allowances) == 0 {
		return nil
	}
	models := make([]allowanceModel, 0, len(allowances))
	for _, a := range allowances {
		models = append(models, toAllowanceModel(a, at))
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "spender"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&models).Error
}

func upsertMerchants(tx *gorm.DB, merchants []*merchant.Merchant) error {
	if len(merchants) == 0 {
		return nil
	}
	models := make([]merchantModel, 0, len(merchants))
	for _, m := range merchants {
		models = append(models, toMerchantModel(m))
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		UpdateAll: true,
	}).Create(&models).Error
}

func upsertInvoices(tx *gorm.DB, invoices []*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	models := make([]invoiceModel, 0, len(invoices))
	for _, inv := range invoices {
		models = append(models, toInvoiceModel(inv))
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&models).Error
}

func insertEvents(tx *gorm.DB, events []event.Record) error {
	if len(events) == 0 {
		return nil
	}
	models := make([]eventModel, 0, len(events))
	for _, rec := range events {
		models = append(models, toEventModel(rec))
	}
	return tx.Create(&models).Error
}

func upsertCounters(tx *gorm.DB, c store.Counters) error {
	models := []counterModel{
		{Name: counterNonce, Value: int64(c.Nonce)},
		{Name: counterEventSeq, Value: int64(c.EventSeq)},
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models).Error
}

// ==================== Events ====================

// ListEvents returns persisted events matching q ordered by sequence.
func (s *Store) ListEvents(ctx context.Context, q event.Query) ([]event.Record, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}

	db := s.db.WithContext(ctx).Model(&eventModel{}).Where("seq > ?", int64(q.AfterSeq))
	if q.Name != "" {
		db = db.Where("name = ?", string(q.Name))
	}
	if !q.Subject.IsZero() {
		db = db.Where("subject = ?", q.Subject.Hex())
	}
	db = db.Order("seq")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var models []eventModel
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("chainpay/sqldb: list events: %w", err)
	}

	out := make([]event.Record, 0, len(models))
	for i := range models {
		rec, err := fromEventModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/sqldb: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Drop removes every ChainPay table.
func (s *Store) Drop(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	return s.db.WithContext(ctx).Migrator().DropTable(
		&accountModel{},
		&allowanceModel{},
		&merchantModel{},
		&invoiceModel{},
		&eventModel{},
		&counterModel{},
	)
}
