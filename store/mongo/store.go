// Package mongo implements store.Store on MongoDB.
//
// Apply runs inside a multi-document transaction, which requires a replica
// set or sharded cluster. WithoutTransactions disables it for standalone
// development servers at the cost of atomicity.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/types"
)

// Collection name constants.
const (
	colAccounts   = "chainpay_accounts"
	colAllowances = "chainpay_allowances"
	colMerchants  = "chainpay_merchants"
	colInvoices   = "chainpay_invoices"
	colEvents     = "chainpay_events"
	colCounters   = "chainpay_counters"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	closed       atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithoutTransactions writes changesets without a session transaction.
func WithoutTransactions() Option {
	return func(s *Store) { s.transactions = false }
}

// New creates a store on database of an already connected client.
func New(client *mongo.Client, database string, opts ...Option) *Store {
	s := &Store{
		client:       client,
		db:           client.Database(database),
		transactions: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials uri and creates a store on database.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("chainpay/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("chainpay/mongo: ping: %w", err)
	}
	return New(client, database, opts...), nil
}

// Database returns the underlying database for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all ChainPay collections.
func (s *Store) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("chainpay/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the database with every ChainPay collection.
func (s *Store) Drop(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	return s.db.Drop(ctx)
}

// ==================== State ====================

// Load reads every collection into a Snapshot.
func (s *Store) Load(ctx context.Context) (*store.Snapshot, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	snap := &store.Snapshot{}

	var accounts []accountModel
	if err := s.findAll(ctx, colAccounts, &accounts); err != nil {
		return nil, err
	}
	for i := range accounts {
		a, err := fromAccountModel(&accounts[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/mongo: account %s: %w", accounts[i].ID, err)
		}
		snap.Accounts = append(snap.Accounts, a)
	}

	var allowances []allowanceModel
	if err := s.findAll(ctx, colAllowances, &allowances); err != nil {
		return nil, err
	}
	for i := range allowances {
		a, err := fromAllowanceModel(&allowances[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/mongo: allowance %s: %w", allowances[i].ID, err)
		}
		snap.Allowances = append(snap.Allowances, a)
	}

	var merchants []merchantModel
	if err := s.findAll(ctx, colMerchants, &merchants); err != nil {
		return nil, err
	}
	for i := range merchants {
		m, err := fromMerchantModel(&merchants[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/mongo: merchant %s: %w", merchants[i].ID, err)
		}
		snap.Merchants = append(snap.Merchants, m)
	}

	var invoices []invoiceModel
	if err := s.findAll(ctx, colInvoices, &invoices); err != nil {
		return nil, err
	}
	for i := range invoices {
		inv, err := fromInvoiceModel(&invoices[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/mongo: invoice %s: %w", invoices[i].ID, err)
		}
		snap.Invoices = append(snap.Invoices, inv)
	}

	var counters countersModel
	err := s.db.Collection(colCounters).FindOne(ctx, bson.M{"_id": countersID}).Decode(&counters)
	switch {
	case isNoDocuments(err):
	case err != nil:
		return nil, fmt.Errorf("chainpay/mongo: load counters: %w", err)
	default:
		snap.Counters = store.Counters{
			Nonce:    uint64(counters.Nonce),
			EventSeq: uint64(counters.EventSeq),
		}
	}

	return snap, nil
}

func (s *Store) findAll(ctx context.Context, col string, out any) error {
	cur, err := s.db.Collection(col).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("chainpay/mongo: load %s: %w", col, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("chainpay/mongo: decode %s: %w", col, err)
	}
	return nil
}

// Apply writes cs, inside a transaction unless disabled.
func (s *Store) Apply(ctx context.Context, cs *store.Changeset) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}

	if !s.transactions {
		if err := s.write(ctx, cs); err != nil {
			return fmt.Errorf("chainpay/mongo: apply: %w", err)
		}
		return nil
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("chainpay/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, s.write(ctx, cs)
	})
	if err != nil {
		return fmt.Errorf("chainpay/mongo: apply: %w", err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, cs *store.Changeset) error {
	now := time.Now().UTC()

	accounts := make([]mongo.WriteModel, 0, len(cs.Accounts))
	for _, a := range cs.Accounts {
		m := toAccountModel(a, now)
		accounts = append(accounts, replace(m.ID, m))
	}
	if err := s.bulk(ctx, colAccounts, accounts); err != nil {
		return err
	}

	allowances := make([]mongo.WriteModel, 0, len(cs.Allowances))
	for _, a := range cs.Allowances {
		m := toAllowanceModel(a, now)
		allowances = append(allowances, replace(m.ID, m))
	}
	if err := s.bulk(ctx, colAllowances, allowances); err != nil {
		return err
	}

	merchants := make([]mongo.WriteModel, 0, len(cs.Merchants))
	for _, mer := range cs.Merchants {
		m := toMerchantModel(mer)
		merchants = append(merchants, replace(m.ID, m))
	}
	if err := s.bulk(ctx, colMerchants, merchants); err != nil {
		return err
	}

	invoices := make([]mongo.WriteModel, 0, len(cs.Invoices))
	for _, inv := range cs.Invoices {
		m := toInvoiceModel(inv)
		invoices = append(invoices, replace(m.ID, m))
	}
	if err := s.bulk(ctx, colInvoices, invoices); err != nil {
		return err
	}

	if len(cs.Events) > 0 {
		docs := make([]any, 0, len(cs.Events))
		for _, rec := range cs.Events {
			docs = append(docs, toEventModel(rec))
		}
		if _, err := s.db.Collection(colEvents).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}

	counters := &countersModel{
		ID:       countersID,
		Nonce:    int64(cs.Counters.Nonce),
		EventSeq: int64(cs.Counters.EventSeq),
	}
	return s.bulk(ctx, colCounters, []mongo.WriteModel{replace(countersID, counters)})
}

func (s *Store) bulk(ctx context.Context, col string, models []mongo.WriteModel) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := s.db.Collection(col).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("write %s: %w", col, err)
	}
	return nil
}

func replace(key, doc any) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(bson.M{"_id": key}).
		SetReplacement(doc).
		SetUpsert(true)
}

// ==================== Events ====================

// ListEvents returns persisted events matching q ordered by sequence.
func (s *Store) ListEvents(ctx context.Context, q event.Query) ([]event.Record, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}

	filter := bson.M{"_id": bson.M{"$gt": int64(q.AfterSeq)}}
	if q.Name != "" {
		filter["name"] = string(q.Name)
	}
	if !q.Subject.IsZero() {
		filter["subject"] = q.Subject.Hex()
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.db.Collection(colEvents).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("chainpay/mongo: list events: %w", err)
	}
	var models []eventModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("chainpay/mongo: decode events: %w", err)
	}

	out := make([]event.Record, 0, len(models))
	for i := range models {
		rec, err := fromEventModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("chainpay/mongo: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ==================== Helpers ====================

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all ChainPay collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAllowances: {
			{
				Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "spender", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colMerchants: {
			{Keys: bson.D{{Key: "is_active", Value: 1}}},
		},
		colInvoices: {
			{Keys: bson.D{{Key: "merchant", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "record_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "subject", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
}
