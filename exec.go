package chainpay

import (
	"context"
	"fmt"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/id"
	"github.com/chainpayid/chainpay/journal"
	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/types"
)

// execKey marks a context as running inside an operation of an Engine.
type execKey struct{}

// nested reports whether ctx belongs to an operation of e that is still
// running, i.e. a reentrant call from a transfer hook.
func (e *Engine) nested(ctx context.Context) bool {
	owner, _ := ctx.Value(execKey{}).(*Engine)
	if owner != e {
		return false
	}
	j := journal.FromContext(ctx)
	return j != nil && j.Open()
}

// exec runs fn as one operation. A reentrant call runs as a savepoint of the
// enclosing operation; otherwise fn runs under the engine lock, its effects
// are persisted and its events dispatched, or everything is undone.
func (e *Engine) exec(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if e.nested(ctx) {
		return e.savepoint(ctx, op, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	opID := id.NewOperationID()
	jctx, j := journal.BeginRoot(context.WithValue(ctx, execKey{}, e))

	if err := e.run(jctx, j, fn); err != nil {
		e.logger.Debug("operation rejected",
			"op", op,
			"op_id", opID.String(),
			"reason", types.ReasonOf(err),
			"error", err,
		)
		e.plugins.EmitOperationFailed(ctx, op, err)
		return err
	}

	events := j.Events()
	records, err := e.persist(ctx, j, events)
	if err != nil {
		j.Undo()
		e.logger.Error("operation persist failed",
			"op", op,
			"op_id", opID.String(),
			"error", err,
		)
		failure := fmt.Errorf("%w: %s: %w", types.ErrTransactionFailed, op, err)
		e.plugins.EmitOperationFailed(ctx, op, failure)
		return failure
	}

	e.logger.Debug("operation committed",
		"op", op,
		"op_id", opID.String(),
		"events", len(records),
	)

	for i, evt := range events {
		e.plugins.EmitCommitted(ctx, evt, records[i])
	}
	return nil
}

// run executes fn and commits or rolls back j. A panic rolls back before
// propagating.
func (e *Engine) run(ctx context.Context, j *journal.Journal, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			j.Rollback()
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		j.Rollback()
		return err
	}
	j.Commit()
	return nil
}

func (e *Engine) savepoint(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	sctx, sp := journal.Begin(ctx)
	if err := e.run(sctx, sp, fn); err != nil {
		e.logger.Debug("nested operation rejected",
			"op", op,
			"depth", sp.Depth(),
			"reason", types.ReasonOf(err),
		)
		return err
	}
	return nil
}

// view runs a read under the engine lock, or directly when reentrant.
func (e *Engine) view(ctx context.Context, fn func()) {
	if e.nested(ctx) {
		fn()
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// persist writes the records touched by j and its events as one changeset.
func (e *Engine) persist(ctx context.Context, j *journal.Journal, events []event.Event) ([]event.Record, error) {
	dirty := j.Dirty()
	if len(dirty) == 0 && len(events) == 0 {
		return nil, nil
	}

	accounts, allowances, err := e.ledger.Collect(dirty)
	if err != nil {
		return nil, err
	}
	merchants, err := e.merchants.Collect(dirty)
	if err != nil {
		return nil, err
	}
	invoices, err := e.processor.Invoices().Collect(dirty)
	if err != nil {
		return nil, err
	}

	at := e.now().UTC()
	seq := e.eventSeq
	records := make([]event.Record, 0, len(events))
	for _, evt := range events {
		seq++
		rec, err := event.NewRecord(seq, evt, at)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	cs := &store.Changeset{
		Accounts:   accounts,
		Allowances: allowances,
		Merchants:  merchants,
		Invoices:   invoices,
		Events:     records,
		Counters: store.Counters{
			Nonce:    e.processor.Nonce(),
			EventSeq: seq,
		},
	}
	if err := e.store.Apply(ctx, cs); err != nil {
		return nil, err
	}

	e.eventSeq = seq
	return records, nil
}
