package ledger

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"ptscope/internal/model"
)

// handleClaimAdminFee records an explicit admin fee skim as a fee claim and
// rolls the claimed amount into the pool total. The next-gen event shape is
// deliberately not processed; attribution for those pools is left open and
// the gap is kept visible rather than guessed at.
func (p *Processor) handleClaimAdminFee(ctx context.Context, e *model.ClaimAdminFeeEvent) error {
	if e.NG {
		p.logger.Debug("skipping next-gen admin fee claim", zap.String("pool", e.Address))
		return nil
	}

	meta := e.EventMeta
	pool, err := p.poolFor(ctx, meta, "ClaimAdminFee")
	if err != nil {
		return err
	}
	if pool == nil {
		return nil
	}

	if err := p.appendFeeClaim(ctx, meta, pool.ID, e.Admin, e.Tokens, big.NewInt(0), big.NewInt(0)); err != nil {
		return err
	}

	pool.TotalClaimedAdminFees = new(big.Int).Add(pool.TotalClaimedAdminFees, orZero(e.Tokens))
	if err := p.store.SetPool(ctx, pool); err != nil {
		return fmt.Errorf("set pool: %w", err)
	}
	return nil
}

// handleCommitNewParameters stores the announced admin fee change; nothing
// takes effect until the matching apply event.
func (p *Processor) handleCommitNewParameters(ctx context.Context, e *model.CommitNewParametersEvent) error {
	meta := e.EventMeta
	pool, err := p.poolFor(ctx, meta, "CommitNewParameters")
	if err != nil {
		return err
	}
	if pool == nil {
		return nil
	}

	pool.FutureAdminFeeRate = orZero(e.AdminFee)
	pool.FutureAdminFeeDeadline = orZero(e.Deadline)
	if err := p.store.SetPool(ctx, pool); err != nil {
		return fmt.Errorf("set pool: %w", err)
	}
	return nil
}

// handleNewParameters applies an admin fee change: the admin fee rate comes
// from the event, the fee rate is re-read because the event does not carry
// it. The next-gen shape is a deliberate no-op, mirroring the claim gap.
func (p *Processor) handleNewParameters(ctx context.Context, e *model.NewParametersEvent) error {
	if e.NG {
		p.logger.Debug("skipping next-gen parameter change", zap.String("pool", e.Address))
		return nil
	}

	meta := e.EventMeta
	pool, err := p.poolFor(ctx, meta, "NewParameters")
	if err != nil {
		return err
	}
	if pool == nil {
		return nil
	}

	pool.FeeRate = p.feeRate(ctx, pool, meta.BlockNumber)
	pool.AdminFeeRate = orZero(e.AdminFee)
	if err := p.store.SetPool(ctx, pool); err != nil {
		return fmt.Errorf("set pool: %w", err)
	}
	return nil
}
