package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ptscope/internal/model"
	"ptscope/internal/store"
)

// Store provides Postgres persistence for ledger entities. Amounts are kept
// as decimal strings; precision never leaves big.Int on the Go side.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pools (
			id TEXT PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			address TEXT NOT NULL,
			variant TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			fee_rate TEXT NOT NULL,
			admin_fee_rate TEXT NOT NULL,
			future_admin_fee_rate TEXT NOT NULL,
			future_admin_fee_deadline TEXT NOT NULL,
			initial_virtual_price TEXT NOT NULL,
			ibt_admin_balance TEXT NOT NULL,
			pt_admin_balance TEXT NOT NULL,
			lp_total_supply TEXT NOT NULL,
			spot_price TEXT NOT NULL,
			total_fees TEXT NOT NULL,
			total_admin_fees TEXT NOT NULL,
			total_claimed_admin_fees TEXT NOT NULL,
			total_fee_ratio TEXT NOT NULL,
			transaction_count BIGINT NOT NULL,
			lp_token_address TEXT NOT NULL,
			ibt_flow_id TEXT NOT NULL,
			pt_flow_id TEXT NOT NULL,
			future_vault_id TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS pools_chain_idx ON pools (chain_id)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			address TEXT NOT NULL,
			asset_type TEXT NOT NULL,
			decimals SMALLINT NOT NULL,
			symbol TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS asset_flows (
			id TEXT PRIMARY KEY,
			asset_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			tx_hash TEXT NOT NULL,
			block_number BIGINT NOT NULL,
			created_at BIGINT NOT NULL,
			tx_type TEXT NOT NULL,
			gas TEXT NOT NULL,
			gas_price TEXT NOT NULL,
			fee TEXT NOT NULL,
			admin_fee TEXT NOT NULL,
			value_underlying TEXT NOT NULL,
			fee_underlying TEXT NOT NULL,
			fee_ratio TEXT NOT NULL,
			ibt_rate TEXT NOT NULL,
			pt_rate TEXT NOT NULL,
			user_address TEXT NOT NULL,
			pool_id TEXT NOT NULL,
			amounts_in TEXT[] NOT NULL,
			amounts_out TEXT[] NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pool_stats (
			id TEXT PRIMARY KEY,
			pool_id TEXT NOT NULL,
			span BIGINT NOT NULL,
			bucket_start BIGINT NOT NULL,
			buys BIGINT NOT NULL,
			sells BIGINT NOT NULL,
			deposits BIGINT NOT NULL,
			withdrawals BIGINT NOT NULL,
			buy_volume TEXT NOT NULL,
			sell_volume TEXT NOT NULL,
			deposit_volume TEXT NOT NULL,
			withdraw_volume TEXT NOT NULL,
			fee_underlying TEXT NOT NULL,
			fee_ratio TEXT NOT NULL,
			spot_price TEXT NOT NULL,
			ibt_rate TEXT NOT NULL,
			pt_rate TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			last_updated_at BIGINT NOT NULL,
			last_updated_block BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fee_claims (
			id TEXT PRIMARY KEY,
			collector TEXT NOT NULL,
			pool_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			ibt_amount TEXT NOT NULL,
			pt_amount TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	}

	for _, statement := range statements {
		if _, err := s.pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) GetPool(ctx context.Context, id string) (*model.Pool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, address, variant, created_at,
			fee_rate, admin_fee_rate, future_admin_fee_rate, future_admin_fee_deadline,
			initial_virtual_price, ibt_admin_balance, pt_admin_balance,
			lp_total_supply, spot_price,
			total_fees, total_admin_fees, total_claimed_admin_fees, total_fee_ratio,
			transaction_count, lp_token_address, ibt_flow_id, pt_flow_id, future_vault_id
		FROM pools WHERE id=$1
	`, id)

	pool := model.Pool{ID: id}
	var chainID, createdAt, txCount int64
	var variant string
	var feeRate, adminFeeRate, futureAdminFeeRate, futureDeadline string
	var initialVP, ibtAdmin, ptAdmin, lpSupply, spot string
	var totalFees, totalAdminFees, totalClaimed, totalFeeRatio string
	err := row.Scan(
		&chainID, &pool.Address, &variant, &createdAt,
		&feeRate, &adminFeeRate, &futureAdminFeeRate, &futureDeadline,
		&initialVP, &ibtAdmin, &ptAdmin,
		&lpSupply, &spot,
		&totalFees, &totalAdminFees, &totalClaimed, &totalFeeRatio,
		&txCount, &pool.LPTokenAddress, &pool.IBTFlowID, &pool.PTFlowID, &pool.FutureVaultID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	pool.ChainID = uint64(chainID)
	pool.Variant = model.PoolVariant(variant)
	pool.CreatedAt = uint64(createdAt)
	pool.FeeRate = parseBig(feeRate)
	pool.AdminFeeRate = parseBig(adminFeeRate)
	pool.FutureAdminFeeRate = parseBig(futureAdminFeeRate)
	pool.FutureAdminFeeDeadline = parseBig(futureDeadline)
	pool.InitialVirtualPrice = parseBig(initialVP)
	pool.IBTAdminBalance = parseBig(ibtAdmin)
	pool.PTAdminBalance = parseBig(ptAdmin)
	pool.LPTotalSupply = parseBig(lpSupply)
	pool.SpotPrice = parseBig(spot)
	pool.TotalFees = parseBig(totalFees)
	pool.TotalAdminFees = parseBig(totalAdminFees)
	pool.TotalClaimedAdminFees = parseBig(totalClaimed)
	pool.TotalFeeRatio = parseBig(totalFeeRatio)
	pool.TransactionCount = uint64(txCount)
	return &pool, nil
}

func (s *Store) SetPool(ctx context.Context, pool *model.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			id, chain_id, address, variant, created_at,
			fee_rate, admin_fee_rate, future_admin_fee_rate, future_admin_fee_deadline,
			initial_virtual_price, ibt_admin_balance, pt_admin_balance,
			lp_total_supply, spot_price,
			total_fees, total_admin_fees, total_claimed_admin_fees, total_fee_ratio,
			transaction_count, lp_token_address, ibt_flow_id, pt_flow_id, future_vault_id, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,now())
		ON CONFLICT (id) DO UPDATE SET
			variant = EXCLUDED.variant,
			fee_rate = EXCLUDED.fee_rate,
			admin_fee_rate = EXCLUDED.admin_fee_rate,
			future_admin_fee_rate = EXCLUDED.future_admin_fee_rate,
			future_admin_fee_deadline = EXCLUDED.future_admin_fee_deadline,
			initial_virtual_price = EXCLUDED.initial_virtual_price,
			ibt_admin_balance = EXCLUDED.ibt_admin_balance,
			pt_admin_balance = EXCLUDED.pt_admin_balance,
			lp_total_supply = EXCLUDED.lp_total_supply,
			spot_price = EXCLUDED.spot_price,
			total_fees = EXCLUDED.total_fees,
			total_admin_fees = EXCLUDED.total_admin_fees,
			total_claimed_admin_fees = EXCLUDED.total_claimed_admin_fees,
			total_fee_ratio = EXCLUDED.total_fee_ratio,
			transaction_count = EXCLUDED.transaction_count,
			lp_token_address = EXCLUDED.lp_token_address,
			ibt_flow_id = EXCLUDED.ibt_flow_id,
			pt_flow_id = EXCLUDED.pt_flow_id,
			future_vault_id = EXCLUDED.future_vault_id,
			updated_at = now()
	`,
		pool.ID,
		int64(pool.ChainID),
		pool.Address,
		string(pool.Variant),
		int64(pool.CreatedAt),
		bigString(pool.FeeRate),
		bigString(pool.AdminFeeRate),
		bigString(pool.FutureAdminFeeRate),
		bigString(pool.FutureAdminFeeDeadline),
		bigString(pool.InitialVirtualPrice),
		bigString(pool.IBTAdminBalance),
		bigString(pool.PTAdminBalance),
		bigString(pool.LPTotalSupply),
		bigString(pool.SpotPrice),
		bigString(pool.TotalFees),
		bigString(pool.TotalAdminFees),
		bigString(pool.TotalClaimedAdminFees),
		bigString(pool.TotalFeeRatio),
		int64(pool.TransactionCount),
		pool.LPTokenAddress,
		pool.IBTFlowID,
		pool.PTFlowID,
		pool.FutureVaultID,
	)
	return err
}

func (s *Store) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, address, asset_type, decimals, symbol, name, created_at
		FROM assets WHERE id=$1
	`, id)

	asset := model.Asset{ID: id}
	var chainID, createdAt int64
	var assetType string
	var decimals int16
	err := row.Scan(&chainID, &asset.Address, &assetType, &decimals, &asset.Symbol, &asset.Name, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	asset.ChainID = uint64(chainID)
	asset.Type = model.AssetType(assetType)
	asset.Decimals = uint8(decimals)
	asset.CreatedAt = uint64(createdAt)
	return &asset, nil
}

func (s *Store) SetAsset(ctx context.Context, asset *model.Asset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO assets (id, chain_id, address, asset_type, decimals, symbol, name, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			asset_type = EXCLUDED.asset_type,
			decimals = EXCLUDED.decimals,
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name
	`,
		asset.ID,
		int64(asset.ChainID),
		asset.Address,
		string(asset.Type),
		int16(asset.Decimals),
		asset.Symbol,
		asset.Name,
		int64(asset.CreatedAt),
	)
	return err
}

func (s *Store) GetAssetFlow(ctx context.Context, id string) (*model.AssetFlow, error) {
	row := s.pool.QueryRow(ctx, `SELECT asset_id, amount, created_at FROM asset_flows WHERE id=$1`, id)

	flow := model.AssetFlow{ID: id}
	var amount string
	var createdAt int64
	err := row.Scan(&flow.AssetID, &amount, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	flow.Amount = parseBig(amount)
	flow.CreatedAt = uint64(createdAt)
	return &flow, nil
}

func (s *Store) SetAssetFlow(ctx context.Context, flow *model.AssetFlow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO asset_flows (id, asset_id, amount, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount
	`,
		flow.ID,
		flow.AssetID,
		bigString(flow.Amount),
		int64(flow.CreatedAt),
	)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT tx_hash, block_number, created_at, tx_type,
			gas, gas_price, fee, admin_fee,
			value_underlying, fee_underlying, fee_ratio, ibt_rate, pt_rate,
			user_address, pool_id, amounts_in, amounts_out
		FROM transactions WHERE id=$1
	`, id)

	tx := model.Transaction{ID: id}
	var block, createdAt int64
	var txType string
	var gas, gasPrice, fee, adminFee string
	var value, feeUnderlying, feeRatio, ibtRate, ptRate string
	err := row.Scan(
		&tx.Hash, &block, &createdAt, &txType,
		&gas, &gasPrice, &fee, &adminFee,
		&value, &feeUnderlying, &feeRatio, &ibtRate, &ptRate,
		&tx.User, &tx.PoolID, &tx.AmountsIn, &tx.AmountsOut,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	tx.Block = uint64(block)
	tx.CreatedAt = uint64(createdAt)
	tx.Type = model.TransactionType(txType)
	tx.Gas = parseBig(gas)
	tx.GasPrice = parseBig(gasPrice)
	tx.Fee = parseBig(fee)
	tx.AdminFee = parseBig(adminFee)
	tx.ValueUnderlying = parseBig(value)
	tx.FeeUnderlying = parseBig(feeUnderlying)
	tx.FeeRatio = parseBig(feeRatio)
	tx.IBTRate = parseBig(ibtRate)
	tx.PTRate = parseBig(ptRate)
	return &tx, nil
}

func (s *Store) SetTransaction(ctx context.Context, tx *model.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (
			id, tx_hash, block_number, created_at, tx_type,
			gas, gas_price, fee, admin_fee,
			value_underlying, fee_underlying, fee_ratio, ibt_rate, pt_rate,
			user_address, pool_id, amounts_in, amounts_out
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO NOTHING
	`,
		tx.ID,
		tx.Hash,
		int64(tx.Block),
		int64(tx.CreatedAt),
		string(tx.Type),
		bigString(tx.Gas),
		bigString(tx.GasPrice),
		bigString(tx.Fee),
		bigString(tx.AdminFee),
		bigString(tx.ValueUnderlying),
		bigString(tx.FeeUnderlying),
		bigString(tx.FeeRatio),
		bigString(tx.IBTRate),
		bigString(tx.PTRate),
		tx.User,
		tx.PoolID,
		tx.AmountsIn,
		tx.AmountsOut,
	)
	return err
}

func (s *Store) GetPoolStats(ctx context.Context, id string) (*model.PoolStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pool_id, span, bucket_start,
			buys, sells, deposits, withdrawals,
			buy_volume, sell_volume, deposit_volume, withdraw_volume,
			fee_underlying, fee_ratio, spot_price, ibt_rate, pt_rate,
			created_at, last_updated_at, last_updated_block
		FROM pool_stats WHERE id=$1
	`, id)

	stats := model.PoolStats{ID: id}
	var span, bucketStart, buys, sells, deposits, withdrawals int64
	var buyVol, sellVol, depositVol, withdrawVol string
	var feeUnderlying, feeRatio, spot, ibtRate, ptRate string
	var createdAt, updatedAt, updatedBlock int64
	err := row.Scan(
		&stats.PoolID, &span, &bucketStart,
		&buys, &sells, &deposits, &withdrawals,
		&buyVol, &sellVol, &depositVol, &withdrawVol,
		&feeUnderlying, &feeRatio, &spot, &ibtRate, &ptRate,
		&createdAt, &updatedAt, &updatedBlock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	stats.Span = uint64(span)
	stats.Timestamp = uint64(bucketStart)
	stats.Buys = uint64(buys)
	stats.Sells = uint64(sells)
	stats.Deposits = uint64(deposits)
	stats.Withdrawals = uint64(withdrawals)
	stats.BuyVolume = parseBig(buyVol)
	stats.SellVolume = parseBig(sellVol)
	stats.DepositVolume = parseBig(depositVol)
	stats.WithdrawVolume = parseBig(withdrawVol)
	stats.FeeUnderlying = parseBig(feeUnderlying)
	stats.FeeRatio = parseBig(feeRatio)
	stats.SpotPrice = parseBig(spot)
	stats.IBTRate = parseBig(ibtRate)
	stats.PTRate = parseBig(ptRate)
	stats.CreatedAt = uint64(createdAt)
	stats.LastUpdatedAt = uint64(updatedAt)
	stats.LastUpdatedBlock = uint64(updatedBlock)
	return &stats, nil
}

func (s *Store) SetPoolStats(ctx context.Context, stats *model.PoolStats) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_stats (
			id, pool_id, span, bucket_start,
			buys, sells, deposits, withdrawals,
			buy_volume, sell_volume, deposit_volume, withdraw_volume,
			fee_underlying, fee_ratio, spot_price, ibt_rate, pt_rate,
			created_at, last_updated_at, last_updated_block
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (id) DO UPDATE SET
			buys = EXCLUDED.buys,
			sells = EXCLUDED.sells,
			deposits = EXCLUDED.deposits,
			withdrawals = EXCLUDED.withdrawals,
			buy_volume = EXCLUDED.buy_volume,
			sell_volume = EXCLUDED.sell_volume,
			deposit_volume = EXCLUDED.deposit_volume,
			withdraw_volume = EXCLUDED.withdraw_volume,
			fee_underlying = EXCLUDED.fee_underlying,
			fee_ratio = EXCLUDED.fee_ratio,
			spot_price = EXCLUDED.spot_price,
			ibt_rate = EXCLUDED.ibt_rate,
			pt_rate = EXCLUDED.pt_rate,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_block = EXCLUDED.last_updated_block
	`,
		stats.ID,
		stats.PoolID,
		int64(stats.Span),
		int64(stats.Timestamp),
		int64(stats.Buys),
		int64(stats.Sells),
		int64(stats.Deposits),
		int64(stats.Withdrawals),
		bigString(stats.BuyVolume),
		bigString(stats.SellVolume),
		bigString(stats.DepositVolume),
		bigString(stats.WithdrawVolume),
		bigString(stats.FeeUnderlying),
		bigString(stats.FeeRatio),
		bigString(stats.SpotPrice),
		bigString(stats.IBTRate),
		bigString(stats.PTRate),
		int64(stats.CreatedAt),
		int64(stats.LastUpdatedAt),
		int64(stats.LastUpdatedBlock),
	)
	return err
}

func (s *Store) SetFeeClaim(ctx context.Context, claim *model.FeeClaim) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fee_claims (id, collector, pool_id, amount, ibt_amount, pt_amount, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			ibt_amount = EXCLUDED.ibt_amount,
			pt_amount = EXCLUDED.pt_amount
	`,
		claim.ID,
		claim.Collector,
		claim.PoolID,
		bigString(claim.Amount),
		bigString(claim.IBTAmount),
		bigString(claim.PTAmount),
		int64(claim.CreatedAt),
	)
	return err
}

func (s *Store) PoolAddresses(ctx context.Context, chainID uint64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM pools WHERE chain_id=$1`, int64(chainID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addresses := make([]string, 0)
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, rows.Err()
}

func bigString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func parseBig(value string) *big.Int {
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return big.NewInt(0)
	}
	return parsed
}
