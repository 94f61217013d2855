package indexer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"ptscope/internal/chain"
	"ptscope/internal/curve"
	"ptscope/internal/ledger"
	"ptscope/internal/model"
	"ptscope/internal/storage"
	"ptscope/internal/store"
)

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Factories         []common.Address
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner streams factory and pool logs from the chain, decodes them and feeds
// the ledger processor in log order. Raw records are optionally archived.
type Runner struct {
	cfg        RunConfig
	chain      *chain.Client
	decoder    *curve.Decoder
	processor  *ledger.Processor
	store      store.Store
	archive    storage.Storage
	errors     storage.ErrorSink
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies. archive and errors may be
// nil to disable raw-log archival and decode-error spooling.
func NewRunner(
	cfg RunConfig,
	chainClient *chain.Client,
	decoder *curve.Decoder,
	processor *ledger.Processor,
	entityStore store.Store,
	archive storage.Storage,
	errors storage.ErrorSink,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		decoder:    decoder,
		processor:  processor,
		store:      entityStore,
		archive:    archive,
		errors:     errors,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.decoder == nil {
		return fmt.Errorf("decoder is nil")
	}
	if r.processor == nil {
		return fmt.Errorf("processor is nil")
	}
	if r.store == nil {
		return fmt.Errorf("store is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Factories) == 0 {
		return fmt.Errorf("at least one factory address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load(chainIDValue)
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	topics := r.decoder.Topics()
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		// A pool deployed inside this range starts emitting within the same
		// range, so re-fetch it once when the known-address set grew.
		for pass := 0; pass < 2; pass++ {
			addresses, err := r.watchedAddresses(ctx, chainIDValue)
			if err != nil {
				return err
			}

			logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, addresses, topics)
			if err != nil {
				return fmt.Errorf("filter logs: %w", err)
			}

			grew, err := r.processBatch(ctx, chainIDValue, logs)
			if err != nil {
				return err
			}
			if !grew {
				break
			}
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(chainIDValue, blockRange.To); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

// watchedAddresses is the factory set plus every pool the store knows about.
func (r *Runner) watchedAddresses(ctx context.Context, chainID uint64) ([]common.Address, error) {
	pools, err := r.store.PoolAddresses(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	addresses := make([]common.Address, 0, len(r.cfg.Factories)+len(pools))
	addresses = append(addresses, r.cfg.Factories...)
	for _, pool := range pools {
		if common.IsHexAddress(pool) {
			addresses = append(addresses, common.HexToAddress(pool))
		}
	}
	return addresses, nil
}

// processBatch decodes and applies logs in chain order. It reports whether
// new pools were registered, which means the range needs a second fetch.
func (r *Runner) processBatch(ctx context.Context, chainID uint64, logs []types.Log) (bool, error) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	ingestedAt := time.Now().UTC()
	records := make([]model.LogRecord, 0, len(logs))
	grew := false

	for _, log := range logs {
		if log.Removed || r.isDuplicate(log) {
			continue
		}
		if len(log.Topics) == 0 || !r.decoder.CanDecode(log.Topics[0].Hex()) {
			continue
		}

		ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
		if err != nil {
			return grew, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		record := buildLogRecord(chainID, log, ts, ingestedAt)
		records = append(records, record)

		txMeta, err := r.transactionMetaWithRetry(ctx, log)
		if err != nil {
			return grew, fmt.Errorf("transaction meta %s: %w", log.TxHash.Hex(), err)
		}

		event, err := r.decoder.Decode(record, curve.TxContext{
			From:     txMeta.From,
			GasUsed:  txMeta.GasUsed,
			GasPrice: txMeta.GasPrice,
		})
		if err != nil {
			r.logger.Warn("decode failed",
				zap.String("tx_hash", record.TxHash),
				zap.Uint64("log_index", record.LogIndex),
				zap.Error(err),
			)
			if r.errors != nil {
				r.errors.PutDecodeError(model.DecodeError{
					ChainID:     record.ChainID,
					BlockNumber: record.BlockNumber,
					TxHash:      record.TxHash,
					LogIndex:    record.LogIndex,
					Address:     record.Address,
					Topic0:      record.Topics[0],
					Error:       err.Error(),
				})
			}
			continue
		}

		if err := r.processor.Process(ctx, event); err != nil {
			return grew, fmt.Errorf("process %s/%d: %w", record.TxHash, record.LogIndex, err)
		}
		if _, ok := event.(*model.PoolDeployedEvent); ok {
			grew = true
		}
	}

	if r.archive != nil {
		if err := r.archive.PutLogBatch(records); err != nil {
			return grew, fmt.Errorf("archive logs: %w", err)
		}
	}

	return grew, nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, addresses, topic0)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) transactionMetaWithRetry(ctx context.Context, log types.Log) (chain.TxMeta, error) {
	var meta chain.TxMeta
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		meta, err = r.chain.TransactionMeta(ctx, log.TxHash, log.BlockHash, log.TxIndex)
		if err != nil {
			r.logger.Warn("transaction meta fetch failed", zap.Error(err), zap.String("tx_hash", log.TxHash.Hex()))
		}
		return err
	})
	return meta, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
