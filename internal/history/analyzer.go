package history

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"slipsentinel/internal/chain"
	"slipsentinel/internal/dex"
	"slipsentinel/internal/model"
)

// DiagnosticSink receives swallowed retrieval and decode failures.
type DiagnosticSink func(model.Diagnostic)

// Analyzer retrieves recent swap events from pair contracts.
type Analyzer struct {
	pool   *chain.Pool
	logger *zap.Logger
	diag   DiagnosticSink
}

// NewAnalyzer builds a trade-history analyzer over the connection pool.
func NewAnalyzer(pool *chain.Pool, logger *zap.Logger, diag DiagnosticSink) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		pool:   pool,
		logger: logger,
		diag:   diag,
	}
}

// RecentSwaps queries Swap logs emitted by the pair over the trailing block
// window. A failed query degrades to an empty list: callers treat "no events"
// and "query failed" identically, and the failure is preserved as a
// diagnostic. Individual logs that fail to decode are skipped.
func (a *Analyzer) RecentSwaps(ctx context.Context, chainID uint64, pairAddress string, blocksBack uint64) []model.SwapEvent {
	if !common.IsHexAddress(pairAddress) {
		a.report(chainID, pairAddress, "invalid pair address")
		return nil
	}
	pair := common.HexToAddress(pairAddress)

	client, err := a.pool.Get(ctx, chainID)
	if err != nil {
		a.report(chainID, pairAddress, err.Error())
		return nil
	}

	head, err := client.LatestBlockNumber(ctx)
	if err != nil {
		a.report(chainID, pairAddress, err.Error())
		return nil
	}
	from := uint64(0)
	if head > blocksBack {
		from = head - blocksBack
	}

	topic0, err := dex.SwapTopic0()
	if err != nil {
		a.report(chainID, pairAddress, err.Error())
		return nil
	}

	logs, err := client.FilterLogs(ctx, from, head, pair, []common.Hash{topic0})
	if err != nil {
		a.report(chainID, pairAddress, err.Error())
		return nil
	}

	swaps := make([]model.SwapEvent, 0, len(logs))
	for _, log := range logs {
		swap, err := dex.DecodeSwapLog(log)
		if err != nil {
			a.logger.Debug("skip undecodable swap log",
				zap.Uint64("chain_id", chainID),
				zap.Uint64("block", log.BlockNumber),
				zap.Error(err),
			)
			continue
		}
		swaps = append(swaps, swap)
	}

	a.logger.Info("swap history fetched",
		zap.Uint64("chain_id", chainID),
		zap.String("pair", pairAddress),
		zap.Uint64("blocks_back", blocksBack),
		zap.Int("swaps", len(swaps)),
	)
	return swaps
}

func (a *Analyzer) report(chainID uint64, pair, message string) {
	a.logger.Warn("swap history unavailable",
		zap.Uint64("chain_id", chainID),
		zap.String("pair", pair),
		zap.String("reason", message),
	)
	if a.diag != nil {
		a.diag(model.Diagnostic{
			ChainID:    chainID,
			Component:  "history",
			Subject:    pair,
			Error:      message,
			ObservedAt: time.Now().UTC(),
		})
	}
}
