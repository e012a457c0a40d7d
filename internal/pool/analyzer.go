package pool

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"slipsentinel/internal/chain"
	"slipsentinel/internal/dex"
	"slipsentinel/internal/model"
)

// Analyzer reads pool state over RPC.
type Analyzer struct {
	pool   *chain.Pool
	logger *zap.Logger

	mu       sync.RWMutex
	decimals map[decimalsKey]uint8
}

type decimalsKey struct {
	chainID uint64
	token   common.Address
}

// NewAnalyzer builds a pool analyzer over the connection pool.
func NewAnalyzer(pool *chain.Pool, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		pool:     pool,
		logger:   logger,
		decimals: make(map[decimalsKey]uint8),
	}
}

// Reserves retrieves the pair's current reserves mapped onto the requested
// trade direction. If token_in matches neither of the pair's canonical tokens
// the discovered pair does not actually contain the requested token and the
// data is invalid.
func (a *Analyzer) Reserves(ctx context.Context, chainID uint64, pairAddress, tokenIn, tokenOut string) (model.PoolReserves, error) {
	if !common.IsHexAddress(pairAddress) {
		return model.PoolReserves{}, fmt.Errorf("invalid pair address %q: %w", pairAddress, model.ErrReservesUnavailable)
	}
	if !common.IsHexAddress(tokenIn) || !common.IsHexAddress(tokenOut) {
		return model.PoolReserves{}, fmt.Errorf("invalid token address: %w", model.ErrReservesUnavailable)
	}
	pair := common.HexToAddress(pairAddress)

	client, err := a.pool.Get(ctx, chainID)
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("%v: %w", err, model.ErrReservesUnavailable)
	}

	token0, token1, err := dex.PairTokens(ctx, client, pair)
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("pair tokens %s: %v: %w", pairAddress, err, model.ErrReservesUnavailable)
	}
	reserve0, reserve1, err := dex.PairReserves(ctx, client, pair)
	if err != nil {
		return model.PoolReserves{}, fmt.Errorf("pair reserves %s: %v: %w", pairAddress, err, model.ErrReservesUnavailable)
	}

	return MapReserves(token0, token1, reserve0, reserve1, common.HexToAddress(tokenIn), common.HexToAddress(tokenOut))
}

// MapReserves attributes canonical reserves to the trade direction by matching
// token_in against the pair's tokens. Address comparison is canonical, so it
// is case-insensitive by construction.
func MapReserves(token0, token1 common.Address, reserve0, reserve1 *big.Int, tokenIn, tokenOut common.Address) (model.PoolReserves, error) {
	var reserveIn, reserveOut *big.Int
	switch tokenIn {
	case token0:
		reserveIn, reserveOut = reserve0, reserve1
	case token1:
		reserveIn, reserveOut = reserve1, reserve0
	default:
		return model.PoolReserves{}, fmt.Errorf("token %s not in pair (%s, %s): %w",
			tokenIn.Hex(), token0.Hex(), token1.Hex(), model.ErrReservesUnavailable)
	}

	return model.PoolReserves{
		ReserveIn:       reserveIn,
		ReserveOut:      reserveOut,
		TokenInAddress:  tokenIn.Hex(),
		TokenOutAddress: tokenOut.Hex(),
	}, nil
}

// Decimals looks up a token's ERC-20 decimals with an in-memory cache,
// falling back to 18 when the call fails.
func (a *Analyzer) Decimals(ctx context.Context, chainID uint64, token string) uint8 {
	const fallback = 18
	if !common.IsHexAddress(token) {
		return fallback
	}
	address := common.HexToAddress(token)
	key := decimalsKey{chainID: chainID, token: address}

	a.mu.RLock()
	cached, ok := a.decimals[key]
	a.mu.RUnlock()
	if ok {
		return cached
	}

	client, err := a.pool.Get(ctx, chainID)
	if err != nil {
		return fallback
	}
	decimals, err := dex.TokenDecimals(ctx, client, address)
	if err != nil {
		a.logger.Debug("decimals call failed", zap.String("token", token), zap.Error(err))
		return fallback
	}

	a.mu.Lock()
	a.decimals[key] = decimals
	a.mu.Unlock()
	return decimals
}
