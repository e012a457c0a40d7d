package route

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slipsentinel/internal/config"
	"slipsentinel/internal/dex"
	"slipsentinel/internal/model"
)

// PairProber asks one exchange's factory for the pair address of two tokens.
// The zero address means the exchange has no pair for them.
type PairProber interface {
	ProbePair(ctx context.Context, chainID uint64, exchange config.Exchange, tokenIn, tokenOut common.Address) (common.Address, error)
}

// DiagnosticSink receives swallowed per-exchange failures.
type DiagnosticSink func(model.Diagnostic)

// Finder discovers which exchange hosts a tradeable pair.
type Finder struct {
	registry *config.Registry
	prober   PairProber
	logger   *zap.Logger
	diag     DiagnosticSink
}

// NewFinder builds a route finder over the registry's exchange tables.
func NewFinder(registry *config.Registry, prober PairProber, logger *zap.Logger, diag DiagnosticSink) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{
		registry: registry,
		prober:   prober,
		logger:   logger,
		diag:     diag,
	}
}

// FindPair resolves a route for the token pair. With a hint, only the hinted
// exchange is probed first and a hit short-circuits the search. Otherwise all
// configured exchanges are probed concurrently and the first non-zero pair
// wins; remaining probes are cancelled and their errors discarded.
func (f *Finder) FindPair(ctx context.Context, chainID uint64, tokenIn, tokenOut, hint string) (model.Route, error) {
	if !f.registry.HasChain(chainID) {
		return model.Route{}, fmt.Errorf("chain %d: %w", chainID, model.ErrInvalidChain)
	}
	in, out, err := parseTokens(tokenIn, tokenOut)
	if err != nil {
		return model.Route{}, err
	}

	if hint != "" {
		name := strings.ToLower(strings.TrimSpace(hint))
		if factory, ok := f.registry.FactoryAddress(chainID, name); ok {
			exchange := config.Exchange{Name: name, Factory: factory}
			if pair, ok := f.probeOne(ctx, chainID, exchange, in, out); ok {
				return buildRoute(chainID, in, out, pair, exchange), nil
			}
		} else {
			f.logger.Debug("unknown exchange hint", zap.Uint64("chain_id", chainID), zap.String("hint", name))
		}
	}

	exchanges := f.registry.Exchanges(chainID)
	if len(exchanges) == 0 {
		return model.Route{}, fmt.Errorf("chain %d has no exchanges: %w", chainID, model.ErrNoRoute)
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan model.Route, len(exchanges))
	var wg sync.WaitGroup
	for _, exchange := range exchanges {
		wg.Add(1)
		go func(exchange config.Exchange) {
			defer wg.Done()
			if pair, ok := f.probeOne(probeCtx, chainID, exchange, in, out); ok {
				found <- buildRoute(chainID, in, out, pair, exchange)
			}
		}(exchange)
	}
	go func() {
		wg.Wait()
		close(found)
	}()

	winner, ok := <-found
	if !ok {
		return model.Route{}, fmt.Errorf("%s/%s on chain %d: %w", tokenIn, tokenOut, chainID, model.ErrNoRoute)
	}
	cancel()
	f.logger.Info("route found",
		zap.Uint64("chain_id", chainID),
		zap.String("exchange", winner.ExchangeName),
		zap.String("pair", winner.PairAddress),
	)
	return winner, nil
}

// FindAllRoutes probes every configured exchange and returns each resolvable
// route in registry order.
func (f *Finder) FindAllRoutes(ctx context.Context, chainID uint64, tokenIn, tokenOut string) ([]model.Route, error) {
	if !f.registry.HasChain(chainID) {
		return nil, fmt.Errorf("chain %d: %w", chainID, model.ErrInvalidChain)
	}
	in, out, err := parseTokens(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	exchanges := f.registry.Exchanges(chainID)
	results := make([]*model.Route, len(exchanges))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, exchange := range exchanges {
		i, exchange := i, exchange
		group.Go(func() error {
			if pair, ok := f.probeOne(groupCtx, chainID, exchange, in, out); ok {
				route := buildRoute(chainID, in, out, pair, exchange)
				results[i] = &route
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	routes := make([]model.Route, 0, len(exchanges))
	for _, route := range results {
		if route != nil {
			routes = append(routes, *route)
		}
	}
	return routes, nil
}

// probeOne queries a single exchange. Any failure counts as "no pair here".
func (f *Finder) probeOne(ctx context.Context, chainID uint64, exchange config.Exchange, in, out common.Address) (common.Address, bool) {
	pair, err := f.prober.ProbePair(ctx, chainID, exchange, in, out)
	if err != nil {
		if ctx.Err() == nil {
			f.logger.Debug("pair probe failed",
				zap.Uint64("chain_id", chainID),
				zap.String("exchange", exchange.Name),
				zap.Error(err),
			)
			if f.diag != nil {
				f.diag(model.Diagnostic{
					ChainID:    chainID,
					Component:  "route",
					Subject:    exchange.Name,
					Error:      err.Error(),
					ObservedAt: time.Now().UTC(),
				})
			}
		}
		return common.Address{}, false
	}
	if pair == dex.ZeroAddress {
		return common.Address{}, false
	}
	return pair, true
}

func buildRoute(chainID uint64, in, out, pair common.Address, exchange config.Exchange) model.Route {
	return model.Route{
		ChainID:      chainID,
		TokenIn:      in.Hex(),
		TokenOut:     out.Hex(),
		PairAddress:  pair.Hex(),
		ExchangeName: exchange.Name,
		Factory:      exchange.Factory,
	}
}

func parseTokens(tokenIn, tokenOut string) (common.Address, common.Address, error) {
	if !common.IsHexAddress(tokenIn) {
		return common.Address{}, common.Address{}, fmt.Errorf("invalid token address %q: %w", tokenIn, model.ErrNoRoute)
	}
	if !common.IsHexAddress(tokenOut) {
		return common.Address{}, common.Address{}, fmt.Errorf("invalid token address %q: %w", tokenOut, model.ErrNoRoute)
	}
	return common.HexToAddress(tokenIn), common.HexToAddress(tokenOut), nil
}
