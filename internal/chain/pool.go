package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"slipsentinel/internal/model"
)

// Endpoints resolves the RPC endpoint for a chain.
type Endpoints interface {
	RPCEndpoint(chainID uint64) (string, bool)
}

// Pool caches one Client per chain, created lazily on first use and reused for
// the lifetime of the process. A failed dial leaves no entry behind, so the
// next request retries connection setup.
type Pool struct {
	endpoints Endpoints
	logger    *zap.Logger

	dialRetries int
	dialBackoff time.Duration

	mu      sync.Mutex
	clients map[uint64]*Client
}

// NewPool builds an empty connection pool over the given endpoint resolver.
func NewPool(endpoints Endpoints, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		endpoints:   endpoints,
		logger:      logger,
		dialRetries: 2,
		dialBackoff: 200 * time.Millisecond,
		clients:     make(map[uint64]*Client),
	}
}

// Get returns the cached client for a chain, dialing on first use.
func (p *Pool) Get(ctx context.Context, chainID uint64) (*Client, error) {
	p.mu.Lock()
	if client, ok := p.clients[chainID]; ok {
		p.mu.Unlock()
		return client, nil
	}
	p.mu.Unlock()

	rpcURL, ok := p.endpoints.RPCEndpoint(chainID)
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, model.ErrInvalidChain)
	}

	// Dial outside the lock so a slow endpoint does not stall other chains.
	// A concurrent duplicate dial is wasteful but safe; the loser is closed.
	var client *Client
	dialLog := p.logger.With(zap.Uint64("chain_id", chainID))
	err := withRetry(ctx, dialLog, "rpc dial", p.dialRetries, p.dialBackoff, func(ctx context.Context) error {
		var err error
		client, err = Dial(ctx, rpcURL, chainID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect chain %d: %w", chainID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.clients[chainID]; ok {
		client.Close()
		return existing, nil
	}
	p.clients[chainID] = client
	p.logger.Info("rpc connected", zap.Uint64("chain_id", chainID))
	return client, nil
}

// Close tears down every cached connection.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for chainID, client := range p.clients {
		client.Close()
		delete(p.clients, chainID)
	}
}
