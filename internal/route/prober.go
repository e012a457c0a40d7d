package route

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"slipsentinel/internal/chain"
	"slipsentinel/internal/config"
	"slipsentinel/internal/dex"
)

// FactoryProber probes exchanges through their on-chain V2 factories.
type FactoryProber struct {
	Pool *chain.Pool
}

func (p *FactoryProber) ProbePair(ctx context.Context, chainID uint64, exchange config.Exchange, tokenIn, tokenOut common.Address) (common.Address, error) {
	if !common.IsHexAddress(exchange.Factory) {
		return common.Address{}, fmt.Errorf("invalid factory address %q", exchange.Factory)
	}

	client, err := p.Pool.Get(ctx, chainID)
	if err != nil {
		return common.Address{}, err
	}

	return dex.GetPair(ctx, client, common.HexToAddress(exchange.Factory), tokenIn, tokenOut)
}
