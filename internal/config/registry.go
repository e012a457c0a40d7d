package config

import (
	"fmt"
	"sort"
	"strings"
)

// ChainInfo describes one supported network.
type ChainInfo struct {
	Name         string
	NativeSymbol string
	RPCURL       string
}

// Exchange is one AMM deployment on a chain. Slice order in the registry is
// the discovery probe order.
type Exchange struct {
	Name    string
	Factory string
}

// Registry maps chain ids to RPC endpoints and exchange factory tables.
type Registry struct {
	chains    map[uint64]ChainInfo
	exchanges map[uint64][]Exchange
}

// NewRegistry builds a registry from explicit tables.
func NewRegistry(chains map[uint64]ChainInfo, exchanges map[uint64][]Exchange) *Registry {
	r := &Registry{
		chains:    make(map[uint64]ChainInfo, len(chains)),
		exchanges: make(map[uint64][]Exchange, len(exchanges)),
	}
	for id, info := range chains {
		r.chains[id] = info
	}
	for id, table := range exchanges {
		entries := make([]Exchange, 0, len(table))
		for _, ex := range table {
			entries = append(entries, Exchange{
				Name:    strings.ToLower(strings.TrimSpace(ex.Name)),
				Factory: ex.Factory,
			})
		}
		r.exchanges[id] = entries
	}
	return r
}

// DefaultRegistry returns the built-in chain and factory tables.
func DefaultRegistry() *Registry {
	chains := map[uint64]ChainInfo{
		1:     {Name: "Ethereum", NativeSymbol: "ETH", RPCURL: "https://eth.llamarpc.com"},
		10:    {Name: "Optimism", NativeSymbol: "ETH", RPCURL: "https://optimism.llamarpc.com"},
		56:    {Name: "BNB Chain", NativeSymbol: "BNB", RPCURL: "https://bsc.llamarpc.com"},
		137:   {Name: "Polygon", NativeSymbol: "MATIC", RPCURL: "https://polygon.llamarpc.com"},
		8453:  {Name: "Base", NativeSymbol: "ETH", RPCURL: "https://base.llamarpc.com"},
		42161: {Name: "Arbitrum", NativeSymbol: "ETH", RPCURL: "https://arbitrum.llamarpc.com"},
		43114: {Name: "Avalanche", NativeSymbol: "AVAX", RPCURL: "https://avalanche.llamarpc.com"},
	}
	exchanges := map[uint64][]Exchange{
		1: {
			{Name: "uniswap_v2", Factory: "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"},
			{Name: "sushiswap", Factory: "0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"},
		},
		10: {
			{Name: "uniswap_v2", Factory: "0x0c3c1c532F1e39EdF36BE9Fe0bE1410313E074Bf"},
		},
		56: {
			{Name: "pancakeswap", Factory: "0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73"},
			{Name: "sushiswap", Factory: "0xc35DADB65012eC5796536bD9864eD8773aBc74C4"},
		},
		137: {
			{Name: "quickswap", Factory: "0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32"},
			{Name: "sushiswap", Factory: "0xc35DADB65012eC5796536bD9864eD8773aBc74C4"},
		},
		8453: {
			{Name: "uniswap_v2", Factory: "0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6"},
		},
		42161: {
			{Name: "sushiswap", Factory: "0xc35DADB65012eC5796536bD9864eD8773aBc74C4"},
			{Name: "uniswap_v2", Factory: "0xf1D7CC64Fb4452F05c498126312eBE29f30Fbcf9"},
		},
		43114: {
			{Name: "traderjoe", Factory: "0x9Ad6C38BE94206cA50bb0d90783181662f0Cfa10"},
			{Name: "sushiswap", Factory: "0xc35DADB65012eC5796536bD9864eD8773aBc74C4"},
		},
	}
	return NewRegistry(chains, exchanges)
}

// RPCEndpoint resolves the RPC URL for a chain.
func (r *Registry) RPCEndpoint(chainID uint64) (string, bool) {
	info, ok := r.chains[chainID]
	if !ok {
		return "", false
	}
	return info.RPCURL, true
}

// ChainMeta resolves chain metadata.
func (r *Registry) ChainMeta(chainID uint64) (ChainInfo, bool) {
	info, ok := r.chains[chainID]
	return info, ok
}

// FactoryAddress resolves the factory for a named exchange on a chain.
func (r *Registry) FactoryAddress(chainID uint64, exchangeName string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(exchangeName))
	for _, ex := range r.exchanges[chainID] {
		if ex.Name == name {
			return ex.Factory, true
		}
	}
	return "", false
}

// Exchanges lists the exchanges configured for a chain in probe order.
func (r *Registry) Exchanges(chainID uint64) []Exchange {
	table := r.exchanges[chainID]
	out := make([]Exchange, len(table))
	copy(out, table)
	return out
}

// ChainIDs lists configured chains in ascending order.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasChain reports whether a chain is configured.
func (r *Registry) HasChain(chainID uint64) bool {
	_, ok := r.chains[chainID]
	return ok
}

// SetRPCEndpoint overrides the RPC URL for a configured chain.
func (r *Registry) SetRPCEndpoint(chainID uint64, url string) error {
	info, ok := r.chains[chainID]
	if !ok {
		return fmt.Errorf("chain %d is not configured", chainID)
	}
	info.RPCURL = url
	r.chains[chainID] = info
	return nil
}
