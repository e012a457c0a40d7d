package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"slipsentinel/internal/model"
)

// SwapTopic0 returns the topic0 hash of the V2 Swap event.
func SwapTopic0() (common.Hash, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse pair abi: %w", err)
	}
	return pairABI.Events["Swap"].ID, nil
}

// DecodeSwapLog decodes one V2 Swap log into a SwapEvent. The payload is four
// uint256 words: amount0In, amount1In, amount0Out, amount1Out. At most one of
// the input amounts is non-zero for a simple swap, so their sum is the trade
// size.
func DecodeSwapLog(log types.Log) (model.SwapEvent, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse pair abi: %w", err)
	}

	event := pairABI.Events["Swap"]
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return model.SwapEvent{}, fmt.Errorf("not a swap log")
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 4 {
		return model.SwapEvent{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	amounts := make([]*big.Int, 4)
	for i, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return model.SwapEvent{}, fmt.Errorf("swap amount %d: %w", i, err)
		}
		amounts[i] = amount
	}

	return model.SwapEvent{
		BlockNumber: log.BlockNumber,
		Amount0In:   amounts[0],
		Amount1In:   amounts[1],
		Amount0Out:  amounts[2],
		Amount1Out:  amounts[3],
		TradeSize:   new(big.Int).Add(amounts[0], amounts[1]),
	}, nil
}
