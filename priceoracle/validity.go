package priceoracle

import (
	"context"

	"github.com/atomiqlabs/swapengine/swaptypes"
)

// ValidateAmountSend checks a send-direction quote: tokenAmount of token
// is being given up for sats satoshis, after baseFee and feePPM have
// already been applied to derive the network-fee-adjusted token value.
// It returns the PriceInfo the swap should persist; IsValid reflects
// whether the quoted price is within MaxAllowedFeeDiffPPM of the oracle's
// live reference price.
func (r *RedundantSwapPrice) ValidateAmountSend(ctx context.Context, chain string, sats uint64, baseFeeSats uint64, feePPM int64, tokenAmount uint64, token string) (swaptypes.PriceInfo, error) {
	realPrice, err := r.GetPrice(ctx, chain, token)
	if err != nil {
		return swaptypes.PriceInfo{}, err
	}

	// Deduct the network fee from the token amount before comparing,
	// since the send direction pays the fee out of what it is handing
	// over.
	netTokenAmount := applyFee(tokenAmount, baseFeeSats, feePPM, true)

	return r.buildPriceInfo(sats, netTokenAmount, realPrice, baseFeeSats, feePPM), nil
}

// ValidateAmountReceive checks a receive-direction quote: sats satoshis
// are being received in exchange for tokenAmount of token.
func (r *RedundantSwapPrice) ValidateAmountReceive(ctx context.Context, chain string, sats uint64, baseFeeSats uint64, feePPM int64, tokenAmount uint64, token string) (swaptypes.PriceInfo, error) {
	realPrice, err := r.GetPrice(ctx, chain, token)
	if err != nil {
		return swaptypes.PriceInfo{}, err
	}

	return r.buildPriceInfo(sats, tokenAmount, realPrice, baseFeeSats, feePPM), nil
}

func applyFee(tokenAmount uint64, baseFeeSats uint64, feePPM int64, deduct bool) uint64 {
	fee := baseFeeSats + uint64(int64(tokenAmount)*feePPM/1_000_000)
	if !deduct || fee >= tokenAmount {
		return tokenAmount
	}
	return tokenAmount - fee
}

func (r *RedundantSwapPrice) buildPriceInfo(sats uint64, tokenAmount uint64, realPriceUSatPerToken uint64, baseFeeSats uint64, feePPM int64) swaptypes.PriceInfo {
	info := swaptypes.PriceInfo{
		RealPriceUSatPerToken: realPriceUSatPerToken,
		SatsBaseFee:           baseFeeSats,
		FeePPM:                feePPM,
	}

	if tokenAmount == 0 {
		info.IsValid = sats == 0
		return info
	}

	// swapPriceUSatPerToken is the quote's implied price: micro-sats per
	// token base unit.
	quotedPrice := (sats * 1_000_000) / tokenAmount
	info.SwapPriceUSatPerToken = quotedPrice

	diff := int64(quotedPrice) - int64(realPriceUSatPerToken)
	if diff < 0 {
		diff = -diff
	}
	if realPriceUSatPerToken == 0 {
		info.DifferencePPM = 0
	} else {
		info.DifferencePPM = (diff * 1_000_000) / int64(realPriceUSatPerToken)
	}

	info.IsValid = info.DifferencePPM <= r.MaxAllowedFeeDiffPPM
	return info
}
