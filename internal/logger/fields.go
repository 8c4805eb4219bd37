package logger

import (
	"math/big"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Account returns a zap field rendering an account as checksummed hex
func Account(key string, account domain.AccountID) zap.Field {
	return zap.String(key, account.Hex())
}

// Amount returns a zap field rendering a wei amount as a decimal string
func Amount(key string, amount *big.Int) zap.Field {
	if amount == nil {
		return zap.Skip()
	}
	return zap.String(key, amount.String())
}

// TokenID returns a zap field for a token id
func TokenID(id uint64) zap.Field {
	return zap.Uint64("token_id", id)
}
