package liquidity

import (
	"strconv"
	"strings"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// Memo actions understood by the settlement chain's memo parser.
const (
	memoAdd      = "ADD"
	memoWithdraw = "WITHDRAW"
	memoSep      = ":"
)

// AddMemo returns ADD:<pool>[:<paired-address>]. The paired address links the
// two legs of a symmetric add.
func AddMemo(pool domain.Asset, pairedAddress string) string {
	parts := []string{memoAdd, pool.String()}
	if pairedAddress != "" {
		parts = append(parts, pairedAddress)
	}
	return strings.Join(parts, memoSep)
}

// WithdrawMemo returns WITHDRAW:<pool>:<bps>[:<counter-address>].
func WithdrawMemo(pool domain.Asset, basisPoints int64, counterAddress string) string {
	parts := []string{memoWithdraw, pool.String(), strconv.FormatInt(basisPoints, 10)}
	if counterAddress != "" {
		parts = append(parts, counterAddress)
	}
	return strings.Join(parts, memoSep)
}
