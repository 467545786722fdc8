package evm

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// routerABIJSON is the deposit entry point of the THORChain router.
const routerABIJSON = `[
  {
    "inputs": [
      {"internalType": "address payable", "name": "vault", "type": "address"},
      {"internalType": "address", "name": "asset", "type": "address"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"},
      {"internalType": "string", "name": "memo", "type": "string"},
      {"internalType": "uint256", "name": "expiration", "type": "uint256"}
    ],
    "name": "depositWithExpiry",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

var (
	routerABI     abi.ABI
	routerABIOnce sync.Once
	routerABIErr  error
)

func loadRouterABI() (abi.ABI, error) {
	routerABIOnce.Do(func() {
		routerABI, routerABIErr = abi.JSON(strings.NewReader(routerABIJSON))
	})
	return routerABI, routerABIErr
}
