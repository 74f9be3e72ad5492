package arb

import "github.com/ethereum/go-ethereum/common"

// TokenInfo records the per-chain identity of a well-known token: its
// address is the key used everywhere else in the package; the symbol is
// what the Service Facade uses to find each chain's USDC quote token and
// what TokenSymbol displays; decimals are carried as metadata and are not
// read anywhere in the package (ProfitUSD is not computed from them).
type TokenInfo struct {
	Address  Address
	Symbol   string
	Decimals uint8
}

// tokenRegistry is a small, hand-maintained set of well-known token
// addresses per chain. The original system resolves these from an
// on-chain or config-driven token list; that resolution is out of this
// module's scope, so a fixed registry of the handful of majors referenced
// by spec.md's examples stands in for it.
var tokenRegistry = map[Chain]map[Address]TokenInfo{
	ChainEthereum: {
		addr("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"): {Symbol: "WETH", Decimals: 18},
		addr("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"): {Symbol: "USDC", Decimals: 6},
		addr("0xdAC17F958D2ee523a2206206994597C13D831ec7"): {Symbol: "USDT", Decimals: 6},
		addr("0x6B175474E89094C44Da98b954EedeAC495271d0F"): {Symbol: "DAI", Decimals: 18},
		addr("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"): {Symbol: "WBTC", Decimals: 8},
	},
	ChainArbitrum: {
		addr("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"): {Symbol: "WETH", Decimals: 18},
		addr("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"): {Symbol: "USDC", Decimals: 6},
		addr("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"): {Symbol: "USDT", Decimals: 6},
	},
	ChainBase: {
		addr("0x4200000000000000000000000000000000000006"): {Symbol: "WETH", Decimals: 18},
		addr("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"): {Symbol: "USDC", Decimals: 6},
	},
	ChainPolygon: {
		addr("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"): {Symbol: "WMATIC", Decimals: 18},
		addr("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"): {Symbol: "USDC", Decimals: 6},
	},
}

func addr(s string) Address { return common.HexToAddress(s) }

// LookupToken returns registry metadata for addr on chain, if known.
func LookupToken(chain Chain, address Address) (TokenInfo, bool) {
	m, ok := tokenRegistry[chain]
	if !ok {
		return TokenInfo{}, false
	}
	info, ok := m[address]
	if !ok {
		return TokenInfo{}, false
	}
	info.Address = address
	return info, true
}

// TokenSymbol is a display convenience: the registered symbol, or the
// address's short hex form when the token is unregistered.
func TokenSymbol(chain Chain, address Address) string {
	if info, ok := LookupToken(chain, address); ok {
		return info.Symbol
	}
	return address.Hex()[:10]
}
