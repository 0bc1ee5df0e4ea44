package price

import (
	"fmt"

	"sol-wallet-tools/internal/config"
)

func NewProviderFromConfig(pc config.Price) (PriceProvider, error) {
	switch pc.Provider.Type {
	case "coingecko":
		return NewCoinGecko(pc.Provider), nil
	case "":
		return nil, fmt.Errorf("price.provider.type is required")
	default:
		return nil, fmt.Errorf("unknown price provider: %s", pc.Provider.Type)
	}
}
