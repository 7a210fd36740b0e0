package chain

func init() {
	Register("ETH", Mainnet, &Params{
		Symbol:              "ETH",
		Name:                "Ethereum",
		Type:                TypeEVM,
		Network:             Mainnet,
		Decimals:            18,
		ChainID:             1,
		HashConvention:      HashKeccak256,
		AvgBlockTimeSeconds: 12,
	})

	Register("ETH", Testnet, &Params{
		Symbol:              "ETH",
		Name:                "Ethereum Sepolia",
		Type:                TypeEVM,
		Network:             Testnet,
		Decimals:            18,
		ChainID:             11155111,
		HashConvention:      HashKeccak256,
		AvgBlockTimeSeconds: 12,
	})
}
