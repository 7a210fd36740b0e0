package chain

func init() {
	Register("ALGO", Mainnet, &Params{
		Symbol:              "ALGO",
		Name:                "Algorand",
		Type:                TypeAlgorand,
		Network:             Mainnet,
		Decimals:            6,
		HashConvention:      HashSHA256,
		AvgBlockTimeSeconds: 3,
	})

	Register("ALGO", Testnet, &Params{
		Symbol:              "ALGO",
		Name:                "Algorand Testnet",
		Type:                TypeAlgorand,
		Network:             Testnet,
		Decimals:            6,
		HashConvention:      HashSHA256,
		AvgBlockTimeSeconds: 3,
	})
}
