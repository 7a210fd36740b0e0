package chain

func init() {
	Register("EOS", Mainnet, &Params{
		Symbol:              "EOS",
		Name:                "EOS",
		Type:                TypeEOS,
		Network:             Mainnet,
		Decimals:            4,
		HashConvention:      HashSHA256,
		AvgBlockTimeSeconds: 1, // 0.5s blocks, rounded up
	})

	Register("EOS", Testnet, &Params{
		Symbol:              "EOS",
		Name:                "Jungle4",
		Type:                TypeEOS,
		Network:             Testnet,
		Decimals:            4,
		HashConvention:      HashSHA256,
		AvgBlockTimeSeconds: 1,
	})
}
