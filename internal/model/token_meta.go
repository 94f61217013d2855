package model

// TokenMeta is the ERC-20 metadata read once per asset. Symbol and Name may
// be empty for tokens that only answer the bytes32 variants with garbage;
// Decimals always carries a usable value (fallback 18).
type TokenMeta struct {
	Address  string
	Decimals uint8
	Symbol   string
	Name     string
}
