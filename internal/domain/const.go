package domain

const (
	// Marketplace descriptor constants
	MARKETPLACE_NAME   = "NFTMarketplace"
	MARKETPLACE_SYMBOL = "NFTM"

	// Value constants
	ETHER_DECIMALS = 18

	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// Messaging constants
	EVENT_SUBJECT_PREFIX = "marketplace.events"
)
