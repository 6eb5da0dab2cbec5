package domain

// Category names one topic bucket the harvester rotates coverage across.
// The ordered category list is fixed for the process lifetime and defines
// rotation order.
type Category string

// The seven tracked web3 buckets, in rotation order.
const (
	CategoryDeFi           Category = "DeFi"
	CategoryLayer1Layer2   Category = "Layer1_Layer2"
	CategoryNFTGameFi      Category = "NFT_GameFi"
	CategoryAICrypto       Category = "AI_Crypto"
	CategoryRWA            Category = "RWA"
	CategoryMemeCoins      Category = "Meme_Coins"
	CategoryInfrastructure Category = "Infrastructure"
)

// DefaultCategories is the default rotation order.
var DefaultCategories = []Category{
	CategoryDeFi,
	CategoryLayer1Layer2,
	CategoryNFTGameFi,
	CategoryAICrypto,
	CategoryRWA,
	CategoryMemeCoins,
	CategoryInfrastructure,
}

// KeywordSet holds the search and classification vocabulary for one category.
// Primary keywords drive query building (the first one is the search term) and
// score 3 points during classification; Related keywords score 1 point.
type KeywordSet struct {
	Primary []string `yaml:"primary" json:"primary"`
	Related []string `yaml:"related" json:"related"`
}

// DefaultKeywords maps each default category to its vocabulary.
var DefaultKeywords = map[Category]KeywordSet{
	CategoryDeFi: {
		Primary: []string{"DeFi", "Uniswap", "Compound"},
		Related: []string{"aave", "liquidity", "yield", "farming", "staking", "DEX", "AMM"},
	},
	CategoryLayer1Layer2: {
		Primary: []string{"Ethereum", "Solana", "Polygon"},
		Related: []string{"bitcoin", "arbitrum", "optimism", "ETH", "BTC", "SOL", "layer2", "scaling"},
	},
	CategoryNFTGameFi: {
		Primary: []string{"NFT", "OpenSea", "GameFi"},
		Related: []string{"gaming", "metaverse", "P2E", "play to earn", "collectibles", "mint", "collection"},
	},
	CategoryAICrypto: {
		Primary: []string{"AI", "ChatGPT", "artificial intelligence"},
		Related: []string{"machine learning", "neural", "GPT", "ML", "automation", "bot"},
	},
	CategoryRWA: {
		Primary: []string{"RWA", "tokenization", "BlackRock"},
		Related: []string{"real world assets", "commodities", "bonds", "asset backed"},
	},
	CategoryMemeCoins: {
		Primary: []string{"DOGE", "SHIB", "PEPE"},
		Related: []string{"meme", "dogecoin", "shiba", "pump", "moon", "hodl"},
	},
	CategoryInfrastructure: {
		Primary: []string{"Chainlink", "oracle", "bridge"},
		Related: []string{"cross chain", "interoperability", "node", "validator", "consensus"},
	},
}
