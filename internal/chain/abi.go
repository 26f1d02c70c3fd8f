package chain

// Interface descriptions for the three marketplace contracts. Their
// semantics are fixed externally; only the entry points the client calls
// are declared here.

// NFTABI is the ERC-721-style collection contract.
const NFTABI = `[
	{"type":"function","name":"mintToken","stateMutability":"nonpayable","inputs":[{"name":"tokenURI","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setTokenURI","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"tokenURI","type":"string"}],"outputs":[]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getApproved","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"isApprovedForAll","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

// MarketplaceABI is the fixed-price listing contract.
const MarketplaceABI = `[
	{"type":"function","name":"createMarketItem","stateMutability":"payable","inputs":[{"name":"nftContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getListingFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"createMarketSale","stateMutability":"payable","inputs":[{"name":"nftContract","type":"address"},{"name":"itemId","type":"uint256"}],"outputs":[]}
]`

// AuctionHouseABI is the reserve-price auction contract.
const AuctionHouseABI = `[
	{"type":"function","name":"auctions","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
		{"name":"seller","type":"address"},
		{"name":"nftContract","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"endTime","type":"uint256"},
		{"name":"minIncrementBps","type":"uint256"},
		{"name":"reservePrice","type":"uint256"},
		{"name":"highestBidder","type":"address"},
		{"name":"highestBid","type":"uint256"},
		{"name":"settled","type":"bool"}
	]},
	{"type":"function","name":"createAuction","stateMutability":"nonpayable","inputs":[{"name":"nftContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"reservePrice","type":"uint256"},{"name":"duration","type":"uint256"},{"name":"minIncrementBps","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"bid","stateMutability":"payable","inputs":[{"name":"auctionId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"settle","stateMutability":"nonpayable","inputs":[{"name":"auctionId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[{"name":"auctionId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdrawRefund","stateMutability":"nonpayable","inputs":[{"name":"auctionId","type":"uint256"}],"outputs":[]}
]`
