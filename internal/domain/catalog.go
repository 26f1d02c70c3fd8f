package domain

import "time"

// Product is an off-chain marketplace record for a token, owned by the
// backend API. On-chain state (ownership, listings, auctions) is never read
// from here.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"imageUrl"`
	MetadataURI  string    `json:"metadataUri"`
	TokenID      string    `json:"tokenId"`
	NFTContract  string    `json:"nftContract"`
	CollectionID string    `json:"collectionId"`
	Creator      string    `json:"creator"`
	Price        string    `json:"price"` // decimal ETH string
	CreatedAt    time.Time `json:"createdAt"`
}

// Collection groups products under a curator profile.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BannerURL   string `json:"bannerUrl"`
	Owner       string `json:"owner"`
}

// Profile is a marketplace user record keyed by wallet address.
type Profile struct {
	Address   string `json:"address"`
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

// ActivityItem is one row of a profile's marketplace history feed.
type ActivityItem struct {
	Type      string    `json:"type"` // mint, list, sale, bid, settle
	ProductID string    `json:"productId"`
	Price     string    `json:"price,omitempty"`
	TxHash    string    `json:"txHash,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
