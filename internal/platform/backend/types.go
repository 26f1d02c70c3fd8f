package backend

import (
	"time"

	"github.com/openmint/marketd/internal/domain"
)

// Wire DTOs for the backend API. Kept separate from the domain types so
// backend schema drift stays contained here.

type APIProduct struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	MetadataURI  string `json:"metadata_uri"`
	TokenID      string `json:"token_id"`
	NFTContract  string `json:"nft_contract"`
	CollectionID string `json:"collection_id"`
	Creator      string `json:"creator"`
	Price        string `json:"price"`
	CreatedAt    string `json:"created_at"`
}

// ToDomain converts the wire product into the domain shape.
func (p APIProduct) ToDomain() domain.Product {
	createdAt, _ := time.Parse(time.RFC3339, p.CreatedAt)
	return domain.Product{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		MetadataURI:  p.MetadataURI,
		TokenID:      p.TokenID,
		NFTContract:  p.NFTContract,
		CollectionID: p.CollectionID,
		Creator:      p.Creator,
		Price:        p.Price,
		CreatedAt:    createdAt,
	}
}

// FromDomainProduct converts a domain product into the wire shape for
// create/update requests.
func FromDomainProduct(p domain.Product) APIProduct {
	return APIProduct{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		MetadataURI:  p.MetadataURI,
		TokenID:      p.TokenID,
		NFTContract:  p.NFTContract,
		CollectionID: p.CollectionID,
		Creator:      p.Creator,
		Price:        p.Price,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type APICollection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BannerURL   string `json:"banner_url"`
	Owner       string `json:"owner"`
}

func (c APICollection) ToDomain() domain.Collection {
	return domain.Collection{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		BannerURL:   c.BannerURL,
		Owner:       c.Owner,
	}
}

type APIProfile struct {
	Address   string `json:"address"`
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

func (p APIProfile) ToDomain() domain.Profile {
	return domain.Profile{
		Address:   p.Address,
		Username:  p.Username,
		Bio:       p.Bio,
		AvatarURL: p.AvatarURL,
	}
}

type APIActivityItem struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	TxHash    string `json:"tx_hash"`
	Timestamp string `json:"timestamp"`
}

func (a APIActivityItem) ToDomain() domain.ActivityItem {
	ts, _ := time.Parse(time.RFC3339, a.Timestamp)
	return domain.ActivityItem{
		Type:      a.Type,
		ProductID: a.ProductID,
		Price:     a.Price,
		TxHash:    a.TxHash,
		Timestamp: ts,
	}
}
