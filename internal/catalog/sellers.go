package catalog

import (
	"context"
	"sort"

	"github.com/utafrali/bookstore/internal/domain"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
)

// sellerScanLimit bounds how many books are read to derive sellers.
const sellerScanLimit = 1000

// ListSellers returns everyone with at least one listing, most listings
// first. Books without a seller are ignored.
func (c *Client) ListSellers(ctx context.Context) ([]domain.Seller, error) {
	books, err := c.ListBooks(ctx, ListParams{Page: 1, Limit: sellerScanLimit})
	if err != nil {
		return nil, err
	}
	sellers := groupSellers(books)
	for i := range sellers {
		sellers[i].Books = nil
	}
	return sellers, nil
}

// GetSeller returns one seller with their books. A seller with no listings
// does not exist.
func (c *Client) GetSeller(ctx context.Context, id string) (domain.Seller, error) {
	books, err := c.ListBooks(ctx, ListParams{Page: 1, Limit: sellerScanLimit})
	if err != nil {
		return domain.Seller{}, err
	}
	for _, s := range groupSellers(books) {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Seller{}, apperrors.NotFound("seller", id)
}

func groupSellers(books []domain.Book) []domain.Seller {
	var order []string
	byID := make(map[string]*domain.Seller)

	for _, b := range books {
		if b.SellerID == "" {
			continue
		}
		s, ok := byID[b.SellerID]
		if !ok {
			s = &domain.Seller{ID: b.SellerID, Name: "Seller " + b.SellerID}
			byID[b.SellerID] = s
			order = append(order, b.SellerID)
		}
		if s.Name == "Seller "+b.SellerID && b.SellerName != "" {
			s.Name = b.SellerName
		}
		if s.Email == "" {
			s.Email = b.SellerEmail
		}
		if b.CreatedAt != nil && (s.JoinedAt == nil || b.CreatedAt.Before(*s.JoinedAt)) {
			t := *b.CreatedAt
			s.JoinedAt = &t
		}
		s.BookCount++
		s.Books = append(s.Books, b)
	}

	sellers := make([]domain.Seller, 0, len(order))
	for _, id := range order {
		sellers = append(sellers, *byID[id])
	}
	sort.SliceStable(sellers, func(i, j int) bool {
		return sellers[i].BookCount > sellers[j].BookCount
	})
	return sellers
}
