// Package catalog reads products from the backend for the configured sales
// channel and turns them into cart candidates.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/graphql"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/slug"
)

// DefaultChannel is the backend's stock sales channel.
const DefaultChannel = "default-channel"

// Service implements the catalog read path.
type Service struct {
	gql     *graphql.Client
	channel string
	logger  *slog.Logger
}

// NewService creates a catalog service. gql should send through the session's
// authenticated transport so signed-in users see their channel pricing.
func NewService(gql *graphql.Client, channel string, logger *slog.Logger) *Service {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Service{gql: gql, channel: channel, logger: logger}
}

// ListProducts returns one page of the channel's products.
func (s *Service) ListProducts(ctx context.Context, p pagination.Params) (pagination.Page[domain.Product], error) {
	p = p.Normalize()
	vars := map[string]any{"first": p.First, "channel": s.channel}
	if p.After != "" {
		vars["after"] = p.After
	}

	var data graphql.ProductListData
	if err := s.gql.Do(ctx, graphql.Request{
		Query:         graphql.ProductListQuery,
		OperationName: graphql.OpProductList,
		Variables:     vars,
	}, &data); err != nil {
		return pagination.Page[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	if data.Products == nil {
		return pagination.NewPage[domain.Product](nil, "", false), nil
	}

	products := make([]domain.Product, 0, len(data.Products.Edges))
	for _, edge := range data.Products.Edges {
		products = append(products, s.toDomain(ctx, edge.Node))
	}
	info := data.Products.PageInfo
	return pagination.NewPage(products, info.EndCursor, info.HasNextPage), nil
}

// Product returns a single product with its variants.
func (s *Service) Product(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, apperrors.InvalidInput("product id is required")
	}

	var data graphql.ProductDetailData
	if err := s.gql.Do(ctx, graphql.Request{
		Query:         graphql.ProductDetailQuery,
		OperationName: graphql.OpProduct,
		Variables:     map[string]any{"id": id, "channel": s.channel},
	}, &data); err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	if data.Product == nil {
		return domain.Product{}, apperrors.NotFound("product", id)
	}
	return s.toDomain(ctx, *data.Product), nil
}

// Candidate builds what the cart needs to add p, or the given variant of p.
// The variant's own price wins; otherwise the product price is used.
func Candidate(p domain.Product, variantID string) (domain.Candidate, error) {
	c := domain.Candidate{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Thumbnail: p.Thumbnail,
		Price:     p.Price,
		Currency:  p.Currency,
	}
	hasPrice := p.HasPrice

	if variantID != "" {
		v, ok := p.Variant(variantID)
		if !ok {
			return domain.Candidate{}, apperrors.NotFound("variant", variantID)
		}
		c.VariantID = v.ID
		c.VariantName = v.Name
		if v.HasPrice {
			c.Price, c.Currency, hasPrice = v.Price, v.Currency, true
		}
	}

	if !hasPrice {
		return domain.Candidate{}, apperrors.InvalidInput(fmt.Sprintf("product %s has no price in this channel", p.ID))
	}
	return c, nil
}

func (s *Service) toDomain(ctx context.Context, p graphql.Product) domain.Product {
	out := domain.Product{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
	}
	if out.Slug == "" {
		out.Slug = slug.Generate(p.Name)
	}
	if p.Thumbnail != nil {
		out.Thumbnail = p.Thumbnail.URL
	}
	for _, m := range p.Media {
		out.Images = append(out.Images, m.URL)
	}
	if price, ok := p.StartPrice(); ok {
		out.Price, out.Currency, out.HasPrice = s.minor(ctx, p.ID, price)
	}

	for _, v := range p.Variants {
		dv := domain.Variant{ID: v.ID, Name: v.Name}
		if price, ok := v.Price(); ok {
			dv.Price, dv.Currency, dv.HasPrice = s.minor(ctx, v.ID, price)
		}
		out.Variants = append(out.Variants, dv)
	}
	return out
}

// minor converts a backend amount. An unusable amount is logged and the
// item is reported as unpriced rather than failing the whole page.
func (s *Service) minor(ctx context.Context, id string, m graphql.Money) (int64, string, bool) {
	amount, err := domain.MinorUnits(m.Amount, m.Currency)
	if err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "unusable price from backend",
			slog.String("id", id),
			slog.String("currency", m.Currency),
			logger.Err(err),
		)
		return 0, "", false
	}
	return amount, strings.ToUpper(m.Currency), true
}
