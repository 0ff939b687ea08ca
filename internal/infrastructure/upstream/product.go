package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

const peerProduct = "product-service"

type ProductClient struct {
	c *Client
}

func NewProductClient(c *Client) *ProductClient { return &ProductClient{c: c} }

type categoryDTO struct {
	CategoryID   int64  `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	DisplayOrder int    `json:"displayOrder"`
}

type productDTO struct {
	ProductID               int64           `json:"productId"`
	ProductName             string          `json:"productName"`
	Price                   decimal.Decimal `json:"price"`
	IsCampaign              bool            `json:"isCampaign"`
	CampaignDiscountPercent decimal.Decimal `json:"campaignDiscountPercent"`
	CategoryID              int64           `json:"categoryId"`
	CategoryName            string          `json:"categoryName"`
	IsActive                *bool           `json:"isActive"`
}

func (p productDTO) toDomain() catalog.Product {
	return catalog.Product{
		ID:                      p.ProductID,
		Name:                    p.ProductName,
		Price:                   p.Price,
		IsCampaign:              p.IsCampaign,
		CampaignDiscountPercent: p.CampaignDiscountPercent,
		CategoryID:              p.CategoryID,
		CategoryName:            p.CategoryName,
		Active:                  p.IsActive == nil || *p.IsActive,
	}
}

type categoriesResponse struct {
	Categories []categoryDTO `json:"categories"`
}

type productsResponse struct {
	Products []productDTO `json:"products"`
}

func (pc *ProductClient) Categories(ctx context.Context) ([]catalog.Category, error) {
	var out categoriesResponse
	err := pc.c.do(ctx, call{
		peer:     peerProduct,
		endpoint: "GET /api/v1/categories",
		method:   http.MethodGet,
		path:     "/api/v1/categories",
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	cats := make([]catalog.Category, 0, len(out.Categories))
	for _, c := range out.Categories {
		cats = append(cats, catalog.Category{ID: c.CategoryID, Name: c.CategoryName, DisplayOrder: c.DisplayOrder})
	}
	return cats, nil
}

// Products lists active products, optionally of one category.
func (pc *ProductClient) Products(ctx context.Context, categoryID int64) ([]catalog.Product, error) {
	path := "/api/v1/products"
	if categoryID > 0 {
		path += "?categoryId=" + strconv.FormatInt(categoryID, 10)
	}
	var out productsResponse
	err := pc.c.do(ctx, call{
		peer:     peerProduct,
		endpoint: "GET /api/v1/products",
		method:   http.MethodGet,
		path:     path,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	products := make([]catalog.Product, 0, len(out.Products))
	for _, dto := range out.Products {
		p := dto.toDomain()
		if !p.Active {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (pc *ProductClient) Product(ctx context.Context, id int64) (*catalog.Product, error) {
	var out productDTO
	err := pc.c.do(ctx, call{
		peer:     peerProduct,
		endpoint: "GET /api/v1/products/{id}",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/api/v1/products/%d", id),
		out:      &out,
	})
	if IsStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("%w: %d", catalog.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	p := out.toDomain()
	if !p.Active {
		return nil, fmt.Errorf("%w: %d", catalog.ErrNotFound, id)
	}
	return &p, nil
}
