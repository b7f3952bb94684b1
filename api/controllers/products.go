package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	productsvc "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ListProducts serves the public catalog listing.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := parseListProductsInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Products, types.PageMeta{Page: result.Page, Limit: result.Limit, Total: result.Total})
	}
}

func parseListProductsInput(r *http.Request) (productsvc.ListProductsInput, error) {
	query := r.URL.Query()
	input := productsvc.ListProductsInput{Sort: enums.ProductSortNewest}

	page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
	if err != nil {
		return input, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return input, err
	}
	input.Page = pagination.Page{Number: page, Limit: limit}

	if raw := strings.TrimSpace(query.Get("sort")); raw != "" {
		sort, err := enums.ParseProductSort(raw)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort").WithDetails(map[string]any{"field": "sort"})
		}
		input.Sort = sort
	}

	if v := strings.TrimSpace(query.Get("category")); v != "" {
		input.Filters.Category = &v
	}
	if v := strings.TrimSpace(query.Get("brand")); v != "" {
		input.Filters.Brand = &v
	}
	input.Filters.Query = validators.SanitizeString(query.Get("q"), 100)

	if input.Filters.PriceMinCents, err = validators.ParseQueryCents(r, "price_min_cents"); err != nil {
		return input, err
	}
	if input.Filters.PriceMaxCents, err = validators.ParseQueryCents(r, "price_max_cents"); err != nil {
		return input, err
	}

	for key, dest := range map[string]**bool{
		"in_stock": &input.Filters.InStock,
		"featured": &input.Filters.Featured,
	} {
		if strings.TrimSpace(query.Get(key)) == "" {
			continue
		}
		value, err := validators.ParseQueryBool(r, key, false)
		if err != nil {
			return input, err
		}
		*dest = &value
	}
	return input, nil
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func GetProductBySlug(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		product, err := svc.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ListCategories(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func ListBrands(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		brands, err := svc.Brands(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, brands)
	}
}

// AdminCreateProduct creates a product together with its variants.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminAdjustStock applies a signed stock delta to one variant.
func AdminAdjustStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		variantID, err := validators.ParseUUIDParam(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.AdjustStock(r.Context(), variantID, *payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, variant)
	}
}

type createProductRequest struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	Slug        string                 `json:"slug" validate:"omitempty,max=200"`
	Description *string                `json:"description,omitempty"`
	Category    string                 `json:"category" validate:"required,max=100"`
	Brand       *string                `json:"brand,omitempty" validate:"omitempty,max=100"`
	Images      []string               `json:"images" validate:"omitempty,dive,url"`
	Tags        []string               `json:"tags" validate:"omitempty,dive,required"`
	IsActive    *bool                  `json:"is_active,omitempty"`
	IsFeatured  bool                   `json:"is_featured"`
	Variants    []variantCreateRequest `json:"variants" validate:"required,min=1,dive"`
}

type variantCreateRequest struct {
	Name       string            `json:"name" validate:"required,max=200"`
	SKU        string            `json:"sku" validate:"required,max=64"`
	PriceCents int64             `json:"price_cents" validate:"gte=0"`
	Stock      int               `json:"stock" validate:"gte=0"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (r createProductRequest) toCreateInput() productsvc.CreateProductInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	input := productsvc.CreateProductInput{
		Name:        strings.TrimSpace(r.Name),
		Slug:        strings.TrimSpace(r.Slug),
		Description: r.Description,
		Category:    strings.TrimSpace(r.Category),
		Brand:       r.Brand,
		Images:      r.Images,
		Tags:        r.Tags,
		IsActive:    active,
		IsFeatured:  r.IsFeatured,
		Variants:    make([]productsvc.VariantInput, 0, len(r.Variants)),
	}
	for _, v := range r.Variants {
		input.Variants = append(input.Variants, productsvc.VariantInput{
			Name:       strings.TrimSpace(v.Name),
			SKU:        strings.TrimSpace(v.SKU),
			PriceCents: v.PriceCents,
			Stock:      v.Stock,
			Attributes: v.Attributes,
		})
	}
	return input
}

type adjustStockRequest struct {
	Delta *int `json:"delta" validate:"required"`
}
