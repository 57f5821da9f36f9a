// Package catalog serves the product list and store settings. Reads go
// through a cache-aside layer so a slow sheet backend doesn't slow every
// storefront load; writes go straight to the sheet and bust the cache.
package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"njmart/metrics"
	"njmart/models"
	"njmart/persist"
	"njmart/sheetapi"
	"njmart/utils"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

const (
	cacheKey = "nj_catalog"
	cacheTTL = 5 * time.Minute
)

type API struct {
	Sheet *sheetapi.Client
	Cache persist.Store
}

func NewAPI(sheet *sheetapi.Client, cache persist.Store) *API {
	return &API{Sheet: sheet, Cache: cache}
}

type cachedCatalog struct {
	FetchedAt time.Time        `json:"fetchedAt"`
	Products  []models.Product `json:"products"`
}

// GetProducts lists the catalog, optionally filtered by ?category= and
// searched by ?q= against the product name.
func (a *API) GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	products, err := a.products(r.Context())
	if err != nil {
		log.Warnf("catalog: list products: %v", err)
		utils.RespondWithError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	limit := utils.ParseInt(r.URL.Query().Get("limit"))

	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		filtered = append(filtered, p)
	}
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}

	utils.RespondWithJSON(w, http.StatusOK, filtered)
}

// GetCategories lists the distinct categories present in the catalog.
func (a *API) GetCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	products, err := a.products(r.Context())
	if err != nil {
		log.Warnf("catalog: list categories: %v", err)
		utils.RespondWithError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	seen := map[string]bool{}
	categories := []string{}
	for _, p := range products {
		c := strings.TrimSpace(p.Category)
		if c == "" || seen[strings.ToLower(c)] {
			continue
		}
		seen[strings.ToLower(c)] = true
		categories = append(categories, c)
	}
	sort.Strings(categories)

	utils.RespondWithJSON(w, http.StatusOK, categories)
}

// GetSettings returns the storefront settings (delivery policy, open flag).
func (a *API) GetSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	settings, err := a.Sheet.Settings(r.Context())
	if err != nil {
		log.Warnf("catalog: fetch settings: %v", err)
		utils.RespondWithError(w, http.StatusBadGateway, "settings unavailable")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, settings)
}

// AddProduct appends a product row to the sheet (admin only, enforced at the
// route) and invalidates the cached catalog.
func (a *API) AddProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	p.ProductID = strings.TrimSpace(p.ProductID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ProductID == "" || p.Name == "" || p.Price < 0 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	if err := a.Sheet.AddProduct(r.Context(), p); err != nil {
		log.Warnf("catalog: add product: %v", err)
		utils.RespondWithError(w, http.StatusBadGateway, "failed to add product")
		return
	}

	if err := a.Cache.Remove(r.Context(), cacheKey); err != nil {
		log.Warnf("catalog: bust cache: %v", err)
	}

	utils.SendResponse(w, http.StatusCreated, p, "Product added", nil)
}

// products serves from cache while fresh, refetching from the sheet on a miss
// or after TTL. A fetch failure with a stale cache entry falls back to the
// stale copy rather than erroring the storefront.
func (a *API) products(ctx context.Context) ([]models.Product, error) {
	var stale []models.Product

	if raw, ok, err := a.Cache.Load(ctx, cacheKey); err == nil && ok {
		var entry cachedCatalog
		if err := json.Unmarshal([]byte(raw), &entry); err == nil {
			if time.Since(entry.FetchedAt) < cacheTTL {
				metrics.CatalogCacheHits.WithLabelValues("hit").Inc()
				return entry.Products, nil
			}
			stale = entry.Products
		}
	}
	metrics.CatalogCacheHits.WithLabelValues("miss").Inc()

	products, err := a.Sheet.ListProducts(ctx)
	if err != nil {
		if stale != nil {
			log.Warnf("catalog: refresh failed, serving stale copy: %v", err)
			return stale, nil
		}
		return nil, err
	}

	entry := cachedCatalog{FetchedAt: time.Now(), Products: products}
	if raw, err := json.Marshal(entry); err == nil {
		if err := a.Cache.Save(ctx, cacheKey, string(raw)); err != nil {
			log.Warnf("catalog: cache products: %v", err)
		}
	}
	return products, nil
}
