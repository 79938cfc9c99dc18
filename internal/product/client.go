// Package product looks products up on OpenFoodFacts by barcode.
package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultURL = "https://world.openfoodfacts.org/api/v0/product/%s.json"

var ErrNotFound = errors.New("product not found")

type Client struct {
	urlPattern string
	http       *http.Client
}

// NewClient takes a URL pattern with one %s for the barcode.
func NewClient(urlPattern string) *Client {
	if urlPattern == "" {
		urlPattern = DefaultURL
	}
	return &Client{
		urlPattern: urlPattern,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type offResponse struct {
	Status  int `json:"status"`
	Product *struct {
		ProductName     string            `json:"product_name"`
		NutriscoreGrade string            `json:"nutriscore_grade"`
		NutriscoreScore any               `json:"nutriscore_score"`
		Nutriments      map[string]any    `json:"nutriments"`
		NutrientLevels  map[string]string `json:"nutrient_levels"`
		ImageURL        string            `json:"image_url"`
	} `json:"product"`
}

// Fetch returns ErrNotFound when the API reports status 0 or no product.
func (c *Client) Fetch(ctx context.Context, barcode string) (*Product, error) {
	barcode = strings.TrimSpace(barcode)
	url := fmt.Sprintf(c.urlPattern, barcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "NutriScan/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openfoodfacts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openfoodfacts returned %d", resp.StatusCode)
	}

	var body offResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode openfoodfacts response: %w", err)
	}
	if body.Status == 0 || body.Product == nil {
		return nil, ErrNotFound
	}

	src := body.Product
	p := &Product{
		Barcode:         barcode,
		ProductName:     src.ProductName,
		NutriscoreGrade: strings.ToUpper(src.NutriscoreGrade),
		NutriscoreScore: toFloat(src.NutriscoreScore),
		Nutriments:      src.Nutriments,
		NutrientLevels:  src.NutrientLevels,
		ImageURL:        src.ImageURL,
	}
	if p.ProductName == "" {
		p.ProductName = UnknownName
	}
	if p.NutriscoreGrade == "" {
		p.NutriscoreGrade = "N/A"
	}
	if p.Nutriments == nil {
		p.Nutriments = map[string]any{}
	}
	if p.NutrientLevels == nil {
		p.NutrientLevels = map[string]string{}
	}
	return p, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f
		}
	}
	return 0
}
