package session

import (
	"nutriscan/internal/nutrition"
	"nutriscan/internal/product"
)

// LatestScan is stored only when a barcode was decoded.
type LatestScan struct {
	BarcodeData    string `json:"barcode_data"`
	ScanImage      string `json:"scan_image,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	DetectionCount int    `json:"detection_count"`
}

// Result is the analysis handed from the scan form to the result page.
type Result struct {
	Product     *product.Product     `json:"product"`
	Analysis    nutrition.Assessment `json:"analysis"`
	NutrientMap string               `json:"nutrient_map"`
	ScanImage   string               `json:"scan_image,omitempty"`
	ImageURL    string               `json:"image_url,omitempty"`
	Barcode     string               `json:"barcode"`
}

// Data is one user's scan session.
type Data struct {
	LatestScan     *LatestScan `json:"latest_scan,omitempty"`
	CurrentBarcode string      `json:"current_barcode,omitempty"`
	LatestResult   *Result     `json:"latest_scan_results,omitempty"`
}

// ClearScan drops every scan key.
func (d *Data) ClearScan() {
	d.LatestScan = nil
	d.CurrentBarcode = ""
	d.LatestResult = nil
}
