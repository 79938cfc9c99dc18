package analysis

import "time"

// ProductScan is one completed analysis in a user's history.
type ProductScan struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Barcode        string    `json:"barcode"`
	ProductName    string    `json:"product_name"`
	ScanDate       time.Time `json:"scan_date"`
	AnalysisResult string    `json:"analysis_result"`
	ImageURL       string    `json:"image_url,omitempty"`
}
