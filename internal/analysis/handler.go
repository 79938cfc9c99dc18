package analysis

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"nutriscan/internal/product"
	"nutriscan/internal/ui/resultview"
	"nutriscan/internal/web"

	"github.com/gin-gonic/gin"
)

// MaxUploadSize bounds the scan image accepted by the server.
const MaxUploadSize = 5 << 20

const (
	msgInvalidForm     = "Invalid form data. Please check the uploaded image."
	msgScanServerError = "Server error during barcode scanning. Please try again."
	msgNoBarcode       = "No barcode provided. Please scan a product or enter one manually."
	msgNotFound        = "Could not find product data for barcode: "
	msgLimitedData     = "Product found but nutritional data is limited for barcode: "
	msgIncomplete      = "Please complete your profile (age, height, weight) for a personalized analysis."
	msgAnalysisError   = "Analysis Error: "
	msgUnexpected      = "An unexpected error occurred during analysis. Please try again."
	msgNoResult        = "No recent scan results found. Please scan a product first."
)

const (
	scanPath    = "/scan/"
	resultPath  = "/result/"
	profilePath = "/accounts/profile/"
)

// ScanResponse is the JSON body of an AJAX scan.
type ScanResponse struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	ImageWithBoxes string  `json:"image_with_boxes"`
	BarcodeData    *string `json:"barcode_data"`
	DetectionCount int     `json:"detection_count"`
}

type Handler struct {
	service *Service
	pages   *web.Renderer
}

func NewHandler(service *Service, pages *web.Renderer) *Handler {
	return &Handler{service: service, pages: pages}
}

// --------------------------------------------------
// GET /scan/
// --------------------------------------------------
func (h *Handler) ScanPage(c *gin.Context) {
	userID := c.GetString(web.UserIDContextKey)
	h.pages.HTML(c, http.StatusOK, "scan", gin.H{
		"CurrentBarcode": h.service.CurrentBarcode(c.Request.Context(), userID),
	})
}

// --------------------------------------------------
// POST /scan/
// AJAX requests decode a barcode image; plain form posts run the analysis.
// --------------------------------------------------
func (h *Handler) Scan(c *gin.Context) {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		h.scanBarcode(c)
		return
	}
	h.analyze(c)
}

func (h *Handler) scanBarcode(c *gin.Context) {
	data, err := readImage(c)
	if err != nil {
		slog.Warn("scan form invalid", "error", err)
		c.JSON(http.StatusBadRequest, ScanResponse{Message: msgInvalidForm})
		return
	}

	userID := c.GetString(web.UserIDContextKey)
	res, err := h.service.ScanImage(c.Request.Context(), userID, data)
	if err != nil {
		slog.Error("barcode scan failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, ScanResponse{Message: msgScanServerError})
		return
	}

	resp := ScanResponse{
		Success:        res.Success,
		Message:        res.Message,
		ImageWithBoxes: res.ImageWithBoxes,
		DetectionCount: res.DetectionCount,
	}
	if res.BarcodeData != "" {
		resp.BarcodeData = &res.BarcodeData
	}
	c.JSON(http.StatusOK, resp)
}

var errNotImage = errors.New("upload is not an image")

// readImage returns the "image" upload, rejecting missing files, non-images
// and anything over MaxUploadSize.
func readImage(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, err
	}
	if fh.Size > MaxUploadSize {
		return nil, errors.New("upload too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data) > MaxUploadSize {
		return nil, errors.New("upload empty or too large")
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, errNotImage
	}
	return data, nil
}

func (h *Handler) analyze(c *gin.Context) {
	userID := c.GetString(web.UserIDContextKey)
	out, err := h.service.Analyze(c.Request.Context(), userID, c.PostForm("manual_barcode_data"))

	if out != nil && out.LimitedData {
		web.AddFlash(c, web.LevelWarning, msgLimitedData+out.Barcode)
	}

	var analysisErr *AnalysisError
	switch {
	case err == nil:
		web.Redirect(c, resultPath)
	case errors.Is(err, ErrNoBarcode):
		web.AddFlash(c, web.LevelError, msgNoBarcode)
		web.Redirect(c, scanPath)
	case errors.Is(err, ErrProductNotFound):
		web.AddFlash(c, web.LevelError, msgNotFound+out.Barcode)
		web.Redirect(c, scanPath)
	case errors.Is(err, ErrIncompleteProfile):
		web.AddFlash(c, web.LevelError, msgIncomplete)
		web.Redirect(c, profilePath)
	case errors.As(err, &analysisErr):
		web.AddFlash(c, web.LevelError, msgAnalysisError+analysisErr.Error())
		web.Redirect(c, scanPath)
	default:
		slog.Error("product analysis failed", "user_id", userID, "error", err)
		web.AddFlash(c, web.LevelError, msgUnexpected)
		web.Redirect(c, scanPath)
	}
}

// --------------------------------------------------
// GET /result/
// --------------------------------------------------
func (h *Handler) Result(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(web.UserIDContextKey)

	res, err := h.service.PopResult(ctx, userID)
	if err != nil {
		slog.Error("loading scan result", "user_id", userID, "error", err)
	}
	if res == nil {
		web.AddFlash(c, web.LevelInfo, msgNoResult)
		web.Redirect(c, scanPath)
		return
	}

	page := resultview.New()
	page.AddList("pros", res.Analysis.Pros)
	page.AddList("cons", res.Analysis.Cons)
	page.AddImage("product-image", true)
	page.AddImage("scan-image", false)
	page.Enhance()
	view := page.View()
	pros, _ := view.List("pros")
	cons, _ := view.List("cons")

	prod := res.Product
	if prod == nil {
		prod = &product.Product{ProductName: product.UnknownName}
	}
	barcode := res.Barcode
	if barcode == "" {
		barcode = "Unknown"
	}

	h.pages.HTML(c, http.StatusOK, "result", gin.H{
		"Product":   prod,
		"Nutrients": prod.Rows(product.ParseNutrientMap(res.NutrientMap)),
		"Analysis":  res.Analysis,
		"Pros":      pros,
		"Cons":      cons,
		"ScanImage": res.ScanImage,
		"ImageURL":  res.ImageURL,
		"Barcode":   barcode,
		"Recent":    h.service.RecentScans(ctx, userID),
		"ScanAgain": resultview.ScanAgainPath,
	})
}

// --------------------------------------------------
// POST /scan/clear-session/
// --------------------------------------------------
func (h *Handler) ClearSession(c *gin.Context) {
	userID := c.GetString(web.UserIDContextKey)
	if err := h.service.ClearSession(c.Request.Context(), userID); err != nil {
		slog.Error("clearing scan session", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Scan session cleared"})
}
