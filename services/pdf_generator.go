package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"
	"time"

	"justice_flow_go/config"
	"justice_flow_go/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	qrcode "github.com/skip2/go-qrcode"
)

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	PageOrientation string // portrait, landscape
	PageSize        string // letter, legal, A4
	MarginTop       int    // points (72 = 1 inch)
	MarginBottom    int
	MarginLeft      int
	MarginRight     int
}

// DefaultPDFOptions returns A4 portrait with 2cm margins
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageOrientation: "portrait",
		PageSize:        "A4",
		MarginTop:       57,
		MarginBottom:    57,
		MarginLeft:      57,
		MarginRight:     57,
	}
}

func (o PDFOptions) paperSize() (width, height float64) {
	switch o.PageSize {
	case "legal":
		width, height = 8.5, 14.0
	case "letter":
		width, height = 8.5, 11.0
	default:
		width, height = 8.27, 11.69
	}
	if o.PageOrientation == "landscape" {
		width, height = height, width
	}
	return width, height
}

// GeneratePDF renders HTML content to PDF using headless Chrome
func GeneratePDF(ctx context.Context, chromePath, htmlContent string, options PDFOptions) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer timeoutCancel()

	paperWidth, paperHeight := options.paperSize()
	var pdfBuf []byte

	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.Sleep(100*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(float64(options.MarginTop) / 72.0).
				WithMarginBottom(float64(options.MarginBottom) / 72.0).
				WithMarginLeft(float64(options.MarginLeft) / 72.0).
				WithMarginRight(float64(options.MarginRight) / 72.0).
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return pdfBuf, nil
}

var receiptTemplate = template.Must(template.ParseFS(emailTemplates, "templates/documents/complaint_receipt.html"))

// ReceiptData is what the complaint receipt shows
type ReceiptData struct {
	TrackingCode string
	FiledAt      string
	CitizenName  string
	StationName  string
	Offence      string
	Location     string
	Status       string
	Description  string
	VerifyURL    string
	QRCode       template.URL
}

// VerificationURL is the public link printed on a receipt
func VerificationURL(cfg *config.Config, token string) string {
	return strings.TrimSuffix(cfg.AppURL, "/") + "/verify/" + token
}

// BuildReceiptData collects the receipt fields of a complaint loaded with its citizen and station
func BuildReceiptData(cfg *config.Config, complaint *models.Complaint) (ReceiptData, error) {
	data := ReceiptData{
		TrackingCode: complaint.TrackingCode,
		FiledAt:      complaint.FiledAt.Format("02/01/2006 15:04"),
		Offence:      complaint.ProvisionalOffence,
		Location:     complaint.Location,
		Status:       models.NormalizeStatus(complaint.Status),
		Description:  complaint.Description,
		VerifyURL:    VerificationURL(cfg, complaint.VerificationToken),
	}
	if complaint.Citizen != nil {
		data.CitizenName = complaint.Citizen.Name
	}
	if complaint.PoliceStation != nil {
		data.StationName = complaint.PoliceStation.Name
	}

	png, err := qrcode.Encode(data.VerifyURL, qrcode.Medium, 256)
	if err != nil {
		return data, fmt.Errorf("failed to encode verification QR code: %w", err)
	}
	data.QRCode = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	return data, nil
}

// RenderReceiptHTML renders the receipt document
func RenderReceiptHTML(data ReceiptData) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.String(), nil
}

// GenerateComplaintReceipt produces the PDF receipt of a complaint
func GenerateComplaintReceipt(ctx context.Context, cfg *config.Config, complaint *models.Complaint) ([]byte, error) {
	data, err := BuildReceiptData(cfg, complaint)
	if err != nil {
		return nil, Internal("failed to prepare receipt", err)
	}
	html, err := RenderReceiptHTML(data)
	if err != nil {
		return nil, Internal("failed to render receipt", err)
	}
	pdf, err := GeneratePDF(ctx, cfg.ChromePath, html, DefaultPDFOptions())
	if err != nil {
		return nil, Internal("failed to generate receipt", err)
	}
	return pdf, nil
}
