// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// GenerateInvoice generates a PDF invoice for an order
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	data := InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%06d", o.ID),
		InvoiceDate:   o.CreatedAt.Format("January 2, 2006"),
		AppName:       s.config.App.Name,
		Order:         o,
	}

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data InvoiceData) (string, error) {
	tmpl := template.Must(template.New("invoice").Parse(invoiceTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string       `json:"invoice_number"`
	InvoiceDate   string       `json:"invoice_date"`
	AppName       string       `json:"app_name"`
	Order         *order.Order `json:"order"`
}

// Invoice HTML template
const invoiceTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 24px; color: #222; }
        .header { display: flex; justify-content: space-between; border-bottom: 2px solid #222; padding-bottom: 12px; }
        .header h1 { margin: 0; font-size: 22px; }
        .meta { margin-top: 16px; font-size: 13px; }
        table { width: 100%; border-collapse: collapse; margin-top: 24px; font-size: 13px; }
        th { text-align: left; background: #f2f2f2; padding: 8px; border-bottom: 1px solid #ccc; }
        td { padding: 8px; border-bottom: 1px solid #eee; }
        .amount { text-align: right; }
        .total-row td { font-weight: bold; border-top: 2px solid #222; }
        .status { margin-top: 16px; font-size: 13px; text-transform: uppercase; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
        <div>
            <div><strong>{{.InvoiceNumber}}</strong></div>
            <div>{{.InvoiceDate}}</div>
        </div>
    </div>
    <div class="meta">
        <div>Order #{{.Order.ID}}</div>
    </div>
    <table>
        <thead>
            <tr>
                <th>Item</th>
                <th class="amount">Qty</th>
                <th class="amount">Unit Price</th>
            </tr>
        </thead>
        <tbody>
            {{range .Order.Items}}
            <tr>
                <td>{{.Name}}</td>
                <td class="amount">{{.Quantity}}</td>
                <td class="amount">{{.Price}}</td>
            </tr>
            {{end}}
            <tr class="total-row">
                <td colspan="2">Total</td>
                <td class="amount">{{.Order.TotalAmount}}</td>
            </tr>
        </tbody>
    </table>
    <div class="status">Payment status: {{.Order.Status}}</div>
</body>
</html>
`
