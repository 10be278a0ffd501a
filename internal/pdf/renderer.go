// Package pdf renders quotes, invoices and purchase orders to paginated A4
// documents. Two modes exist: direct drawing of a structured document model,
// and slicing a pre-rendered preview image into page-sized chunks. Given
// identical input both modes produce identical output, so a regenerated PDF
// can be compared against the artifact already sent to a client.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// Document kinds, also used as the printed heading.
const (
	KindDevis         = "devis"
	KindFacture       = "facture"
	KindBonDeCommande = "bon_de_commande"
)

// Line is one priced row of the document table.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Document is the structured input of the direct-draw renderer.
type Document struct {
	Kind          string
	Reference     string
	Title         string
	IssuerName    string
	RecipientName string
	RecipientInfo string // email for clients, contact/address for vendors
	Description   string
	Lines         []Line
	MontantHT     decimal.Decimal
	TVA           decimal.Decimal // VAT rate, percent
	MontantTTC    decimal.Decimal
	ValidUntil    *time.Time
	DueDate       *time.Time
	IssuedAt      time.Time
}

// A4 geometry in points. The cursor page-breaks before crossing bottomLimit.
const (
	pageWidth   = 595.28
	pageHeight  = 841.89
	marginLeft  = 48.0
	marginRight = 48.0
	marginTop   = 56.0
	bottomLimit = 760.0
	lineHeight  = 14.0
	contentW    = pageWidth - marginLeft - marginRight
)

// Column widths of the line-item table.
const (
	colQty   = 60.0
	colPrice = 90.0
	colTotal = 90.0
	colDesc  = contentW - colQty - colPrice - colTotal
)

var kindHeadings = map[string]string{
	KindDevis:         "DEVIS",
	KindFacture:       "FACTURE",
	KindBonDeCommande: "BON DE COMMANDE",
}

// FormatMoney renders a monetary value with two decimals and a trailing
// euro sign, the way every generated document displays amounts.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}

// FormatPercent renders a VAT rate as an integer percentage.
func FormatPercent(d decimal.Decimal) string {
	return fmt.Sprintf("%d%%", d.IntPart())
}

// Render draws the document and returns the PDF bytes.
func Render(doc Document) ([]byte, error) {
	f := build(doc)
	var buf bytes.Buffer
	if err := f.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// build lays out the whole document. Kept separate from Render so tests can
// inspect the page count.
func build(doc Document) *gofpdf.Fpdf {
	f := gofpdf.New("P", "pt", "A4", "")
	// Stamp the document date instead of wall clock: identical input must
	// produce identical bytes.
	f.SetCreationDate(doc.IssuedAt.UTC())
	f.SetModificationDate(doc.IssuedAt.UTC())
	f.SetAutoPageBreak(false, 0)
	tr := f.UnicodeTranslatorFromDescriptor("")
	f.AddPage()

	y := marginTop

	// ensure page-breaks before a block of the given height would cross the
	// bottom limit.
	ensure := func(height float64) {
		if y+height > bottomLimit {
			f.AddPage()
			y = marginTop
		}
	}

	writeLine := func(font string, size float64, text string) {
		ensure(lineHeight)
		f.SetFont("Helvetica", font, size)
		f.Text(marginLeft, y+lineHeight-3, tr(text))
		y += lineHeight
	}

	// wrapped writes text split to the available column width, measuring
	// before drawing so a long field never overflows the page.
	wrapped := func(font string, size float64, width, x float64, text string) {
		f.SetFont("Helvetica", font, size)
		lines := f.SplitText(text, width)
		for _, ln := range lines {
			ensure(lineHeight)
			f.SetFont("Helvetica", font, size)
			f.Text(x, y+lineHeight-3, tr(ln))
			y += lineHeight
		}
	}

	heading := kindHeadings[doc.Kind]
	if heading == "" {
		heading = "DOCUMENT"
	}

	// Header block
	f.SetFont("Helvetica", "B", 22)
	f.Text(marginLeft, y+18, tr(heading))
	f.SetFont("Helvetica", "", 10)
	refLabel := fmt.Sprintf("Référence : %s", doc.Reference)
	f.Text(pageWidth-marginRight-f.GetStringWidth(tr(refLabel)), y+8, tr(refLabel))
	dateLabel := fmt.Sprintf("Date : %s", doc.IssuedAt.Format("02/01/2006"))
	f.Text(pageWidth-marginRight-f.GetStringWidth(tr(dateLabel)), y+22, tr(dateLabel))
	y += 40

	if doc.IssuerName != "" {
		writeLine("", 10, doc.IssuerName)
	}
	y += lineHeight / 2

	if doc.Title != "" {
		writeLine("B", 13, doc.Title)
	}
	writeLine("", 10, "À l'attention de : "+doc.RecipientName)
	if doc.RecipientInfo != "" {
		writeLine("", 10, doc.RecipientInfo)
	}
	y += lineHeight

	if doc.Description != "" {
		wrapped("", 10, contentW, marginLeft, doc.Description)
		y += lineHeight
	}

	// Table header
	ensure(lineHeight * 2)
	f.SetFont("Helvetica", "B", 10)
	f.Text(marginLeft, y+lineHeight-3, tr("Description"))
	f.Text(marginLeft+colDesc, y+lineHeight-3, tr("Qté"))
	f.Text(marginLeft+colDesc+colQty, y+lineHeight-3, tr("P.U. HT"))
	f.Text(marginLeft+colDesc+colQty+colPrice, y+lineHeight-3, tr("Total HT"))
	y += lineHeight
	f.SetLineWidth(0.5)
	f.Line(marginLeft, y, pageWidth-marginRight, y)
	y += 4

	// Rows: wrap the description first, then draw amounts on the row's
	// first line.
	for _, line := range doc.Lines {
		f.SetFont("Helvetica", "", 10)
		descLines := f.SplitText(line.Description, colDesc-8)
		ensure(lineHeight) // at least the first line fits before amounts are placed
		f.SetFont("Helvetica", "", 10)
		f.Text(marginLeft+colDesc, y+lineHeight-3, tr(line.Quantity.String()))
		f.Text(marginLeft+colDesc+colQty, y+lineHeight-3, tr(FormatMoney(line.UnitPrice)))
		f.Text(marginLeft+colDesc+colQty+colPrice, y+lineHeight-3, tr(FormatMoney(line.Total)))
		for _, dl := range descLines {
			ensure(lineHeight)
			f.SetFont("Helvetica", "", 10)
			f.Text(marginLeft, y+lineHeight-3, tr(dl))
			y += lineHeight
		}
		y += 2
	}

	// Totals block: HT, VAT line (TTC − HT), TTC.
	vatAmount := doc.MontantTTC.Sub(doc.MontantHT)
	totals := []struct {
		label string
		value string
		bold  bool
	}{
		{"Total HT", FormatMoney(doc.MontantHT), false},
		{fmt.Sprintf("TVA %s", FormatPercent(doc.TVA)), FormatMoney(vatAmount), false},
		{"Total TTC", FormatMoney(doc.MontantTTC), true},
	}

	ensure(lineHeight * 4)
	y += lineHeight
	f.Line(marginLeft+colDesc, y, pageWidth-marginRight, y)
	y += 4
	for _, t := range totals {
		ensure(lineHeight)
		font := ""
		if t.bold {
			font = "B"
		}
		f.SetFont("Helvetica", font, 10)
		f.Text(marginLeft+colDesc, y+lineHeight-3, tr(t.label))
		f.Text(marginLeft+colDesc+colQty+colPrice, y+lineHeight-3, tr(t.value))
		y += lineHeight
	}

	y += lineHeight
	if doc.ValidUntil != nil {
		writeLine("I", 9, fmt.Sprintf("Offre valable jusqu'au %s", doc.ValidUntil.Format("02/01/2006")))
	}
	if doc.DueDate != nil {
		writeLine("I", 9, fmt.Sprintf("À régler avant le %s", doc.DueDate.Format("02/01/2006")))
	}

	return f
}
