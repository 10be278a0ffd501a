package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var issuedAt = time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)

func sampleDocument() Document {
	validUntil := issuedAt.Add(30 * 24 * time.Hour)
	return Document{
		Kind:          KindDevis,
		Reference:     "DEV-20260512-0001",
		Title:         "Organisation mariage château",
		RecipientName: "Camille & Jordan",
		RecipientInfo: "camille.jordan@example.fr",
		Lines: []Line{
			{Description: "Organisation complète", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(2500), Total: decimal.NewFromInt(2500)},
			{Description: "Coordination jour J", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(450), Total: decimal.NewFromInt(900)},
		},
		MontantHT:  decimal.NewFromInt(3400),
		TVA:        decimal.NewFromInt(20),
		MontantTTC: decimal.NewFromInt(4080),
		ValidUntil: &validUntil,
		IssuedAt:   issuedAt,
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(2500), "2500.00 €"},
		{decimal.RequireFromString("1234.5"), "1234.50 €"},
		{decimal.Zero, "0.00 €"},
	}
	for _, tc := range cases {
		if got := FormatMoney(tc.in); got != tc.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(decimal.NewFromInt(20)); got != "20%" {
		t.Errorf("FormatPercent(20) = %q", got)
	}
	if got := FormatPercent(decimal.RequireFromString("5.5")); got != "5%" {
		t.Errorf("FormatPercent(5.5) = %q", got)
	}
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := Render(sampleDocument())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}

func TestRenderSinglePageForShortDocument(t *testing.T) {
	f := build(sampleDocument())
	if got := f.PageCount(); got != 1 {
		t.Errorf("page count = %d, want 1", got)
	}
}

func TestRenderBreaksPagesOnLongTable(t *testing.T) {
	doc := sampleDocument()
	doc.Lines = nil
	for i := 0; i < 120; i++ {
		doc.Lines = append(doc.Lines, Line{
			Description: fmt.Sprintf("Prestation %d", i+1),
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(50),
			Total:       decimal.NewFromInt(50),
		})
	}
	f := build(doc)
	if got := f.PageCount(); got < 2 {
		t.Errorf("page count = %d, want at least 2", got)
	}
}

func TestRenderBreaksPagesOnWrappedDescription(t *testing.T) {
	doc := sampleDocument()
	doc.Lines = []Line{{
		Description: strings.Repeat("Location de mobilier, vaisselle et nappage pour la réception au château avec installation. ", 80),
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(2500),
		Total:       decimal.NewFromInt(2500),
	}}
	f := build(doc)
	if got := f.PageCount(); got < 2 {
		t.Errorf("page count = %d, want at least 2", got)
	}
	if _, err := Render(doc); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	doc := sampleDocument()
	first, err := Render(doc)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := Render(doc)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical input must produce identical bytes")
	}
}

func TestRenderUnknownKindFallsBack(t *testing.T) {
	doc := sampleDocument()
	doc.Kind = "mystery"
	if _, err := Render(doc); err != nil {
		t.Fatalf("render: %v", err)
	}
}
