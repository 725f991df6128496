// Package pdf genera el DANFE simplificado (Documento Auxiliar da NF-e) en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: DANFE + situación    │  Código de barras de la chave │
//	│  Chave de acesso en grupos de 4 + protocolo                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMITENTE: documento + dirección                             │
//	│  DESTINATÁRIO: documento + dirección                         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Código | Descrição | NCM | CFOP | Qtd | V.Unit | Total │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: ICMS / IPI / PIS / COFINS / Produtos / Total NF    │
//	│  FOOTER: QR de consulta + CC-e registrada                    │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorAlert   = &props.Color{Red: 180, Green: 0, Blue: 0}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// DANFEGenerator implementa billing.DANFEGenerator usando Maroto v2.
type DANFEGenerator struct {
	consultaURL string // portal de consulta pública codificado en el QR
}

var _ billing.DANFEGenerator = (*DANFEGenerator)(nil)

// NewDANFEGenerator construye el generador. consultaURL vacío usa el portal nacional.
func NewDANFEGenerator(consultaURL string) *DANFEGenerator {
	if consultaURL == "" {
		consultaURL = "https://www.nfe.fazenda.gov.br/portal/consultaRecaptcha.aspx"
	}
	return &DANFEGenerator{consultaURL: consultaURL}
}

// Generate genera el PDF y devuelve sus bytes. La nota debe tener chave de acesso.
func (g *DANFEGenerator) Generate(ctx context.Context, inv *entity.Invoice) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if inv.AccessKey() == "" {
		return nil, fmt.Errorf("pdf: la nota %s no tiene chave de acesso", inv.ID())
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("DANFE "+inv.AccessKey(), true).
		WithAuthor(inv.EmitterTaxID().String(), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(inv))
	m.AddRows(accessKeyRows(inv)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partyRow("EMITENTE", inv.EmitterTaxID(), inv.EmitterAddress()))
	m.AddRows(partyRow("DESTINATÁRIO", inv.RecipientTaxID(), inv.RecipientAddress()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableItemRows(inv.Items())...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(inv))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(g.footerRows(inv)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título y situación (izq), código de barras de la chave (der).
func headerRow(inv *entity.Invoice) core.Row {
	situacao, color := situationLabel(inv.Status())
	return row.New(22).Add(
		col.New(5).Add(
			text.New("DANFE", props.Text{
				Style: fontstyle.Bold, Size: 16, Color: colorPrimary, Top: 1,
			}),
			text.New("Documento Auxiliar da Nota Fiscal Eletrônica", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
			text.New(situacao, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 15, Color: color,
			}),
		),
		col.New(7).Add(code.NewBar(inv.AccessKey(), props.Barcode{
			Percent: 90, Center: true,
		})),
	)
}

// accessKeyRows: chave formateada y protocolo de autorización.
func accessKeyRows(inv *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(5).Add(col.New(12).Add(
			text.New("CHAVE DE ACESSO", props.Text{Style: fontstyle.Bold, Size: 7, Top: 1}),
		)),
		row.New(6).Add(col.New(12).Add(
			text.New(formatAccessKey(inv.AccessKey()), props.Text{Size: 10, Top: 1, Align: align.Center}),
		)),
	}
	if p := inv.AuthorizationProtocol(); p != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Protocolo de autorização: %s   |   Emissão: %s",
				p, inv.IssuedAt().Format("02/01/2006 15:04:05")),
				props.Text{Size: 8, Top: 1, Color: colorGray}),
		)))
	}
	return rows
}

// partyRow: emitente o destinatário.
func partyRow(title string, id fiscal.TaxID, addr fiscal.Address) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%s: %s", id.Kind(), formatTaxID(id)), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 5,
			}),
			text.New(addr.OneLine(), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de ítems.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("Código", 2, align.Left),
		h("Descrição", 4, align.Left),
		h("NCM", 1, align.Center),
		h("CFOP", 1, align.Center),
		h("Qtd", 1, align.Center),
		h("V. Unit", 1, align.Right),
		h("V. Total", 2, align.Right),
	)
}

// tableItemRows: una fila por ítem.
func tableItemRows(items []entity.LineItem) []core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			cell(it.SKU(), 2, align.Left),
			cell(it.Description(), 4, align.Left),
			cell(it.NCM(), 1, align.Center),
			cell(it.CFOP(), 1, align.Center),
			cell(fmt.Sprintf("%d", it.Quantity()), 1, align.Center),
			cell(formatMoney(it.UnitPrice()), 1, align.Right),
			cell(formatMoney(it.Total()), 2, align.Right),
		))
	}
	return result
}

// totalsRow: impuestos a la izquierda, totales a la derecha.
func totalsRow(inv *entity.Invoice) core.Row {
	taxes := fiscal.ZeroTaxAmounts()
	if t := inv.TaxTotals(); t != nil {
		taxes = *t
	}
	grand, _ := inv.GrandTotal()

	lines := []struct{ name, value string }{
		{"ICMS:", formatMoney(taxes.ICMS())},
		{"IPI:", formatMoney(taxes.IPI())},
		{"PIS:", formatMoney(taxes.PIS())},
		{"COFINS:", formatMoney(taxes.COFINS())},
		{"Valor dos produtos:", formatMoney(inv.ItemsTotal())},
		{"VALOR TOTAL DA NOTA:", formatMoney(grand)},
	}
	labels := col.New(4)
	values := col.New(3)
	for n, l := range lines {
		top := float64(n * 5)
		labels.Add(text.New(l.name, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Right: 2, Top: top}))
		values.Add(text.New(l.value, props.Text{Size: 8, Align: align.Right, Right: 1, Top: top}))
	}
	return row.New(32).Add(col.New(5), labels, values)
}

// footerRows: QR de consulta, CC-e registrada y leyenda.
func (g *DANFEGenerator) footerRows(inv *entity.Invoice) []core.Row {
	qr := g.consultaURL + "?chNFe=" + inv.AccessKey()
	info := []core.Component{
		text.New("Consulte a autenticidade no portal da SEFAZ\nlendo o código QR.", props.Text{
			Size: 8, Top: 4, Left: 3, Color: colorGray,
		}),
	}
	if p := inv.CorrectionProtocol(); p != "" {
		info = append(info, text.New("Carta de Correção registrada. Protocolo: "+p, props.Text{
			Style: fontstyle.Bold, Size: 8, Top: 16, Left: 3, Color: colorPrimary,
		}))
	}
	return []core.Row{
		row.New(40).Add(
			col.New(3).Add(code.NewQr(qr, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(info...),
		),
		row.New(8).Add(col.New(12).Add(
			text.New("DANFE simplificado gerado eletronicamente. Não substitui o XML autorizado pela SEFAZ.",
				props.Text{Size: 6.5, Color: colorGray, Top: 2}),
		)),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func situationLabel(s entity.Status) (string, *props.Color) {
	switch s {
	case entity.StatusAuthorized:
		return "AUTORIZADA", colorPrimary
	case entity.StatusCanceled:
		return "NF-e CANCELADA - SEM VALOR FISCAL", colorAlert
	case entity.StatusRejected:
		return "NF-e REJEITADA - SEM VALOR FISCAL", colorAlert
	}
	return "EM PROCESSAMENTO", colorGray
}

// formatAccessKey separa la chave en grupos de 4 dígitos.
func formatAccessKey(key string) string {
	return strings.Join(splitEvery(key, 4), " ")
}

// formatTaxID aplica la máscara de CPF (000.000.000-00) o CNPJ (00.000.000/0000-00).
func formatTaxID(id fiscal.TaxID) string {
	d := id.String()
	if id.Kind() == fiscal.KindCPF {
		return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:]
}

// formatMoney formato brasileño con dos decimales.
// Ej: 1234567.8 → "R$ 1.234.567,80"
func formatMoney(v decimal.Decimal) string {
	s := v.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	out := "R$ " + string(buf) + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
