package sefaz

import (
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
	"github.com/jhoicas/nfe-api/pkg/nfe"
)

// nfeIdentity datos de numeración ya calculados para la nota.
type nfeIdentity struct {
	AccessKey      string
	Numero         int
	CodigoNumerico int
}

// buildNFeXML arma el documento <NFe><infNFe Id="NFe{chave}"> con ide, emit, dest, det y total.
func buildNFeXML(cfg Config, inv *entity.Invoice, id nfeIdentity) (*etree.Document, error) {
	totals := inv.TaxTotals()
	if totals == nil {
		return nil, fmt.Errorf("sefaz: la nota %s no tiene totales calculados", inv.ID())
	}
	cUF, _ := nfe.UFCode(cfg.UF)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("NFe")
	root.CreateAttr("xmlns", namespaceNFe)

	inf := root.CreateElement("infNFe")
	inf.CreateAttr("Id", "NFe"+id.AccessKey)
	inf.CreateAttr("versao", versaoNFe)

	ide := inf.CreateElement("ide")
	addText(ide, "cUF", cUF)
	addText(ide, "cNF", fmt.Sprintf("%08d", id.CodigoNumerico))
	addText(ide, "natOp", "VENDA")
	addText(ide, "mod", nfe.ModeloNFe)
	addText(ide, "serie", strconv.Itoa(cfg.Serie))
	addText(ide, "nNF", strconv.Itoa(id.Numero))
	addText(ide, "dhEmi", inv.IssuedAt().Format(time.RFC3339))
	addText(ide, "tpNF", "1")
	addText(ide, "tpEmis", nfe.TpEmisNormal)
	addText(ide, "cDV", id.AccessKey[nfe.AccessKeyLength-1:])
	addText(ide, "tpAmb", cfg.tpAmb())

	emit := inf.CreateElement("emit")
	addTaxID(emit, inv.EmitterTaxID())
	addAddress(emit.CreateElement("enderEmit"), inv.EmitterAddress())

	dest := inf.CreateElement("dest")
	addTaxID(dest, inv.RecipientTaxID())
	addAddress(dest.CreateElement("enderDest"), inv.RecipientAddress())

	for n, it := range inv.Items() {
		det := inf.CreateElement("det")
		det.CreateAttr("nItem", strconv.Itoa(n+1))
		prod := det.CreateElement("prod")
		addText(prod, "cProd", it.SKU())
		addText(prod, "xProd", nfe.SanitizeText(it.Description()))
		addText(prod, "NCM", it.NCM())
		addText(prod, "CFOP", it.CFOP())
		addText(prod, "qCom", decimal.NewFromInt(int64(it.Quantity())).StringFixed(4))
		addText(prod, "vUnCom", it.UnitPrice().StringFixed(2))
		addText(prod, "vProd", it.Total().StringFixed(2))

		imp := det.CreateElement("imposto")
		taxes := it.Taxes()
		icms := imp.CreateElement("ICMS")
		addText(icms, "CST", it.CST())
		addText(icms, "vICMS", taxes.ICMS().StringFixed(2))
		addText(imp.CreateElement("IPI"), "vIPI", taxes.IPI().StringFixed(2))
		addText(imp.CreateElement("PIS"), "vPIS", taxes.PIS().StringFixed(2))
		addText(imp.CreateElement("COFINS"), "vCOFINS", taxes.COFINS().StringFixed(2))
	}

	grand, _ := inv.GrandTotal()
	tot := inf.CreateElement("total").CreateElement("ICMSTot")
	addText(tot, "vICMS", totals.ICMS().StringFixed(2))
	addText(tot, "vIPI", totals.IPI().StringFixed(2))
	addText(tot, "vPIS", totals.PIS().StringFixed(2))
	addText(tot, "vCOFINS", totals.COFINS().StringFixed(2))
	addText(tot, "vProd", inv.ItemsTotal().StringFixed(2))
	addText(tot, "vNF", grand.StringFixed(2))

	return doc, nil
}

// buildEventoXML arma el evento (cancelamento 110111 o CC-e 110110) para una chave.
func buildEventoXML(cfg Config, accessKey, tpEvento string, seq int, at time.Time, detalhe func(det *etree.Element)) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("evento")
	root.CreateAttr("xmlns", namespaceNFe)
	root.CreateAttr("versao", versaoEvento)

	inf := root.CreateElement("infEvento")
	inf.CreateAttr("Id", fmt.Sprintf("ID%s%s%02d", tpEvento, accessKey, seq))
	addText(inf, "cOrgao", accessKey[:2])
	addText(inf, "tpAmb", cfg.tpAmb())
	// el documento del emisor está en las posiciones 7 a 20 de la chave
	addText(inf, "CNPJ", accessKey[6:20])
	addText(inf, "chNFe", accessKey)
	addText(inf, "dhEvento", at.Format(time.RFC3339))
	addText(inf, "tpEvento", tpEvento)
	addText(inf, "nSeqEvento", strconv.Itoa(seq))
	addText(inf, "verEvento", versaoEvento)

	det := inf.CreateElement("detEvento")
	det.CreateAttr("versao", versaoEvento)
	detalhe(det)
	return doc
}

func addText(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text)
	return el
}

func addTaxID(parent *etree.Element, id fiscal.TaxID) {
	addText(parent, id.Kind(), id.String())
}

func addAddress(el *etree.Element, a fiscal.Address) {
	addText(el, "xLgr", nfe.SanitizeText(a.Logradouro()))
	addText(el, "nro", a.Numero())
	if a.Complemento() != "" {
		addText(el, "xCpl", nfe.SanitizeText(a.Complemento()))
	}
	if a.Bairro() != "" {
		addText(el, "xBairro", nfe.SanitizeText(a.Bairro()))
	}
	addText(el, "xMun", nfe.SanitizeText(a.Municipio()))
	addText(el, "UF", a.UF())
	addText(el, "CEP", a.CEP())
}
