// Package sefaz implementa los puertos de emisión, cancelamento y carta de corrección
// contra la SEFAZ: arma un XML simplificado de la NF-e y de sus eventos, lo sella
// con un digest canónico y lo transmite por HTTP. En modo dev simula las respuestas.
//
// No es un cliente SOAP ni genera XML válido contra el XSD oficial.
package sefaz

// Ambientes.
const (
	EnvDev         = "dev"         // no transmite; respuestas simuladas
	EnvHomologacao = "homologacao" // tpAmb 2
	EnvProducao    = "producao"    // tpAmb 1

	namespaceNFe = "http://www.portalfiscal.inf.br/nfe"
	versaoNFe    = "4.00"
	versaoEvento = "1.00"

	justificativaCancelamento = "Cancelamento solicitado pelo emitente"
	condicaoUsoCCe            = "A Carta de Correcao e disciplinada pelo paragrafo 1o-A do art. 7o do Convenio S/N, de 15 de dezembro de 1970 e pode ser utilizada para regularizacao de erro ocorrido na emissao de documento fiscal, desde que o erro nao esteja relacionado com: I - as variaveis que determinam o valor do imposto tais como: base de calculo, aliquota, diferenca de preco, quantidade, valor da operacao ou da prestacao; II - a correcao de dados cadastrais que implique mudanca do remetente ou do destinatario; III - a data de emissao ou de saida."
)

// Config configuración del adaptador.
type Config struct {
	Environment   string // dev | homologacao | producao
	UF            string // UF del emisor (autorizadora)
	Serie         int
	AuthorizerURL string // NFeAutorizacao
	EventURL      string // RecepcaoEvento
}

// tpAmb código de ambiente del XML.
func (c Config) tpAmb() string {
	if c.Environment == EnvProducao {
		return "1"
	}
	return "2"
}

// Retorno respuesta simplificada de la SEFAZ:
//
//	<retorno><cStat/><xMotivo/><nProt/><chNFe/></retorno>
type Retorno struct {
	CStat   int
	XMotivo string
	NProt   string
	ChNFe   string
}
