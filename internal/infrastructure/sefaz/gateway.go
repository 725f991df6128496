package sefaz

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/pkg/logger"
	"github.com/jhoicas/nfe-api/pkg/nfe"
)

var (
	_ billing.EmissionPort     = (*Gateway)(nil)
	_ billing.CancellationPort = (*Gateway)(nil)
	_ billing.CorrectionPort   = (*Gateway)(nil)
)

// Gateway adaptador SEFAZ para los tres puertos de la NF-e.
//
// Modos (Config.Environment):
//   - dev         → arma y sella el XML, NO transmite. Autoriza con cStat 100 simulado.
//   - homologacao → transmite a AuthorizerURL/EventURL con tpAmb 2.
//   - producao    → transmite con tpAmb 1.
type Gateway struct {
	cfg         Config
	signer      *DigestSigner
	transmitter Transmitter // nil en dev
	log         *logger.Logger
	now         func() time.Time
}

// NewGateway construye el adaptador. transmitter puede ser nil solo en dev.
func NewGateway(cfg Config, transmitter Transmitter, log *logger.Logger) (*Gateway, error) {
	cfg.UF = strings.ToUpper(strings.TrimSpace(cfg.UF))
	if !nfe.IsValidUF(cfg.UF) {
		return nil, fmt.Errorf("sefaz: UF inválida %q", cfg.UF)
	}
	switch cfg.Environment {
	case EnvDev:
	case EnvHomologacao, EnvProducao:
		if transmitter == nil || cfg.AuthorizerURL == "" || cfg.EventURL == "" {
			return nil, fmt.Errorf("sefaz: el ambiente %s requiere transmisor, AuthorizerURL y EventURL", cfg.Environment)
		}
	default:
		return nil, fmt.Errorf("sefaz: ambiente desconocido %q (usar dev, homologacao o producao)", cfg.Environment)
	}
	return &Gateway{cfg: cfg, signer: NewDigestSigner(), transmitter: transmitter, log: log, now: time.Now}, nil
}

// WithClock reemplaza el reloj; para tests.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// Emit calcula la chave de acesso, arma y sella la NF-e y la envía a autorización.
func (g *Gateway) Emit(ctx context.Context, inv *entity.Invoice) (billing.EmissionDecision, error) {
	id, err := g.identity(inv)
	if err != nil {
		return billing.EmissionDecision{}, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	doc, err := buildNFeXML(g.cfg, inv, id)
	if err != nil {
		return billing.EmissionDecision{}, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	payload, digest, err := g.signer.Seal(doc, "NFe"+id.AccessKey)
	if err != nil {
		return billing.EmissionDecision{}, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	g.log.Debug().Str("invoice_id", inv.ID()).Str("chave", id.AccessKey).Str("digest", digest).Msg("NF-e sellada")

	var ret *Retorno
	if g.cfg.Environment == EnvDev {
		ret, err = g.simulate(nfe.CStatAutorizado, "Autorizado o uso da NF-e", id.AccessKey)
	} else {
		ret, err = g.transmitter.Send(ctx, g.cfg.AuthorizerURL, payload)
	}
	if err != nil {
		return billing.EmissionDecision{}, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}

	g.log.Info().Str("chave", id.AccessKey).Int("cStat", ret.CStat).Str("xMotivo", ret.XMotivo).Msg("retorno de autorización")
	switch {
	case ret.CStat == nfe.CStatAutorizado:
		key := ret.ChNFe
		if key == "" {
			key = id.AccessKey
		}
		return billing.EmissionDecision{
			Status: entity.StatusAuthorized, AccessKey: key, Protocol: ret.NProt,
			Code: ret.CStat, Reason: ret.XMotivo,
		}, nil
	case isRejection(ret.CStat):
		return billing.EmissionDecision{Status: entity.StatusRejected, Code: ret.CStat, Reason: ret.XMotivo}, nil
	}
	return billing.EmissionDecision{}, fmt.Errorf("%w: cStat %d no es definitivo (%s)", domain.ErrGateway, ret.CStat, ret.XMotivo)
}

// Cancel registra el evento 110111.
func (g *Gateway) Cancel(ctx context.Context, accessKey string) (billing.CancellationDecision, error) {
	ret, err := g.sendEvento(ctx, accessKey, nfe.EventoCancelamento, func(det *etree.Element) {
		addText(det, "descEvento", "Cancelamento")
		addText(det, "xJust", justificativaCancelamento)
	})
	if err != nil {
		return billing.CancellationDecision{}, err
	}
	switch {
	case ret.CStat == nfe.CStatEventoRegistrado || ret.CStat == nfe.CStatCancelamentoForaPrazo || ret.CStat == nfe.CStatCancelamentoHomologado:
		return billing.CancellationDecision{Status: entity.StatusCanceled, Protocol: ret.NProt, Code: ret.CStat, Reason: ret.XMotivo}, nil
	case isRejection(ret.CStat):
		return billing.CancellationDecision{Status: entity.StatusRejected, Protocol: ret.NProt, Code: ret.CStat, Reason: ret.XMotivo}, nil
	}
	return billing.CancellationDecision{}, fmt.Errorf("%w: cStat %d inesperado en cancelamento (%s)", domain.ErrGateway, ret.CStat, ret.XMotivo)
}

// Correct registra el evento 110110 (CC-e).
func (g *Gateway) Correct(ctx context.Context, accessKey, text string) (billing.CorrectionDecision, error) {
	correction := nfe.SanitizeText(text)
	if correction == "" {
		return billing.CorrectionDecision{}, fmt.Errorf("%w: texto de corrección vacío", domain.ErrValidation)
	}
	ret, err := g.sendEvento(ctx, accessKey, nfe.EventoCartaCorrecao, func(det *etree.Element) {
		addText(det, "descEvento", "Carta de Correcao")
		addText(det, "xCorrecao", correction)
		addText(det, "xCondUso", condicaoUsoCCe)
	})
	if err != nil {
		return billing.CorrectionDecision{}, err
	}
	if ret.CStat != nfe.CStatEventoRegistrado || ret.NProt == "" {
		return billing.CorrectionDecision{}, fmt.Errorf("%w: carta de corrección no registrada: cStat %d (%s)", domain.ErrGateway, ret.CStat, ret.XMotivo)
	}
	return billing.CorrectionDecision{Protocol: ret.NProt}, nil
}

func (g *Gateway) sendEvento(ctx context.Context, accessKey, tpEvento string, detalhe func(*etree.Element)) (*Retorno, error) {
	if err := nfe.ValidateAccessKey(accessKey); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	doc := buildEventoXML(g.cfg, accessKey, tpEvento, 1, g.now().UTC(), detalhe)
	refID := doc.Root().SelectElement("infEvento").SelectAttrValue("Id", "")
	payload, _, err := g.signer.Seal(doc, refID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}

	var ret *Retorno
	if g.cfg.Environment == EnvDev {
		ret, err = g.simulate(nfe.CStatEventoRegistrado, "Evento registrado e vinculado a NF-e", accessKey)
	} else {
		ret, err = g.transmitter.Send(ctx, g.cfg.EventURL, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	g.log.Info().Str("chave", accessKey).Str("tpEvento", tpEvento).Int("cStat", ret.CStat).Str("xMotivo", ret.XMotivo).Msg("retorno de evento")
	return ret, nil
}

// simulate respuesta del modo dev.
func (g *Gateway) simulate(cStat int, motivo, accessKey string) (*Retorno, error) {
	prot, err := nfe.NewProtocolNumber(g.cfg.UF, g.now())
	if err != nil {
		return nil, err
	}
	return &Retorno{CStat: cStat, XMotivo: motivo, NProt: prot, ChNFe: accessKey}, nil
}

// identity deriva nNF y cNF del ID de la nota (estables entre reintentos) y arma la chave.
func (g *Gateway) identity(inv *entity.Invoice) (nfeIdentity, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(inv.ID()))
	sum := h.Sum64()
	numero := int(sum%999_999_999) + 1
	cnf := int((sum >> 32) % 100_000_000)

	key, err := nfe.BuildAccessKey(nfe.AccessKeyParams{
		UF:             g.cfg.UF,
		IssuedAt:       inv.IssuedAt(),
		EmitterDoc:     inv.EmitterTaxID().String(),
		Serie:          g.cfg.Serie,
		Numero:         numero,
		CodigoNumerico: cnf,
	})
	if err != nil {
		return nfeIdentity{}, err
	}
	return nfeIdentity{AccessKey: key, Numero: numero, CodigoNumerico: cnf}, nil
}

// isRejection denegación (110) o rechazo (200-999).
func isRejection(cStat int) bool {
	return cStat == nfe.CStatDenegado || (cStat >= 200 && cStat <= 999)
}
