package sefaz_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
	"github.com/jhoicas/nfe-api/pkg/logger"
	"github.com/jhoicas/nfe-api/pkg/nfe"
)

const testKey = "35240312345678000199550010000001231123456786"

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeTransmitter devuelve una respuesta fija y guarda lo enviado.
type fakeTransmitter struct {
	ret     *sefaz.Retorno
	err     error
	url     string
	payload string
}

func (f *fakeTransmitter) Send(_ context.Context, url string, payload []byte) (*sefaz.Retorno, error) {
	f.url = url
	f.payload = string(payload)
	return f.ret, f.err
}

func realConfig() sefaz.Config {
	return sefaz.Config{
		Environment: sefaz.EnvHomologacao, UF: "SP", Serie: 1,
		AuthorizerURL: "http://sefaz/autorizacao", EventURL: "http://sefaz/evento",
	}
}

func newGateway(t *testing.T, cfg sefaz.Config, tr sefaz.Transmitter) *sefaz.Gateway {
	t.Helper()
	gw, err := sefaz.NewGateway(cfg, tr, logger.Nop())
	require.NoError(t, err)
	return gw.WithClock(func() time.Time { return fixedNow })
}

func computedInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	addr, err := fiscal.NewAddress(fiscal.AddressParams{
		Logradouro: "Av. Paulista", Numero: "1000", Municipio: "Sao Paulo", UF: "SP", CEP: "01310100",
	})
	require.NoError(t, err)
	inv, err := entity.NewInvoice(entity.InvoiceParams{
		EmitterTaxID: fiscal.MustTaxID("12345678000199"), RecipientTaxID: fiscal.MustTaxID("98765432100"),
		EmitterAddress: addr, RecipientAddress: addr,
	})
	require.NoError(t, err)
	item, err := entity.NewLineItem(entity.LineItemParams{
		SKU: "SKU-1", Description: "Cadeira", Quantity: 1, UnitPrice: decimal.NewFromInt(80),
		CFOP: "5102", NCM: "94013000", CST: "000", Taxes: fiscal.ZeroTaxAmounts(),
	})
	require.NoError(t, err)
	require.NoError(t, inv.AddItem(item))
	_, err = inv.ComputeTotals()
	require.NoError(t, err)
	return inv
}

// ──────────────────────────────────────────────────────────────────────────────
// Configuración
// ──────────────────────────────────────────────────────────────────────────────

func TestNewGateway_Validaciones(t *testing.T) {
	_, err := sefaz.NewGateway(sefaz.Config{Environment: sefaz.EnvDev, UF: "XX"}, nil, logger.Nop())
	assert.Error(t, err, "UF inválida")

	_, err = sefaz.NewGateway(sefaz.Config{Environment: "staging", UF: "SP"}, nil, logger.Nop())
	assert.Error(t, err, "ambiente desconocido")

	_, err = sefaz.NewGateway(sefaz.Config{Environment: sefaz.EnvProducao, UF: "SP"}, nil, logger.Nop())
	assert.Error(t, err, "producao sin transmisor")

	_, err = sefaz.NewGateway(sefaz.Config{Environment: sefaz.EnvDev, UF: "sp"}, nil, logger.Nop())
	assert.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Modo dev
// ──────────────────────────────────────────────────────────────────────────────

func TestGateway_DevAutorizaConChaveValida(t *testing.T) {
	gw := newGateway(t, sefaz.Config{Environment: sefaz.EnvDev, UF: "SP", Serie: 1}, nil)
	inv := computedInvoice(t)

	d, err := gw.Emit(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, d.Status)
	assert.NoError(t, nfe.ValidateAccessKey(d.AccessKey))
	assert.True(t, strings.HasPrefix(d.AccessKey, "35"), "cUF de SP")
	assert.Equal(t, "12345678000199", d.AccessKey[6:20])
	assert.Len(t, d.Protocol, 15)

	// la numeración sale del ID: reintentar produce la misma chave
	again, err := gw.Emit(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, d.AccessKey, again.AccessKey)
}

func TestGateway_DevEventos(t *testing.T) {
	gw := newGateway(t, sefaz.Config{Environment: sefaz.EnvDev, UF: "SP"}, nil)

	c, err := gw.Cancel(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCanceled, c.Status)
	assert.NotEmpty(t, c.Protocol)

	cc, err := gw.Correct(context.Background(), testKey, "Endereço corrigido")
	require.NoError(t, err)
	assert.NotEmpty(t, cc.Protocol)
}

func TestGateway_ChaveInvalidaEnEvento(t *testing.T) {
	gw := newGateway(t, sefaz.Config{Environment: sefaz.EnvDev, UF: "SP"}, nil)
	_, err := gw.Cancel(context.Background(), "123")
	assert.ErrorIs(t, err, domain.ErrGateway)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transmisión real (transmisor falso)
// ──────────────────────────────────────────────────────────────────────────────

func TestGateway_EmitMapeaCStat(t *testing.T) {
	cases := []struct {
		name   string
		ret    *sefaz.Retorno
		status entity.Status
		gwErr  bool
	}{
		{"autorizada", &sefaz.Retorno{CStat: 100, NProt: "135240000000009", ChNFe: testKey}, entity.StatusAuthorized, false},
		{"denegada", &sefaz.Retorno{CStat: 110, XMotivo: "Uso Denegado"}, entity.StatusRejected, false},
		{"rechazada", &sefaz.Retorno{CStat: 204, XMotivo: "Duplicidade"}, entity.StatusRejected, false},
		{"lote en proceso", &sefaz.Retorno{CStat: 105}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &fakeTransmitter{ret: tc.ret}
			d, err := newGateway(t, realConfig(), tr).Emit(context.Background(), computedInvoice(t))
			if tc.gwErr {
				assert.ErrorIs(t, err, domain.ErrGateway)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.status, d.Status)
			assert.Equal(t, tc.ret.CStat, d.Code)
			assert.Equal(t, "http://sefaz/autorizacao", tr.url)
			assert.Contains(t, tr.payload, "<DigestValue>")
		})
	}
}

func TestGateway_EmitSinChNFeUsaLaCalculada(t *testing.T) {
	tr := &fakeTransmitter{ret: &sefaz.Retorno{CStat: 100, NProt: "135240000000009"}}
	d, err := newGateway(t, realConfig(), tr).Emit(context.Background(), computedInvoice(t))
	require.NoError(t, err)
	assert.NoError(t, nfe.ValidateAccessKey(d.AccessKey))
	assert.Contains(t, tr.payload, `Id="NFe`+d.AccessKey+`"`)
}

func TestGateway_FallaDeTransporte(t *testing.T) {
	tr := &fakeTransmitter{err: errors.New("connection refused")}
	gw := newGateway(t, realConfig(), tr)

	_, err := gw.Emit(context.Background(), computedInvoice(t))
	assert.ErrorIs(t, err, domain.ErrGateway)
	_, err = gw.Cancel(context.Background(), testKey)
	assert.ErrorIs(t, err, domain.ErrGateway)
	_, err = gw.Correct(context.Background(), testKey, "texto")
	assert.ErrorIs(t, err, domain.ErrGateway)
}

func TestGateway_CancelMapeaCStat(t *testing.T) {
	cases := map[int]entity.Status{
		135: entity.StatusCanceled,
		155: entity.StatusCanceled,
		101: entity.StatusCanceled,
		573: entity.StatusRejected,
	}
	for cStat, want := range cases {
		tr := &fakeTransmitter{ret: &sefaz.Retorno{CStat: cStat, NProt: "135240000000010"}}
		d, err := newGateway(t, realConfig(), tr).Cancel(context.Background(), testKey)
		require.NoError(t, err, "cStat %d", cStat)
		assert.Equal(t, want, d.Status, "cStat %d", cStat)
		assert.Equal(t, "http://sefaz/evento", tr.url)
		assert.Contains(t, tr.payload, "<tpEvento>110111</tpEvento>")
	}

	tr := &fakeTransmitter{ret: &sefaz.Retorno{CStat: 128}}
	_, err := newGateway(t, realConfig(), tr).Cancel(context.Background(), testKey)
	assert.ErrorIs(t, err, domain.ErrGateway)
}

func TestGateway_CorrectRequiereEventoRegistrado(t *testing.T) {
	tr := &fakeTransmitter{ret: &sefaz.Retorno{CStat: 135, NProt: "135240000000011"}}
	d, err := newGateway(t, realConfig(), tr).Correct(context.Background(), testKey, "  Correção  do endereço ")
	require.NoError(t, err)
	assert.Equal(t, "135240000000011", d.Protocol)
	assert.Contains(t, tr.payload, "<xCorrecao>Correcao do endereco</xCorrecao>")
	assert.Contains(t, tr.payload, "<tpEvento>110110</tpEvento>")

	tr = &fakeTransmitter{ret: &sefaz.Retorno{CStat: 490}}
	_, err = newGateway(t, realConfig(), tr).Correct(context.Background(), testKey, "texto")
	assert.ErrorIs(t, err, domain.ErrGateway)
}

// ──────────────────────────────────────────────────────────────────────────────
// HTTPTransmitter
// ──────────────────────────────────────────────────────────────────────────────

func TestHTTPTransmitter_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/xml")
		_, _ = w.Write([]byte(`<retorno><cStat>135</cStat><xMotivo>Evento registrado</xMotivo><nProt>135240000000012</nProt></retorno>`))
	}))
	defer srv.Close()

	ret, err := sefaz.NewHTTPTransmitter(time.Second).Send(context.Background(), srv.URL, []byte("<evento/>"))
	require.NoError(t, err)
	assert.Equal(t, 135, ret.CStat)
	assert.Equal(t, "135240000000012", ret.NProt)
}

func TestHTTPTransmitter_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "indisponível", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := sefaz.NewHTTPTransmitter(0).Send(context.Background(), srv.URL, []byte("<NFe/>"))
	assert.Error(t, err)
}
