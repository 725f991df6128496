package sefaz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Transmitter envía un documento firmado y devuelve el retorno de la SEFAZ.
type Transmitter interface {
	Send(ctx context.Context, url string, payload []byte) (*Retorno, error)
}

// HTTPTransmitter XML sobre HTTP POST con timeout fijo.
type HTTPTransmitter struct {
	httpClient *http.Client
}

// NewHTTPTransmitter construye el transmisor. timeout <= 0 usa 30 s.
func NewHTTPTransmitter(timeout time.Duration) *HTTPTransmitter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransmitter{httpClient: &http.Client{Timeout: timeout}}
}

// Send hace el POST y parsea <retorno>. Un HTTP distinto de 2xx o un cuerpo sin
// cStat numérico es error.
func (t *HTTPTransmitter) Send(ctx context.Context, url string, payload []byte) (*Retorno, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sefaz: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sefaz: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sefaz: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("sefaz: leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sefaz: HTTP %d: %s", resp.StatusCode, truncate(string(rawBody), 200))
	}
	return parseRetorno(rawBody)
}

// parseRetorno busca <retorno> en cualquier nivel del documento.
func parseRetorno(raw []byte) (*Retorno, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("sefaz: respuesta XML inválida: %w", err)
	}
	ret := doc.FindElement("//retorno")
	if ret == nil {
		return nil, fmt.Errorf("sefaz: respuesta sin <retorno>: %s", truncate(string(raw), 200))
	}
	text := func(tag string) string {
		if el := ret.SelectElement(tag); el != nil {
			return strings.TrimSpace(el.Text())
		}
		return ""
	}
	cStat, err := strconv.Atoi(text("cStat"))
	if err != nil {
		return nil, fmt.Errorf("sefaz: cStat inválido %q", text("cStat"))
	}
	return &Retorno{
		CStat:   cStat,
		XMotivo: text("xMotivo"),
		NProt:   text("nProt"),
		ChNFe:   text("chNFe"),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
