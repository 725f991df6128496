package sefaz

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
)

// Algoritmos declarados en el bloque de firma.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// DigestSigner sella el documento con un <Signature> que solo lleva el digest
// SHA-256 del elemento referenciado en forma canónica. No hay certificado ni
// SignatureValue: la firma ICP-Brasil queda fuera de este servicio.
type DigestSigner struct{}

// NewDigestSigner crea el sellador.
func NewDigestSigner() *DigestSigner {
	return &DigestSigner{}
}

// Seal calcula el digest del hijo de la raíz con atributo Id=refID y agrega
// <Signature> como último hijo de la raíz. Devuelve el XML y el digest en Base64.
func (s *DigestSigner) Seal(doc *etree.Document, refID string) ([]byte, string, error) {
	root := doc.Root()
	if root == nil {
		return nil, "", fmt.Errorf("sefaz: documento sin raíz")
	}
	var ref *etree.Element
	for _, child := range root.ChildElements() {
		if child.SelectAttrValue("Id", "") == refID {
			ref = child
			break
		}
	}
	if ref == nil {
		return nil, "", fmt.Errorf("sefaz: no se encontró el elemento Id=%q", refID)
	}

	// el elemento se serializa aislado y con el namespace heredado de la raíz
	part := etree.NewDocument()
	copied := ref.Copy()
	if ns := root.SelectAttrValue("xmlns", ""); ns != "" && copied.SelectAttr("xmlns") == nil {
		copied.CreateAttr("xmlns", ns)
	}
	part.SetRoot(copied)
	raw, err := part.WriteToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("sefaz: serializar %s: %w", refID, err)
	}
	canonical, err := canonicalizeXML(raw)
	if err != nil {
		return nil, "", fmt.Errorf("sefaz: canonicalizar %s: %w", refID, err)
	}
	sum := sha256.Sum256(canonical)
	digest := base64.StdEncoding.EncodeToString(sum[:])

	sig := root.CreateElement("Signature")
	sig.CreateAttr("xmlns", NamespaceDS)
	si := sig.CreateElement("SignedInfo")
	si.CreateElement("CanonicalizationMethod").CreateAttr("Algorithm", AlgC14N)
	refEl := si.CreateElement("Reference")
	refEl.CreateAttr("URI", "#"+refID)
	transforms := refEl.CreateElement("Transforms")
	transforms.CreateElement("Transform").CreateAttr("Algorithm", TransformEnveloped)
	transforms.CreateElement("Transform").CreateAttr("Algorithm", AlgC14N)
	refEl.CreateElement("DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	refEl.CreateElement("DigestValue").SetText(digest)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("sefaz: serializar documento: %w", err)
	}
	return out, digest, nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}
