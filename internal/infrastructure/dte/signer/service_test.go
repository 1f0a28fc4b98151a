package signer_test

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/xml"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/libro-tributario/internal/infrastructure/dte/signer"
)

func selfSigned(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Representante Legal"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

const dteXML = `<?xml version="1.0" encoding="UTF-8"?>
<DTE xmlns="http://www.sii.cl/SiiDte" version="1.0"><Documento ID="T33F1"><Encabezado><IdDoc><TipoDTE>33</TipoDTE><Folio>1</Folio></IdDoc></Encabezado></Documento></DTE>`

func TestSign_AgregaSignatureVerificable(t *testing.T) {
	cert := selfSigned(t)
	out, err := signer.NewDigitalSignatureService().Sign([]byte(dteXML), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	root := doc.Root()
	children := root.ChildElements()
	sig := children[len(children)-1]
	require.Equal(t, "Signature", sig.Tag, "la firma queda como último hijo de DTE")
	assert.Equal(t, "#T33F1", sig.FindElement("SignedInfo/Reference").SelectAttrValue("URI", ""))

	si := etree.NewDocument()
	si.SetRoot(sig.SelectElement("SignedInfo").Copy())
	raw, err := si.WriteToBytes()
	require.NoError(t, err)
	dec := xml.NewDecoder(bytes.NewReader(raw))
	canonical, err := c14n.Canonicalize(dec)
	require.NoError(t, err)

	value, err := base64.StdEncoding.DecodeString(sig.SelectElement("SignatureValue").Text())
	require.NoError(t, err)
	sum := sha1.Sum(canonical)
	key := cert.PrivateKey.(*rsa.PrivateKey)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, sum[:], value))
}

func TestSign_SinDocumento(t *testing.T) {
	_, err := signer.NewDigitalSignatureService().Sign([]byte(`<DTE/>`), selfSigned(t))
	assert.Error(t, err)
}

func TestSign_SinLlaveRSA(t *testing.T) {
	_, err := signer.NewDigitalSignatureService().Sign([]byte(dteXML), tls.Certificate{})
	assert.Error(t, err)
}

func TestLoad_SinRutaNoFirma(t *testing.T) {
	cert, err := signer.Load("", "")
	require.NoError(t, err)
	assert.Nil(t, cert)
}
