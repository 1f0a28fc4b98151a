// check_cert verifica que el certificado de firma configurado (SII_CERT_PATH / SII_CERT_PASSWORD)
// se pueda leer y decodificar, y muestra titular y vigencia.
//
// Uso: go run ./cmd/check_cert [ruta.p12] [clave]
package main

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/libro-tributario/internal/infrastructure/dte/signer"
	"github.com/jhoicas/libro-tributario/pkg/config"
)

func main() {
	var certPath, certPass string
	if cfg, err := config.Load(); err == nil {
		certPath, certPass = cfg.SII.CertPath, cfg.SII.CertPassword
	}
	if len(os.Args) > 1 {
		certPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		certPass = os.Args[2]
	}
	if certPath == "" {
		fmt.Fprintln(os.Stderr, "sin certificado: defina SII_CERT_PATH o pase la ruta como argumento")
		os.Exit(2)
	}

	fmt.Printf("Certificado: %s\n", certPath)
	if _, err := os.Stat(certPath); err != nil {
		fmt.Fprintf(os.Stderr, "Archivo: %v\n", err)
		os.Exit(1)
	}

	cert, err := signer.Load(certPath, certPass)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Clave o formato: %v\n", err)
		os.Exit(1)
	}
	leaf := cert.Leaf
	if leaf == nil {
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Parsear certificado: %v\n", err)
			os.Exit(1)
		}
	}
	if _, ok := cert.PrivateKey.(*rsa.PrivateKey); !ok {
		fmt.Fprintln(os.Stderr, "La llave privada no es RSA; el SII exige RSA-SHA1")
		os.Exit(1)
	}

	fmt.Printf("Titular:  %s\n", leaf.Subject.CommonName)
	fmt.Printf("Emisor:   %s\n", leaf.Issuer.CommonName)
	fmt.Printf("Vigencia: %s a %s\n", leaf.NotBefore.Format("2006-01-02"), leaf.NotAfter.Format("2006-01-02"))
	if time.Now().After(leaf.NotAfter) {
		fmt.Fprintln(os.Stderr, "El certificado está vencido")
		os.Exit(1)
	}
	fmt.Println("OK: certificado y clave correctos")
}
