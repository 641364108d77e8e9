package github

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

const (
	pemTypePKCS1 = "RSA PRIVATE KEY"
	pemTypePKCS8 = "PRIVATE KEY"
)

var oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

// pkcs8 is the PrivateKeyInfo structure of RFC 5208.
type pkcs8 struct {
	Version    int
	Algo       pkix.AlgorithmIdentifier
	PrivateKey []byte
}

// NormalizePrivateKey converts a private key given as canonical PEM, PEM
// with literal "\n" escapes, or bare base64 into canonical PEM.
// Bare base64 may encode either the PEM text or the DER body; a DER body is
// labelled PKCS#1 if it parses as one, PKCS#8 otherwise.
func NormalizePrivateKey(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, errors.New("private key is empty")
	}
	s = strings.ReplaceAll(s, `\r\n`, "\n")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	if strings.Contains(s, "-----BEGIN") {
		block, _ := pem.Decode([]byte(s))
		if block == nil {
			return nil, errors.New("private key: malformed PEM block")
		}
		return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: block.Bytes}), nil
	}

	der, err := decodeBase64(s)
	if err != nil {
		return nil, fmt.Errorf("private key: not PEM and not base64: %w", err)
	}
	if bytes.Contains(der, []byte("-----BEGIN")) {
		return NormalizePrivateKey(string(der))
	}
	typ := pemTypePKCS8
	if _, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		typ = pemTypePKCS1
	}
	return pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}), nil
}

// ParsePrivateKey normalizes raw and imports it as an RSA key.
// PKCS#1 keys are first wrapped into a PKCS#8 container.
func ParsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	data, err := NormalizePrivateKey(raw)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("private key: malformed PEM block")
	}

	der := block.Bytes
	switch block.Type {
	case pemTypePKCS1:
		if der, err = wrapPKCS1(der); err != nil {
			return nil, err
		}
	case pemTypePKCS8:
	default:
		return nil, fmt.Errorf("private key: unsupported PEM type %q", block.Type)
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key: want RSA, got %T", key)
	}
	return rsaKey, nil
}

// wrapPKCS1 embeds a PKCS#1 RSAPrivateKey in a PKCS#8 PrivateKeyInfo:
// version 0, rsaEncryption with NULL parameters, key as an octet string.
func wrapPKCS1(der []byte) ([]byte, error) {
	out, err := asn1.Marshal(pkcs8{
		Version: 0,
		Algo: pkix.AlgorithmIdentifier{
			Algorithm:  oidRSAEncryption,
			Parameters: asn1.NullRawValue,
		},
		PrivateKey: der,
	})
	if err != nil {
		return nil, fmt.Errorf("wrap PKCS#1 key: %w", err)
	}
	return out, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
