package github

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"sync"
	"testing"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// rsaTestKey returns a 2048-bit key shared by all tests in the package.
func rsaTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func pkcs1PEM(k *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: pemTypePKCS1, Bytes: x509.MarshalPKCS1PrivateKey(k)}))
}

func pkcs8PEM(t *testing.T, k *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		t.Fatal(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemTypePKCS8, Bytes: der}))
}

// keyEncodings returns the same key material in every accepted encoding.
func keyEncodings(t *testing.T, k *rsa.PrivateKey) map[string]string {
	t.Helper()
	canonical := pkcs1PEM(k)
	return map[string]string{
		"canonical PEM":       canonical,
		"escaped newline PEM": strings.ReplaceAll(strings.TrimSpace(canonical), "\n", `\n`),
		"base64 of PEM":       base64.StdEncoding.EncodeToString([]byte(canonical)),
		"base64 of DER":       base64.StdEncoding.EncodeToString(x509.MarshalPKCS1PrivateKey(k)),
		"PKCS8 PEM":           pkcs8PEM(t, k),
	}
}
