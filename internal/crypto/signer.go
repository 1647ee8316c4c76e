package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"
)

// oidIdentityExtension is the private extension carrying the verified
// username and authorized group list inside the issued certificate, so
// authorization data rides in the certificate itself rather than requiring
// a lookup at verification time.
var oidIdentityExtension = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 10049, 1, 1}

// serialBytes is the length of CA-generated serial numbers.
const serialBytes = 16

// Identity is the server-side verified identity bound into an issued
// certificate. The CSR contributes only the public key; subject fields are
// re-derived from these values, never copied from client-supplied data.
type Identity struct {
	Username string
	Email    string
	Groups   []string
}

// identityExtension is the JSON payload of the private identity extension.
type identityExtension struct {
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
}

// Result contains the outcome of a signing operation.
type Result struct {
	CertificatePEM string
	SerialNumber   string
	Fingerprint    string
	NotBefore      time.Time
	NotAfter       time.Time
}

// Signer holds the CA certificate and private key and owns the signing
// operation. The key DER is kept in a memguard enclave, opened only for
// the duration of each signing operation and wiped on every exit path.
type Signer struct {
	caCert *x509.Certificate
	key    *memguard.Enclave
}

// NewSignerFromFiles loads the CA certificate and private key from the
// given paths. Any unreadable or unparseable material is an error; callers
// treat that as fatal at startup. The passphrase path is optional and used
// only when the key PEM is encrypted.
func NewSignerFromFiles(certPath, keyPath, passphrasePath string) (*Signer, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA private key: %w", err)
	}
	defer memguard.WipeBytes(keyPEM)

	var passphrase []byte
	if passphrasePath != "" {
		raw, err := os.ReadFile(passphrasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA key passphrase: %w", err)
		}
		passphrase = []byte(strings.TrimSpace(string(raw)))
		memguard.WipeBytes(raw)
	}
	defer memguard.WipeBytes(passphrase)

	return NewSigner(certPEM, keyPEM, passphrase)
}

// NewSigner constructs a signer from PEM-encoded CA material. The key PEM
// and passphrase slices are not retained; callers may wipe them after.
func NewSigner(certPEM, keyPEM, passphrase []byte) (*Signer, error) {
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("failed to decode CA certificate PEM")
	}
	caCert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}
	if !caCert.IsCA {
		return nil, fmt.Errorf("certificate is not a CA certificate")
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("failed to decode CA private key PEM")
	}

	keyDER := keyBlock.Bytes
	if x509.IsEncryptedPEMBlock(keyBlock) {
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("CA private key is encrypted but no passphrase provided")
		}
		decrypted, err := x509.DecryptPEMBlock(keyBlock, passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt CA private key: %w", err)
		}
		keyDER = decrypted
	}

	privateKey, err := parsePrivateKeyDER(keyDER)
	if err != nil {
		memguard.WipeBytes(keyDER)
		return nil, err
	}

	if !keyMatchesCertificate(caCert, privateKey) {
		memguard.WipeBytes(keyDER)
		return nil, fmt.Errorf("CA private key does not match CA certificate")
	}

	// NewEnclave wipes keyDER after sealing it.
	return &Signer{
		caCert: caCert,
		key:    memguard.NewEnclave(keyDER),
	}, nil
}

// CACertificate returns the CA's own certificate.
func (s *Signer) CACertificate() *x509.Certificate {
	return s.caCert
}

// CACertificatePEM returns the CA certificate in PEM form for distribution.
func (s *Signer) CACertificatePEM() string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: s.caCert.Raw,
	}))
}

// Sign issues an end-entity certificate for a parsed, signature-checked CSR
// and a server-side verified identity. Validity runs from now for the given
// duration. The certificate's subject common name is the verified username
// and the email SAN is the verified email, regardless of what subject the
// CSR declared.
func (s *Signer) Sign(csr *x509.CertificateRequest, id Identity, validity time.Duration) (*Result, error) {
	if id.Username == "" {
		return nil, fmt.Errorf("identity username must not be empty")
	}
	if validity <= 0 {
		return nil, fmt.Errorf("validity must be positive")
	}

	serialNumber, err := generateSerialNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	extValue, err := json.Marshal(identityExtension{
		Username: id.Username,
		Groups:   id.Groups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity extension: %w", err)
	}

	notBefore := time.Now()
	notAfter := notBefore.Add(validity)

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: id.Username,
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,
		KeyUsage: x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment |
			x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  false,
		ExtraExtensions: []pkix.Extension{
			{Id: oidIdentityExtension, Value: extValue},
		},
	}
	if id.Email != "" {
		template.EmailAddresses = []string{id.Email}
	}

	keyBuf, err := s.key.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to access CA private key: %w", err)
	}
	defer keyBuf.Destroy()

	caKey, err := parsePrivateKeyDER(keyBuf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to access CA private key: %w", err)
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, s.caCert, csr.PublicKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	})

	return &Result{
		CertificatePEM: string(certPEM),
		SerialNumber:   fmt.Sprintf("%X", serialNumber),
		Fingerprint:    Fingerprint(csr),
		NotBefore:      notBefore,
		NotAfter:       notAfter,
	}, nil
}

// Helper functions

func parsePrivateKeyDER(der []byte) (interface{}, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("failed to parse private key")
}

func keyMatchesCertificate(cert *x509.Certificate, privateKey interface{}) bool {
	switch key := privateKey.(type) {
	case *rsa.PrivateKey:
		pubKey, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return false
		}
		return key.PublicKey.N.Cmp(pubKey.N) == 0
	case *ecdsa.PrivateKey:
		pubKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return false
		}
		return key.PublicKey.X.Cmp(pubKey.X) == 0 && key.PublicKey.Y.Cmp(pubKey.Y) == 0
	case ed25519.PrivateKey:
		pubKey, ok := cert.PublicKey.(ed25519.PublicKey)
		if !ok {
			return false
		}
		return pubKey.Equal(key.Public())
	default:
		return false
	}
}

func generateSerialNumber() (*big.Int, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), serialBytes*8)
	return rand.Int(rand.Reader, serialNumberLimit)
}
