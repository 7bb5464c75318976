package renewer

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"strings"
	"time"
)

type totpManager struct {
	config TOTPConfig
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	if cfg.Digits == 0 {
		cfg.Digits = 6
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	return &totpManager{config: cfg}
}

// Generate derives the one-time code for the window containing now. The
// result is deterministic given (secret, now) and has no side effects; a
// caller retrying a submission must call Generate again because time may have
// advanced into the next window.
func (m *totpManager) Generate(secretBase32 string, now time.Time) (TOTPCode, error) {
	if m == nil {
		return TOTPCode{}, ErrEngineNotReady
	}

	secret, err := decodeSecret(secretBase32)
	if err != nil {
		return TOTPCode{}, err
	}

	period := int64(m.config.Period)
	counter := now.Unix() / period
	digits, err := hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
	if err != nil {
		return TOTPCode{}, err
	}

	return TOTPCode{
		Digits:      digits,
		WindowStart: time.Unix(counter*period, 0),
		WindowEnd:   time.Unix((counter+1)*period, 0),
	}, nil
}

// decodeSecret accepts the unpadded upper- or lower-case base32 alphabet and
// tolerates interior spaces, the common copy-paste artifacts of provisioning
// screens.
func decodeSecret(secretBase32 string) ([]byte, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secretBase32), " ", ""))
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	raw, err := enc.DecodeString(strings.TrimRight(normalized, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretFormat, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: secret decodes to zero bytes", ErrSecretFormat)
	}
	return raw, nil
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}
