package signer

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// ErrPassphraseRequired is returned for an encrypted key loaded without a
// passphrase
var ErrPassphraseRequired = errors.New("private key is encrypted, a passphrase is required")

// GPGSigner signs reports with an OpenPGP key
type GPGSigner struct {
	entity *openpgp.Entity
	now    func() time.Time
}

// NewGPGSigner loads the first key of an armored or binary key file and
// unlocks it with passphrase
func NewGPGSigner(keyPath, passphrase string) (*GPGSigner, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("key path is empty")
	}

	entity, err := readEntity(keyPath)
	if err != nil {
		return nil, err
	}
	if err := unlock(entity, passphrase); err != nil {
		return nil, err
	}

	s := &GPGSigner{entity: entity, now: time.Now}
	if _, ok := entity.SigningKey(s.now()); !ok {
		return nil, fmt.Errorf("key %s has no valid signing key", s.KeyID())
	}
	return s, nil
}

func readEntity(path string) (*openpgp.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in key file")
	}
	if entities[0].PrivateKey == nil {
		return nil, fmt.Errorf("key file holds no private key")
	}
	return entities[0], nil
}

// unlock decrypts the primary key and every subkey
func unlock(entity *openpgp.Entity, passphrase string) error {
	keys := []*packet.PrivateKey{entity.PrivateKey}
	for _, sub := range entity.Subkeys {
		if sub.PrivateKey != nil {
			keys = append(keys, sub.PrivateKey)
		}
	}

	for _, key := range keys {
		if !key.Encrypted {
			continue
		}
		if passphrase == "" {
			return ErrPassphraseRequired
		}
		if err := key.Decrypt([]byte(passphrase)); err != nil {
			return fmt.Errorf("failed to decrypt key %s: %w", key.KeyIdString(), err)
		}
	}
	return nil
}

// KeyID returns the primary key ID in hex
func (s *GPGSigner) KeyID() string {
	return s.entity.PrimaryKey.KeyIdString()
}

// SignReport signs data and names the report in the armor comment
func (s *GPGSigner) SignReport(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer

	headers := map[string]string{
		"Comment": fmt.Sprintf("branchdiff report %s, key %s", name, s.KeyID()),
	}
	w, err := armor.Encode(&buf, openpgp.SignatureType, headers)
	if err != nil {
		return nil, err
	}

	config := &packet.Config{DefaultHash: crypto.SHA256, Time: s.now}
	if err := openpgp.DetachSign(w, s.entity, bytes.NewReader(data), config); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to sign %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// PublicKey returns the public key in armored format
func (s *GPGSigner) PublicKey() ([]byte, error) {
	var buf bytes.Buffer

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}
	if err := s.entity.Serialize(w); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
