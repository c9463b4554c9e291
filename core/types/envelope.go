package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bondfarm/crypto"
)

// ErrUnsigned is returned when an envelope carries no signature.
var ErrUnsigned = errors.New("types: envelope not signed")

// Envelope is a signed operation submitted by an account. The signature
// covers the operation name, the payload, the nonce and the expiry.
type Envelope struct {
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
	Nonce     uint64          `json:"nonce"`
	Expiry    int64           `json:"expiry"`
	Signature string          `json:"signature,omitempty"`

	signer *crypto.Address
}

// SigningBytes returns the canonical bytes covered by the signature.
func (e *Envelope) SigningBytes() ([]byte, error) {
	body := struct {
		Operation string          `json:"operation"`
		Payload   json.RawMessage `json:"payload"`
		Nonce     uint64          `json:"nonce"`
		Expiry    int64           `json:"expiry"`
	}{strings.TrimSpace(e.Operation), e.Payload, e.Nonce, e.Expiry}
	if len(body.Payload) == 0 {
		body.Payload = json.RawMessage("{}")
	}
	return json.Marshal(body)
}

// Sign signs the envelope with key, replacing any previous signature.
func (e *Envelope) Sign(key *crypto.PrivateKey) error {
	msg, err := e.SigningBytes()
	if err != nil {
		return err
	}
	sig, err := key.Sign(msg)
	if err != nil {
		return err
	}
	e.Signature = "0x" + hex.EncodeToString(sig)
	e.signer = nil
	return nil
}

// Signer recovers the account that signed the envelope.
func (e *Envelope) Signer() (crypto.Address, error) {
	if e.signer != nil {
		return *e.signer, nil
	}
	raw := strings.TrimPrefix(strings.TrimSpace(e.Signature), "0x")
	if raw == "" {
		return crypto.Address{}, ErrUnsigned
	}
	sig, err := hex.DecodeString(raw)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("types: decode signature: %w", err)
	}
	msg, err := e.SigningBytes()
	if err != nil {
		return crypto.Address{}, err
	}
	addr, err := crypto.RecoverSigner(msg, sig)
	if err != nil {
		return crypto.Address{}, err
	}
	e.signer = &addr
	return addr, nil
}

// Decode unmarshals the payload into out.
func (e *Envelope) Decode(out interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("types: empty payload")
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("types: decode payload: %w", err)
	}
	return nil
}
