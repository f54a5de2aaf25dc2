package cose

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// FormatNone is the only attestation format this authenticator emits: no
// attestation statement, just the authenticator data.
const FormatNone = "none"

// AttestationObject is the CBOR map returned from registration.
type AttestationObject struct {
	Format    string                 `cbor:"fmt"`
	Statement map[string]interface{} `cbor:"attStmt"`
	AuthData  []byte                 `cbor:"authData"`
}

// EncodeAttestationObject wraps authenticator data in a "none"-format
// attestation object with an empty statement.
func EncodeAttestationObject(authData []byte) ([]byte, error) {
	if len(authData) == 0 {
		return nil, errors.New("cose: empty authenticator data")
	}
	obj := AttestationObject{
		Format:    FormatNone,
		Statement: map[string]interface{}{},
		AuthData:  authData,
	}
	out, err := encMode.Marshal(&obj)
	return out, errors.Wrap(err, "cose: encode attestation object")
}

// DecodeAttestationObject parses an attestation object produced by
// EncodeAttestationObject (or any conformant encoder).
func DecodeAttestationObject(data []byte) (*AttestationObject, error) {
	var obj AttestationObject
	if err := cbor.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrap(err, "cose: decode attestation object")
	}
	if obj.Format == "" {
		return nil, errors.New("cose: attestation object missing fmt")
	}
	return &obj, nil
}
