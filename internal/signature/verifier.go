// Package signature validates that an inbound webhook really originates
// from Mercado Pago. Two header schemes are in the wild: the manifest
// scheme signs "<ts>.<rawBody>" and the id scheme signs
// "id:<dataId>;request-id:<requestId>;ts:<ts>;". Which one a given
// notification uses is detected from the header shape rather than
// configured, since provider accounts have emitted both.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

type Verdict int

const (
	// Valid means the HMAC matched.
	Valid Verdict = iota
	// Invalid means the headers were well-formed but the HMAC did not match.
	Invalid
	// Malformed means the request is missing or garbling the material
	// needed to even attempt verification.
	Malformed
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "malformed"
	}
}

// Request carries the raw material of one verification attempt. RawBody
// must be the unparsed bytes as received; re-serialized JSON will not
// reproduce the provider's manifest.
type Request struct {
	RawBody   []byte
	Signature string // x-signature or x-signature-sha256 header
	RequestID string // x-request-id header
	DataID    string // data.id (or id) query parameter, id scheme only
}

// Result is the verdict plus the diagnostics the endpoint logs on
// failure. Expected and Received never contain the secret itself.
type Result struct {
	Verdict  Verdict
	Scheme   string
	Detail   string
	Expected string
	Received string
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the request against whichever scheme its headers declare.
// A present x-request-id selects the id scheme; otherwise the manifest
// scheme over the raw body is used.
func (v *Verifier) Verify(r Request) Result {
	if r.Signature == "" {
		return Result{Verdict: Malformed, Detail: "missing x-signature header"}
	}

	ts, hash, ok := parseSignatureHeader(r.Signature)
	if !ok {
		return Result{Verdict: Malformed, Detail: "signature header missing ts= or v1= field"}
	}

	if r.RequestID != "" {
		return v.verifyID(r, ts, hash)
	}
	return v.verifyManifest(r, ts, hash)
}

func (v *Verifier) verifyManifest(r Request, ts, hash string) Result {
	if len(r.RawBody) == 0 {
		return Result{Verdict: Malformed, Scheme: "manifest", Detail: "empty request body"}
	}
	signed := ts + "." + string(r.RawBody)
	return v.compare("manifest", signed, hash)
}

func (v *Verifier) verifyID(r Request, ts, hash string) Result {
	id := r.DataID
	if id == "" {
		id = idFromBody(r.RawBody)
	}
	if id == "" {
		return Result{Verdict: Malformed, Scheme: "id", Detail: "no notification identifier in query or body"}
	}
	signed := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", id, r.RequestID, ts)
	return v.compare("id", signed, hash)
}

func (v *Verifier) compare(scheme, signed, received string) Result {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(signed))
	expected := hex.EncodeToString(mac.Sum(nil))

	receivedBytes, err := hex.DecodeString(received)
	if err != nil || !hmac.Equal(mac.Sum(nil), receivedBytes) {
		return Result{
			Verdict:  Invalid,
			Scheme:   scheme,
			Detail:   "computed signature does not match " + signed,
			Expected: expected,
			Received: received,
		}
	}
	return Result{Verdict: Valid, Scheme: scheme, Expected: expected, Received: received}
}

// parseSignatureHeader splits "ts=...,v1=..." into its fields. Both must
// be present and non-empty.
func parseSignatureHeader(header string) (ts, hash string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			hash = value
		}
	}
	return ts, hash, ts != "" && hash != ""
}

func idFromBody(body []byte) string {
	var payload struct {
		Data struct {
			ID json.Number `json:"id"`
		} `json:"data"`
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Data.ID.String() != "" {
		return payload.Data.ID.String()
	}
	return payload.ID.String()
}
