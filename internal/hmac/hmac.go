package hmac

import (
	cryptoHMAC "crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
)

// QueryParam is the query parameter requests carry their HMAC in
const QueryParam = "hmac"

// HMAC is a utility for creating and verifying HMACs
type HMAC struct {
	Key []byte
}

// Enabled returns whether a key is configured. Without one, requests are not authenticated.
func (h *HMAC) Enabled() bool {
	return h != nil && len(h.Key) > 0
}

// Create creates a HMAC of the message, encoded as urlsafe base64
func (h *HMAC) Create(message string) (string, error) {
	mac := cryptoHMAC.New(sha256.New, h.Key)

	_, err := mac.Write([]byte(message))
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Validate validates that the message matches a given HMAC
func (h *HMAC) Validate(message, mac string) (bool, error) {
	expectedMAC, err := h.Create(message)
	if err != nil {
		return false, err
	}

	return cryptoHMAC.Equal([]byte(mac), []byte(expectedMAC)), nil
}

// Sign returns the request path with the HMAC of the path and body appended as a query parameter
func (h *HMAC) Sign(path string, body []byte) (string, error) {
	mac, err := h.Create(path + string(body))
	if err != nil {
		return "", err
	}

	return path + "?" + url.Values{QueryParam: []string{mac}}.Encode(), nil
}

// ValidateRequest validates the HMAC query parameter of a request against its path and body
func (h *HMAC) ValidateRequest(u *url.URL, body []byte) (bool, error) {
	mac := u.Query().Get(QueryParam)
	if mac == "" {
		return false, nil
	}

	return h.Validate(u.Path+string(body), mac)
}
