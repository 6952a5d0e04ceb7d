// Package auth provides the basic-auth helpers shared by the client
// transport and the fake daemon.
//
// It intentionally avoids policy decisions and storage concerns.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Credentials is a username/password pair sent as HTTP basic auth.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether no credentials are configured.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// Apply sets the Authorization header on req when credentials are present.
func (c Credentials) Apply(req *http.Request) {
	if c.Empty() {
		return
	}
	req.SetBasicAuth(c.Username, c.Password)
}

// Header returns the Authorization header value for c.
func (c Credentials) Header() string {
	raw := c.Username + ":" + c.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// Validator validates the raw Authorization header of a request.
type Validator interface {
	Validate(header string) error
}

// Basic accepts requests carrying the configured basic credentials.
type Basic struct {
	Credentials Credentials
}

func (b Basic) Validate(header string) error {
	raw, ok := strings.CutPrefix(strings.TrimSpace(header), "Basic ")
	if !ok {
		return ErrUnauthorized
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return ErrUnauthorized
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return ErrUnauthorized
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(b.Credentials.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(b.Credentials.Password)) == 1
	if !userOK || !passOK {
		return ErrUnauthorized
	}
	return nil
}
