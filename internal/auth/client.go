package auth

import "net/http"

// Transport attaches the session token to outgoing requests and logs the
// session out when the server answers 401.
type Transport struct {
	session *Session
	base    http.RoundTripper
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(session *Session, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{session: session, base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.session.Token(); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.session.Logout(true)
	}
	return resp, nil
}
