package transport

import "net/http"

// Auth applies credentials to an outgoing request.
type Auth interface {
	Apply(req *http.Request)
}

// AuthFunc adapts a function to Auth.
type AuthFunc func(req *http.Request)

// Apply calls f.
func (f AuthFunc) Apply(req *http.Request) { f(req) }

type bearerAuth struct{ token string }

func (a bearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.token)
}

type basicAuth struct{ username, password string }

func (a basicAuth) Apply(req *http.Request) {
	req.SetBasicAuth(a.username, a.password)
}

type apiKeyAuth struct {
	key     string
	name    string
	inQuery bool
}

func (a apiKeyAuth) Apply(req *http.Request) {
	if a.inQuery {
		req.URL.RawQuery = encodeQuery(req.URL.RawQuery, []Field{{Key: a.name, Value: a.key}})
		return
	}
	req.Header.Set(a.name, a.key)
}

// BearerAuth sends "Authorization: Bearer <token>".
func BearerAuth(token string) Auth { return bearerAuth{token: token} }

// BasicAuth sends HTTP basic credentials.
func BasicAuth(username, password string) Auth {
	return basicAuth{username: username, password: password}
}

// APIKeyAuth sends the key in the X-API-Key header.
func APIKeyAuth(key string) Auth { return APIKeyAuthHeader(key, "X-API-Key") }

// APIKeyAuthHeader sends the key in a custom header.
func APIKeyAuthHeader(key, header string) Auth {
	return apiKeyAuth{key: key, name: header}
}

// APIKeyAuthQuery sends the key as a query parameter.
func APIKeyAuthQuery(key, param string) Auth {
	return apiKeyAuth{key: key, name: param, inQuery: true}
}
