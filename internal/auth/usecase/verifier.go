package usecase

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwksCacheTTL is how long fetched signing keys stay valid before the next
// verification refetches them.
const jwksCacheTTL = 6 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the subset of the identity provider's token the rest of the
// process cares about.
type Claims struct {
	UserID string
	Email  string
}

// Verifier validates RS256 bearer tokens against an external JWKS
// endpoint. Keys are cached in an explicit struct with a last-fetch
// timestamp and TTL rather than ambient globals.
type Verifier struct {
	jwksURL  string
	issuer   string
	audience string
	client   *http.Client
	now      func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewVerifier(jwksURL, issuer, audience string) *Verifier {
	return &Verifier{
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
		client:   &http.Client{Timeout: 5 * time.Second},
		now:      time.Now,
	}
}

// ValidateToken checks signature, expiry, issuer and audience, and returns
// the normalized claims.
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(tokenString, v.signingKey, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := mapClaims["email"].(string)

	return &Claims{UserID: sub, Email: email}, nil
}

// signingKey resolves the key referenced by the token header, refetching
// the JWKS when the cache is stale or the kid is unknown.
func (v *Verifier) signingKey(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token missing kid header")
	}

	v.mu.RLock()
	key, found := v.keys[kid]
	fresh := v.now().Sub(v.fetchedAt) < jwksCacheTTL
	v.mu.RUnlock()

	if found && fresh {
		return key, nil
	}

	if err := v.refreshKeys(); err != nil {
		// A stale key beats no key when the endpoint is down.
		if found {
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	key, found = v.keys[kid]
	v.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("signing key %q not in JWKS", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *Verifier) refreshKeys() error {
	resp, err := v.client.Get(v.jwksURL)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch JWKS: HTTP %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = v.now()
	v.mu.Unlock()
	return nil
}

func rsaKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
