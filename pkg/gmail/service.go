package gmail

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Service is the Gmail REST client plus the OAuth consent/exchange surface.
// The sync engine only ever calls it with an already-resolved access token;
// token refresh lives with the credential refresher, not here.
type Service struct {
	oauthConfig *oauth2.Config
	endpoint    string // override for tests, empty in production
}

func NewService(clientID, clientSecret, redirectURL string, scopes []string) *Service {
	return &Service{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// WithEndpoint points API calls at an alternate base URL.
func (s *Service) WithEndpoint(endpoint string) *Service {
	s.endpoint = endpoint
	return s
}

// AuthCodeURL builds the consent URL. Offline access with forced consent is
// required to receive a refresh token on every link, not just the first.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange swaps the authorization code for tokens.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// TokenURL exposes the token endpoint persisted with each credential.
func (s *Service) TokenURL() string {
	return s.oauthConfig.Endpoint.TokenURL
}

// ClientID and ClientSecret are stored per credential so the refresher can
// work from the record alone.
func (s *Service) ClientID() string     { return s.oauthConfig.ClientID }
func (s *Service) ClientSecret() string { return s.oauthConfig.ClientSecret }

func (s *Service) apiService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		})),
	}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// Profile returns the mailbox address behind the token. Used once at link
// time to key the credential under gmail:<addr>.
func (s *Service) Profile(ctx context.Context, accessToken string) (string, error) {
	srv, err := s.apiService(ctx, accessToken)
	if err != nil {
		return "", err
	}

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve profile: %v", err)
	}
	return profile.EmailAddress, nil
}

// ListThreads returns up to max thread summaries in provider order. Only
// the ids and snippets are populated; bodies come from GetThread.
func (s *Service) ListThreads(ctx context.Context, accessToken, query string, max int64) ([]*gmail.Thread, error) {
	srv, err := s.apiService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	call := srv.Users.Threads.List("me").Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if max > 0 {
		call = call.MaxResults(max)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list threads: %v", err)
	}
	return resp.Threads, nil
}

// GetThread fetches the full payload including the nested MIME body tree
// and the flat header list the normalizer consumes.
func (s *Service) GetThread(ctx context.Context, accessToken, threadID string) (*gmail.Thread, error) {
	srv, err := s.apiService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	thread, err := srv.Users.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve thread %s: %v", threadID, err)
	}
	return thread, nil
}
