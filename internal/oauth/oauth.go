// Package oauth wraps the external identity providers behind a uniform
// challenge/exchange/claims surface.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Provider names accepted by the external login endpoints.
const (
	ProviderGoogle = "Google"
	ProviderGitHub = "GitHub"
)

// UserInfo carries the claims extracted from a provider after the code exchange.
type UserInfo struct {
	Provider  string
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// Provider is a configured external identity provider.
type Provider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
}

// Name returns the provider's registered name.
func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL builds the provider challenge redirect for the given state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// FetchUser exchanges the authorization code and fetches the user's claims.
func (p *Provider) FetchUser(ctx context.Context, code string) (*UserInfo, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch user info: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}

	switch p.name {
	case ProviderGoogle:
		return parseGoogleUser(body)
	case ProviderGitHub:
		return parseGitHubUser(body)
	default:
		return nil, fmt.Errorf("no claims parser for provider %s", p.name)
	}
}

// Registry holds the configured providers.
type Registry struct {
	providers map[string]*Provider
}

// Options configures the provider registry.
type Options struct {
	CallbackURL        string
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
}

// NewRegistry configures the Google and GitHub providers.
func NewRegistry(opts Options) *Registry {
	return &Registry{providers: map[string]*Provider{
		ProviderGoogle: {
			name: ProviderGoogle,
			config: &oauth2.Config{
				ClientID:     opts.GoogleClientID,
				ClientSecret: opts.GoogleClientSecret,
				RedirectURL:  opts.CallbackURL,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		ProviderGitHub: {
			name: ProviderGitHub,
			config: &oauth2.Config{
				ClientID:     opts.GitHubClientID,
				ClientSecret: opts.GitHubClientSecret,
				RedirectURL:  opts.CallbackURL,
				Endpoint:     github.Endpoint,
				Scopes:       []string{"user:email"},
			},
			userInfoURL: "https://api.github.com/user",
		},
	}}
}

// Get returns the named provider.
func (r *Registry) Get(name string) (*Provider, bool) {
	provider, ok := r.providers[name]
	return provider, ok
}

func parseGoogleUser(body []byte) (*UserInfo, error) {
	var payload struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse google user info: %w", err)
	}
	return &UserInfo{
		Provider:  ProviderGoogle,
		Subject:   payload.ID,
		Email:     payload.Email,
		FirstName: payload.GivenName,
		LastName:  payload.FamilyName,
	}, nil
}

func parseGitHubUser(body []byte) (*UserInfo, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Login string `json:"login"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse github user info: %w", err)
	}

	firstName, lastName := SplitName(payload.Name)
	return &UserInfo{
		Provider:  ProviderGitHub,
		Subject:   strconv.FormatInt(payload.ID, 10),
		Email:     payload.Email,
		FirstName: firstName,
		LastName:  lastName,
	}, nil
}

// SplitName separates a display name into first and last parts.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
