package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/xsrftoken"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthSessionCookie = "gamenite.oauth"
	stateKey           = "state"
	fromKey            = "from"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// OAuthClient is the part of *oauth2.Config the Google flow uses.
type OAuthClient interface {
	// AuthCodeURL returns the consent page URL. state protects against XSRF.
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	// Exchange trades the redirect code for an access token.
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	// Client returns an HTTP client that authenticates with t.
	Client(ctx context.Context, t *oauth2.Token) *http.Client
}

// GoogleConfig returns the OAuth client for Google sign-in. baseURL is the
// public origin of the site, e.g. https://gamenite.example.com.
func GoogleConfig(clientID, clientSecret, baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(baseURL, "/") + "/auth/google/callback",
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// OAuthUserStore records users signing in through a provider. *Store
// implements it.
type OAuthUserStore interface {
	UpsertOAuthUser(ctx context.Context, email, name string) (*User, error)
}

// GoogleAgent handles the Google sign-in redirect flow.
type GoogleAgent struct {
	client      OAuthClient
	secret      string
	sessions    *Sessions
	users       OAuthUserStore
	userInfoURL string
	logger      *logrus.Entry
}

func NewGoogleAgent(client OAuthClient, secret string, sessions *Sessions, users OAuthUserStore, logger *logrus.Entry) *GoogleAgent {
	return &GoogleAgent{
		client:      client,
		secret:      secret,
		sessions:    sessions,
		users:       users,
		userInfoURL: googleUserInfoURL,
		logger:      logger,
	}
}

// WithUserInfoURL overrides the userinfo endpoint.
func (ga *GoogleAgent) WithUserInfoURL(u string) *GoogleAgent {
	ga.userInfoURL = u
	return ga
}

// HandleLogin starts a new OAuth session and redirects to Google's consent
// page.
func (ga *GoogleAgent) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateToken := xsrftoken.Generate(ga.secret, "", "")
		state := hex.EncodeToString([]byte(stateToken))

		oauthSession, err := ga.sessions.CookieStore().New(r, oauthSessionCookie)
		if err != nil && oauthSession == nil {
			ga.serverError(w, "creating oauth session", err)
			return
		}
		oauthSession.Options.MaxAge = 10 * 60
		oauthSession.Values[stateKey] = state
		oauthSession.Values[fromKey] = SafeRedirect(r.URL.Query().Get("from"))
		if err := oauthSession.Save(r, w); err != nil {
			ga.serverError(w, "saving oauth session", err)
			return
		}

		http.Redirect(w, r, ga.client.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
	}
}

// HandleRedirect validates the state, exchanges the code, records the user
// and starts a session.
func (ga *GoogleAgent) HandleRedirect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		stateTokenRaw, err := hex.DecodeString(state)
		if err != nil {
			ga.clientError(w, "decoding state", err)
			return
		}
		if !xsrftoken.Valid(string(stateTokenRaw), ga.secret, "", "") {
			ga.clientError(w, "validating state", fmt.Errorf("state token has expired"))
			return
		}

		oauthSession, err := ga.sessions.CookieStore().Get(r, oauthSessionCookie)
		if err != nil {
			ga.clientError(w, "reading oauth session", err)
			return
		}
		secretState, ok := oauthSession.Values[stateKey].(string)
		if !ok || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(secretState)) != 1 {
			ga.clientError(w, "validating state", fmt.Errorf("invalid state"))
			return
		}
		from, _ := oauthSession.Values[fromKey].(string)

		token, err := ga.client.Exchange(r.Context(), r.FormValue("code"))
		if err != nil {
			ga.serverError(w, "exchanging code for token", err)
			return
		}

		email, name, err := ga.fetchProfile(r.Context(), token)
		if err != nil {
			ga.serverError(w, "fetching google profile", err)
			return
		}

		user, err := ga.users.UpsertOAuthUser(r.Context(), email, name)
		if err != nil {
			ga.serverError(w, "recording user", err)
			return
		}

		oauthSession.Options.MaxAge = -1
		if err := oauthSession.Save(r, w); err != nil {
			ga.logger.WithError(err).Warn("Failed to clear oauth session")
		}
		if err := ga.sessions.Login(w, r, user); err != nil {
			ga.serverError(w, "saving session", err)
			return
		}

		ga.logger.WithField("user_id", user.ID).Info("User signed in with Google")
		http.Redirect(w, r, SafeRedirect(from), http.StatusFound)
	}
}

type googleProfile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (ga *GoogleAgent) fetchProfile(ctx context.Context, token *oauth2.Token) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ga.userInfoURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := ga.client.Client(ctx, token).Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("userinfo returned HTTP %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", "", fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Email == "" || !profile.EmailVerified {
		return "", "", fmt.Errorf("google account has no verified email")
	}
	return profile.Email, profile.Name, nil
}

func (ga *GoogleAgent) serverError(w http.ResponseWriter, action string, err error) {
	ga.logger.WithError(err).Errorf("Error %s.", action)
	http.Error(w, "Sign-in failed. Please try again.", http.StatusInternalServerError)
}

func (ga *GoogleAgent) clientError(w http.ResponseWriter, action string, err error) {
	ga.logger.WithError(err).Warnf("Rejected oauth callback while %s.", action)
	http.Error(w, "Sign-in failed. Please try again.", http.StatusBadRequest)
}
