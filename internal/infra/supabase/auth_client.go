package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// IdentityProvider implementation: Supabase GoTrue
// ============================================================

// AuthClient signs administrators in against GoTrue (/auth/v1).
type AuthClient struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	logger         *zap.Logger

	mu     sync.Mutex
	tokens map[string]string // uid -> GoTrue access token
}

// NewAuthClient creates a GoTrue identity provider.
func NewAuthClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, logger *zap.Logger) *AuthClient {
	return &AuthClient{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		logger:         logger,
		tokens:         make(map[string]string),
	}
}

type goTrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u *goTrueUser) identity() *domain.Identity {
	id := &domain.Identity{UID: u.ID, Email: u.Email}
	for _, key := range []string{"full_name", "name", "display_name"} {
		if v, ok := u.UserMetadata[key].(string); ok && v != "" {
			id.DisplayName = v
			break
		}
	}
	return id
}

type goTrueTokenResponse struct {
	AccessToken string     `json:"access_token"`
	User        goTrueUser `json:"user"`
}

// SignIn exchanges email and password for a GoTrue session.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "GoTrue.SignIn")
	defer span.End()

	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	status, body, err := a.do(ctx, http.MethodPost, "token?grant_type=password", a.apiKey, payload)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		a.logger.Info("gotrue: sign-in rejected", zap.String("email", email), zap.Int("status", status))
		return nil, &domain.ErrUnauthorized{Message: "E-Mail oder Passwort ist falsch"}
	case status < 200 || status >= 300:
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: fmt.Errorf("gotrue returned %d: %s", status, string(body))}
	}

	var resp goTrueTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: fmt.Errorf("decode token response: %w", err)}
	}

	a.mu.Lock()
	a.tokens[resp.User.ID] = resp.AccessToken
	a.mu.Unlock()

	span.SetAttributes(attribute.String("user.id", resp.User.ID))
	return resp.User.identity(), nil
}

// SignOut revokes the GoTrue session held for uid, if any.
func (a *AuthClient) SignOut(ctx context.Context, uid string) error {
	ctx, span := tracer.Start(ctx, "GoTrue.SignOut")
	defer span.End()

	a.mu.Lock()
	token, ok := a.tokens[uid]
	delete(a.tokens, uid)
	a.mu.Unlock()
	if !ok {
		return nil
	}

	status, body, err := a.do(ctx, http.MethodPost, "logout", token, nil)
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	// An expired token is as good as a revoked one.
	if status == http.StatusUnauthorized || status == http.StatusNotFound {
		return nil
	}
	if status < 200 || status >= 300 {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: fmt.Errorf("gotrue logout returned %d: %s", status, string(body))}
	}
	return nil
}

// Lookup reads the user through the admin API. A deleted user returns (nil, nil).
func (a *AuthClient) Lookup(ctx context.Context, uid string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "GoTrue.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	status, body, err := a.do(ctx, http.MethodGet, "admin/users/"+url.PathEscape(uid), a.serviceRoleKey, nil)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: fmt.Errorf("gotrue returned %d: %s", status, string(body))}
	}

	var u goTrueUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: fmt.Errorf("decode user: %w", err)}
	}
	return u.identity(), nil
}

func (a *AuthClient) do(ctx context.Context, method, path, bearer string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+"/auth/v1/"+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("gotrue: request failed", zap.String("path", path), zap.Error(err))
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
