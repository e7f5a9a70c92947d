package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HTTPDirectory resolves user details from the identity service. Lookups
// are best effort from the settlement core's point of view: callers treat a
// failure as "no email available", never as a reason to block a settlement.
type HTTPDirectory struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPDirectory(baseURL string, logger *zap.Logger) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (d *HTTPDirectory) EmailByID(ctx context.Context, userID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/internal/users/%s", d.baseURL, userID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", err
	}
	return user.Email, nil
}

// StaticDirectory returns a fixed mapping; used in development and tests.
type StaticDirectory map[string]string

func (d StaticDirectory) EmailByID(ctx context.Context, userID string) (string, error) {
	if email, ok := d[userID]; ok {
		return email, nil
	}
	return "", nil
}
