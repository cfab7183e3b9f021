package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tastebase/tastebase/internal/domain"
)

// ErrNotFound is returned when upstream has no nutrition data for the dish.
var ErrNotFound = errors.New("nutrition: not found")

// Client defines the contract for querying the upstream nutrition API.
type Client interface {
	Fetch(ctx context.Context, title string) (*domain.Nutrition, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient constructs a new HTTP-backed nutrition client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse nutrition url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Fetch retrieves nutrition facts by dish title.
func (c *HTTPClient) Fetch(ctx context.Context, title string) (*domain.Nutrition, error) {
	rel := &url.URL{Path: "/nutrition"}
	q := rel.Query()
	q.Set("title", title)
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode nutrition response: %w", err)
		}
		return convertToNutrition(payload), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Warn("unexpected nutrition upstream status",
			zap.Int("status", resp.StatusCode), zap.String("title", title))
		return nil, fmt.Errorf("nutrition: upstream returned %d", resp.StatusCode)
	}
}

type apiResponse struct {
	Title        string     `json:"title"`
	Calories     *float64   `json:"calories"`
	Fat          *float64   `json:"fat"`
	SaturatedFat *float64   `json:"saturatedFat"`
	Cholesterol  *float64   `json:"cholesterol"`
	Sodium       *float64   `json:"sodium"`
	Carbohydrate *float64   `json:"carbohydrate"`
	Fiber        *float64   `json:"fiber"`
	Sugar        *float64   `json:"sugar"`
	Protein      *float64   `json:"protein"`
	Source       *string    `json:"source"`
	LastUpdated  *time.Time `json:"lastUpdated"`
}

func convertToNutrition(payload apiResponse) *domain.Nutrition {
	lastUpdated := time.Now().UTC()
	if payload.LastUpdated != nil {
		lastUpdated = payload.LastUpdated.UTC()
	}

	source := "NutritionAPI"
	if payload.Source != nil && *payload.Source != "" {
		source = *payload.Source
	}

	return &domain.Nutrition{
		Calories:     deref(payload.Calories),
		Fat:          deref(payload.Fat),
		SaturatedFat: deref(payload.SaturatedFat),
		Cholesterol:  deref(payload.Cholesterol),
		Sodium:       deref(payload.Sodium),
		Carbohydrate: deref(payload.Carbohydrate),
		Fiber:        deref(payload.Fiber),
		Sugar:        deref(payload.Sugar),
		Protein:      deref(payload.Protein),
		Source:       source,
		LastUpdated:  lastUpdated,
	}
}

func deref(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}
