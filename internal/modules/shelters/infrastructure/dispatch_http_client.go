package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"evacumate/internal/modules/shelters/application/port"
	"evacumate/internal/modules/shelters/domain"
	"evacumate/internal/shared/normalization"
)

const dispatchPathPrefix = "/request-waymo/"

// DispatchHTTPClient implements DispatchService against POST /request-waymo/{id}.
type DispatchHTTPClient struct {
	rest *RESTClient
}

func NewDispatchHTTPClient(baseURL string, timeout time.Duration, client *http.Client) *DispatchHTTPClient {
	return &DispatchHTTPClient{rest: NewRESTClient(baseURL, timeout, client)}
}

func dispatchPath(shelterID string) string {
	return dispatchPathPrefix + url.PathEscape(shelterID)
}

// Request forwards shelterID as-is; it is not checked against any loaded list.
func (c *DispatchHTTPClient) Request(ctx context.Context, shelterID string) (*domain.DispatchResult, error) {
	path := dispatchPath(shelterID)
	req, err := c.rest.NewRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		slog.Error("dispatch request build failed", slog.String("shelterId", shelterID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", port.ErrDispatchRejected, err)
	}

	slog.Info("dispatch request start", slog.String("shelterId", shelterID), slog.String("url", req.URL.String()))

	res, err := c.rest.Do(req)
	if err != nil {
		slog.Error("dispatch request error", slog.String("shelterId", shelterID), slog.Any("error", err))
		return nil, fmt.Errorf("dispatch request failed: %w", err)
	}
	defer res.Body.Close()

	slog.Debug("dispatch response", slog.Int("status", res.StatusCode), slog.String("shelterId", shelterID))

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, port.ErrUnauthorized
	case res.StatusCode == http.StatusNotFound:
		return nil, port.ErrShelterNotFound
	case res.StatusCode < 200 || res.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		slog.Error("dispatch unexpected status", slog.Int("status", res.StatusCode), slog.String("shelterId", shelterID), slog.String("body", strings.TrimSpace(string(body))))
		return nil, fmt.Errorf("%w: unexpected response %d", port.ErrDispatchRejected, res.StatusCode)
	}

	return decodeDispatchResult(res.Body)
}

func decodeDispatchResult(body io.Reader) (*domain.DispatchResult, error) {
	var payload any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode dispatch: %v", port.ErrDispatchRejected, err)
	}
	record := normalization.MapFromPayload(payload)
	raw, ok := normalization.Field(record, "eta_minutes", "etaMinutes")
	if !ok {
		return nil, fmt.Errorf("%w: response missing eta_minutes", port.ErrDispatchRejected)
	}
	eta, ok := normalization.AsFloat64(raw)
	if !ok {
		return nil, fmt.Errorf("%w: eta_minutes is not a number", port.ErrDispatchRejected)
	}
	return &domain.DispatchResult{ETAMinutes: eta}, nil
}

var _ port.DispatchService = (*DispatchHTTPClient)(nil)
