package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"evacumate/internal/modules/shelters/application/port"
	"evacumate/internal/modules/shelters/domain"
	"evacumate/internal/shared/normalization"
)

const sheltersPath = "/shelters"

// ShelterHTTPClient implements ShelterRepository against GET /shelters.
type ShelterHTTPClient struct {
	rest *RESTClient
}

func NewShelterHTTPClient(baseURL string, timeout time.Duration, client *http.Client) *ShelterHTTPClient {
	return &ShelterHTTPClient{rest: NewRESTClient(baseURL, timeout, client)}
}

func (c *ShelterHTTPClient) List(ctx context.Context) ([]domain.Shelter, error) {
	req, err := c.rest.NewRequest(ctx, http.MethodGet, sheltersPath, nil)
	if err != nil {
		slog.Error("shelters request build failed", slog.String("path", sheltersPath), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", port.ErrSheltersUnavailable, err)
	}

	slog.Debug("shelters request", slog.String("url", req.URL.String()))

	res, err := c.rest.Do(req)
	if err != nil {
		slog.Error("shelters request error", slog.String("url", req.URL.String()), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", port.ErrSheltersUnavailable, err)
	}
	defer res.Body.Close()

	slog.Debug("shelters response", slog.Int("status", res.StatusCode), slog.String("url", req.URL.String()))

	switch res.StatusCode {
	case http.StatusOK:
		return decodeShelters(res.Body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %w", port.ErrSheltersUnavailable, port.ErrUnauthorized)
	default:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		slog.Error("shelters fetch unexpected status", slog.Int("status", res.StatusCode), slog.String("url", req.URL.String()), slog.String("body", strings.TrimSpace(string(body))))
		return nil, fmt.Errorf("%w: unexpected response %d", port.ErrSheltersUnavailable, res.StatusCode)
	}
}

func decodeShelters(body io.Reader) ([]domain.Shelter, error) {
	var payload any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode shelters: %v", port.ErrSheltersUnavailable, err)
	}
	items := normalization.ItemsFromPayload(payload)
	if items == nil {
		slog.Warn("shelters payload is not a list", slog.String("type", fmt.Sprintf("%T", payload)))
		return nil, fmt.Errorf("%w: payload is not a list", port.ErrSheltersUnavailable)
	}

	shelters := make([]domain.Shelter, 0, len(items))
	for i, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			slog.Warn("shelter record skipped", slog.Int("index", i), slog.String("type", fmt.Sprintf("%T", item)))
			continue
		}
		shelter, ok := shelterFromRecord(record)
		if !ok {
			slog.Warn("shelter record missing id", slog.Int("index", i))
			continue
		}
		shelters = append(shelters, shelter)
	}
	slog.Debug("shelters payload decoded", slog.Int("records", len(items)), slog.Int("shelters", len(shelters)))
	return shelters, nil
}

func shelterFromRecord(record map[string]any) (domain.Shelter, bool) {
	id := normalization.StringField(record, "id", "_id", "shelterId", "shelter_id")
	if id == "" {
		return domain.Shelter{}, false
	}
	shelter := domain.Shelter{
		ID:      id,
		Name:    normalization.StringField(record, "name", "facility"),
		Address: normalization.StringField(record, "address", "street_address"),
	}
	if raw, ok := normalization.Field(record, "capacity"); ok {
		if capacity, ok := normalization.AsInt(raw); ok && capacity > 0 {
			shelter.Capacity = capacity
		}
	}
	return shelter, true
}

var _ port.ShelterRepository = (*ShelterHTTPClient)(nil)
