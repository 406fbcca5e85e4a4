package aggregated

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/yourorg/wave-connector/internal/adapter/wave/client"
	"github.com/yourorg/wave-connector/internal/context"
)

const (
	merchantsPath = "v1/aggregated_merchants"
	merchantPath  = "v1/aggregated_merchants/%s"
)

// Service performs aggregated merchant CRUD calls with one API key.
// Every call validates its input first and issues exactly one HTTP request.
type Service struct {
	client *client.Client
	apiKey context.Secret
	logger *zap.Logger
}

// NewService creates a Service bound to apiKey.
func NewService(c *client.Client, apiKey context.Secret, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: c, apiKey: apiKey, logger: logger}
}

// Create registers a new aggregated merchant.
func (s *Service) Create(ctx stdcontext.Context, req *CreateRequest) (*AggregatedMerchant, error) {
	if err := ValidateCreateRequest(req); err != nil {
		return nil, err
	}
	var out AggregatedMerchant
	if err := s.do(ctx, "aggregated_create", http.MethodPost, merchantsPath, nil, req, &out); err != nil {
		return nil, err
	}
	s.logger.Info("aggregated merchant created", zap.String("aggregated_merchant_id", out.ID))
	return &out, nil
}

// Get fetches one aggregated merchant.
func (s *Service) Get(ctx stdcontext.Context, id string) (*AggregatedMerchant, error) {
	if err := ValidateMerchantID(id); err != nil {
		return nil, err
	}
	var out AggregatedMerchant
	if err := s.do(ctx, "aggregated_get", http.MethodGet, fmt.Sprintf(merchantPath, url.PathEscape(id)), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes the non-nil fields of req.
func (s *Service) Update(ctx stdcontext.Context, id string, req *UpdateRequest) (*AggregatedMerchant, error) {
	if err := ValidateMerchantID(id); err != nil {
		return nil, err
	}
	if err := ValidateUpdateRequest(req); err != nil {
		return nil, err
	}
	var out AggregatedMerchant
	if err := s.do(ctx, "aggregated_update", http.MethodPut, fmt.Sprintf(merchantPath, url.PathEscape(id)), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an aggregated merchant.
func (s *Service) Delete(ctx stdcontext.Context, id string) error {
	if err := ValidateMerchantID(id); err != nil {
		return err
	}
	return s.do(ctx, "aggregated_delete", http.MethodDelete, fmt.Sprintf(merchantPath, url.PathEscape(id)), nil, nil, nil)
}

// List returns one page of aggregated merchants.
func (s *Service) List(ctx stdcontext.Context, opts ListOptions) (*ListResponse, error) {
	if opts.Limit < 0 {
		return nil, invalidConfiguration("limit: must not be negative")
	}
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	var out ListResponse
	if err := s.do(ctx, "aggregated_list", http.MethodGet, merchantsPath, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MerchantExists reports whether id can be fetched. Not-found and generic processing
// failures read as false; authentication, rate limiting and invalid input are returned.
func (s *Service) MerchantExists(ctx stdcontext.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case IsKind(err, KindProcessingFailed), IsKind(err, KindMerchantNotFound):
		return false, nil
	default:
		return false, err
	}
}

// GetMultiple looks ids up one after another. A failure for one id does not stop the others.
func (s *Service) GetMultiple(ctx stdcontext.Context, ids []string) []LookupResult {
	results := make([]LookupResult, 0, len(ids))
	for _, id := range ids {
		m, err := s.Get(ctx, id)
		results = append(results, LookupResult{ID: id, Merchant: m, Err: err})
	}
	return results
}

func (s *Service) do(ctx stdcontext.Context, op, method, path string, query url.Values, body, out any) error {
	resp, err := s.client.Send(ctx, s.apiKey, client.Request{
		Operation: op,
		Method:    method,
		Path:      path,
		Query:     query,
		Body:      body,
	})
	if err != nil {
		return transportFailure(err)
	}
	if !resp.IsSuccess() {
		classified := Classify(resp.StatusCode, resp.Body)
		s.logger.Warn("aggregated merchant request rejected",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.Stringer("kind", classified.Kind),
			zap.String("code", classified.Code),
		)
		return classified
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{
			Kind:       KindProcessingFailed,
			StatusCode: resp.StatusCode,
			Message:    "failed to deserialize aggregated merchant response",
			Details:    err.Error(),
			cause:      err,
		}
	}
	return nil
}
