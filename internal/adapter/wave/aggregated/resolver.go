package aggregated

import (
	stdcontext "context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yourorg/wave-connector/internal/adapter/wave/client"
	"github.com/yourorg/wave-connector/internal/policy"
)

const (
	defaultValidationAttempts = 3
	defaultBackoffInitial     = 100 * time.Millisecond
	defaultBackoffMax         = time.Second
	defaultClaimTTL           = 30 * time.Second
	defaultCacheTTLSeconds    = 3600
	autoCreateTimeout         = 30 * time.Second
)

var errClaimHeld = errors.New("auto-create already in progress for this profile")

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetryPolicy sets the policy deciding whether another validation attempt is made.
func WithRetryPolicy(p *policy.RetryPolicy) ResolverOption {
	return func(r *Resolver) {
		if p != nil {
			r.retry = p
		}
	}
}

// WithBackoff sets the delay before the second validation attempt and its cap.
func WithBackoff(initial, max time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.backoffInitial = initial
		r.backoffMax = max
	}
}

// WithClaimStore guards auto-creation across processes.
func WithClaimStore(s ClaimStore, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.claims = s
		if ttl > 0 {
			r.claimTTL = ttl
		}
	}
}

// WithIDCache lets resolved ids be reused until their TTL runs out.
func WithIDCache(c IDCache) ResolverOption {
	return func(r *Resolver) { r.cache = c }
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver decides which aggregated merchant id, if any, an authorize call uses.
// Remote validation and auto-creation failures never fail the payment: they are
// logged and resolution moves on.
type Resolver struct {
	client         *client.Client
	retry          *policy.RetryPolicy
	backoffInitial time.Duration
	backoffMax     time.Duration
	claims         ClaimStore
	claimTTL       time.Duration
	cache          IDCache
	logger         *zap.Logger
	group          singleflight.Group
}

// NewResolver creates a Resolver issuing its remote calls through c.
func NewResolver(c *client.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:         c,
		retry:          policy.MustRetryPolicy(policy.DefaultRetryExpression, defaultValidationAttempts),
		backoffInitial: defaultBackoffInitial,
		backoffMax:     defaultBackoffMax,
		claimTTL:       defaultClaimTTL,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the resolution steps in order: feature flag, explicit id from metadata
// (validated remotely with retries), then auto-creation when enabled.
// The only error returned is an invalid metadata configuration, detected before any remote call.
func (r *Resolver) Resolve(ctx stdcontext.Context, settings Settings, md *Metadata, profile string) (Resolution, error) {
	if !settings.AggregatedMerchantsEnabled {
		return r.done(noMerchant()), nil
	}
	res, err := r.resolve(ctx, settings, md, profile)
	if err != nil {
		return noMerchant(), err
	}
	return r.done(res), nil
}

// ResolveWithFallback runs Resolve, then tries strategies in order until one yields an id.
func (r *Resolver) ResolveWithFallback(ctx stdcontext.Context, settings Settings, md *Metadata, profile string, strategies []FallbackStrategy) (Resolution, error) {
	if !settings.AggregatedMerchantsEnabled {
		return r.done(noMerchant()), nil
	}
	res, err := r.resolve(ctx, settings, md, profile)
	if err != nil {
		return noMerchant(), err
	}
	if res.Found() {
		return r.done(res), nil
	}

	for _, strategy := range strategies {
		switch strategy {
		case FallbackUseDefault:
			r.logger.Warn("aggregated merchant fallback use_default is not yet supported, continuing",
				zap.String("profile", profile))
		case FallbackCreateTemporary:
			svc := NewService(r.client, settings.APIKey, r.logger)
			if id := r.autoCreate(ctx, svc, settings, nil, profile); id != "" {
				return r.done(Resolution{MerchantID: id, Source: SourceTemporary}), nil
			}
		case FallbackSkip:
			return r.done(noMerchant()), nil
		default:
			r.logger.Warn("unknown aggregated merchant fallback strategy", zap.String("strategy", string(strategy)))
		}
	}
	return r.done(noMerchant()), nil
}

func (r *Resolver) resolve(ctx stdcontext.Context, settings Settings, md *Metadata, profile string) (Resolution, error) {
	if err := ValidateMetadata(md); err != nil {
		return noMerchant(), err
	}
	if md == nil {
		md = &Metadata{}
	}

	cacheKey := r.cacheKey(md, profile)
	if cacheKey != "" {
		id, ok, err := r.cache.Get(ctx, cacheKey)
		if err != nil {
			r.logger.Warn("aggregated merchant cache read failed", zap.Error(err))
		} else if ok {
			return Resolution{MerchantID: id, Source: SourceCache}, nil
		}
	}

	svc := NewService(r.client, settings.APIKey, r.logger)

	if md.AggregatedMerchantID != nil {
		id := *md.AggregatedMerchantID
		if r.validateRemote(ctx, svc, id) {
			r.remember(ctx, cacheKey, id, settings, md)
			return Resolution{MerchantID: id, Source: SourceMetadata}, nil
		}
		r.logger.Warn("aggregated merchant from metadata could not be validated, continuing without it",
			zap.String("aggregated_merchant_id", id),
			zap.String("profile", profile))
	}

	autoCreate := settings.AutoCreateAggregatedMerchant
	if md.AutoCreateAggregatedMerchant != nil {
		autoCreate = *md.AutoCreateAggregatedMerchant
	}
	if !autoCreate {
		return noMerchant(), nil
	}

	if id := r.autoCreate(ctx, svc, settings, md, profile); id != "" {
		r.remember(ctx, cacheKey, id, settings, md)
		return Resolution{MerchantID: id, Source: SourceCreated}, nil
	}
	return noMerchant(), nil
}

// validateRemote fetches id up to the policy's attempt budget, backing off exponentially between attempts.
// Any 2xx with a parseable body counts as valid, whatever the merchant's status.
func (r *Resolver) validateRemote(ctx stdcontext.Context, svc *Service, id string) bool {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.backoffInitial
	b.MaxInterval = r.backoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	attempt := 0
	operation := func() error {
		attempt++
		_, err := svc.Get(ctx, id)
		if err == nil {
			return nil
		}
		retry, perr := r.retry.ShouldRetry(attempt, statusCodeOf(err))
		if perr != nil {
			r.logger.Error("retry policy evaluation failed", zap.Error(perr))
			return backoff.Permanent(err)
		}
		if !retry {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("aggregated merchant validation attempt failed",
			zap.String("aggregated_merchant_id", id),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		r.logger.Warn("aggregated merchant validation failed",
			zap.String("aggregated_merchant_id", id),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return false
	}
	return true
}

// autoCreate returns the new merchant id, or "" on any failure.
// Concurrent calls for the same profile share one creation.
func (r *Resolver) autoCreate(ctx stdcontext.Context, svc *Service, settings Settings, md *Metadata, profile string) string {
	req := BuildCreateRequest(settings, md, profile)
	if err := ValidateCreateRequest(req); err != nil {
		r.logger.Warn("aggregated merchant auto-create skipped, invalid request",
			zap.String("profile", profile),
			zap.Error(err))
		return ""
	}

	v, err, shared := r.group.Do(profile, func() (interface{}, error) {
		// Shared by every caller in the flight, so one caller's cancellation must not end it.
		ctx, cancel := stdcontext.WithTimeout(stdcontext.WithoutCancel(ctx), autoCreateTimeout)
		defer cancel()
		if r.claims != nil {
			token, ok, err := r.claims.Claim(ctx, profile, r.claimTTL)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", errClaimHeld
			}
			defer func() {
				if err := r.claims.Release(ctx, profile, token); err != nil {
					r.logger.Warn("failed to release auto-create claim", zap.String("profile", profile), zap.Error(err))
				}
			}()
		}
		m, err := svc.Create(ctx, req)
		if err != nil {
			return "", err
		}
		return m.ID, nil
	})
	if err != nil {
		r.logger.Warn("aggregated merchant auto-create failed, continuing without one",
			zap.String("profile", profile),
			zap.Bool("shared", shared),
			zap.Error(err))
		return ""
	}
	return v.(string)
}

// BuildCreateRequest assembles an auto-create request from metadata, falling back to
// the auth config business type and a description naming the profile.
func BuildCreateRequest(settings Settings, md *Metadata, profile string) *CreateRequest {
	if md == nil {
		md = &Metadata{}
	}
	req := &CreateRequest{
		Name:                           profile,
		BusinessType:                   settings.DefaultBusinessType,
		BusinessDescription:            fmt.Sprintf("Payment processing for %s", profile),
		ManagerName:                    md.ManagerName,
		BusinessRegistrationIdentifier: md.BusinessRegistrationIdentifier,
		BusinessSector:                 md.BusinessSector,
		WebsiteURL:                     md.WebsiteURL,
	}
	if md.AggregatedMerchantName != nil {
		req.Name = *md.AggregatedMerchantName
	}
	if md.BusinessType != nil {
		req.BusinessType = *md.BusinessType
	}
	if req.BusinessType == "" {
		req.BusinessType = DefaultBusinessType
	}
	if md.BusinessDescription != nil {
		req.BusinessDescription = *md.BusinessDescription
	}
	return req
}

// cacheKey is empty when no cache is configured or metadata disables caching.
func (r *Resolver) cacheKey(md *Metadata, profile string) string {
	if r.cache == nil {
		return ""
	}
	if md.CacheEnabled != nil && !*md.CacheEnabled {
		return ""
	}
	explicit := "auto"
	if md.AggregatedMerchantID != nil {
		explicit = *md.AggregatedMerchantID
	}
	return profile + ":" + explicit
}

func (r *Resolver) remember(ctx stdcontext.Context, key, id string, settings Settings, md *Metadata) {
	if key == "" {
		return
	}
	ttl := settings.CacheTTLSeconds
	if md.CacheTTLSeconds != nil {
		ttl = *md.CacheTTLSeconds
	}
	if ttl <= 0 {
		ttl = defaultCacheTTLSeconds
	}
	if err := r.cache.Set(ctx, key, id, time.Duration(ttl)*time.Second); err != nil {
		r.logger.Warn("aggregated merchant cache write failed", zap.Error(err))
	}
}

func (r *Resolver) done(res Resolution) Resolution {
	resolutionsTotal.WithLabelValues(string(res.Source)).Inc()
	return res
}

func statusCodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
