package aggregated

import (
	go_std_context "context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/policy"
)

const testProfile = "acme-store"

func enabledSettings() Settings {
	return Settings{
		APIKey:                     testAPIKey,
		AggregatedMerchantsEnabled: true,
		DefaultBusinessType:        DefaultBusinessType,
		CacheTTLSeconds:            3600,
	}
}

func newTestResolver(g *fakeGateway, opts ...ResolverOption) *Resolver {
	opts = append([]ResolverOption{WithBackoff(time.Millisecond, 5*time.Millisecond)}, opts...)
	return NewResolver(g.client(), opts...)
}

func TestResolve_DisabledMakesNoCalls(t *testing.T) {
	g := newFakeGateway(t)
	r := newTestResolver(g)
	settings := enabledSettings()
	settings.AggregatedMerchantsEnabled = false
	settings.AutoCreateAggregatedMerchant = true

	res, err := r.Resolve(go_std_context.Background(), settings, &Metadata{AggregatedMerchantID: ptr("am-1")}, testProfile)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, res.Source)
	assert.False(t, res.Found())

	res, err = r.ResolveWithFallback(go_std_context.Background(), settings, nil, testProfile,
		[]FallbackStrategy{FallbackCreateTemporary})
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 0, g.total())
}

func TestResolve_MetadataID(t *testing.T) {
	g := newFakeGateway(t)
	g.add(AggregatedMerchant{ID: "am-1", Name: "One"})
	r := newTestResolver(g)

	before := testutil.ToFloat64(GetResolutionsTotal().WithLabelValues(string(SourceMetadata)))
	res, err := r.Resolve(go_std_context.Background(), enabledSettings(), &Metadata{AggregatedMerchantID: ptr("am-1")}, testProfile)
	require.NoError(t, err)
	assert.Equal(t, Resolution{MerchantID: "am-1", Source: SourceMetadata}, res)
	assert.Equal(t, 1, g.count("GET /v1/aggregated_merchants/am-1"))
	assert.Equal(t, before+1, testutil.ToFloat64(GetResolutionsTotal().WithLabelValues(string(SourceMetadata))))
}

func TestResolve_MetadataIDRetriedThenDropped(t *testing.T) {
	g := newFakeGateway(t)
	r := newTestResolver(g)

	res, err := r.Resolve(go_std_context.Background(), enabledSettings(), &Metadata{AggregatedMerchantID: ptr("am-missing")}, testProfile)
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 3, g.count("GET /v1/aggregated_merchants/am-missing"))
	assert.Equal(t, 0, g.count("POST /v1/aggregated_merchants"))
}

func TestResolve_RetryPolicyStopsOnNotFound(t *testing.T) {
	g := newFakeGateway(t)
	p := policy.MustRetryPolicy("attempt < max_attempts && status_code != 404", 3)
	r := newTestResolver(g, WithRetryPolicy(p))

	res, err := r.Resolve(go_std_context.Background(), enabledSettings(), &Metadata{AggregatedMerchantID: ptr("am-missing")}, testProfile)
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 1, g.count("GET /v1/aggregated_merchants/am-missing"))
}

func TestResolve_RetryRecoversAfterTransientFailure(t *testing.T) {
	g := newFakeGateway(t)
	g.add(AggregatedMerchant{ID: "am-1"})
	g.failGets = 2
	r := newTestResolver(g)

	res, err := r.Resolve(go_std_context.Background(), enabledSettings(), &Metadata{AggregatedMerchantID: ptr("am-1")}, testProfile)
	require.NoError(t, err)
	assert.Equal(t, SourceMetadata, res.Source)
	assert.Equal(t, 3, g.count("GET /v1/aggregated_merchants/am-1"))
}

func TestResolve_AutoCreate(t *testing.T) {
	g := newFakeGateway(t)
	r := newTestResolver(g)
	settings := enabledSettings()
	settings.AutoCreateAggregatedMerchant = true
	settings.DefaultBusinessType = "retail"

	res, err := r.Resolve(go_std_context.Background(), settings, nil, testProfile)
	require.NoError(t, err)
	assert.Equal(t, Resolution{MerchantID: "am-acme-store", Source: SourceCreated}, res)
	assert.Equal(t, "retail", g.lastBody["business_type"])
	assert.Equal(t, "Payment processing for acme-store", g.lastBody["business_description"])
}

func TestResolve_AutoCreateOutlivesCallerCancellation(t *testing.T) {
	g := newFakeGateway(t)
	claims := NewInMemoryClaimStore()
	r := newTestResolver(g, WithClaimStore(claims, time.Minute))
	settings := enabledSettings()
	settings.AutoCreateAggregatedMerchant = true

	ctx, cancel := go_std_context.WithCancel(go_std_context.Background())
	cancel()

	res, err := r.Resolve(ctx, settings, nil, testProfile)
	require.NoError(t, err)
	assert.Equal(t, Resolution{MerchantID: "am-acme-store", Source: SourceCreated}, res)
	assert.Equal(t, 1, g.count("POST /v1/aggregated_merchants"))

	_, ok, err := claims.Claim(go_std_context.Background(), testProfile, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "claim must be free once creation finished")
}

func TestResolve_MetadataOverridesAutoCreateSetting(t *testing.T) {
	g := newFakeGateway(t)
	r := newTestResolver(g)

	res, err := r.Resolve(go_std_context.Background(), enabledSettings(), &Metadata{
		AutoCreateAggregatedMerchant: ptr(true),
		AggregatedMerchantName:       ptr("Acme Boutique"),
		BusinessType:                 ptr("fashion"),
	}, testProfile)
	require.NoError(t, err)
	assert.Equal(t, "am-acme-boutique", res.MerchantID)
	assert.Equal(t, "fashion", g.lastBody["business_type"])

	settings := enabledSettings()
	settings.AutoCreateAggregatedMerchant = true
	res, err = r.Resolve(go_std_context.Background(), settings, &Metadata{AutoCreateAggregatedMerchant: ptr(false)}, testProfile)
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 1, g.count("POST /v1/aggregated_merchants"))
}

func TestResolve_MutualExclusionFailsBeforeAnyCall(t *testing.T) {
	g := newFakeGateway(t)
	r := newTestResolver(g)

	_, err := r.Resolve(go_std_context.Background(), enabledSettings(), &Metadata{
		AggregatedMerchantID:         ptr("am-x"),
		AutoCreateAggregatedMerchant: ptr(true),
	}, testProfile)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrInvalidConfiguration)
	assert.Equal(t, 0, g.total())
}

func TestResolve_CreateFailureYieldsNoMerchant(t *testing.T) {
	g := newFakeGateway(t)
	g.createStatus = 500
	g.createBody = "internal error"
	r := newTestResolver(g)
	settings := enabledSettings()
	settings.AutoCreateAggregatedMerchant = true

	res, err := r.Resolve(go_std_context.Background(), settings, nil, testProfile)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, res.Source)
	assert.Equal(t, 1, g.count("POST /v1/aggregated_merchants"))
}

func TestResolve_InvalidAutoCreateRequestIsSkipped(t *testing.T) {
	g := newFakeGateway(t)
	r := newTestResolver(g)
	settings := enabledSettings()
	settings.AutoCreateAggregatedMerchant = true

	res, err := r.Resolve(go_std_context.Background(), settings, &Metadata{WebsiteURL: ptr("https://ok.example")}, "")
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 0, g.total(), "an empty profile leaves the request without a name")
}

func TestResolveWithFallback(t *testing.T) {
	ctx := go_std_context.Background()

	t.Run("skip", func(t *testing.T) {
		g := newFakeGateway(t)
		r := newTestResolver(g)
		res, err := r.ResolveWithFallback(ctx, enabledSettings(), nil, testProfile,
			[]FallbackStrategy{FallbackSkip, FallbackCreateTemporary})
		require.NoError(t, err)
		assert.Equal(t, SourceNone, res.Source)
		assert.Equal(t, 0, g.count("POST /v1/aggregated_merchants"))
	})

	t.Run("use default then create temporary", func(t *testing.T) {
		g := newFakeGateway(t)
		r := newTestResolver(g)
		res, err := r.ResolveWithFallback(ctx, enabledSettings(), nil, testProfile,
			[]FallbackStrategy{FallbackUseDefault, FallbackCreateTemporary})
		require.NoError(t, err)
		assert.Equal(t, Resolution{MerchantID: "am-acme-store", Source: SourceTemporary}, res)
		assert.Equal(t, "Payment processing for acme-store", g.lastBody["business_description"])
		assert.Equal(t, DefaultBusinessType, g.lastBody["business_type"])
	})

	t.Run("resolved id skips fallbacks", func(t *testing.T) {
		g := newFakeGateway(t)
		g.add(AggregatedMerchant{ID: "am-1"})
		r := newTestResolver(g)
		res, err := r.ResolveWithFallback(ctx, enabledSettings(), &Metadata{AggregatedMerchantID: ptr("am-1")}, testProfile,
			[]FallbackStrategy{FallbackCreateTemporary})
		require.NoError(t, err)
		assert.Equal(t, SourceMetadata, res.Source)
		assert.Equal(t, 0, g.count("POST /v1/aggregated_merchants"))
	})

	t.Run("no strategies", func(t *testing.T) {
		g := newFakeGateway(t)
		r := newTestResolver(g)
		res, err := r.ResolveWithFallback(ctx, enabledSettings(), nil, testProfile, nil)
		require.NoError(t, err)
		assert.False(t, res.Found())
		assert.Equal(t, 0, g.total())
	})

	t.Run("invalid metadata is returned", func(t *testing.T) {
		g := newFakeGateway(t)
		r := newTestResolver(g)
		_, err := r.ResolveWithFallback(ctx, enabledSettings(), &Metadata{CacheTTLSeconds: ptr(int64(10))}, testProfile,
			[]FallbackStrategy{FallbackCreateTemporary})
		require.Error(t, err)
		assert.Equal(t, 0, g.total())
	})
}

func TestResolve_CacheHit(t *testing.T) {
	g := newFakeGateway(t)
	g.add(AggregatedMerchant{ID: "am-1"})
	r := newTestResolver(g, WithIDCache(NewInMemoryIDCache()))
	md := &Metadata{AggregatedMerchantID: ptr("am-1")}

	res, err := r.Resolve(go_std_context.Background(), enabledSettings(), md, testProfile)
	require.NoError(t, err)
	assert.Equal(t, SourceMetadata, res.Source)

	res, err = r.Resolve(go_std_context.Background(), enabledSettings(), md, testProfile)
	require.NoError(t, err)
	assert.Equal(t, Resolution{MerchantID: "am-1", Source: SourceCache}, res)
	assert.Equal(t, 1, g.total())
}

func TestResolve_CacheDisabledByMetadata(t *testing.T) {
	g := newFakeGateway(t)
	g.add(AggregatedMerchant{ID: "am-1"})
	r := newTestResolver(g, WithIDCache(NewInMemoryIDCache()))
	md := &Metadata{AggregatedMerchantID: ptr("am-1"), CacheEnabled: ptr(false)}

	for i := 0; i < 2; i++ {
		res, err := r.Resolve(go_std_context.Background(), enabledSettings(), md, testProfile)
		require.NoError(t, err)
		assert.Equal(t, SourceMetadata, res.Source)
	}
	assert.Equal(t, 2, g.total())
}

func TestResolve_HeldClaimSkipsCreation(t *testing.T) {
	g := newFakeGateway(t)
	claims := NewInMemoryClaimStore()
	_, ok, err := claims.Claim(go_std_context.Background(), testProfile, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	r := newTestResolver(g, WithClaimStore(claims, time.Second))
	settings := enabledSettings()
	settings.AutoCreateAggregatedMerchant = true

	res, err := r.Resolve(go_std_context.Background(), settings, nil, testProfile)
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 0, g.count("POST /v1/aggregated_merchants"))
}

func TestResolve_ClaimReleasedAfterCreation(t *testing.T) {
	g := newFakeGateway(t)
	claims := NewInMemoryClaimStore()
	r := newTestResolver(g, WithClaimStore(claims, time.Minute))
	settings := enabledSettings()
	settings.AutoCreateAggregatedMerchant = true

	res, err := r.Resolve(go_std_context.Background(), settings, nil, testProfile)
	require.NoError(t, err)
	assert.True(t, res.Found())

	_, ok, err := claims.Claim(go_std_context.Background(), testProfile, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "claim must be free once creation finished")
}

func TestBuildCreateRequest(t *testing.T) {
	req := BuildCreateRequest(Settings{}, nil, "shop")
	assert.Equal(t, "shop", req.Name)
	assert.Equal(t, DefaultBusinessType, req.BusinessType)
	assert.Equal(t, "Payment processing for shop", req.BusinessDescription)
	assert.Nil(t, req.ManagerName)

	req = BuildCreateRequest(Settings{DefaultBusinessType: "retail"}, &Metadata{
		BusinessDescription: ptr("Shoes"),
		ManagerName:         ptr("Awa"),
		WebsiteURL:          ptr("https://shoes.example"),
	}, "shop")
	assert.Equal(t, "retail", req.BusinessType)
	assert.Equal(t, "Shoes", req.BusinessDescription)
	assert.Equal(t, "Awa", *req.ManagerName)
	assert.Equal(t, "https://shoes.example", *req.WebsiteURL)
	assert.NoError(t, ValidateCreateRequest(req))
}
