package resolverservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/service/resolverservice"
)

// --- Mocks ---

type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) GetProductWithAncestors(ctx context.Context, productID string) (domain.Lineage, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.Lineage), args.Error(1)
}

type MockServiceCatalog struct {
	mock.Mock
}

func (m *MockServiceCatalog) GetServicesByLevelAndNode(ctx context.Context, level domain.Level, nodeID string) ([]domain.ServiceRecord, error) {
	args := m.Called(ctx, level, nodeID)
	return args.Get(0).([]domain.ServiceRecord), args.Error(1)
}

func (m *MockServiceCatalog) GetVariants(ctx context.Context, parentServiceID string) ([]domain.ServiceRecord, error) {
	args := m.Called(ctx, parentServiceID)
	return args.Get(0).([]domain.ServiceRecord), args.Error(1)
}

func (m *MockServiceCatalog) GetServiceByID(ctx context.Context, id string) (domain.ServiceRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.ServiceRecord), args.Error(1)
}

// fakeOverrides is a map-backed override store keyed by (service, product).
type fakeOverrides map[[2]string]domain.OverrideRecord

func (f fakeOverrides) GetOverride(ctx context.Context, serviceID, productID string) (domain.OverrideRecord, bool, error) {
	if o, ok := f[[2]string{serviceID, productID}]; ok {
		return o, true, nil
	}
	return domain.DefaultOverride(serviceID, productID), false, nil
}

// --- Fixtures ---

func lineage() domain.Lineage {
	return domain.Lineage{
		Node: domain.CatalogNode{ID: "p1", Level: domain.LevelProduct, ParentID: "s1", IsActive: true},
		Ancestors: []domain.CatalogNode{
			{ID: "s1", Level: domain.LevelSeries, ParentID: "c1", IsActive: true},
			{ID: "c1", Level: domain.LevelCategory, ParentID: "b1", IsActive: true},
			{ID: "b1", Level: domain.LevelBrand, IsActive: true},
		},
	}
}

func svc(id string, level domain.Level, node string, price int64) domain.ServiceRecord {
	return domain.ServiceRecord{
		ID:              id,
		Name:            id,
		Level:           level,
		AssignedNodeID:  node,
		BasePrice:       decimal.NewFromInt(price),
		BaseTimeMinutes: 60,
		IsActive:        true,
	}
}

func variant(id, parent string, level domain.Level, node string, price int64) domain.ServiceRecord {
	v := svc(id, level, node, price)
	v.IsVariant = true
	v.ParentServiceID = &parent
	return v
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// newScenario wires the b1/c1/s1/p1 catalog with svc1 (brand-level parent) and variants v1 ($200), v2 ($150).
func newScenario(overrides fakeOverrides) (*resolverservice.Service, *MockCatalogReader, *MockServiceCatalog) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)

	svc1 := svc("svc1", domain.LevelBrand, "b1", 0)
	v1 := variant("v1", "svc1", domain.LevelBrand, "b1", 200)
	v2 := variant("v2", "svc1", domain.LevelBrand, "b1", 150)

	catalog.On("GetProductWithAncestors", mock.Anything, "p1").Return(lineage(), nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelBrand, "b1").Return([]domain.ServiceRecord{svc1, v1, v2}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelCategory, "c1").Return([]domain.ServiceRecord{}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelSeries, "s1").Return([]domain.ServiceRecord{}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelProduct, "p1").Return([]domain.ServiceRecord{}, nil)
	services.On("GetVariants", mock.Anything, "svc1").Return([]domain.ServiceRecord{v1, v2}, nil)

	return resolverservice.NewService(catalog, services, overrides, logger.NewNop()), catalog, services
}

func ids(views []domain.ResolvedServiceView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Service.ID)
	}
	return out
}

// --- Tests ---

func TestResolve_ScenarioVariantOverride(t *testing.T) {
	overrides := fakeOverrides{{"v1", "p1"}: {ServiceID: "v1", ProductID: "p1", PriceOverride: price(220)}}
	resolver, _, services := newScenario(overrides)

	views, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, ids(views))
	assert.True(t, decimal.NewFromInt(220).Equal(views[0].EffectivePrice))
	assert.True(t, decimal.NewFromInt(150).Equal(views[1].EffectivePrice))
	require.NotNil(t, views[0].GroupParentID)
	assert.Equal(t, "svc1", *views[0].GroupParentID)
	services.AssertExpectations(t)
}

func TestResolve_ScenarioDisabledVariant(t *testing.T) {
	overrides := fakeOverrides{
		{"v1", "p1"}: {ServiceID: "v1", ProductID: "p1", PriceOverride: price(220)},
		{"v2", "p1"}: {ServiceID: "v2", ProductID: "p1", IsDisabled: true},
	}
	resolver, _, _ := newScenario(overrides)

	effective, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids(effective))

	all, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{IncludeDisabled: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, ids(all))
	assert.False(t, all[0].IsDisabledForProduct)
	assert.True(t, all[1].IsDisabledForProduct)
}

func TestResolve_UnionsAllLevelsInSlotOrder(t *testing.T) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)
	catalog.On("GetProductWithAncestors", mock.Anything, "p1").Return(lineage(), nil)

	brandSvc := svc("brand-clean", domain.LevelBrand, "b1", 10)
	catSvc := svc("cat-screen", domain.LevelCategory, "c1", 20)
	seriesSvc := svc("series-battery", domain.LevelSeries, "s1", 30)
	prodA := svc("prod-a", domain.LevelProduct, "p1", 40)
	prodB := svc("prod-b", domain.LevelProduct, "p1", 50)

	// services are returned in reverse slot order to prove the resolver imposes slot order.
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelProduct, "p1").Return([]domain.ServiceRecord{prodA, prodB}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelSeries, "s1").Return([]domain.ServiceRecord{seriesSvc}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelCategory, "c1").Return([]domain.ServiceRecord{catSvc}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelBrand, "b1").Return([]domain.ServiceRecord{brandSvc}, nil)
	services.On("GetVariants", mock.Anything, mock.Anything).Return([]domain.ServiceRecord{}, nil)

	resolver := resolverservice.NewService(catalog, services, fakeOverrides{}, logger.NewNop())

	first, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})
	require.NoError(t, err)
	second, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})
	require.NoError(t, err)

	expected := []string{"brand-clean", "cat-screen", "series-battery", "prod-a", "prod-b"}
	assert.Equal(t, expected, ids(first))
	assert.Equal(t, ids(first), ids(second))
	for _, v := range first {
		assert.Nil(t, v.GroupParentID)
		assert.True(t, v.Service.BasePrice.Equal(v.EffectivePrice))
		assert.Equal(t, 60, v.EffectiveTime)
	}
}

func TestResolve_InheritsThroughInactiveIntermediates(t *testing.T) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)

	lin := lineage()
	lin.Ancestors[1].IsActive = false // category c1
	lin.Ancestors[0].IsActive = false // series s1
	catalog.On("GetProductWithAncestors", mock.Anything, "p1").Return(lin, nil)

	brandSvc := svc("brand-clean", domain.LevelBrand, "b1", 10)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelBrand, "b1").Return([]domain.ServiceRecord{brandSvc}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, mock.Anything, mock.Anything).Return([]domain.ServiceRecord{}, nil)
	services.On("GetVariants", mock.Anything, "brand-clean").Return([]domain.ServiceRecord{}, nil)

	resolver := resolverservice.NewService(catalog, services, fakeOverrides{}, logger.NewNop())
	views, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"brand-clean"}, ids(views))
}

func TestResolve_ProductHiddenFromPublicCaller(t *testing.T) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)

	lin := lineage()
	lin.Ancestors[1].IsActive = false // category c1
	catalog.On("GetProductWithAncestors", mock.Anything, "p1").Return(lin, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelBrand, "b1").
		Return([]domain.ServiceRecord{svc("brand-clean", domain.LevelBrand, "b1", 10)}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, mock.Anything, mock.Anything).Return([]domain.ServiceRecord{}, nil)
	services.On("GetVariants", mock.Anything, "brand-clean").Return([]domain.ServiceRecord{}, nil)

	resolver := resolverservice.NewService(catalog, services, fakeOverrides{}, logger.NewNop())

	views, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{Role: domain.RolePublic})
	assert.Nil(t, views)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	services.AssertNotCalled(t, "GetServicesByLevelAndNode", mock.Anything, mock.Anything, mock.Anything)

	views, err = resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, []string{"brand-clean"}, ids(views))
}

func TestResolve_DiscardsInactiveAndSuppressesParents(t *testing.T) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)
	catalog.On("GetProductWithAncestors", mock.Anything, "p1").Return(lineage(), nil)

	inactive := svc("inactive", domain.LevelSeries, "s1", 10)
	inactive.IsActive = false
	standalone := svc("standalone", domain.LevelSeries, "s1", 99)
	parent := svc("parent", domain.LevelSeries, "s1", 500)
	activeVariant := variant("variant-on", "parent", domain.LevelSeries, "s1", 70)
	inactiveVariant := variant("variant-off", "parent", domain.LevelSeries, "s1", 80)
	inactiveVariant.IsActive = false
	// every variant of this parent is inactive: the parent still never sells directly.
	shelved := svc("shelved", domain.LevelSeries, "s1", 300)
	shelvedVariant := variant("shelved-v", "shelved", domain.LevelSeries, "s1", 30)
	shelvedVariant.IsActive = false

	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelSeries, "s1").
		Return([]domain.ServiceRecord{inactive, standalone, parent, activeVariant, inactiveVariant, shelved, shelvedVariant}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, mock.Anything, mock.Anything).Return([]domain.ServiceRecord{}, nil)
	services.On("GetVariants", mock.Anything, "standalone").Return([]domain.ServiceRecord{}, nil)
	services.On("GetVariants", mock.Anything, "parent").Return([]domain.ServiceRecord{activeVariant, inactiveVariant}, nil)
	services.On("GetVariants", mock.Anything, "shelved").Return([]domain.ServiceRecord{shelvedVariant}, nil)

	resolver := resolverservice.NewService(catalog, services, fakeOverrides{}, logger.NewNop())
	views, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{IncludeDisabled: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"standalone", "variant-on"}, ids(views))
	services.AssertNotCalled(t, "GetVariants", mock.Anything, "inactive")
}

func TestResolve_OverridePrecedence(t *testing.T) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)
	catalog.On("GetProductWithAncestors", mock.Anything, "p1").Return(lineage(), nil)

	a := svc("a", domain.LevelProduct, "p1", 100)
	b := svc("b", domain.LevelProduct, "p1", 100)
	c := svc("c", domain.LevelProduct, "p1", 100)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelProduct, "p1").Return([]domain.ServiceRecord{a, b, c}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, mock.Anything, mock.Anything).Return([]domain.ServiceRecord{}, nil)
	services.On("GetVariants", mock.Anything, mock.Anything).Return([]domain.ServiceRecord{}, nil)

	minutes := 15
	overrides := fakeOverrides{
		{"a", "p1"}: {ServiceID: "a", ProductID: "p1", PriceOverride: price(0)},
		{"b", "p1"}: {ServiceID: "b", ProductID: "p1", TimeOverride: &minutes},
		// a row with all-default values behaves as if absent.
		{"c", "p1"}: {ServiceID: "c", ProductID: "p1"},
	}

	resolver := resolverservice.NewService(catalog, services, overrides, logger.NewNop())
	views, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})

	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.True(t, decimal.Zero.Equal(views[0].EffectivePrice), "zero override must win over base price")
	assert.Equal(t, 60, views[0].EffectiveTime)
	assert.True(t, decimal.NewFromInt(100).Equal(views[1].EffectivePrice))
	assert.Equal(t, 15, views[1].EffectiveTime)
	assert.True(t, decimal.NewFromInt(100).Equal(views[2].EffectivePrice))
	assert.False(t, views[2].IsDisabledForProduct)
}

func TestResolve_UnknownProduct(t *testing.T) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)
	catalog.On("GetProductWithAncestors", mock.Anything, "nope").
		Return(domain.Lineage{}, apperror.NewNotFoundError("product nope"))

	resolver := resolverservice.NewService(catalog, services, fakeOverrides{}, logger.NewNop())
	views, err := resolver.ResolveServicesForProduct(context.Background(), "nope", domain.ResolveOptions{})

	assert.Nil(t, views)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	services.AssertNotCalled(t, "GetServicesByLevelAndNode", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_StoreFailureReturnsNoPartialResult(t *testing.T) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)
	catalog.On("GetProductWithAncestors", mock.Anything, "p1").Return(lineage(), nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelBrand, "b1").
		Return([]domain.ServiceRecord{svc("ok", domain.LevelBrand, "b1", 1)}, nil)
	services.On("GetVariants", mock.Anything, "ok").Return([]domain.ServiceRecord{}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelCategory, "c1").
		Return([]domain.ServiceRecord{}, errors.New("connection reset"))

	resolver := resolverservice.NewService(catalog, services, fakeOverrides{}, logger.NewNop())
	views, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})

	assert.Nil(t, views)
	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestResolve_DanglingAncestorKeepsResolvedSlots(t *testing.T) {
	catalog := new(MockCatalogReader)
	services := new(MockServiceCatalog)
	lin := lineage()
	lin.Ancestors = lin.Ancestors[:1] // category c1 missing
	lin.MissingParentID = "c1"
	catalog.On("GetProductWithAncestors", mock.Anything, "p1").Return(lin, nil)

	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelSeries, "s1").
		Return([]domain.ServiceRecord{svc("series-only", domain.LevelSeries, "s1", 5)}, nil)
	services.On("GetServicesByLevelAndNode", mock.Anything, domain.LevelProduct, "p1").Return([]domain.ServiceRecord{}, nil)
	services.On("GetVariants", mock.Anything, "series-only").Return([]domain.ServiceRecord{}, nil)

	resolver := resolverservice.NewService(catalog, services, fakeOverrides{}, logger.NewNop())
	views, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"series-only"}, ids(views))
	services.AssertNotCalled(t, "GetServicesByLevelAndNode", mock.Anything, domain.LevelBrand, mock.Anything)
}

func TestResolve_EmptyProductID(t *testing.T) {
	resolver := resolverservice.NewService(new(MockCatalogReader), new(MockServiceCatalog), fakeOverrides{}, logger.NewNop())

	_, err := resolver.ResolveServicesForProduct(context.Background(), "", domain.ResolveOptions{})

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestService_GroupForDisplayLoadsParents(t *testing.T) {
	resolver, _, services := newScenario(fakeOverrides{})
	services.On("GetServiceByID", mock.Anything, "svc1").
		Return(svc("svc1", domain.LevelBrand, "b1", 0), nil).Once()

	views, err := resolver.ResolveServicesForProduct(context.Background(), "p1", domain.ResolveOptions{})
	require.NoError(t, err)

	groups, err := resolver.GroupForDisplay(context.Background(), views)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.NotNil(t, groups[0].Parent)
	assert.Equal(t, "svc1", groups[0].Parent.ID)
	assert.Equal(t, []string{"v1", "v2"}, ids(groups[0].Items))
	services.AssertExpectations(t)
}
