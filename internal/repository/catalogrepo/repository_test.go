package catalogrepo_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/cache"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/repository/catalogrepo"
)

type memoryCache struct {
	data map[string]string
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) GetInt(ctx context.Context, key string) (int, error) {
	v, err := m.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = strconv.Itoa(v.(int))
	}
	return nil
}

func (m *memoryCache) Incr(_ context.Context, key string) (int64, error) {
	n, _ := strconv.Atoi(m.data[key])
	n++
	m.data[key] = strconv.Itoa(n)
	return int64(n), nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestGetProductWithAncestors_ServedFromCurrentGeneration(t *testing.T) {
	lineage := domain.Lineage{
		Node: domain.CatalogNode{ID: "p1", Level: domain.LevelProduct, ParentID: "s1", IsActive: true},
		Ancestors: []domain.CatalogNode{
			{ID: "s1", Level: domain.LevelSeries, ParentID: "c1", IsActive: true},
			{ID: "c1", Level: domain.LevelCategory, ParentID: "b1", IsActive: false},
			{ID: "b1", Level: domain.LevelBrand, IsActive: true},
		},
	}
	payload, err := json.Marshal(lineage)
	require.NoError(t, err)

	mc := &memoryCache{data: map[string]string{
		"catalog:generation":               "3",
		"catalog:g3:lineage:product:p1":    string(payload),
		"catalog:g2:lineage:product:stale": "{}",
	}}
	// No database: a cache hit must not touch it.
	repo := catalogrepo.NewCatalogRepository(nil, mc, time.Second, time.Minute, logger.NewNop())

	got, err := repo.GetProductWithAncestors(context.Background(), "p1")

	require.NoError(t, err)
	require.Len(t, got.Ancestors, 3)
	assert.Equal(t, "c1", got.Ancestors[1].ID)
	assert.False(t, got.Ancestors[1].IsActive)
}

func TestGetNode_UnknownLevel(t *testing.T) {
	repo := catalogrepo.NewCatalogRepository(nil, nil, time.Second, time.Minute, logger.NewNop())

	_, err := repo.GetNode(context.Background(), domain.Level("aisle"), "x")

	assert.IsType(t, &apperror.ValidationError{}, err)
}
