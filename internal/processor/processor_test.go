package processor_test

import (
	"context"
	"testing"

	"contentsync/internal/models"
	"contentsync/internal/processor"
	"contentsync/internal/runlog"
	"contentsync/internal/store"

	"github.com/stretchr/testify/require"
)

func TestRegistryKnown(t *testing.T) {
	reg := processor.NewRegistry(store.NewMemory())

	require.True(t, reg.Known("post"))
	require.True(t, reg.Known("product"))
	require.True(t, reg.Known("listing"))
	require.False(t, reg.Known("podcast"))
	require.Nil(t, reg.For("podcast"))
}

func TestStandardEnrich(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	reg := processor.NewRegistry(m)
	rl := runlog.New()

	rec := models.ContentRecord{
		ContentType: "post",
		Title:       "Tagged",
		Taxonomies: map[string][]string{
			"category": {"News", "World"},
			"mood":     {"upbeat"}, // unknown, skipped
		},
		Meta: map[string]any{"Source URL": "https://example.com", "rank": float64(3)},
	}
	c, err := m.Create(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, reg.For("post").Enrich(ctx, c, rec, rl))

	stored := m.Contents[c.ID]
	require.Equal(t, []string{"News", "World"}, stored.Terms["category"])
	require.NotContains(t, stored.Terms, "mood")
	require.Equal(t, "https://example.com", stored.Meta["source_url"])
	require.Contains(t, rl.String(), "unknown taxonomy 'mood'")
}

func TestCommerceEnrich(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	reg := processor.NewRegistry(m)

	rec := models.ContentRecord{
		ContentType: "product",
		Title:       "Mug",
		Meta: map[string]any{
			"price":        "19.90",
			"stock_status": "instock",
		},
	}
	c, err := m.Create(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, reg.For("product").Enrich(ctx, c, rec, runlog.New()))

	stored := m.Contents[c.ID]
	require.Equal(t, "19.90", stored.Commerce.Price)
	require.Equal(t, "instock", stored.Commerce.StockStatus)
	require.Empty(t, stored.Commerce.SalePrice)
}

func TestCommerceEnrichNoMeta(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	reg := processor.NewRegistry(m)

	rec := models.ContentRecord{ContentType: "product", Title: "Bare"}
	c, err := m.Create(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, reg.For("product").Enrich(ctx, c, rec, runlog.New()))
	require.Equal(t, store.CommerceFields{}, *m.Contents[c.ID].Commerce)
}

func TestListingEnrichMatchesStandard(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	reg := processor.NewRegistry(m)

	rec := models.ContentRecord{
		ContentType: "listing",
		Title:       "Cafe",
		Taxonomies:  map[string][]string{"category": {"Food"}},
	}
	c, err := m.Create(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, reg.For("listing").Enrich(ctx, c, rec, runlog.New()))
	require.Equal(t, []string{"Food"}, m.Contents[c.ID].Terms["category"])
}

func TestSanitizeKey(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"price", "price"},
		{"Source URL", "source_url"},
		{"  Spaced  ", "spaced"},
		{"weird!key#1", "weird_key_1"},
		{"UPPER_case", "upper_case"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, processor.SanitizeKey(tc.in), tc.in)
	}
}
