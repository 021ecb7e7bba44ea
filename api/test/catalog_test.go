package test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/irsalhamdi/e-commerce-storefront/core/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogTest struct {
	*TestEnv
	store    seedStore
	lamps    string
	chairs   string
	tag      string
	products map[string]string
}

func newCatalogTest(t *testing.T, env *TestEnv) *catalogTest {
	t.Helper()

	ct := &catalogTest{
		TestEnv:  env,
		store:    createStore(t, env.DB, "google:ada", ""),
		lamps:    createCategory(t, env.DB),
		chairs:   createCategory(t, env.DB),
		tag:      uuid.NewString()[:8],
		products: make(map[string]string),
	}

	seed := []seedProduct{
		{Name: "Alpha lamp " + ct.tag, CategoryID: ct.lamps, Price: "10.00", Rating: 4},
		{Name: "Beta lamp " + ct.tag, CategoryID: ct.lamps, Price: "25.50", Rating: 2},
		{Name: "Gamma " + ct.tag + "_x", CategoryID: ct.chairs, Price: "5.00", Rating: 5},
		{Name: "Delta " + ct.tag + "yx", CategoryID: ct.chairs, Price: "7.00", Rating: 1},
	}
	for _, p := range seed {
		p.ID = uuid.NewString()
		p.StoreID = ct.store.ID
		p.Inventory = 3
		createNamedProduct(t, env.DB, p)
		ct.products[p.ID] = p.Name
	}
	return ct
}

func (ct *catalogTest) list(t *testing.T, params url.Values, status int) catalog.ProductPage {
	t.Helper()

	params.Set("store_ids", ct.store.ID)

	var p catalog.ProductPage
	ct.expect(t, http.MethodGet, "/catalog/products?"+params.Encode(), nil, &p, status)
	return p
}

func names(p catalog.ProductPage) []string {
	out := make([]string, 0, len(p.Products))
	for _, l := range p.Products {
		out = append(out, l.Name)
	}
	return out
}

func TestCatalogProducts(t *testing.T) {
	env, err := NewTestEnv(t, "catalog_products_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := newCatalogTest(t, env)
	tag := ct.tag

	p := ct.list(t, url.Values{"sort": {"price.asc"}}, http.StatusOK)
	assert.Equal(t, []string{"Gamma " + tag + "_x", "Delta " + tag + "yx", "Alpha lamp " + tag, "Beta lamp " + tag}, names(p))
	assert.Equal(t, 1, p.PageCount)
	require.NotNil(t, p.Products[0].Category)
	assert.Equal(t, "category "+ct.chairs, *p.Products[0].Category)

	p = ct.list(t, url.Values{"sort": {"rating.desc"}}, http.StatusOK)
	assert.Equal(t, "Gamma "+tag+"_x", p.Products[0].Name)

	p = ct.list(t, url.Values{"categories": {ct.lamps}, "sort": {"name.desc"}}, http.StatusOK)
	assert.Equal(t, []string{"Beta lamp " + tag, "Alpha lamp " + tag}, names(p))

	p = ct.list(t, url.Values{"price_range": {"6-20"}, "sort": {"price.asc"}}, http.StatusOK)
	assert.Equal(t, []string{"Delta " + tag + "yx", "Alpha lamp " + tag}, names(p))

	p = ct.list(t, url.Values{"price_range": {"20-"}}, http.StatusOK)
	assert.Equal(t, []string{"Beta lamp " + tag}, names(p))

	p = ct.list(t, url.Values{"sort": {"name.asc"}, "per_page": {"3"}, "page": {"2"}}, http.StatusOK)
	assert.Equal(t, 2, p.PageCount)
	assert.Equal(t, []string{"Gamma " + tag + "_x"}, names(p))

	p = ct.list(t, url.Values{"categories": {"no-such-category"}}, http.StatusOK)
	assert.Empty(t, p.Products)
	assert.Zero(t, p.PageCount)

	ct.list(t, url.Values{"sort": {"inventory.asc"}}, http.StatusBadRequest)
	ct.list(t, url.Values{"sort": {"price.up"}}, http.StatusBadRequest)
	ct.list(t, url.Values{"price_range": {"30-10"}}, http.StatusBadRequest)
	ct.list(t, url.Values{"price_range": {"cheap"}}, http.StatusBadRequest)
	ct.list(t, url.Values{"price_range": {"-5-10"}}, http.StatusBadRequest)
	ct.list(t, url.Values{"page": {"two"}}, http.StatusBadRequest)
}

func TestCatalogSearch(t *testing.T) {
	env, err := NewTestEnv(t, "catalog_search_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	ct := newCatalogTest(t, env)

	var groups []catalog.SearchGroup
	ct.expect(t, http.MethodGet, "/catalog/search?q="+url.QueryEscape(ct.tag), nil, &groups, http.StatusOK)
	require.Len(t, groups, 2)

	byCategory := map[string]int{}
	for _, g := range groups {
		byCategory[g.ID] = len(g.Products)
		for _, p := range g.Products {
			assert.Equal(t, ct.products[p.ID], p.Name)
		}
	}
	assert.Equal(t, map[string]int{ct.lamps: 2, ct.chairs: 2}, byCategory)

	// wildcards in the query are matched literally
	ct.expect(t, http.MethodGet, "/catalog/search?q="+url.QueryEscape(ct.tag+"_x"), nil, &groups, http.StatusOK)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Products, 1)
	assert.Equal(t, "Gamma "+ct.tag+"_x", groups[0].Products[0].Name)

	ct.expect(t, http.MethodGet, "/catalog/search?q=LAMP+"+url.QueryEscape(ct.tag), nil, &groups, http.StatusOK)
	require.Len(t, groups, 1)
	assert.Equal(t, ct.lamps, groups[0].ID)

	ct.expect(t, http.MethodGet, "/catalog/search?q=%20", nil, &groups, http.StatusOK)
	assert.Empty(t, groups)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	ct.expect(t, http.MethodGet, "/catalog/search?q="+string(long), nil, nil, http.StatusBadRequest)
}

func TestBanners(t *testing.T) {
	env, err := NewTestEnv(t, "banners_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	now := time.Now().UTC()
	day := 24 * time.Hour

	insert := func(title string, active bool, start, end time.Time) string {
		id := uuid.NewString()
		const q = `
		INSERT INTO banners (banner_id, title, image_url, is_active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := env.DB.ExecContext(context.Background(), q, id, title, "https://cdn.test/"+id+".png", active, start, end); err != nil {
			t.Fatalf("seeding banner: %v", err)
		}
		return id
	}

	current := insert("summer sale", true, now.Add(-day), now.Add(day))
	insert("disabled", false, now.Add(-day), now.Add(day))
	insert("expired", true, now.Add(-2*day), now.Add(-day))
	insert("upcoming", true, now.Add(day), now.Add(2*day))

	var banners []catalog.Banner
	env.expect(t, http.MethodGet, "/banners", nil, &banners, http.StatusOK)
	require.Len(t, banners, 1)
	assert.Equal(t, current, banners[0].ID)
	assert.Equal(t, "summer sale", banners[0].Title)
}
