package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/core/catalog"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	carts map[string]Cart

	// beforeUpdate runs once, outside the lock, before the next Update.
	beforeUpdate func()
	updates      int
}

func newMemStore() *memStore {
	return &memStore{carts: make(map[string]Cart)}
}

func (m *memStore) Fetch(ctx context.Context, id string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrCartNotFound
	}
	c.Items = append(Items{}, c.Items...)
	c.Intents = copyIntents(c.Intents)
	return c, nil
}

func copyIntents(in Intents) Intents {
	if in == nil {
		return nil
	}
	out := make(Intents, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) Create(ctx context.Context, c Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[c.ID]; ok {
		return fmt.Errorf("cart[%s] exists", c.ID)
	}
	c.Items = append(Items{}, c.Items...)
	m.carts[c.ID] = c
	return nil
}

func (m *memStore) Update(ctx context.Context, c Cart) error {
	if hook := m.beforeUpdate; hook != nil {
		m.beforeUpdate = nil
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.updates++
	cur, ok := m.carts[c.ID]
	if !ok || cur.Version != c.Version {
		return ErrVersionConflict
	}
	c.Items = append(Items{}, c.Items...)
	c.Version++
	m.carts[c.ID] = c
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, id)
	return nil
}

func (m *memStore) put(c Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.ID] = c
}

func (m *memStore) get(id string) (Cart, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	return c, ok
}

type memCatalog struct {
	products map[string]catalog.Product
	fail     error
}

func (m *memCatalog) Product(ctx context.Context, id string) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (m *memCatalog) Snapshots(ctx context.Context, ids []string, storeID string) ([]catalog.Snapshot, error) {
	if m.fail != nil {
		return nil, m.fail
	}

	snaps := []catalog.Snapshot{}
	for _, id := range ids {
		p, ok := m.products[id]
		if !ok || (storeID != "" && p.StoreID != storeID) {
			continue
		}
		snaps = append(snaps, catalog.Snapshot{
			ID:        p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Inventory: p.Inventory,
			StoreID:   p.StoreID,
		})
	}
	return snaps, nil
}

func (m *memCatalog) StoreIDs(ctx context.Context, ids []string) ([]string, error) {
	if m.fail != nil {
		return nil, m.fail
	}

	seen := map[string]bool{}
	out := []string{}
	for _, id := range ids {
		p, ok := m.products[id]
		if ok && !seen[p.StoreID] {
			seen[p.StoreID] = true
			out = append(out, p.StoreID)
		}
	}
	return out, nil
}

type countInvalidator struct {
	mu    sync.Mutex
	calls int
	tags  []string
}

func (c *countInvalidator) Invalidate(ctx context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.tags = append(c.tags, tags...)
	return nil
}

type cartTest struct {
	svc   *Service
	store *memStore
	cat   *memCatalog
	inv   *countInvalidator
}

func setup(t *testing.T) *cartTest {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	store := newMemStore()
	cat := &memCatalog{products: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Mug", Price: decimal.RequireFromString("10.00"), Inventory: 10, StoreID: "s1"},
		"p2": {ID: "p2", Name: "Cap", Price: decimal.RequireFromString("25.50"), Inventory: 2, StoreID: "s1"},
		"p3": {ID: "p3", Name: "Tee", Price: decimal.RequireFromString("18.00"), Inventory: 5, StoreID: "s2"},
	}}
	inv := &countInvalidator{}

	svc := NewService(store, cat, inv, log)

	var n int
	svc.newToken = func() string {
		n++
		return fmt.Sprintf("token-%d", n)
	}
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	return &cartTest{svc: svc, store: store, cat: cat, inv: inv}
}

func quantities(items []LineItem) map[string]int {
	q := make(map[string]int, len(items))
	for _, it := range items {
		q[it.ID] = it.Quantity
	}
	return q
}

func TestAddItemCreatesCart(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, items, err := ct.svc.AddItem(ctx, "", "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, map[string]int{"p1": 2}, quantities(items))
	assert.Equal(t, "Mug", items[0].Name)

	c, ok := ct.store.get(token)
	require.True(t, ok)
	assert.Equal(t, Items{{ProductID: "p1", Quantity: 2}}, c.Items)
	assert.Equal(t, 1, ct.inv.calls)
	assert.Equal(t, []string{catalog.Tag}, ct.inv.tags)
}

func TestAddItemMergesQuantities(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 2)
	require.NoError(t, err)

	same, items, err := ct.svc.AddItem(ctx, token, "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, token, same)
	assert.Equal(t, map[string]int{"p1": 5}, quantities(items))

	c, _ := ct.store.get(token)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Version)
}

func TestAddItemAppends(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)
	_, items, err := ct.svc.AddItem(ctx, token, "p3", 4)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"p1": 1, "p3": 4}, quantities(items))
	c, _ := ct.store.get(token)
	assert.Equal(t, Items{{"p1", 1}, {"p3", 4}}, c.Items)
}

func TestAddItemOutOfStock(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)
	before, _ := ct.store.get(token)
	calls := ct.inv.calls

	_, _, err = ct.svc.AddItem(ctx, token, "p2", 3)
	assert.ErrorIs(t, err, ErrOutOfStock)

	after, _ := ct.store.get(token)
	assert.Equal(t, before, after)
	assert.Equal(t, calls, ct.inv.calls)
}

func TestAddItemUnknownProduct(t *testing.T) {
	ct := setup(t)

	token, _, err := ct.svc.AddItem(context.Background(), "", "nope", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, token)
	assert.Empty(t, ct.store.carts)
}

func TestAddItemInvalidQuantity(t *testing.T) {
	ct := setup(t)

	_, _, err := ct.svc.AddItem(context.Background(), "", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItemClosedCartIsRecycled(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	ct.store.put(Cart{
		ID:     "old",
		Items:  Items{{"p1", 4}, {"p3", 1}},
		Closed: true,
	})

	token, items, err := ct.svc.AddItem(ctx, "old", "p2", 1)
	require.NoError(t, err)
	assert.NotEqual(t, "old", token)
	assert.Equal(t, map[string]int{"p2": 1}, quantities(items))

	_, ok := ct.store.get("old")
	assert.False(t, ok, "closed cart must be deleted")

	c, ok := ct.store.get(token)
	require.True(t, ok)
	assert.False(t, c.Closed)
	assert.Equal(t, Items{{"p2", 1}}, c.Items)
}

func TestAddItemStaleToken(t *testing.T) {
	ct := setup(t)

	token, items, err := ct.svc.AddItem(context.Background(), "gone", "p1", 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Empty(t, token)
	assert.Nil(t, items)
	assert.Empty(t, ct.store.carts)
}

func TestVersionConflictIsRetried(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)

	// another writer adds p3 between our read and our write
	ct.store.beforeUpdate = func() {
		c, err := ct.store.Fetch(ctx, token)
		require.NoError(t, err)
		c.Items = append(c.Items, Item{ProductID: "p3", Quantity: 2})
		require.NoError(t, ct.store.Update(ctx, c))
	}

	_, items, err := ct.svc.AddItem(ctx, token, "p2", 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 1, "p2": 1, "p3": 2}, quantities(items))

	c, _ := ct.store.get(token)
	assert.Equal(t, 2, c.Version)
}

type conflictStore struct {
	*memStore
}

func (conflictStore) Update(ctx context.Context, c Cart) error {
	return ErrVersionConflict
}

func TestVersionConflictGivesUp(t *testing.T) {
	ct := setup(t)
	ct.store.put(Cart{ID: "c1", Items: Items{{"p1", 1}}})

	store := conflictStore{ct.store}
	ct.svc.store = store

	err := ct.svc.SetItemQuantity(context.Background(), "c1", "p1", 3)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestSetItemQuantity(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)
	_, _, err = ct.svc.AddItem(ctx, token, "p3", 1)
	require.NoError(t, err)

	require.NoError(t, ct.svc.SetItemQuantity(ctx, token, "p1", 7))
	assert.Equal(t, map[string]int{"p1": 7, "p3": 1}, quantities(ct.svc.Get(ctx, token, "")))

	require.NoError(t, ct.svc.SetItemQuantity(ctx, token, "p1", 0))
	assert.Equal(t, map[string]int{"p3": 1}, quantities(ct.svc.Get(ctx, token, "")))

	updates := ct.store.updates
	require.NoError(t, ct.svc.RemoveItem(ctx, token, "p1"))
	assert.Equal(t, updates, ct.store.updates, "removing an absent item must not write")
	assert.Equal(t, map[string]int{"p3": 1}, quantities(ct.svc.Get(ctx, token, "")))
}

func TestSetItemQuantityErrors(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, ct.svc.SetItemQuantity(ctx, "", "p1", 1), ErrCartNotFound)
	assert.ErrorIs(t, ct.svc.SetItemQuantity(ctx, "missing", "p1", 1), ErrCartNotFound)

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)
	assert.ErrorIs(t, ct.svc.SetItemQuantity(ctx, token, "p3", 1), ErrItemNotFound)
	assert.ErrorIs(t, ct.svc.SetItemQuantity(ctx, token, "p1", -1), ErrInvalidQuantity)
}

func TestRemoveItems(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)
	_, _, err = ct.svc.AddItem(ctx, token, "p2", 1)
	require.NoError(t, err)
	_, _, err = ct.svc.AddItem(ctx, token, "p3", 1)
	require.NoError(t, err)

	require.NoError(t, ct.svc.RemoveItems(ctx, token, []string{"p1", "p3", "unknown"}))
	assert.Equal(t, map[string]int{"p2": 1}, quantities(ct.svc.Get(ctx, token, "")))

	assert.NoError(t, ct.svc.RemoveItem(ctx, "missing", "p1"))
	assert.ErrorIs(t, ct.svc.RemoveItem(ctx, "", "p1"), ErrCartNotFound)
}

func TestEmptiedCartIsReused(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)
	require.NoError(t, ct.svc.RemoveItem(ctx, token, "p1"))
	assert.Empty(t, ct.svc.Get(ctx, token, ""))

	again, items, err := ct.svc.AddItem(ctx, token, "p2", 2)
	require.NoError(t, err)
	assert.Equal(t, token, again, "the emptied cart keeps its token")
	assert.Equal(t, map[string]int{"p2": 2}, quantities(items))
}

func TestClear(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)

	require.NoError(t, ct.svc.Clear(ctx, token))
	_, ok := ct.store.get(token)
	assert.False(t, ok)
	assert.Empty(t, ct.svc.Get(ctx, token, ""))

	assert.ErrorIs(t, ct.svc.Clear(ctx, ""), ErrCartNotFound)
}

func TestGet(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	ct.store.put(Cart{ID: "c1", Items: Items{{"p1", 1}, {"deleted", 2}, {"p3", 3}}})

	items := ct.svc.Get(ctx, "c1", "")
	assert.Equal(t, map[string]int{"p1": 1, "p3": 3}, quantities(items))

	scoped := ct.svc.Get(ctx, "c1", "s2")
	assert.Equal(t, map[string]int{"p3": 3}, quantities(scoped))

	assert.Empty(t, ct.svc.Get(ctx, "", ""))
	assert.Empty(t, ct.svc.Get(ctx, "missing", ""))

	ct.cat.fail = errors.New("db down")
	got := ct.svc.Get(ctx, "c1", "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUniqueStoreIDs(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	ct.store.put(Cart{ID: "c1", Items: Items{{"p1", 1}, {"p2", 1}, {"p3", 1}}})

	assert.ElementsMatch(t, []string{"s1", "s2"}, ct.svc.UniqueStoreIDs(ctx, "c1"))
	assert.Empty(t, ct.svc.UniqueStoreIDs(ctx, ""))

	ct.cat.fail = errors.New("db down")
	assert.Empty(t, ct.svc.UniqueStoreIDs(ctx, "c1"))
}

func TestCloseAndAttachIntent(t *testing.T) {
	ct := setup(t)
	ctx := context.Background()

	token, _, err := ct.svc.AddItem(ctx, "", "p1", 1)
	require.NoError(t, err)

	require.NoError(t, ct.svc.AttachIntent(ctx, token, "s1", "pi_1", "pi_1_secret"))
	require.NoError(t, ct.svc.AttachIntent(ctx, token, "s2", "pi_2", "pi_2_secret"))
	c, err := ct.svc.Cart(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, c.PaymentIntentID)
	assert.Equal(t, "pi_2", *c.PaymentIntentID)
	assert.Equal(t, "pi_2_secret", *c.ClientSecret)

	ref, ok := c.Intent("s1")
	require.True(t, ok)
	assert.Equal(t, IntentRef{ID: "pi_1", ClientSecret: "pi_1_secret"}, ref)
	ref, ok = c.Intent("s2")
	require.True(t, ok)
	assert.Equal(t, "pi_2", ref.ID)
	_, ok = c.Intent("s3")
	assert.False(t, ok)

	require.NoError(t, ct.svc.Close(ctx, token))
	require.NoError(t, ct.svc.Close(ctx, token))
	c, _ = ct.store.get(token)
	assert.True(t, c.Closed)

	assert.ErrorIs(t, ct.svc.SetItemQuantity(ctx, token, "p1", 2), ErrCartNotFound)
	assert.ErrorIs(t, ct.svc.Close(ctx, "missing"), ErrCartNotFound)
}
