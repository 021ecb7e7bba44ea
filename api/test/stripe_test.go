package test

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-commerce-storefront/api/web"
	mock "github.com/stripe/stripe-mock/param"
)

type mockIntent struct {
	ID         string
	Account    string
	Status     string
	Amount     int64
	Fee        int64
	Currency   string
	Metadata   map[string]string
	PostalCode string
	Name       string
	Email      string
	Created    int64
}

func (in *mockIntent) json() map[string]any {
	pi := map[string]any{
		"id":                     in.ID,
		"object":                 "payment_intent",
		"status":                 in.Status,
		"client_secret":          in.ID + "_secret_test",
		"amount":                 in.Amount,
		"application_fee_amount": in.Fee,
		"currency":               in.Currency,
		"metadata":               in.Metadata,
		"created":                in.Created,
	}
	if in.PostalCode != "" {
		pi["shipping"] = map[string]any{
			"name":    in.Name,
			"address": map[string]any{"postal_code": in.PostalCode},
		}
		pi["receipt_email"] = in.Email
	}
	return pi
}

// mockStripe keeps payment intents and accounts in memory the way the
// stripe API would for connected accounts.
type mockStripe struct {
	mu              sync.Mutex
	seq             int
	intents         map[string]*mockIntent
	order           []string
	idempotencyKeys []string
	creates         int
	updates         int
	accounts        map[string]bool
}

func newMockStripe() *mockStripe {
	return &mockStripe{
		intents:  make(map[string]*mockIntent),
		accounts: make(map[string]bool),
	}
}

// Succeed simulates the customer paying an intent.
func (m *mockStripe) Succeed(id string, postalCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in := m.intents[id]
	in.Status = "succeeded"
	in.PostalCode = postalCode
	in.Name = "Ada Lovelace"
	in.Email = "ada@example.test"
}

func (m *mockStripe) Intent(id string) mockIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.intents[id]
}

// CompleteOnboarding marks a connected account as fully onboarded.
func (m *mockStripe) CompleteOnboarding(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = true
}

func (m *mockStripe) counts() (creates int, updates int, keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates, m.updates, append([]string(nil), m.idempotencyKeys...)
}

func metadataOf(params map[string]any) map[string]string {
	md := map[string]string{}
	raw, _ := params["metadata"].(map[string]any)
	for k, v := range raw {
		md[k], _ = v.(string)
	}
	return md
}

func int64Of(params map[string]any, key string) int64 {
	s, _ := params[key].(string)
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func stripeError(w http.ResponseWriter, status int, msg string) {
	e := map[string]any{"type": "invalid_request_error", "message": msg}
	if status == http.StatusNotFound {
		e["code"] = "resource_missing"
	}
	web.Respond(context.Background(), w, map[string]any{"error": e}, status)
}

func (m *mockStripe) handle() http.Handler {
	ctx := context.Background()
	r := mux.NewRouter()

	r.HandleFunc("/v1/payment_intents", func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			stripeError(w, http.StatusBadRequest, err.Error())
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		m.seq++
		m.creates++
		m.idempotencyKeys = append(m.idempotencyKeys, r.Header.Get("Idempotency-Key"))

		in := &mockIntent{
			ID:       fmt.Sprintf("pi_%d", m.seq),
			Account:  r.Header.Get("Stripe-Account"),
			Status:   "requires_payment_method",
			Amount:   int64Of(params, "amount"),
			Fee:      int64Of(params, "application_fee_amount"),
			Currency: fmt.Sprint(params["currency"]),
			Metadata: metadataOf(params),
			Created:  time.Now().Unix() + int64(m.seq),
		}
		m.intents[in.ID] = in
		m.order = append(m.order, in.ID)

		web.Respond(ctx, w, in.json(), http.StatusOK)
	}).Methods(http.MethodPost)

	r.HandleFunc("/v1/payment_intents", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		data := []any{}
		for i := len(m.order) - 1; i >= 0; i-- {
			in := m.intents[m.order[i]]
			if in.Account == r.Header.Get("Stripe-Account") {
				data = append(data, in.json())
			}
		}
		list := map[string]any{"object": "list", "url": "/v1/payment_intents", "has_more": false, "data": data}
		web.Respond(ctx, w, list, http.StatusOK)
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/payment_intents/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		in, ok := m.intents[mux.Vars(r)["id"]]
		if !ok || in.Account != r.Header.Get("Stripe-Account") {
			stripeError(w, http.StatusNotFound, "No such payment_intent")
			return
		}
		web.Respond(ctx, w, in.json(), http.StatusOK)
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/payment_intents/{id}", func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			stripeError(w, http.StatusBadRequest, err.Error())
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		in, ok := m.intents[mux.Vars(r)["id"]]
		if !ok || in.Account != r.Header.Get("Stripe-Account") {
			stripeError(w, http.StatusNotFound, "No such payment_intent")
			return
		}
		m.updates++
		in.Amount = int64Of(params, "amount")
		in.Fee = int64Of(params, "application_fee_amount")
		for k, v := range metadataOf(params) {
			if v == "" {
				delete(in.Metadata, k)
				continue
			}
			in.Metadata[k] = v
		}

		web.Respond(ctx, w, in.json(), http.StatusOK)
	}).Methods(http.MethodPost)

	r.HandleFunc("/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.seq++
		id := fmt.Sprintf("acct_%d", m.seq)
		m.accounts[id] = false

		acct := map[string]any{"id": id, "object": "account", "details_submitted": false, "created": time.Now().Unix()}
		web.Respond(ctx, w, acct, http.StatusOK)
	}).Methods(http.MethodPost)

	r.HandleFunc("/v1/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		id := mux.Vars(r)["id"]
		done, ok := m.accounts[id]
		if !ok {
			stripeError(w, http.StatusNotFound, "No such account")
			return
		}

		acct := map[string]any{
			"id":                id,
			"object":            "account",
			"details_submitted": done,
			"charges_enabled":   done,
			"email":             "seller@example.test",
			"created":           time.Now().Unix(),
		}
		web.Respond(ctx, w, acct, http.StatusOK)
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		id := mux.Vars(r)["id"]
		delete(m.accounts, id)
		web.Respond(ctx, w, map[string]any{"id": id, "object": "account", "deleted": true}, http.StatusOK)
	}).Methods(http.MethodDelete)

	r.HandleFunc("/v1/account_links", func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			stripeError(w, http.StatusBadRequest, err.Error())
			return
		}

		link := map[string]any{
			"object": "account_link",
			"url":    "https://connect.stripe.test/setup/" + fmt.Sprint(params["account"]),
		}
		web.Respond(ctx, w, link, http.StatusOK)
	}).Methods(http.MethodPost)

	return r
}
