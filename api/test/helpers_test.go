package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// do sends a JSON request with the env's client and decodes the response
// into out when it is not nil.
func (env *TestEnv) do(t *testing.T, method string, path string, in any, out any) *http.Response {
	t.Helper()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if in != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return w
}

func (env *TestEnv) expect(t *testing.T, method string, path string, in any, out any, status int) {
	t.Helper()

	w := env.do(t, method, path, in, out)
	if w.StatusCode != status {
		t.Fatalf("%s %s: expected status %d, but got %s", method, path, status, w.Status)
	}
}
