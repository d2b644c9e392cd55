package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeNexus(t *testing.T) *httptest.Server {
	t.Helper()
	var favs []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "POST /users/login":
			var creds map[string]string
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds["password"] != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"token":"tok","userId":"u1"}`))
		case "POST /users/register":
			w.WriteHeader(http.StatusCreated)
		case "GET /coins/list":
			_, _ = w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin"},{"id":"ethereum","symbol":"eth","name":"Ethereum"}]`))
		case "GET /favorites":
			_ = json.NewEncoder(w).Encode(append([]map[string]string{}, favs...))
		case "POST /favorites/add":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			rec := map[string]string{"_id": "f-" + body["cryptocurrencyId"], "cryptocurrencyId": body["cryptocurrencyId"], "user": body["userId"]}
			favs = append(favs, rec)
			_ = json.NewEncoder(w).Encode(rec)
		case "DELETE /favorites/delete":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			kept := favs[:0]
			for _, f := range favs {
				if f["_id"] != body["favoriteId"] {
					kept = append(kept, f)
				}
			}
			favs = kept
			_, _ = w.Write([]byte(`{"message":"deleted"}`))
		case "POST /conversion/convert":
			_, _ = w.Write([]byte(`{"cryptocurrencyId":"bitcoin","amount":2.5,"convertedBrl":750000,"convertedUsd":150000,"priceInBrl":300000,"priceInUsd":60000}`))
		case "GET /conversion/history":
			_, _ = w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	t    *testing.T
	base []string
}

func newHarness(t *testing.T) *harness {
	srv := fakeNexus(t)
	return &harness{t: t, base: []string{
		"-c", "",
		"--server", srv.URL,
		"--catalog", srv.URL + "/coins/list",
		"--storage-path", filepath.Join(t.TempDir(), "nexus.db"),
	}}
}

func (h *harness) run(stdin string, args ...string) (code int, stdout, stderr string) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	code = run(append(args, h.base...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCLI_Session(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("", "favorites", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "you need to be logged in")

	code, _, stderr = h.run("a@b.c\nwrong\n", "login")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Invalid credentials")

	code, stdout, _ := h.run("pw\n", "login", "--email", "a@b.c")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Logged in as u1")

	code, stdout, _ = h.run("", "favorites", "add", "bitcoin")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Added bitcoin")

	code, stdout, _ = h.run("", "favorites", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "bitcoin")

	code, stdout, _ = h.run("", "favorites", "remove", "bitcoin")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Removed bitcoin")

	code, _, stderr = h.run("", "favorites", "remove", "bitcoin")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "favorite not found")

	code, stdout, _ = h.run("", "history")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "No conversions yet")

	code, _, _ = h.run("", "logout")
	require.Equal(t, 0, code)
	code, _, _ = h.run("", "history")
	assert.Equal(t, 1, code)
}

func TestCLI_Register(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run("pw\npw\n", "register", "--name", "Carol", "--email", "c@nexus.io")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Registration successful")

	code, _, stderr := h.run("pw\nwp\n", "register", "--name", "Carol", "--email", "c@nexus.io")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "passwords do not match")
}

func TestCLI_CurrenciesAndConvert(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run("", "currencies", "--search", "eth")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "ethereum")
	assert.NotContains(t, stdout, "bitcoin")

	code, stdout, _ = h.run("", "convert", "bitcoin", "2.5")
	require.Equal(t, 0, code)
	assert.Equal(t, "2.5 bitcoin = R$ 750000.00 | US$ 150000.00\n", stdout)

	code, _, stderr := h.run("", "convert", "bitcoin", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid amount: must be a number")

	code, _, stderr = h.run("", "convert", "dogecoin", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown currency")
}

func TestCLI_Version(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{"version"}, strings.NewReader(""), &out, &bytes.Buffer{})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Version: N/A")
}
