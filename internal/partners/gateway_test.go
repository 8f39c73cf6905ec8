package partners

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewayList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/cliente/get", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"nome":"Ana","cpf_cnpj":"111","contato":"a@x","endereco":"R1"}]`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/", CustomerSchema, srv.Client())
	records, err := gw.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Record{{ID: 1, Name: "Ana", TaxID: "111", Contact: "a@x", Address: "R1"}}, records)
}

func TestHTTPGatewayCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/fornecedor/add", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"nome":"Acme","cnpj":"99","contato":"c","endereco":""}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":12,"nome":"Acme","cnpj":"99","contato":"c","endereco":""}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, SupplierSchema, srv.Client())
	created, err := gw.Create(context.Background(), Draft{Name: "Acme", TaxID: "99", Contact: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), created.ID)
	assert.Equal(t, "Acme", created.Name)
}

func TestHTTPGatewayCreateWithoutIDFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nome":"Acme"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, SupplierSchema, srv.Client())
	_, err := gw.Create(context.Background(), Draft{Name: "Acme", TaxID: "99", Contact: "c"})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestHTTPGatewayUpdateAndDelete(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			_, _ = w.Write([]byte(`{"id":3,"nome":"Ana B","cpf_cnpj":"111","contato":"a","endereco":""}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, CustomerSchema, srv.Client())
	updated, err := gw.Update(context.Background(), Record{ID: 3, Name: "Ana B", TaxID: "111", Contact: "a"})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", updated.Name)

	require.NoError(t, gw.Delete(context.Background(), 3))
	assert.Equal(t, []string{"PUT /api/v1/cliente/3", "DELETE /api/v1/cliente/3"}, calls)
}

func TestHTTPGatewayNon2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, CustomerSchema, srv.Client())

	_, err := gw.List(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusNotFound, terr.Status)
	assert.Equal(t, "list", terr.Op)

	_, err = gw.Update(context.Background(), Record{ID: 404, Name: "x", TaxID: "x", Contact: "x"})
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, gw.Delete(context.Background(), 1), ErrTransport)
}

func TestHTTPGatewayNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	gw := NewHTTPGateway(url, CustomerSchema, nil)
	_, err := gw.List(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Zero(t, terr.Status)
}

func TestHTTPGatewayMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, CustomerSchema, srv.Client())
	_, err := gw.List(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}
