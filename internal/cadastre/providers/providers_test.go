//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Resolver

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvinceFromLDT(t *testing.T) {
	tests := map[string]string{
		"CL MAYOR 15 MADRID (MADRID)":                      "MADRID",
		"CL SAN PRUDENCIO 1 VITORIA-GASTEIZ (ARABA/ÁLAVA)": "ARABA/ÁLAVA",
		"PZ ESPAÑA 1 (SEVILLA) ":                           "SEVILLA",
		"DS DISEMINADO 12 (EL ESPINAR) SEGOVIA":            "",
		"":                                                 "",
	}
	for ldt, want := range tests {
		assert.Equal(t, want, ProvinceFromLDT(ldt), ldt)
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"76","b":12.5,"c":null}`), &v))
	assert.Equal(t, FlexString("76"), v.A)
	assert.Equal(t, FlexString("12.5"), v.B)
	assert.Empty(t, v.C)

	f, err := FlexString(" 4,75 ").Float()
	require.NoError(t, err)
	assert.Equal(t, 4.75, f)

	assert.Error(t, json.Unmarshal([]byte(`{"a":{}}`), &v))
}

func TestList(t *testing.T) {
	var many, one, none struct {
		L List[RegistryError] `json:"l"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"l":[{"cod":"1"},{"cod":"2"}]}`), &many))
	require.NoError(t, json.Unmarshal([]byte(`{"l":{"cod":"3"}}`), &one))
	require.NoError(t, json.Unmarshal([]byte(`{"l":null}`), &none))

	assert.Len(t, many.L, 2)
	require.Len(t, one.L, 1)
	assert.Equal(t, FlexString("3"), one.L[0].Code)
	assert.Empty(t, none.L)
}

func TestFromRegistryErrors(t *testing.T) {
	assert.Nil(t, FromRegistryErrors("rest", nil))

	err := FromRegistryErrors("rest", []RegistryError{
		{Code: "76"}, {Code: "77"}, {Code: "99", Description: "OTRO"}, {Code: "98", Description: "DROPPED"},
	})
	require.NotNil(t, err)
	assert.Equal(t, ErrorNotFound, err.Category)
	assert.False(t, err.Retryable)
	assert.Contains(t, err.Message, "X coordinate")
	assert.Contains(t, err.Message, "Y coordinate")
	assert.Contains(t, err.Message, "OTRO")
	assert.NotContains(t, err.Message, "DROPPED")
}

func TestParcelRef(t *testing.T) {
	assert.Equal(t, "9872023VH5797S", ParcelRef{PC1: "9872023", PC2: "VH5797S"}.String())
	assert.Equal(t, "9872023VH5797S0001WX", ParcelRef{PC1: "9872023", PC2: "VH5797S", Car: "0001", CC1: "W", CC2: "X"}.String())
	assert.Empty(t, ParcelRef{PC1: " ", PC2: ""}.String())
}

func TestErrorTaxonomy(t *testing.T) {
	outage := NewProviderError(ErrorProviderOutage, "soap", "down", errors.New("dial tcp"))
	assert.True(t, IsRetryable(outage))
	assert.True(t, IsCounted(outage))
	assert.Equal(t, "tier soap [provider_outage]: down: dial tcp", outage.Error())
	assert.Equal(t, "down", Message(outage))

	notFound := NewProviderError(ErrorNotFound, "rest", "no reference", nil)
	assert.False(t, IsRetryable(notFound))
	assert.False(t, IsCounted(notFound), "an empty answer is not a tier fault")
	assert.False(t, IsCounted(NewProviderError(ErrorInvalidInput, "rest", "bad", nil)))
	assert.False(t, IsCounted(nil))

	cancelled := NewProviderError(ErrorCancelled, "rest", "request cancelled", context.Canceled)
	assert.False(t, IsRetryable(cancelled))
	assert.False(t, IsCounted(cancelled), "a caller hanging up is not a tier fault")
	assert.False(t, IsCounted(context.Canceled))

	assert.Equal(t, ErrorTimeout, GetCategory(context.DeadlineExceeded))
	assert.Equal(t, ErrorInternal, GetCategory(errors.New("boom")))
}

func TestTransportRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr := NewTransport(WithRateLimit(0.001, 1))
	newReq := func() *http.Request {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		return req
	}

	body, err := tr.Do(context.Background(), "rest", time.Second, newReq())
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	_, err = tr.Do(context.Background(), "rest", 50*time.Millisecond, newReq())
	assert.Equal(t, ErrorRateLimited, GetCategory(err), "the next token is far beyond the deadline")
}

func TestTransportContractMismatchOnClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = NewTransport().Do(context.Background(), "rest", time.Second, req)
	assert.Equal(t, ErrorContractMismatch, GetCategory(err))
}

func TestTransportSeparatesCancellationFromTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	newReq := func() *http.Request {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		return req
	}
	tr := NewTransport()

	_, err := tr.Do(context.Background(), "rest", 20*time.Millisecond, newReq())
	assert.Equal(t, ErrorTimeout, GetCategory(err), "the tier's own deadline")
	assert.True(t, IsCounted(err))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err = tr.Do(ctx, "rest", time.Second, newReq())
	assert.Equal(t, ErrorCancelled, GetCategory(err))
	assert.False(t, IsCounted(err))

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tr.Do(ctx, "rest", time.Second, newReq())
	assert.Equal(t, ErrorCancelled, GetCategory(err), "the caller's deadline is not the tier's")

	_, err = NewTransport(WithRateLimit(1, 1)).Do(ctx, "rest", time.Second, newReq())
	assert.Equal(t, ErrorCancelled, GetCategory(err), "an ended caller never waits on the limiter")
}
