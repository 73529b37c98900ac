package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers"
	"catastro/internal/cadastre/providers/contract"
)

const madridResponse = `{
  "Consulta_RCCOORResult": {
    "control": {"cucoor": 1, "cuerr": 0},
    "coordenadas": {"coord": [{
      "pc": {"pc1": "9872023", "pc2": "VH5797S"},
      "geo": {"xcen": "-3.7038", "ycen": "40.4168", "srs": "EPSG:4326"},
      "ldt": "CL MAYOR 15 MADRID (MADRID)"
    }]}
  }
}`

var madrid = models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038}

func registry(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClientContract(t *testing.T) {
	srv, _ := registry(t, http.StatusOK, madridResponse)
	client := New(WithURL(srv.URL))

	suite := &contract.ContractSuite{
		TierID: "rest",
		Source: models.SourceREST,
		Tests: []contract.ResolveTest{
			{
				Name:     "returns the parcel reference and location text",
				Resolver: client,
				Coords:   madrid,
				ValidateFunc: func(r models.CadastralResult) error {
					if r.CadastralReference != "9872023VH5797S" {
						return assert.AnError
					}
					if r.Province != "MADRID" || r.Address != "CL MAYOR 15 MADRID (MADRID)" {
						return assert.AnError
					}
					return nil
				},
			},
		},
	}
	suite.Run(t)
}

func TestResolveSendsRegistryQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write([]byte(madridResponse))
	}))
	defer srv.Close()

	_, err := New(WithURL(srv.URL)).Resolve(context.Background(), madrid)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "EPSG:4326", got.URL.Query().Get("SRS"))
	assert.Equal(t, "-3.7038", got.URL.Query().Get("Coordenada_X"), "X is longitude")
	assert.Equal(t, "40.4168", got.URL.Query().Get("Coordenada_Y"), "Y is latitude")
	assert.Equal(t, providers.DefaultUserAgent, got.Header.Get("User-Agent"))
}

func TestResolveErrors(t *testing.T) {
	t.Run("registry error codes map to readable messages", func(t *testing.T) {
		cases := map[string]string{
			"76": "X coordinate",
			"77": "Y coordinate",
			"78": "outside the territory",
		}
		for code, want := range cases {
			srv, _ := registry(t, http.StatusOK, `{"Consulta_RCCOORResult":{"control":{"cucoor":0,"cuerr":1},"lerr":[{"cod":"`+code+`","des":"raw"}]}}`)
			test := contract.ErrorContractTest{
				Name:            "code " + code,
				Resolver:        New(WithURL(srv.URL)),
				Coords:          madrid,
				ExpectedError:   providers.ErrorNotFound,
				ExpectedMessage: want,
			}
			test.Run(t)
		}
	})

	t.Run("numeric codes and a bare error object decode", func(t *testing.T) {
		srv, _ := registry(t, http.StatusOK, `{"Consulta_RCCOORResult":{"lerr":{"cod":78,"des":"raw"}}}`)
		_, err := New(WithURL(srv.URL)).Resolve(context.Background(), madrid)
		assert.Contains(t, providers.Message(err), "outside the territory")
	})

	t.Run("unknown codes keep the registry description", func(t *testing.T) {
		srv, _ := registry(t, http.StatusOK, `{"Consulta_RCCOORResult":{"lerr":[{"cod":"12","des":"LA PROVINCIA NO EXISTE"}]}}`)
		_, err := New(WithURL(srv.URL)).Resolve(context.Background(), madrid)
		assert.Equal(t, "LA PROVINCIA NO EXISTE", providers.Message(err))
	})

	t.Run("response without a reference", func(t *testing.T) {
		srv, _ := registry(t, http.StatusOK, `{"Consulta_RCCOORResult":{"control":{"cucoor":0},"coordenadas":{"coord":[]}}}`)
		test := contract.ErrorContractTest{Resolver: New(WithURL(srv.URL)), Coords: madrid, ExpectedError: providers.ErrorNotFound}
		test.Run(t)
	})

	t.Run("missing envelope is a contract mismatch", func(t *testing.T) {
		srv, _ := registry(t, http.StatusOK, `{"something":"else"}`)
		test := contract.ErrorContractTest{Resolver: New(WithURL(srv.URL)), Coords: madrid, ExpectedError: providers.ErrorContractMismatch}
		test.Run(t)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		srv, _ := registry(t, http.StatusOK, `<html>maintenance</html>`)
		test := contract.ErrorContractTest{Resolver: New(WithURL(srv.URL)), Coords: madrid, ExpectedError: providers.ErrorBadData}
		test.Run(t)
	})

	t.Run("server error is a retryable outage", func(t *testing.T) {
		srv, _ := registry(t, http.StatusServiceUnavailable, ``)
		test := contract.ErrorContractTest{Resolver: New(WithURL(srv.URL)), Coords: madrid, ExpectedError: providers.ErrorProviderOutage, ExpectedRetry: true}
		test.Run(t)
	})

	t.Run("throttling", func(t *testing.T) {
		srv, _ := registry(t, http.StatusTooManyRequests, ``)
		test := contract.ErrorContractTest{Resolver: New(WithURL(srv.URL)), Coords: madrid, ExpectedError: providers.ErrorRateLimited, ExpectedRetry: true}
		test.Run(t)
	})
}

func TestResolveTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := New(WithURL(srv.URL), WithTimeout(50*time.Millisecond)).Resolve(context.Background(), madrid)

	assert.Equal(t, providers.ErrorTimeout, providers.GetCategory(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveRejectsOutOfTerritoryWithoutCalling(t *testing.T) {
	srv, calls := registry(t, http.StatusOK, madridResponse)
	test := contract.ErrorContractTest{
		Resolver:      New(WithURL(srv.URL)),
		Coords:        models.GeoCoordinates{Lat: 48.85, Lng: 2.35},
		ExpectedError: providers.ErrorInvalidInput,
	}
	test.Run(t)
	assert.Zero(t, calls.Load())
}

func TestResolveAddress(t *testing.T) {
	addr := models.ParsedAddress{
		Province: "MADRID", Municipality: "MADRID", RoadType: models.RoadCalle, RoadName: "MAYOR", Number: "15",
	}

	t.Run("single property", func(t *testing.T) {
		var query http.Header
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = http.Header(r.URL.Query())
			_, _ = w.Write([]byte(`{"consulta_dnplocResult":{"control":{"cudnp":1},"bico":{"bi":{
				"idbi":{"cn":"UR","rc":{"pc1":"9872023","pc2":"VH5797S","car":"0001","cc1":"W","cc2":"X"}},
				"ldt":"CL MAYOR 15 MADRID (MADRID)"}}}}`))
		}))
		defer srv.Close()

		r, err := New(WithAddressURL(srv.URL)).ResolveAddress(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, "9872023VH5797S0001WX", r.CadastralReference)
		assert.Equal(t, models.SourceREST, r.APISource)
		assert.Equal(t, "MADRID", r.Province)
		assert.Equal(t, []string{"CL"}, query["Sigla"])
		assert.Equal(t, []string{"MAYOR"}, query["Calle"])
		assert.Equal(t, []string{"15"}, query["Numero"])
	})

	t.Run("several units return the first", func(t *testing.T) {
		srv, _ := registry(t, http.StatusOK, `{"Consulta_DNPLOCResult":{"lrcdnp":{"rcdnp":[
			{"rc":{"pc1":"9872023","pc2":"VH5797S","car":"0002","cc1":"E","cc2":"M"}},
			{"rc":{"pc1":"9872023","pc2":"VH5797S","car":"0003","cc1":"R","cc2":"Q"}}]}}}`)
		r, err := New(WithAddressURL(srv.URL)).ResolveAddress(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, "9872023VH5797S0002EM", r.CadastralReference)
	})

	t.Run("street unknown to the registry", func(t *testing.T) {
		srv, _ := registry(t, http.StatusOK, `{"Consulta_DNPLOCResult":{"lerr":[{"cod":"43","des":"LA VIA NO EXISTE"}]}}`)
		_, err := New(WithAddressURL(srv.URL)).ResolveAddress(context.Background(), addr)
		assert.Equal(t, providers.ErrorNotFound, providers.GetCategory(err))
		assert.Equal(t, "LA VIA NO EXISTE", providers.Message(err))
	})

	t.Run("empty street is rejected locally", func(t *testing.T) {
		srv, calls := registry(t, http.StatusOK, `{}`)
		_, err := New(WithAddressURL(srv.URL)).ResolveAddress(context.Background(), models.ParsedAddress{Province: "MADRID"})
		assert.Equal(t, providers.ErrorInvalidInput, providers.GetCategory(err))
		assert.Zero(t, calls.Load())
	})
}

func TestHealth(t *testing.T) {
	srv, _ := registry(t, http.StatusBadRequest, ``)
	assert.NoError(t, New(WithURL(srv.URL)).Health(context.Background()), "4xx still proves reachability")

	down, _ := registry(t, http.StatusBadGateway, ``)
	assert.Error(t, New(WithURL(down.URL)).Health(context.Background()))
}
