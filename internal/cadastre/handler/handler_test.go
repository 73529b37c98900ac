package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"catastro/internal/cadastre/handler/mocks"
	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/orchestrator"
	"catastro/internal/cadastre/providers"
	"catastro/internal/cadastre/service"
	"catastro/pkg/testutil"
)

// =============================================================================
// Cadastre Handler Test Suite
// =============================================================================
// Justification for unit tests: the handler owns query parsing and the
// mapping from results and errors to HTTP statuses.

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, nil).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestCoordinates() {
	s.Run("returns the result", func() {
		want := models.Success(models.SourceREST, "9872023VH5797S0001WX")
		s.service.EXPECT().
			ResolveByCoordinates(gomock.Any(), models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038}).
			Return(want)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/coordinates?lat=40.4168&lng=-3.7038"))

		testutil.AssertStatusOK(s.T(), rr)
		got := testutil.UnmarshalResponse[models.CadastralResult](s.T(), rr)
		s.Equal(want, *got)
	})

	s.Run("accepts a decimal comma", func() {
		s.service.EXPECT().
			ResolveByCoordinates(gomock.Any(), models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038}).
			Return(models.Success(models.SourceREST, "9872023VH5797S0001WX"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/coordinates?lat=40,4168&lng=-3,7038"))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("error results are still 200", func() {
		s.service.EXPECT().ResolveByCoordinates(gomock.Any(), gomock.Any()).
			Return(models.Failure(models.SourceFallback, models.ErrorKindValidation, "coordinates outside Spanish territory"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/coordinates?lat=48.85&lng=2.35"))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "apiSource", "FALLBACK")
	})

	s.Run("unparseable numbers are rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/coordinates?lat=north&lng=-3.7"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("missing parameters are rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/coordinates?lat=40.4"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestAddress() {
	s.Run("passes the query through", func() {
		s.service.EXPECT().ResolveByAddress(gomock.Any(), "Calle Mayor 15, 28001 Madrid").
			Return(models.Success(models.SourceREST, "9872023VH5797S0001WX"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/address?q=Calle+Mayor+15%2C+28001+Madrid"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "apiSource", "REST")
	})

	s.Run("empty query is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/address?q=+"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestCandidates() {
	madrid := models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038}

	s.Run("limit defaults to the service default", func() {
		best := models.Candidate{Rank: 1, DistanceMeters: 4.2, CadastralReference: "9872023VH5797S0001WX"}
		s.service.EXPECT().ResolveCandidates(gomock.Any(), madrid, 0).
			Return(service.Candidates{Candidates: []models.Candidate{best}, Best: &best}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/candidates?lat=40.4168&lng=-3.7038"))

		testutil.AssertStatusOK(s.T(), rr)
		got := testutil.UnmarshalResponse[service.Candidates](s.T(), rr)
		s.Require().NotNil(got.Best)
		s.Equal(best, *got.Best)
	})

	s.Run("non-integer limit is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/candidates?lat=40.4&lng=-3.7&limit=many"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"out of territory", models.ErrOutOfTerritory, http.StatusBadRequest, "bad_request"},
		{"not configured", service.ErrCandidatesUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"registry failure", providers.NewProviderError(providers.ErrorTimeout, "proximity", "request timed out", nil), http.StatusBadGateway, "upstream_error"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.service.EXPECT().ResolveCandidates(gomock.Any(), gomock.Any(), 3).Return(service.Candidates{}, tt.err)

			rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/cadastre/candidates?lat=40.4&lng=-3.7&limit=3"))
			testutil.AssertStatusAndError(s.T(), rr, tt.status, tt.code)
		})
	}
}

func (s *HandlerSuite) TestClearCache() {
	s.Run("reports removed entries", func() {
		s.service.EXPECT().ClearCache(gomock.Any()).Return(7, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/v1/cadastre/cache"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "removed", float64(7))
	})

	s.Run("store failure is internal", func() {
		s.service.EXPECT().ClearCache(gomock.Any()).Return(0, errors.New("redis down"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/v1/cadastre/cache"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	})
}

func (s *HandlerSuite) TestResetBreakers() {
	s.service.EXPECT().ResetBreakers(gomock.Any())

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/v1/cadastre/breakers/reset"))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Empty(rr.Body.String())
}

func (s *HandlerSuite) TestHealth() {
	s.Run("healthy", func() {
		s.service.EXPECT().Health(gomock.Any()).Return(service.Health{Status: "ok", Cache: "ok"})
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("degraded", func() {
		s.service.EXPECT().Health(gomock.Any()).Return(service.Health{
			Status: "degraded",
			Tiers:  []orchestrator.TierHealth{{Tier: "soap", Breaker: "open", Error: "connection refused"}},
			Cache:  "ok",
		})
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
	})
}
