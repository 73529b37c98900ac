package proximity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers"
	"catastro/internal/cadastre/providers/contract"
)

var madrid = models.GeoCoordinates{Lat: 40.4168, Lng: -3.7038}

const rankedResponse = `{
  "Consulta_RCCOOR_DistanciaResult": {
    "control": {"cucoor": 4, "cuerr": 0},
    "coordenadas_distancias": {"coordd": [{"lpcd": [
      {"pc": {"pc1": "9872024", "pc2": "VH5797S"}, "ldt": "CL MAYOR 17 MADRID (MADRID)", "dis": "31.20"},
      {"pc": {"pc1": "", "pc2": ""}, "ldt": "VIAL", "dis": 2.5},
      {"pc": {"pc1": "9872023", "pc2": "VH5797S"}, "ldt": "CL MAYOR 15 MADRID (MADRID)", "dis": "4,75"},
      {"pc": {"pc1": "9872025", "pc2": "VH5797S"}, "ldt": "CL MAYOR 19 MADRID (MADRID)", "dis": "58.10"}
    ]}]}
  }
}`

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCandidates(t *testing.T) {
	client := New(WithURL(serve(t, rankedResponse).URL))

	got, err := client.Candidates(context.Background(), madrid, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2.5, got[0].DistanceMeters)
	assert.Empty(t, got[0].CadastralReference, "entries without reference still rank")
	assert.Equal(t, "9872023VH5797S", got[1].CadastralReference)
	assert.Equal(t, 4.75, got[1].DistanceMeters, "comma decimal separator")
	assert.Equal(t, "MADRID", got[1].Province)
	assert.Equal(t, 3, got[2].Rank)
}

func TestBest(t *testing.T) {
	t.Run("nearest with a reference", func(t *testing.T) {
		best, ok := Best([]models.Candidate{
			{Rank: 1, DistanceMeters: 1, CadastralReference: ""},
			{Rank: 3, DistanceMeters: 9, CadastralReference: "FAR"},
			{Rank: 2, DistanceMeters: 4, CadastralReference: "NEAR"},
		})
		require.True(t, ok)
		assert.Equal(t, "NEAR", best.CadastralReference)
	})

	t.Run("no reference anywhere", func(t *testing.T) {
		_, ok := Best([]models.Candidate{{DistanceMeters: 1}})
		assert.False(t, ok)
		_, ok = Best(nil)
		assert.False(t, ok)
	})
}

func TestRankIsStableForTies(t *testing.T) {
	got := Rank([]models.Candidate{
		{DistanceMeters: 5, CadastralReference: "A"},
		{DistanceMeters: 5, CadastralReference: "B"},
		{DistanceMeters: 1, CadastralReference: "C"},
	}, 0)
	assert.Equal(t, []string{"C", "A", "B"}, []string{got[0].CadastralReference, got[1].CadastralReference, got[2].CadastralReference})
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(500))
}

func TestResolveContract(t *testing.T) {
	suite := &contract.ContractSuite{
		TierID: "proximity",
		Source: models.SourceProximity,
		Tests: []contract.ResolveTest{
			{
				Name:     "best candidate becomes the result",
				Resolver: New(WithURL(serve(t, rankedResponse).URL)),
				Coords:   madrid,
				ValidateFunc: func(r models.CadastralResult) error {
					if r.CadastralReference != "9872023VH5797S" {
						return assert.AnError
					}
					return nil
				},
			},
		},
	}
	suite.Run(t)
}

func TestResolveErrors(t *testing.T) {
	t.Run("nothing nearby", func(t *testing.T) {
		test := contract.ErrorContractTest{
			Resolver:      New(WithURL(serve(t, `{"Consulta_RCCOOR_DistanciaResult":{"control":{"cucoor":0}}}`).URL)),
			Coords:        madrid,
			ExpectedError: providers.ErrorNotFound,
		}
		test.Run(t)
	})

	t.Run("registry error", func(t *testing.T) {
		test := contract.ErrorContractTest{
			Resolver:        New(WithURL(serve(t, `{"Consulta_RCCOOR_DistanciaResult":{"lerr":[{"cod":"78","des":"x"}]}}`).URL)),
			Coords:          madrid,
			ExpectedError:   providers.ErrorNotFound,
			ExpectedMessage: "outside the territory",
		}
		test.Run(t)
	})
}
