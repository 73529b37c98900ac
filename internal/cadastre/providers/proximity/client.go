// Package proximity queries the registry's distance-ranked lookup
// (Consulta_RCCOOR_Distancia), which lists the parcels nearest to a point.
// It serves callers that want several candidates; it is not a tier of the
// default single-result chain.
package proximity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers"
)

const (
	// DefaultURL is the registry's distance-ranked lookup.
	DefaultURL = "https://ovc.catastro.meh.es/OVCServWeb/OVCWcfCallejero/COVCCoordenadas.svc/json/Consulta_RCCOOR_Distancia"
	// DefaultTimeout bounds one lookup.
	DefaultTimeout = 12 * time.Second
	// DefaultLimit is the number of candidates returned when none is asked.
	DefaultLimit = 5
	// MaxLimit caps the number of candidates.
	MaxLimit = 20

	tierID = "proximity"
)

// Client is the proximity lookup.
type Client struct {
	url       string
	timeout   time.Duration
	transport *providers.Transport
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the endpoint.
func WithURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.url = u
		}
	}
}

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport shares a Transport (and its rate limiter) with other tiers.
func WithTransport(t *providers.Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds the proximity client against the public registry endpoint.
func New(opts ...Option) *Client {
	c := &Client{
		url:     DefaultURL,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = providers.NewTransport()
	}
	return c
}

func (c *Client) ID() string { return tierID }

func (c *Client) Protocol() providers.Protocol { return providers.ProtocolREST }

type distanceResponse struct {
	Result *distanceResult `json:"Consulta_RCCOOR_DistanciaResult"`
}

type distanceResult struct {
	Control struct {
		Cucoor int `json:"cucoor"`
		Cuerr  int `json:"cuerr"`
	} `json:"control"`
	Distances struct {
		Coordd providers.List[struct {
			LPCD providers.List[parcelDistance] `json:"lpcd"`
		}] `json:"coordd"`
	} `json:"coordenadas_distancias"`
	Lerr providers.List[providers.RegistryError] `json:"lerr"`
}

type parcelDistance struct {
	PC  providers.ParcelRef  `json:"pc"`
	LDT string               `json:"ldt"`
	Dis providers.FlexString `json:"dis"`
}

// ClampLimit maps a requested limit to [1, MaxLimit], using DefaultLimit
// for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Candidates returns up to limit parcels ordered by distance, ranked from 1.
// An empty slice with a nil error means the registry found nothing nearby.
func (c *Client) Candidates(ctx context.Context, coords models.GeoCoordinates, limit int) ([]models.Candidate, error) {
	if err := coords.Validate(); err != nil {
		return nil, providers.NewProviderError(providers.ErrorInvalidInput, tierID, "coordinates rejected", err)
	}
	limit = ClampLimit(limit)

	q := url.Values{}
	q.Set("SRS", providers.SRSWGS84)
	q.Set("Coordenada_X", strconv.FormatFloat(coords.Lng, 'f', -1, 64))
	q.Set("Coordenada_Y", strconv.FormatFloat(coords.Lat, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, tierID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.transport.Do(ctx, tierID, c.timeout, req)
	if err != nil {
		return nil, err
	}
	var resp distanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, tierID, "malformed JSON response", err)
	}
	if resp.Result == nil {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, tierID, "response has no Consulta_RCCOOR_DistanciaResult", nil)
	}
	if perr := providers.FromRegistryErrors(tierID, resp.Result.Lerr); perr != nil {
		return nil, perr
	}

	var out []models.Candidate
	for _, group := range resp.Result.Distances.Coordd {
		for _, p := range group.LPCD {
			dist, err := p.Dis.Float()
			if err != nil {
				c.logger.DebugContext(ctx, "skipping candidate with unreadable distance", "distance", string(p.Dis))
				continue
			}
			out = append(out, models.Candidate{
				DistanceMeters:     dist,
				CadastralReference: p.PC.String(),
				Address:            p.LDT,
				Province:           providers.ProvinceFromLDT(p.LDT),
			})
		}
	}
	return Rank(out, limit), nil
}

// Rank orders candidates by distance (stable for ties), truncates to limit
// and numbers them from 1.
func Rank(candidates []models.Candidate, limit int) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Best picks the nearest candidate with a non-empty reference.
func Best(candidates []models.Candidate) (models.Candidate, bool) {
	var (
		best  models.Candidate
		found bool
	)
	for _, c := range candidates {
		if c.CadastralReference == "" {
			continue
		}
		if !found || c.DistanceMeters < best.DistanceMeters {
			best, found = c, true
		}
	}
	return best, found
}

// Resolve returns the best candidate as a single result, so the client can
// stand in wherever a Resolver is expected.
func (c *Client) Resolve(ctx context.Context, coords models.GeoCoordinates) (models.CadastralResult, error) {
	candidates, err := c.Candidates(ctx, coords, MaxLimit)
	if err != nil {
		return models.CadastralResult{}, err
	}
	best, ok := Best(candidates)
	if !ok {
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorNotFound, tierID, "no parcel near these coordinates", nil)
	}
	r := models.Success(models.SourceProximity, best.CadastralReference)
	r.Address = best.Address
	r.Province = best.Province
	return r, nil
}

// Health probes the endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.transport.Probe(ctx, tierID, c.url, c.timeout)
}
