// Package rest queries the registry's JSON endpoints: coordinate lookup
// (Consulta_RCCOOR) and street-address lookup (Consulta_DNPLOC).
package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers"
)

const (
	// DefaultURL is the registry's JSON coordinate lookup.
	DefaultURL = "https://ovc.catastro.meh.es/OVCServWeb/OVCWcfCallejero/COVCCoordenadas.svc/json/Consulta_RCCOOR"
	// DefaultAddressURL is the registry's JSON lookup by street address.
	DefaultAddressURL = "https://ovc.catastro.meh.es/OVCServWeb/OVCWcfCallejero/COVCCallejero.svc/json/Consulta_DNPLOC"
	// DefaultTimeout bounds one coordinate lookup.
	DefaultTimeout = 10 * time.Second

	tierID = "rest"
)

// Client is the REST tier.
type Client struct {
	url        string
	addressURL string
	timeout    time.Duration
	transport  *providers.Transport
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the coordinate endpoint.
func WithURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.url = u
		}
	}
}

// WithAddressURL overrides the street-address endpoint.
func WithAddressURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.addressURL = u
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

// New builds the REST tier against the public registry endpoints.
func New(opts ...Option) *Client {
	c := &Client{
		url:        DefaultURL,
		addressURL: DefaultAddressURL,
		timeout:    DefaultTimeout,
		logger:     slog.New(slog.DiscardHandler),
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

type coordinateResponse struct {
	Result *coordinateResult `json:"Consulta_RCCOORResult"`
}

type coordinateResult struct {
	Control struct {
		Cucoor int `json:"cucoor"`
		Cuerr  int `json:"cuerr"`
	} `json:"control"`
	Coordenadas struct {
		Coord providers.List[coordEntry] `json:"coord"`
	} `json:"coordenadas"`
	Lerr providers.List[providers.RegistryError] `json:"lerr"`
}

type coordEntry struct {
	PC  providers.ParcelRef `json:"pc"`
	LDT string              `json:"ldt"`
}

// Resolve looks up the parcel at coords. Out-of-territory coordinates are
// rejected before any request is sent.
func (c *Client) Resolve(ctx context.Context, coords models.GeoCoordinates) (models.CadastralResult, error) {
	if err := coords.Validate(); err != nil {
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorInvalidInput, tierID, "coordinates rejected", err)
	}

	q := url.Values{}
	q.Set("SRS", providers.SRSWGS84)
	q.Set("Coordenada_X", formatCoord(coords.Lng))
	q.Set("Coordenada_Y", formatCoord(coords.Lat))

	var resp coordinateResponse
	if err := c.getJSON(ctx, c.url, q, &resp); err != nil {
		return models.CadastralResult{}, err
	}
	if resp.Result == nil {
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorContractMismatch, tierID, "response has no Consulta_RCCOORResult", nil)
	}

	if perr := providers.FromRegistryErrors(tierID, resp.Result.Lerr); perr != nil {
		return models.CadastralResult{}, perr
	}
	for _, entry := range resp.Result.Coordenadas.Coord {
		if ref := entry.PC.String(); ref != "" {
			r := models.Success(models.SourceREST, ref)
			r.Address = entry.LDT
			r.Province = providers.ProvinceFromLDT(entry.LDT)
			return r, nil
		}
	}
	return models.CadastralResult{}, providers.NewProviderError(providers.ErrorNotFound, tierID, "no cadastral reference at these coordinates", nil)
}

type addressResponse struct {
	Result *addressResult `json:"Consulta_DNPLOCResult"`
}

type addressResult struct {
	Control struct {
		Cudnp int `json:"cudnp"`
		Cuerr int `json:"cuerr"`
	} `json:"control"`
	Bico struct {
		BI struct {
			IDBI struct {
				RC providers.ParcelRef `json:"rc"`
			} `json:"idbi"`
			LDT string `json:"ldt"`
		} `json:"bi"`
	} `json:"bico"`
	LRCDNP struct {
		RCDNP providers.List[unitEntry] `json:"rcdnp"`
	} `json:"lrcdnp"`
	Lerr providers.List[providers.RegistryError] `json:"lerr"`
}

type unitEntry struct {
	RC providers.ParcelRef `json:"rc"`
}

// ResolveAddress looks up a structured address. When the address holds
// several property units the first one is returned; all share the parcel.
func (c *Client) ResolveAddress(ctx context.Context, addr models.ParsedAddress) (models.CadastralResult, error) {
	if addr.RoadName == "" {
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorInvalidInput, tierID, "address has no street name", nil)
	}

	q := url.Values{}
	q.Set("Provincia", addr.Province)
	q.Set("Municipio", addr.Municipality)
	q.Set("Sigla", string(addr.RoadType))
	q.Set("Calle", addr.RoadName)
	q.Set("Numero", addr.Number)

	var resp addressResponse
	if err := c.getJSON(ctx, c.addressURL, q, &resp); err != nil {
		return models.CadastralResult{}, err
	}
	if resp.Result == nil {
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorContractMismatch, tierID, "response has no Consulta_DNPLOCResult", nil)
	}
	if perr := providers.FromRegistryErrors(tierID, resp.Result.Lerr); perr != nil {
		return models.CadastralResult{}, perr
	}

	if ref := resp.Result.Bico.BI.IDBI.RC.String(); ref != "" {
		r := models.Success(models.SourceREST, ref)
		r.Address = resp.Result.Bico.BI.LDT
		r.Province = providers.ProvinceFromLDT(r.Address)
		return r, nil
	}
	for _, unit := range resp.Result.LRCDNP.RCDNP {
		if ref := unit.RC.String(); ref != "" {
			return models.Success(models.SourceREST, ref), nil
		}
	}
	return models.CadastralResult{}, providers.NewProviderError(providers.ErrorNotFound, tierID, "no cadastral reference for this address", nil)
}

// Health probes the coordinate endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.transport.Probe(ctx, tierID, c.url, c.timeout)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return providers.NewProviderError(providers.ErrorInternal, tierID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.transport.Do(ctx, tierID, c.timeout, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.DebugContext(ctx, "undecodable registry response", "tier", tierID, "bytes", len(body))
		return providers.NewProviderError(providers.ErrorBadData, tierID, "malformed JSON response", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
