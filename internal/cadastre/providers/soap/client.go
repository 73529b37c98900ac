// Package soap queries the registry's SOAP coordinate service. Responses
// are read with namespace-agnostic XPath selectors because element
// namespaces and casing differ across registry versions.
package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"catastro/internal/cadastre/climate"
	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers"
)

const (
	// DefaultURL is the registry's SOAP coordinate service.
	DefaultURL = "https://ovc.catastro.meh.es/ovcservweb/OVCSWLocalizacionRC/OVCCoordenadas.asmx"
	// Action is the SOAPAction for a coordinate lookup.
	Action = "http://tempuri.org/OVCServWeb/OVCCoordenadas/Consulta_RCCOOR"
	// DefaultTimeout bounds one lookup.
	DefaultTimeout = 15 * time.Second

	serviceNamespace = "http://tempuri.org/OVCServWeb/OVCCoordenadas"
	envelopeNS       = "http://schemas.xmlsoap.org/soap/envelope/"
	tierID           = "soap"
)

// Client is the SOAP tier.
type Client struct {
	url        string
	timeout    time.Duration
	transport  *providers.Transport
	classifier *climate.Classifier
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the service endpoint.
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

// WithClassifier sets the table used to attach a climate zone from the
// returned province.
func WithClassifier(cl *climate.Classifier) Option {
	return func(c *Client) {
		if cl != nil {
			c.classifier = cl
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

// New builds the SOAP tier against the public registry endpoint.
func New(opts ...Option) *Client {
	c := &Client{
		url:        DefaultURL,
		timeout:    DefaultTimeout,
		classifier: climate.New(nil),
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

func (c *Client) Protocol() providers.Protocol { return providers.ProtocolSOAP }

type envelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Request request `xml:"Consulta_RCCOOR"`
	} `xml:"soap:Body"`
}

type request struct {
	XMLNS string `xml:"xmlns,attr"`
	SRS   string `xml:"SRS"`
	X     string `xml:"Coordenada_X"`
	Y     string `xml:"Coordenada_Y"`
}

// Envelope renders the request body for coords.
func Envelope(coords models.GeoCoordinates) ([]byte, error) {
	env := envelope{SoapNS: envelopeNS}
	env.Body.Request = request{
		XMLNS: serviceNamespace,
		SRS:   providers.SRSWGS84,
		X:     strconv.FormatFloat(coords.Lng, 'f', -1, 64),
		Y:     strconv.FormatFloat(coords.Lat, 'f', -1, 64),
	}
	out, err := xml.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// Resolve posts a coordinate lookup and parses the reply.
func (c *Client) Resolve(ctx context.Context, coords models.GeoCoordinates) (models.CadastralResult, error) {
	if err := coords.Validate(); err != nil {
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorInvalidInput, tierID, "coordinates rejected", err)
	}

	payload, err := Envelope(coords)
	if err != nil {
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorInternal, tierID, "encode envelope", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorInternal, tierID, "build request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+Action+`"`)

	body, err := c.transport.Do(ctx, tierID, c.timeout, req)
	if err != nil {
		return models.CadastralResult{}, err
	}
	return c.parse(ctx, body)
}

// Health probes the service endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.transport.Probe(ctx, tierID, c.url, c.timeout)
}

func (c *Client) parse(ctx context.Context, body []byte) (models.CadastralResult, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		c.logger.DebugContext(ctx, "undecodable registry response", "tier", tierID, "bytes", len(body))
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorBadData, tierID, "malformed XML response", err)
	}

	if fault := firstText(doc, "faultstring"); fault != "" || xmlquery.FindOne(doc, below("Fault")) != nil {
		if fault == "" {
			fault = "SOAP fault"
		}
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorProviderOutage, tierID, fault, nil)
	}

	if errs := registryErrors(doc); len(errs) > 0 {
		return models.CadastralResult{}, providers.FromRegistryErrors(tierID, errs)
	}

	ref := providers.ParcelRef{
		PC1: firstText(doc, "pc1", "PC1"),
		PC2: firstText(doc, "pc2", "PC2"),
	}.String()
	if ref == "" {
		if xmlquery.FindOne(doc, below("Consulta_RCCOORResponse", "Consulta_RCCOORResult", "consulta_coordenadas", "control")) == nil {
			return models.CadastralResult{}, providers.NewProviderError(providers.ErrorContractMismatch, tierID, "response has no coordinate result", nil)
		}
		return models.CadastralResult{}, providers.NewProviderError(providers.ErrorNotFound, tierID, "no cadastral reference at these coordinates", nil)
	}

	r := models.Success(models.SourceSOAP, ref)
	r.Address = firstText(doc, "ldt", "LDT")
	r.Province = providers.ProvinceFromLDT(r.Address)
	if r.Province != "" {
		if zone := c.classifier.Classify(r.Province); zone != climate.NotAvailable {
			r.ClimateZone = zone
		}
	}
	return r, nil
}

// anyOf builds a step matching elements named any of names regardless of
// namespace prefix.
func anyOf(names ...string) string {
	preds := make([]string, len(names))
	for i, n := range names {
		preds[i] = "local-name()='" + n + "'"
	}
	return "*[" + strings.Join(preds, " or ") + "]"
}

// below selects descendants of the context node matching any of names.
func below(names ...string) string {
	return ".//" + anyOf(names...)
}

func firstText(doc *xmlquery.Node, names ...string) string {
	if n := xmlquery.FindOne(doc, below(names...)); n != nil {
		return strings.TrimSpace(n.InnerText())
	}
	return ""
}

func registryErrors(doc *xmlquery.Node) []providers.RegistryError {
	var out []providers.RegistryError
	for _, n := range xmlquery.Find(doc, below("lerr")+"//"+anyOf("err")) {
		out = append(out, providers.RegistryError{
			Code:        providers.FlexString(firstText(n, "cod")),
			Description: firstText(n, "des"),
		})
	}
	return out
}
