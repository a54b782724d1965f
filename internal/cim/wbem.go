package cim

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"smiscope/internal/domain"
)

// CIM status codes that mean the class is not available on this target
const (
	cimErrNotSupported = 7
	cimErrInvalidClass = 5
	cimErrInvalidNS    = 3
)

// DefaultWBEMTimeout bounds a single CIM-XML exchange
const DefaultWBEMTimeout = 60 * time.Second

// CIMError is a CIM status returned by the server
type CIMError struct {
	Code        int
	Description string
}

func (e *CIMError) Error() string {
	return fmt.Sprintf("CIM error %d: %s", e.Code, e.Description)
}

// DialContextFunc opens the TCP connection used for WBEM requests
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// WBEMClient enumerates instances over CIM-XML/HTTP
type WBEMClient struct {
	endpoint  string
	namespace string
	username  string
	password  string

	timeout            time.Duration
	insecureSkipVerify bool
	dial               DialContextFunc
	httpClient         *http.Client
	logger             *slog.Logger

	messageID atomic.Uint64
}

// WBEMOption is a functional option for configuring WBEMClient
type WBEMOption func(*WBEMClient)

// WithCredentials sets HTTP basic credentials from a wbem_basic secret
func WithCredentials(secret *domain.Secret) WBEMOption {
	return func(c *WBEMClient) {
		if secret == nil {
			return
		}
		c.username = secret.Username()
		c.password = secret.Data["password"]
	}
}

// WithWBEMTimeout sets the per-request timeout
func WithWBEMTimeout(d time.Duration) WBEMOption {
	return func(c *WBEMClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithInsecureSkipVerify disables TLS verification; most arrays ship self-signed certificates
func WithInsecureSkipVerify(skip bool) WBEMOption {
	return func(c *WBEMClient) {
		c.insecureSkipVerify = skip
	}
}

// WithDialer routes connections through dial (e.g. an SSH tunnel)
func WithDialer(dial DialContextFunc) WBEMOption {
	return func(c *WBEMClient) {
		c.dial = dial
	}
}

// WithHTTPClient replaces the HTTP client entirely
func WithHTTPClient(hc *http.Client) WBEMOption {
	return func(c *WBEMClient) {
		c.httpClient = hc
	}
}

// WithWBEMLogger sets the logger
func WithWBEMLogger(logger *slog.Logger) WBEMOption {
	return func(c *WBEMClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewWBEMClient creates a client for endpoint (https://array:5989) and namespace (root/cimv2)
func NewWBEMClient(endpoint, namespace string, opts ...WBEMOption) (*WBEMClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid WBEM endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid WBEM endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/cimom"
	}
	if namespace == "" {
		namespace = "root/cimv2"
	}

	c := &WBEMClient{
		endpoint:  u.String(),
		namespace: strings.Trim(namespace, "/"),
		timeout:   DefaultWBEMTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		transport := &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: c.insecureSkipVerify}, //nolint:gosec // self-signed array certificates
			TLSHandshakeTimeout: 15 * time.Second,
			MaxIdleConnsPerHost: DefaultMaxConcurrentQueries,
		}
		if c.dial != nil {
			transport.DialContext = c.dial
		}
		c.httpClient = &http.Client{Transport: transport, Timeout: c.timeout}
	}
	return c, nil
}

// Namespace returns the namespace queries run against
func (c *WBEMClient) Namespace() string {
	return c.namespace
}

// InNamespace returns a client sharing the connection pool but querying another namespace
func (c *WBEMClient) InNamespace(namespace string) *WBEMClient {
	return &WBEMClient{
		endpoint:   c.endpoint,
		namespace:  strings.Trim(namespace, "/"),
		username:   c.username,
		password:   c.password,
		timeout:    c.timeout,
		dial:       c.dial,
		httpClient: c.httpClient,
		logger:     c.logger,
	}
}

// Query implements QueryProvider with EnumerateInstances (deep inheritance)
func (c *WBEMClient) Query(ctx context.Context, className string) ([]domain.RawEntityRecord, error) {
	return c.EnumerateInstances(ctx, className)
}

// EnumerateInstances returns all instances of className in the client's namespace
func (c *WBEMClient) EnumerateInstances(ctx context.Context, className string) ([]domain.RawEntityRecord, error) {
	id := c.messageID.Add(1)
	body, err := buildEnumerateInstances(id, c.namespace, className)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", `application/xml; charset="utf-8"`)
	req.Header.Set("CIMProtocolVersion", "1.0")
	req.Header.Set("CIMOperation", "MethodCall")
	req.Header.Set("CIMMethod", "EnumerateInstances")
	req.Header.Set("CIMObject", url.QueryEscape(c.namespace))
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wbemRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("EnumerateInstances %s: %w", className, err)
	}
	defer resp.Body.Close()
	wbemRequestsTotal.WithLabelValues(fmt.Sprintf("%dxx", resp.StatusCode/100)).Inc()

	if resp.StatusCode != http.StatusOK {
		// Some CIMOMs signal errors in headers only
		if code := resp.Header.Get("CIMStatusCode"); code != "" {
			var n int
			if _, scanErr := fmt.Sscanf(code, "%d", &n); scanErr == nil {
				return nil, classifyCIMError(className, &CIMError{Code: n, Description: resp.Header.Get("CIMStatusCodeDescription")})
			}
		}
		return nil, fmt.Errorf("EnumerateInstances %s: HTTP %d", className, resp.StatusCode)
	}

	var doc cimDocument
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 256<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("EnumerateInstances %s: failed to decode response: %w", className, err)
	}
	if doc.Message.Response == nil {
		return nil, fmt.Errorf("EnumerateInstances %s: response has no SIMPLERSP", className)
	}

	method := doc.Message.Response.IMethodResponse
	if method.Error != nil {
		return nil, classifyCIMError(className, &CIMError{Code: method.Error.Code, Description: method.Error.Description})
	}
	if method.ReturnValue == nil {
		return nil, nil
	}

	records := make([]domain.RawEntityRecord, 0, len(method.ReturnValue.NamedInstances))
	for i := range method.ReturnValue.NamedInstances {
		records = append(records, method.ReturnValue.NamedInstances[i].toRecord(className))
	}
	wbemInstances.Observe(float64(len(records)))

	c.logger.Debug("enumerated instances", "class", className, "namespace", c.namespace, "count", len(records))
	return records, nil
}

func classifyCIMError(className string, e *CIMError) error {
	switch e.Code {
	case cimErrNotSupported, cimErrInvalidClass, cimErrInvalidNS:
		return fmt.Errorf("%s: %w (%s)", className, ErrClassNotSupported, e.Error())
	}
	return fmt.Errorf("EnumerateInstances %s: %w", className, e)
}

func buildEnumerateInstances(id uint64, namespace, className string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<CIM CIMVERSION="2.0" DTDVERSION="2.0">`)
	fmt.Fprintf(&buf, `<MESSAGE ID="%d" PROTOCOLVERSION="1.0"><SIMPLEREQ>`, id)
	buf.WriteString(`<IMETHODCALL NAME="EnumerateInstances"><LOCALNAMESPACEPATH>`)
	for _, part := range strings.Split(namespace, "/") {
		if part == "" {
			continue
		}
		buf.WriteString(`<NAMESPACE NAME="`)
		if err := xml.EscapeText(&buf, []byte(part)); err != nil {
			return nil, err
		}
		buf.WriteString(`"/>`)
	}
	buf.WriteString(`</LOCALNAMESPACEPATH>`)
	buf.WriteString(`<IPARAMVALUE NAME="ClassName"><CLASSNAME NAME="`)
	if err := xml.EscapeText(&buf, []byte(className)); err != nil {
		return nil, err
	}
	buf.WriteString(`"/></IPARAMVALUE>`)
	buf.WriteString(`<IPARAMVALUE NAME="DeepInheritance"><VALUE>TRUE</VALUE></IPARAMVALUE>`)
	buf.WriteString(`<IPARAMVALUE NAME="LocalOnly"><VALUE>FALSE</VALUE></IPARAMVALUE>`)
	buf.WriteString(`<IPARAMVALUE NAME="IncludeQualifiers"><VALUE>FALSE</VALUE></IPARAMVALUE>`)
	buf.WriteString(`</IMETHODCALL></SIMPLEREQ></MESSAGE></CIM>`)
	return buf.Bytes(), nil
}
