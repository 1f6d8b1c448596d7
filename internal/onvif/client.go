// Package onvif implements the SOAP-over-HTTP control protocol for ONVIF
// cameras: WS-Discovery probing, WS-Security digest authentication, stream
// URI resolution, PTZ, and time synchronization.
package onvif

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/camarr/camarr/internal/config"
	"github.com/camarr/camarr/internal/models"
)

// Device addresses one ONVIF endpoint. XAddr is the device-service URL
// stored on the camera row; credentials may be empty.
type Device struct {
	XAddr string
	User  string
	Pass  string `masq:"secret"`
}

// Client talks SOAP to ONVIF devices. Cameras routinely present self-signed
// certificates, so TLS verification is disabled.
type Client struct {
	http      *http.Client
	discovery discoveryConfig
	logger    *slog.Logger
	nowFn     func() time.Time
	nonceFn   func() [16]byte
}

type discoveryConfig struct {
	timeout     time.Duration
	concurrency int
}

// NewClient creates a Client from configuration.
func NewClient(cfg config.OnvifConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http: &http.Client{
			Timeout: cfg.SoapTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		},
		discovery: discoveryConfig{
			timeout:     cfg.DiscoveryTimeout,
			concurrency: cfg.DiscoveryConcurrency,
		},
		logger:  logger,
		nowFn:   time.Now,
		nonceFn: randomNonce,
	}
}

func randomNonce() [16]byte {
	var nonce [16]byte
	_, _ = rand.Read(nonce[:])
	return nonce
}

// createdFormat is the WS-Security Created timestamp layout. The digest is
// computed over these exact ASCII bytes, so the format is fixed.
const createdFormat = "2006-01-02T15:04:05.000Z"

// passwordDigest computes base64(SHA1(nonce_raw || created_ascii || password)).
func passwordDigest(nonceRaw []byte, created, password string) string {
	h := sha1.New()
	h.Write(nonceRaw)
	h.Write([]byte(created))
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// securityHeader renders the WS-Security UsernameToken header.
func (c *Client) securityHeader(user, pass string) string {
	nonceRaw := c.nonceFn()
	created := c.nowFn().UTC().Format(createdFormat)
	return securityHeaderWith(user, pass, nonceRaw[:], created)
}

func securityHeaderWith(user, pass string, nonceRaw []byte, created string) string {
	nonce := base64.StdEncoding.EncodeToString(nonceRaw)
	digest := passwordDigest(nonceRaw, created, pass)
	return fmt.Sprintf(`<wsse:Security xmlns:wsse="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd" xmlns:wsu="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd">
      <wsse:UsernameToken wsu:Id="UsernameToken-1">
        <wsse:Username>%s</wsse:Username>
        <wsse:Password Type="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordDigest">%s</wsse:Password>
        <wsse:Nonce EncodingType="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary">%s</wsse:Nonce>
        <wsu:Created>%s</wsu:Created>
      </wsse:UsernameToken>
    </wsse:Security>`, user, digest, nonce, created)
}

// buildEnvelope wraps a body in a SOAP 1.2 envelope. The security header is
// present only when a username is configured.
func (c *Client) buildEnvelope(user, pass, body string) string {
	header := ""
	if user != "" {
		header = c.securityHeader(user, pass)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Header>
    %s
  </s:Header>
  <s:Body xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">
    %s
  </s:Body>
</s:Envelope>`, header, body)
}

// soapCall posts an envelope to endpoint and returns the response body text.
// An HTTP error status is a protocol failure; SOAP faults hidden behind a
// 2xx are the caller's concern since some operations tolerate them.
func (c *Client) soapCall(ctx context.Context, endpoint, action, user, pass, body string) (string, error) {
	envelope := c.buildEnvelope(user, pass, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(envelope))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %w", models.ErrProtocolFailure, err)
	}
	req.Header.Set("Content-Type",
		fmt.Sprintf(`application/soap+xml; charset=utf-8; action="%s"`, action))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrProtocolFailure, action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", models.ErrProtocolFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return string(data), fmt.Errorf("%w: %s returned HTTP %d", models.ErrProtocolFailure, action, resp.StatusCode)
	}
	return string(data), nil
}
