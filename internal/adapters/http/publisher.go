package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"

	"github.com/klauspost/compress/gzip"

	"github.com/AndrewSilver/buswriter/internal/ports"
	"github.com/AndrewSilver/buswriter/pkg/log"
)

const publishEndpoint = "/v1/publish"

// Config holds the HTTP publisher settings.
type Config struct {
	// ServiceURL is the base URL without trailing slash.
	ServiceURL string

	// AuthKey is sent as a bearer token when non-empty.
	AuthKey string

	// Gzip compresses request bodies.
	Gzip bool
}

// Publisher implements ports.Publisher by POSTing each payload.
type Publisher struct {
	client   ports.HTTPClient
	cfg      Config
	hostname string
	logger   log.Logger
}

// NewPublisher creates a new HTTP publisher.
func NewPublisher(client ports.HTTPClient, cfg Config, logger log.Logger) *Publisher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Publisher{
		client:   client,
		cfg:      cfg,
		hostname: host,
		logger:   logger,
	}
}

// Publish sends payload as the request body.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	body, err := p.encode(payload)
	if err != nil {
		return err
	}

	url := p.cfg.ServiceURL + publishEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/octet-stream")
	if p.cfg.Gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if p.cfg.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.AuthKey)
	}
	req.Header.Set("X-Agent-Hostname", p.hostname)
	req.Header.Set("X-Agent-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	p.logger.Debug("payload published",
		log.Int("bytes", len(payload)),
		log.Int("wire_bytes", len(body)),
	)
	return nil
}

func (p *Publisher) encode(payload []byte) ([]byte, error) {
	if !p.cfg.Gzip {
		return payload, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize gzip: %w", err)
	}
	return buf.Bytes(), nil
}

var _ ports.Publisher = (*Publisher)(nil)
