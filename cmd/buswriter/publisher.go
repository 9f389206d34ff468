package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/AndrewSilver/buswriter/internal/adapters/beats"
	httpadapter "github.com/AndrewSilver/buswriter/internal/adapters/http"
	"github.com/AndrewSilver/buswriter/internal/adapters/metrics"
	"github.com/AndrewSilver/buswriter/internal/adapters/retry"
	"github.com/AndrewSilver/buswriter/internal/adapters/stream"
	"github.com/AndrewSilver/buswriter/internal/cliconfig"
	"github.com/AndrewSilver/buswriter/internal/ports"
	"github.com/AndrewSilver/buswriter/pkg/log"
)

// publisherChain is transport -> retry -> metrics, plus the closer of the
// transport if it holds a resource.
type publisherChain struct {
	*metrics.Publisher
	closer io.Closer
}

func (c *publisherChain) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func newPublisher(cfg cliconfig.Config, logger log.Logger) (*publisherChain, error) {
	var (
		base   ports.Publisher
		closer io.Closer
	)

	switch cfg.Publisher {
	case cliconfig.PublisherStdout:
		base = stream.NewPublisher(os.Stdout)
	case cliconfig.PublisherFile:
		p, err := stream.OpenFile(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		base, closer = p, p
	case cliconfig.PublisherHTTP:
		base = httpadapter.NewPublisher(&http.Client{Timeout: cfg.HTTPTimeout}, httpadapter.Config{
			ServiceURL: cfg.ServiceURL,
			AuthKey:    cfg.AuthKey,
			Gzip:       cfg.Gzip,
		}, logger)
	case cliconfig.PublisherBeats:
		p, err := beats.Dial(beats.Config{
			Address:          cfg.BeatsAddr,
			CompressionLevel: cfg.BeatsCompression,
			Timeout:          cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		base, closer = p, p
	default:
		return nil, fmt.Errorf("unknown publisher %q", cfg.Publisher)
	}

	if cfg.RetryAttempts > 1 {
		base = retry.New(base, retry.Config{
			Attempts: cfg.RetryAttempts,
			Initial:  cfg.RetryInitial,
			Max:      cfg.RetryMax,
		}, logger)
	}

	logger.Debug("publisher ready",
		log.String("kind", cfg.Publisher),
		log.Int("retry_attempts", cfg.RetryAttempts),
	)
	return &publisherChain{Publisher: metrics.New(base), closer: closer}, nil
}

var _ ports.Publisher = (*publisherChain)(nil)
