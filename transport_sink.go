package warden

import (
	"context"

	"github.com/wardenhq/warden-go/internal/transport"
)

// TransportSink delivers masked entries to the controller's log-ingestion
// endpoint. It is the default sink in network mode.
type TransportSink struct {
	client *transport.Client
}

// NewTransportSink wraps an ingestion client built from [TransportConfig].
func NewTransportSink(client *transport.Client) *TransportSink {
	return &TransportSink{client: client}
}

func (s *TransportSink) Emit(ctx context.Context, entry Entry) error {
	return s.client.Send(ctx, entry)
}

func (s *TransportSink) EmitBatch(ctx context.Context, batch []Entry) error {
	return s.client.SendBatch(ctx, batch)
}

func newTransportSink(cfg TransportConfig) (*TransportSink, error) {
	client, err := transport.NewClient(transport.Config{
		BaseURL:      cfg.BaseURL,
		IngestPath:   cfg.IngestPath,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenTTL:     cfg.TokenTTL,
		Timeout:      cfg.Timeout,
		UserAgent:    "warden-go",
	})
	if err != nil {
		return nil, err
	}
	return NewTransportSink(client), nil
}
