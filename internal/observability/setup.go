package observability

import (
	"context"

	"github.com/honeynil/PaymentLedgerService/internal/config"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/observability"
)

func Setup(cfg *config.Config) func(context.Context) error {
	observability.InitLogger(cfg.LogLevel)
	observability.InitMetrics()
	return observability.InitTracing(cfg.ServiceName, cfg.OTLPEndpoint)
}
