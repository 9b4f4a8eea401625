// Command facilitator runs the Hedera x402 facilitator HTTP service.
//
// Configuration comes from the environment:
//
//	FACILITATOR_ACCOUNT_ID   fee-payer account id (e.g., 0.0.1234)
//	FACILITATOR_PRIVATE_KEY  fee-payer private key
//	FACILITATOR_LISTEN_ADDR  listen address (default :8402)
package main

import (
	"log"

	"go.uber.org/zap"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/httpapi"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg := hederax402.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("facilitator misconfigured", zap.Error(err))
	}

	server := httpapi.NewServer(cfg, logger)
	if err := server.Run(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
