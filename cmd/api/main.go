package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"glassbox_valuation/pkg/api/valuation"
)

// serverConfig is the optional config/server.yaml overlay. Environment
// variables win over the file.
type serverConfig struct {
	Addr string `yaml:"addr"`
}

func loadConfig() serverConfig {
	cfg := serverConfig{Addr: ":8080"}
	if data, err := os.ReadFile("config/server.yaml"); err == nil {
		yaml.Unmarshal(data, &cfg)
	}
	if addr := os.Getenv("VALUATION_API_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	return cfg
}

func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := loadConfig()
	valuation.InitHandler(logger)

	http.HandleFunc("/api/valuation/run", valuation.HandleRun)
	http.HandleFunc("/api/valuation/sotp", valuation.HandleSOTP)
	http.HandleFunc("/api/valuation/strategies", valuation.HandleStrategies)

	logger.Info("valuation API starting",
		zap.String("addr", cfg.Addr),
		zap.Strings("endpoints", []string{
			"POST /api/valuation/run",
			"POST /api/valuation/sotp",
			"GET  /api/valuation/strategies",
		}),
	)
	if err := http.ListenAndServe(cfg.Addr, nil); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
