// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentflow-gateway/gateway/gateway"
	"github.com/agentflow-gateway/gateway/gwconfig"
)

func main() {
	cfg := gwconfig.Config{}
	if path := os.Getenv("GATEWAY_CONFIG_FILE"); path != "" {
		loaded, err := gwconfig.LoadFile(path)
		if err != nil {
			log.Fatalf("gatewayd: loading config file %s: %v", path, err)
		}
		cfg = loaded
		log.Printf("gatewayd: loaded config from %s", path)
	} else {
		log.Println("gatewayd: GATEWAY_CONFIG_FILE not set, starting with an empty configuration")
	}

	mgr := gwconfig.NewManager(cfg)
	g, err := gateway.NewWithRegisterer(mgr, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("gatewayd: building gateway: %v", err)
	}

	if key := os.Getenv("GATEWAY_JWT_VERIFY_KEY"); key != "" {
		g.JWTVerifyKey = []byte(key)
		log.Println("gatewayd: JWT-refined inline credential detection enabled")
	}

	go watchConfig(mgr, g)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("gatewayd listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, g.NewServer()))
}

// watchConfig re-applies the config manager's hot-reload contract (§4.M)
// every time a mutation is published, so admin operations against mgr take
// effect without a restart.
func watchConfig(mgr *gwconfig.Manager, g *gateway.Gateway) {
	ch, unsubscribe := mgr.Watch()
	defer unsubscribe()
	for range ch {
		if err := g.ReloadFromConfig(); err != nil {
			log.Printf("gatewayd: config reload failed: %v", err)
		}
	}
}
