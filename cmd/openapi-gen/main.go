// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Command openapi-gen writes the OpenAPI document of the atelier HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atelier-dev/atelier/internal/alignment"
	"github.com/atelier-dev/atelier/internal/coherence"
	"github.com/atelier-dev/atelier/internal/server"
	"github.com/atelier-dev/atelier/internal/store/memory"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec builds a server over an empty in-memory store and extracts the
// OpenAPI document huma derives from the route types.
func generateSpec() ([]byte, error) {
	st := memory.New(0)
	al, err := alignment.NewEngine(st, alignment.DefaultConfig(), nil)
	if err != nil {
		return nil, err
	}
	co, err := coherence.NewAnalyzer(st, coherence.DefaultConfig(), nil)
	if err != nil {
		return nil, err
	}
	svc, err := server.NewServices(st, al, co)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, svc)
	if err != nil {
		return nil, aterr.Errorf(aterr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
