// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"fmt"
	"os"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(aterr.ExitCode(err))
	}
}
