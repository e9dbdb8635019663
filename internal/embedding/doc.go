// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Package embedding defines the fixed-dimension vector carried by every
// context record, the similarity functions used to compare vectors, and the
// little-endian float32 encoding used when vectors are persisted.
package embedding
