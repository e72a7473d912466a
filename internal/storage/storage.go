// Package storage provides AuditSink implementations: Postgres for real
// deployments, console for local runs. The sink is append-only; balances
// live in the ledger substrate, never here.
package storage

import (
	"github.com/ravenmarkets/raven-engine/internal/engine"
)

// Compile-time interface checks.
var (
	_ engine.AuditSink = (*PostgresStorage)(nil)
	_ engine.AuditSink = (*ConsoleStorage)(nil)
)
