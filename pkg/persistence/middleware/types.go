package middleware

import "github.com/aretw0/tessera/pkg/ports"

// StoreMiddleware allows wrapping a ScriptStore to add behavior.
type StoreMiddleware func(ports.ScriptStore) ports.ScriptStore

// SinkMiddleware allows wrapping a ReportSink to add behavior.
type SinkMiddleware func(ports.ReportSink) ports.ReportSink
