package wave

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/yourorg/wave-connector/internal/adapter/wave/aggregated"
	"github.com/yourorg/wave-connector/internal/monitor"
)

//go:embed metadata_schema.json
var metadataSchema string

var (
	metadataMonitor     *monitor.ContractMonitor
	metadataMonitorErr  error
	metadataMonitorOnce sync.Once
)

func getMetadataMonitor() (*monitor.ContractMonitor, error) {
	metadataMonitorOnce.Do(func() {
		metadataMonitor, metadataMonitorErr = monitor.NewContractMonitorFromString(metadataSchema)
	})
	return metadataMonitor, metadataMonitorErr
}

// ParseMetadata reads the connector metadata blob attached to the account.
// An absent, null, ill-typed or undecodable blob yields nil; only the last two are logged.
// Field rules (id format, lengths, mutual exclusion) are checked later by the resolver.
func ParseMetadata(raw json.RawMessage, logger *zap.Logger) *aggregated.Metadata {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	cm, err := getMetadataMonitor()
	if err != nil {
		logger.Error("connector metadata schema unavailable", zap.Error(err))
		return nil
	}
	valid, violations, err := cm.Validate(trimmed)
	if err != nil {
		logger.Warn("connector metadata is not valid JSON, ignoring it", zap.Error(err))
		return nil
	}
	if !valid {
		logger.Warn("connector metadata does not match its schema, ignoring it",
			zap.String("violations", monitor.FormatErrors(violations)))
		return nil
	}

	var md aggregated.Metadata
	if err := json.Unmarshal(trimmed, &md); err != nil {
		logger.Warn("connector metadata could not be decoded, ignoring it", zap.Error(err))
		return nil
	}
	return &md
}
