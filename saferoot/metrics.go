package saferoot

import "github.com/ethereum/go-ethereum/metrics"

var (
	safeguardAddedMeter   = metrics.NewRegisteredMeter("saferoot/safeguard/added", nil)
	sweepTransferredMeter = metrics.NewRegisteredMeter("saferoot/sweep/transferred", nil)
	sweepSkippedMeter     = metrics.NewRegisteredMeter("saferoot/sweep/skipped", nil)
	sweepUnknownMeter     = metrics.NewRegisteredMeter("saferoot/sweep/unknown", nil)
)
