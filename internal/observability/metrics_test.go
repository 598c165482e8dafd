package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordDMXPacket(5)
	RecordDMXDecodeError()
	RecordFrameForwarded(5)
	RecordFrameDiscarded(9, "wrong_universe")
	RecordRegistrationFailure()
	SetDutyCycle(42)
	RecordStateTransition("forward")
	RecordHTTPRequest("windmillctl", "GET", "/health", 200, 12*time.Millisecond)
}
