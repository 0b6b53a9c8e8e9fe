package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

// encodeAlertMetadata validates that the metadata variant matches the
// alert type and serializes it. New alert kinds add a case here.
func encodeAlertMetadata(input ports.AlertCreate) (string, time.Time, error) {
	switch input.Type {
	case ports.AlertTypeHighRiskPR:
		if input.HighRiskPR == nil {
			return "", time.Time{}, fmt.Errorf("alert type %s requires a HighRiskPR snapshot", input.Type)
		}
		raw, err := json.Marshal(input.HighRiskPR)
		if err != nil {
			return "", time.Time{}, errs.Wrap(err, "marshal alert metadata")
		}
		return string(raw), time.Now().UTC(), nil
	default:
		return "", time.Time{}, fmt.Errorf("unsupported alert type %q", input.Type)
	}
}
