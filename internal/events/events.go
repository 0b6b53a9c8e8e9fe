// Package events defines the wire shapes published on the "events"
// channel and re-emitted verbatim to live dashboard clients. Clients
// treat them as refresh signals, not as the source of truth.
package events

import "time"

const (
	Channel = "events"

	TypePRUpdated = "PR_UPDATED"
	TypeNewAlert  = "NEW_ALERT"
)

type PRUpdated struct {
	Type      string    `json:"type"`
	PRID      string    `json:"prId"`
	RepoID    string    `json:"repoId"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	RiskScore float64   `json:"riskScore"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPRUpdated(prID, repoID string, number int, title string, riskScore float64, at time.Time) PRUpdated {
	return PRUpdated{
		Type:      TypePRUpdated,
		PRID:      prID,
		RepoID:    repoID,
		Number:    number,
		Title:     title,
		RiskScore: riskScore,
		Timestamp: at,
	}
}

type NewAlert struct {
	Type      string    `json:"type"`
	AlertType string    `json:"alertType"`
	PRNumber  int       `json:"prNumber"`
	PRTitle   string    `json:"prTitle"`
	RiskScore float64   `json:"riskScore"`
	RepoID    string    `json:"repoId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNewAlert(alertType string, prNumber int, prTitle string, riskScore float64, repoID string, at time.Time) NewAlert {
	return NewAlert{
		Type:      TypeNewAlert,
		AlertType: alertType,
		PRNumber:  prNumber,
		PRTitle:   prTitle,
		RiskScore: riskScore,
		RepoID:    repoID,
		Timestamp: at,
	}
}
