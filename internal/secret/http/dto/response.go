package dto

import (
	"time"

	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
)

// SecretResponse is the value-free representation of a secret version.
type SecretResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Version    int        `json:"version"`
	Status     string     `json:"status"`
	Healthy    bool       `json:"healthy"`
	UseCount   int64      `json:"use_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	GraceUntil *time.Time `json:"grace_until,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// ListSecretsResponse wraps the secret list.
type ListSecretsResponse struct {
	Data []SecretResponse `json:"data"`
}

// MapSecretsToListResponse converts status views to a list response.
func MapSecretsToListResponse(views []secretDomain.SecretStatusView) ListSecretsResponse {
	data := make([]SecretResponse, 0, len(views))
	for _, view := range views {
		data = append(data, SecretResponse{
			ID:         view.ID,
			Type:       string(view.Type),
			Version:    view.Version,
			Status:     string(view.Status),
			Healthy:    view.Healthy,
			UseCount:   view.UseCount,
			LastUsedAt: view.LastUsedAt,
			CreatedAt:  view.CreatedAt,
			ExpiresAt:  view.ExpiresAt,
			GraceUntil: view.GraceUntil,
			RevokedAt:  view.RevokedAt,
		})
	}
	return ListSecretsResponse{Data: data}
}

// RotationNeedResponse reports how urgently a type needs rotating.
type RotationNeedResponse struct {
	Type    string `json:"type"`
	Needed  bool   `json:"needed"`
	Urgency string `json:"urgency"`
	Reason  string `json:"reason"`
}

// MapRotationNeedToResponse converts a rotation need to a response.
func MapRotationNeedToResponse(need *secretDomain.RotationNeed) RotationNeedResponse {
	return RotationNeedResponse{
		Type:    string(need.Type),
		Needed:  need.Needed,
		Urgency: string(need.Urgency),
		Reason:  need.Reason,
	}
}

// RotationResultResponse describes a completed rotation.
type RotationResultResponse struct {
	Type        string     `json:"type"`
	NewVersion  int        `json:"new_version"`
	NewSecretID string     `json:"new_secret_id"`
	PreviousID  string     `json:"previous_id,omitempty"`
	GraceUntil  *time.Time `json:"grace_until,omitempty"`
	RotatedAt   time.Time  `json:"rotated_at"`
	Reason      string     `json:"reason"`
}

// MapRotationResultToResponse converts a rotation result to a response.
func MapRotationResultToResponse(result *secretDomain.RotationResult) RotationResultResponse {
	return RotationResultResponse{
		Type:        string(result.Type),
		NewVersion:  result.NewVersion,
		NewSecretID: result.NewSecretID,
		PreviousID:  result.PreviousID,
		GraceUntil:  result.GraceUntil,
		RotatedAt:   result.RotatedAt,
		Reason:      result.Reason,
	}
}

// HealthIssueResponse names one unhealthy secret.
type HealthIssueResponse struct {
	SecretID string `json:"secret_id"`
	Problem  string `json:"problem"`
}

// HealthReportResponse summarizes a health check pass.
type HealthReportResponse struct {
	HealthyCount   int                   `json:"healthy_count"`
	UnhealthyCount int                   `json:"unhealthy_count"`
	Issues         []HealthIssueResponse `json:"issues"`
	CheckedAt      time.Time             `json:"checked_at"`
}

// MapHealthReportToResponse converts a health report to a response.
func MapHealthReportToResponse(report *secretDomain.HealthReport) HealthReportResponse {
	issues := make([]HealthIssueResponse, 0, len(report.Issues))
	for _, issue := range report.Issues {
		issues = append(issues, HealthIssueResponse{SecretID: issue.SecretID, Problem: issue.Problem})
	}
	return HealthReportResponse{
		HealthyCount:   report.HealthyCount,
		UnhealthyCount: report.UnhealthyCount,
		Issues:         issues,
		CheckedAt:      report.CheckedAt,
	}
}
