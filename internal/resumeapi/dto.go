package resumeapi

import (
	"time"

	"resume-pipeline/internal/resumes"
)

// ResumeResponse is the outward-facing representation of a resume record.
type ResumeResponse struct {
	ResumeID         string    `json:"resumeId"`
	OwnerID          int64     `json:"ownerId"`
	Title            string    `json:"title"`
	Format           string    `json:"format"`
	OriginalFilename string    `json:"originalFilename,omitempty"`
	Visibility       string    `json:"visibility"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toResponse(res resumes.Resume) ResumeResponse {
	return ResumeResponse{
		ResumeID:         res.ID,
		OwnerID:          res.OwnerID,
		Title:            res.Title,
		Format:           string(res.Format),
		OriginalFilename: res.OriginalFilename,
		Visibility:       string(res.Visibility),
		Status:           string(res.Status),
		CreatedAt:        res.CreatedAt,
		UpdatedAt:        res.UpdatedAt,
	}
}

// TaskResponse acknowledges a queued pipeline task.
type TaskResponse struct {
	ResumeID  string `json:"resumeId"`
	Task      string `json:"task"`
	Status    string `json:"status"`
	RequestID string `json:"requestId,omitempty"`
}

type matchRequest struct {
	Skills []string `json:"skills" binding:"required"`
}
