package model

import "rfpdesk/api/internal/apperr"

type Attachment struct {
	ID          string `json:"id"`
	RFPID       string `json:"rfpId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
	ObjectKey   string `json:"objectKey"`
	UploadedBy  string `json:"uploadedBy,omitempty"`
	UploadedAt  string `json:"uploadedAt"`
}

func (a Attachment) Validate() error {
	if a.FileName == "" {
		return apperr.Validation("file name is required")
	}
	if a.Size < 0 {
		return apperr.Validation("size must not be negative")
	}
	return nil
}
