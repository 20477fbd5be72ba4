package domain

import "time"

type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OrgID     string    `json:"org_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UpdateDocumentRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content"`
}

type CreateDocumentRequest struct {
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content"`
}
