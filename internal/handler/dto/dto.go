// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/linkrelay/linkrelay/internal/model"

// ErrorResponse is the error envelope of every JSON failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// VerifyResponse answers a successful token check.
type VerifyResponse struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// CreateDomainRequest is the body of POST /api/config/domains.
type CreateDomainRequest struct {
	Domain string `json:"domain"`
}

// DeleteDomainRequest is the body of POST /api/config/domains/delete.
type DeleteDomainRequest struct {
	ID string `json:"id"`
}

// DomainResponse wraps one domain config.
type DomainResponse struct {
	Domain model.DomainConfig `json:"domain"`
}

// DomainListResponse is the allow-list.
type DomainListResponse struct {
	Domains []model.DomainConfig `json:"domains"`
}

// SuccessResponse acknowledges a mutation with no payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}
