// Package media issues short-lived credentials that let browsers upload
// files straight to the media host.
package media

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured indicates the media host credentials are missing.
	ErrNotConfigured = errors.New("media host is not configured")
	// ErrMissingFileName indicates the signer needs the name of the file being uploaded.
	ErrMissingFileName = errors.New("fileName is required")
)

// UploadRequest describes the upload a client is about to perform.
type UploadRequest struct {
	FileName    string
	ContentType string
}

// UploadCredentials is returned to the client verbatim. ImageKit fills the
// token fields; presigning hosts fill the URL fields.
type UploadCredentials struct {
	Token       string `json:"token,omitempty"`
	Expire      int64  `json:"expire"`
	Signature   string `json:"signature,omitempty"`
	PublicKey   string `json:"publicKey,omitempty"`
	URLEndpoint string `json:"urlEndpoint,omitempty"`

	UploadURL string `json:"uploadUrl,omitempty"`
	Method    string `json:"method,omitempty"`
	Key       string `json:"key,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`
}

// Signer produces upload credentials for one media host.
type Signer interface {
	Sign(ctx context.Context, req UploadRequest) (UploadCredentials, error)
}
