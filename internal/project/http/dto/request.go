// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"regexp"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/envie/internal/validation"
)

// configItemNameRegex matches environment-variable style names.
var configItemNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SetConfigItemRequest creates or replaces one named config value. The value
// arrives sealed under the project key; the server never sees plaintext.
type SetConfigItemRequest struct {
	ValueCiphertext string `json:"value_ciphertext" binding:"required"`
}

// Validate checks if the set config item request is valid.
func (r *SetConfigItemRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ValueCiphertext, validation.Required, customValidation.Base64),
	)
}

// ValidateConfigItemName checks a config item name from the URL path.
func ValidateConfigItemName(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.Length(1, 255),
		validation.Match(configItemNameRegex).Error("must be an environment-variable style name"),
	)
}

// CreateFileRequest records a new encrypted file. Only the wrapped file key
// and metadata are stored; the content lives elsewhere.
type CreateFileRequest struct {
	Name             string `json:"name" binding:"required"`
	SizeBytes        int64  `json:"size_bytes" binding:"required"`
	EncryptedFileKey string `json:"encrypted_file_key" binding:"required"`
}

// Validate checks if the create file request is valid.
func (r *CreateFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255), customValidation.NotBlank),
		validation.Field(&r.SizeBytes, validation.Required, validation.Min(1)),
		validation.Field(&r.EncryptedFileKey, validation.Required, customValidation.Base64),
	)
}
