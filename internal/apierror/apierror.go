/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	ErrDuplicateDocument  ErrorCode = "DUPLICATE_DOCUMENT"
	ErrUnrecognizedFormat ErrorCode = "UNRECOGNIZED_FORMAT"
	ErrExtractionFailure  ErrorCode = "EXTRACTION_FAILURE"
	ErrValidation         ErrorCode = "VALIDATION_ERROR"
	ErrInvalidState       ErrorCode = "INVALID_STATE"
	ErrAlreadyLinked      ErrorCode = "ALREADY_LINKED"
	ErrTypeMismatch       ErrorCode = "TYPE_MISMATCH"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RowViolation names a staging row that blocks a commit and the fields it is missing.
type RowViolation struct {
	RowID  string   `json:"row_id"`
	Fields []string `json:"fields"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause when Details carries an error.
func (e APIError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// DuplicateDocument reports that the uploaded bytes match an existing job.
func DuplicateDocument(existingJobID string) APIError {
	return APIError{
		Code:    ErrDuplicateDocument,
		Message: fmt.Sprintf("document already uploaded as job %s", existingJobID),
		Details: existingJobID,
	}
}

// CommitValidation lists the rows that prevent a job from being committed.
func CommitValidation(violations []RowViolation) APIError {
	return APIError{
		Code:    ErrValidation,
		Message: fmt.Sprintf("%d staging row(s) are not ready for commit", len(violations)),
		Details: violations,
	}
}

// IsCode reports whether err is, or wraps, an APIError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// ExistingJobID extracts the id of the original job from a duplicate document error.
func ExistingJobID(err error) (string, bool) {
	var apiErr APIError
	if !errors.As(err, &apiErr) || apiErr.Code != ErrDuplicateDocument {
		return "", false
	}
	id, ok := apiErr.Details.(string)
	return id, ok
}

// IsRecoverable reports whether the user can act on the error without operator help.
func IsRecoverable(err error) bool {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case ErrDuplicateDocument, ErrUnrecognizedFormat, ErrExtractionFailure:
		return true
	}
	return false
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrDuplicateDocument, ErrInvalidState, ErrAlreadyLinked:
			return http.StatusConflict
		case ErrInvalidInput, ErrBadRequest, ErrTypeMismatch:
			return http.StatusBadRequest
		case ErrValidation, ErrUnrecognizedFormat, ErrExtractionFailure:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
