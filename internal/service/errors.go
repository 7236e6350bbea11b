/*
Copyright 2026.

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

package service

import (
	"errors"
	"fmt"
)

// Common service errors
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrConnectionFailed indicates a connection to the database failed
	ErrConnectionFailed = errors.New("connection failed")

	// ErrForbidden indicates the principal lacks a required permission
	ErrForbidden = errors.New("forbidden")

	// ErrNotImplemented indicates a declared but intentionally unimplemented operation
	ErrNotImplemented = errors.New("not implemented")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// DatabaseError wraps errors from remote DDL and query operations.
type DatabaseError struct {
	Operation string
	Resource  string
	Err       error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s on %s: %v", e.Operation, e.Resource, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError creates a new DatabaseError.
func NewDatabaseError(operation, resource string, err error) *DatabaseError {
	return &DatabaseError{
		Operation: operation,
		Resource:  resource,
		Err:       err,
	}
}

// ForbiddenError identifies the specific securable object a principal was
// not authorized to act on.
type ForbiddenError struct {
	AclKey     string
	Permission string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: missing %s on %s", e.Permission, e.AclKey)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// NewForbiddenError creates a ForbiddenError naming the unauthorized object.
func NewForbiddenError(aclKey, permission string) *ForbiddenError {
	return &ForbiddenError{AclKey: aclKey, Permission: permission}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsForbidden checks if an error is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
