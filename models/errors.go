package models

import "fmt"

// ErrorNotFound is returned for unknown ids and slugs.
type ErrorNotFound struct {
	Resource string
	Key      interface{}
}

func (e ErrorNotFound) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.Key)
}

// AccessDenied explains a refused read without carrying any article body.
type AccessDenied struct {
	Visibility             Visibility `json:"visibility"`
	AllowedDivisionNames   []string   `json:"allowed_division_names"`
	AllowedDepartmentNames []string   `json:"allowed_department_names"`
}

type ErrorForbidden struct {
	Message string
	Denied  *AccessDenied
}

func (e ErrorForbidden) Error() string {
	if e.Message == "" {
		return "forbidden"
	}
	return e.Message
}

// ErrorValidation carries a field -> messages map. Nothing is written when
// it is returned.
type ErrorValidation struct {
	Fields map[string][]string
}

func (e ErrorValidation) Error() string {
	return "validation failed"
}

func NewValidationError(field, message string) ErrorValidation {
	return ErrorValidation{Fields: map[string][]string{field: {message}}}
}

func (e ErrorValidation) Add(field, message string) ErrorValidation {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

func (e ErrorValidation) Empty() bool {
	return len(e.Fields) == 0
}

type ErrorConflict struct {
	Message string
}

func (e ErrorConflict) Error() string {
	return e.Message
}

type ErrorUnauthorized struct {
	Message string
}

func (e ErrorUnauthorized) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

type ErrorInternalServer struct {
	Err error
}

func (e ErrorInternalServer) Error() string {
	return "internal server error"
}

func (e ErrorInternalServer) Unwrap() error {
	return e.Err
}
