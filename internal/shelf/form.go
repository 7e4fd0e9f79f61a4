package shelf

import (
	"errors"

	"github.com/booklog/booklog/pkg/bookapi"
)

// checkForm runs the shared request validators before anything is sent. A
// nil result means the server gets to decide.
func checkForm(req any) error {
	err := bookapi.Validate(req)
	if err == nil {
		return nil
	}
	var fields bookapi.ValidationErrors
	if errors.As(err, &fields) {
		return &FormError{Fields: fields}
	}
	return err
}

// FormError lists the fields that failed local validation.
type FormError struct {
	Fields bookapi.ValidationErrors
}

func (e *FormError) Error() string {
	return e.Fields.Error()
}

// CheckCreate validates a new book the way the server will.
func CheckCreate(req bookapi.CreateBookRequest) error {
	return checkForm(req)
}

// CheckUpdate validates a patch. A patch that changes nothing is allowed.
func CheckUpdate(req bookapi.UpdateBookRequest) error {
	return checkForm(req)
}

// CheckSignUp validates a registration form.
func CheckSignUp(req bookapi.SignUpRequest) error {
	return checkForm(req)
}
