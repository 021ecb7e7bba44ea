package weberr

import "errors"

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

// WithResponse sets the body and status the client receives for err.
func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches log fields to err.
func WithFields(fields map[string]interface{}) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

// Response returns the outermost response set on err.
func Response(err error) (body interface{}, status int, ok bool) {
	var re *responseError
	if errors.As(err, &re) {
		return re.body, re.status, true
	}
	return nil, 0, false
}

// Fields collects the log fields of every wrapper in the chain. Outer
// fields win over inner ones with the same key.
func Fields(err error) (fields map[string]interface{}, ok bool) {
	for err != nil {
		var fe *fieldsError
		if !errors.As(err, &fe) {
			break
		}

		if fields == nil {
			fields = make(map[string]interface{}, len(fe.fields))
		}
		for k, v := range fe.fields {
			if _, seen := fields[k]; !seen {
				fields[k] = v
			}
		}
		err = fe.error
	}
	return fields, fields != nil
}

type responseError struct {
	error
	body   interface{}
	status int
}

func (e *responseError) Unwrap() error { return e.error }

type fieldsError struct {
	error
	fields map[string]interface{}
}

func (e *fieldsError) Unwrap() error { return e.error }
