package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Form accumulates fields and file parts for a multipart request body. The
// zero value is not usable; construct with NewForm.
type Form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

// NewForm creates an empty multipart form.
func NewForm() *Form {
	f := &Form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// AddField appends a plain form field. Errors are deferred to encode time
// so call sites can chain additions without per-call checks.
func (f *Form) AddField(name, value string) *Form {
	if f.err != nil {
		return f
	}
	if err := f.w.WriteField(name, value); err != nil {
		f.err = fmt.Errorf("api: add form field %q: %w", name, err)
	}
	return f
}

// AddFile appends a file part read from r.
func (f *Form) AddFile(fieldName, fileName string, r io.Reader) *Form {
	if f.err != nil {
		return f
	}
	part, err := f.w.CreateFormFile(fieldName, fileName)
	if err != nil {
		f.err = fmt.Errorf("api: add form file %q: %w", fieldName, err)
		return f
	}
	if _, err := io.Copy(part, r); err != nil {
		f.err = fmt.Errorf("api: copy form file %q: %w", fieldName, err)
	}
	return f
}

// encode finalizes the form and returns the body bytes plus the
// boundary-carrying content type.
func (f *Form) encode() ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("api: finalize multipart form: %w", err)
	}
	return f.buf.Bytes(), f.w.FormDataContentType(), nil
}
