package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// OpenFile opens path as an upload, guessing the MIME type from the extension.
// The caller closes the returned file.
func OpenFile(path string) (*File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return &File{
		Name:    filepath.Base(path),
		MIME:    mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Content: f,
	}, f, nil
}

// form accumulates a multipart body. The first error sticks.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) file(field string, file *File, fallbackMIME string) {
	if f.err != nil {
		return
	}
	contentType := file.MIME
	if contentType == "" {
		contentType = fallbackMIME
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.Name))
	h.Set("Content-Type", contentType)
	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = io.Copy(part, file.Content)
}

func (f *form) request(method, path string) (request, error) {
	if f.err != nil {
		return request{}, fmt.Errorf("encode %s %s: %w", method, path, f.err)
	}
	if err := f.w.Close(); err != nil {
		return request{}, fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	return request{method: method, path: path, body: &f.buf, contentType: f.w.FormDataContentType()}, nil
}
