package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Payload is an encoded request body.
type Payload struct {
	Body        []byte
	ContentType string
	Multipart   bool
}

// Reader returns the body as an io.Reader.
func (p Payload) Reader() io.Reader {
	return bytes.NewReader(p.Body)
}

// Encode builds the request body. The whole payload is multipart when any
// file field carries content and JSON otherwise; the two are never mixed.
func Encode(fields []Field) (Payload, error) {
	for _, field := range fields {
		if field.hasFile() {
			return encodeMultipart(fields)
		}
	}
	return encodeJSON(fields)
}

// Values returns the JSON object the fields encode to. Checkboxes become
// booleans; checked array checkboxes contribute their value.
func Values(fields []Field) map[string]any {
	out := make(map[string]any)
	for _, field := range fields {
		if field.Name == "" || field.Kind == FieldFile {
			continue
		}
		if field.IsArray() {
			base := field.BaseName()
			list, _ := out[base].([]any)
			if list == nil {
				list = []any{}
			}
			if field.Kind == FieldCheckbox {
				if field.Checked {
					list = append(list, field.Value)
				}
			} else {
				list = append(list, field.Value)
			}
			out[base] = list
			continue
		}
		if field.Kind == FieldCheckbox {
			out[field.Name] = field.Checked
			continue
		}
		out[field.Name] = field.Value
	}
	return out
}

func encodeJSON(fields []Field) (Payload, error) {
	data, err := json.Marshal(Values(fields))
	if err != nil {
		return Payload{}, fmt.Errorf("encode form: %w", err)
	}
	return Payload{Body: data, ContentType: "application/json"}, nil
}

func encodeMultipart(fields []Field) (Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		var err error
		switch field.Kind {
		case FieldFile:
			if field.hasFile() {
				err = writeFile(w, field)
			}
		case FieldCheckbox:
			switch {
			case field.IsArray() && field.Checked:
				err = w.WriteField(field.Name, field.Value)
			case field.IsArray():
			case field.Checked:
				err = w.WriteField(field.Name, "1")
			default:
				err = w.WriteField(field.Name, "0")
			}
		default:
			err = w.WriteField(field.Name, field.Value)
		}
		if err != nil {
			return Payload{}, fmt.Errorf("encode field %s: %w", field.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return Payload{}, fmt.Errorf("encode form: %w", err)
	}
	return Payload{Body: buf.Bytes(), ContentType: w.FormDataContentType(), Multipart: true}, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func writeFile(w *multipart.Writer, field Field) error {
	contentType := field.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field.Name), quoteEscaper.Replace(field.File.Filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(field.File.Data)
	return err
}
