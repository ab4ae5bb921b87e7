package ux

import (
	"bytes"
	"strings"
	"testing"
)

type whoami struct {
	Email string   `json:"email" yaml:"email"`
	Roles []string `json:"roles" yaml:"roles"`
}

type statusLine struct{ phase string }

func (s statusLine) Text() string { return "phase: " + s.phase + "\n" }

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"json format", "json", false},
		{"yaml format", "yaml", false},
		{"yml alias", "yml", false},
		{"upper case", "JSON", false},
		{"text format", "text", false},
		{"empty format defaults to text", "", false},
		{"unknown format", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormatter(tt.format, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	if err := formatter.Format(whoami{Email: "ada@example.com", Roles: []string{"admin"}}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"email": "ada@example.com"`) {
		t.Errorf("JSON output missing email: %s", output)
	}
	if !strings.Contains(output, `"admin"`) {
		t.Errorf("JSON output missing role: %s", output)
	}
}

func TestJSONFormatterCompact(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	if err := formatter.Format(whoami{Email: "ada@example.com"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Count(buf.String(), "\n") > 1 {
		t.Errorf("compact JSON should be single line, got: %s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	if err := formatter.Format(whoami{Email: "ada@example.com", Roles: []string{"inspector"}}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "email: ada@example.com") {
		t.Errorf("YAML output missing email: %s", output)
	}
	if !strings.Contains(output, "- inspector") {
		t.Errorf("YAML output missing role: %s", output)
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		data    any
		want    string
		wantErr bool
	}{
		{name: "string", data: "signed out", want: "signed out"},
		{name: "texter", data: statusLine{phase: "ready"}, want: "phase: ready"},
		{name: "lines", data: []string{"users.view", "users.manage"}, want: "users.view\nusers.manage"},
		{name: "sorted map", data: map[string]string{"timeout": "10s", "api_url": "http://x"}, want: "api_url: http://x\ntimeout: 10s"},
		{name: "bool", data: true, want: "true"},
		{name: "struct", data: whoami{Email: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter, err := NewFormatter("text", &FormatterOptions{Writer: &buf})
			if err != nil {
				t.Fatalf("NewFormatter() error = %v", err)
			}

			err = formatter.Format(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Format() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if got := strings.TrimSpace(buf.String()); got != tt.want {
					t.Errorf("Format() output = %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestTextFormatterEmptySlicePrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	formatter, _ := NewFormatter("text", &FormatterOptions{Writer: &buf})
	if err := formatter.Format([]string{}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
