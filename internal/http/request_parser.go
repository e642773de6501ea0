// Package http serves the monitoring dashboard and the record management
// endpoints behind it.
//
// This file holds the helpers that turn query strings, path values and
// request bodies into service inputs.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

var (
	errInvalidID     = errors.New("invalid id")
	errInvalidMonth  = errors.New("invalid month")
	errBodyTooLarge  = errors.New("request body too large")
	errMissingUpload = errors.New("missing upload")
)

// ParseFilterParams reads the year and month query values of the dashboard.
// Both are optional. year accepts "all"; month accepts 1-12 or an Indonesian
// month name.
func ParseFilterParams(query url.Values) (core.Filter, error) {
	var f core.Filter

	year, _, err := core.ParseYearParam(query.Get("year"))
	if err != nil {
		return core.Filter{}, err
	}
	f.Year = year

	if v := strings.TrimSpace(query.Get("month")); v != "" && !strings.EqualFold(v, "all") {
		if m, err := strconv.Atoi(v); err == nil {
			if m < 1 || m > 12 {
				return core.Filter{}, errInvalidMonth
			}
			f.Month = m
		} else {
			m := core.MonthOrdinal(core.NormalizeMonthName(v))
			if m == core.UnknownMonthOrdinal {
				return core.Filter{}, errInvalidMonth
			}
			f.Month = m
		}
	}
	return f, nil
}

// pathID reads a positive numeric path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// RequestBodyParser reads a JSON object, a JSON array of objects or a
// form-encoded body. Values come back as sanitized strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	jsonList    []map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to limit bytes.
func NewRequestBodyParser(r *http.Request, limit int64) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if limit <= 0 {
		limit = 1 << 20
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, limit+1))
	if p.err == nil && int64(len(p.body)) > limit {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	switch body[0] {
	case '{':
		p.jsonData = make(map[string]interface{})
		p.err = json.Unmarshal([]byte(body), &p.jsonData)
	case '[':
		p.err = json.Unmarshal([]byte(body), &p.jsonList)
	default:
		p.formData, p.err = url.ParseQuery(body)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Bool reads checkbox style values: "1", "true", "on", "yes".
func (p *RequestBodyParser) Bool(key string) bool {
	return parseBool(p.Get(key))
}

// Items returns each object of a JSON array body with sanitized string values.
func (p *RequestBodyParser) Items() []map[string]string {
	out := make([]map[string]string, 0, len(p.jsonList))
	for _, obj := range p.jsonList {
		item := make(map[string]string, len(obj))
		for k, v := range obj {
			item[k] = sanitizeInput(stringValue(v))
		}
		out = append(out, item)
	}
	return out
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil || p.jsonList != nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// stringValue converts a decoded JSON value to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}
