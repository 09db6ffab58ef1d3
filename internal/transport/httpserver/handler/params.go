package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	maxBodyBytes  = 1 << 20
	maxFormMemory = 1 << 20
)

var errInvalidNumber = errors.New("invalid number")

// amountField accepts a JSON number or a string, so JSON clients and form
// posts hand the same text to decimal parsing.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*a = amountField(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*a = amountField(number.String())
	return nil
}

func (a amountField) String() string {
	return string(a)
}

// decodeBody reads a JSON object or form fields into dst. JSON bodies must
// not carry unknown fields; extra form fields such as redirect are ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	switch mediaType(r) {
	case contentTypeForm, contentTypeMultipart:
		if err := parseForm(r); err != nil {
			return err
		}
		fields := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			fields[key] = r.PostForm.Get(key)
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dst)
	default:
		return decodeJSON(r, dst)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func parseForm(r *http.Request) error {
	if r.PostForm != nil {
		return nil
	}
	if mediaType(r) == contentTypeMultipart {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

func parseOptionalInt(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, errInvalidNumber
	}
	return &parsed, nil
}
