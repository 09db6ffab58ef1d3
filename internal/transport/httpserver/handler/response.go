package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const (
	contentTypeForm      = "application/x-www-form-urlencoded"
	contentTypeMultipart = "multipart/form-data"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// formCaller reports whether the request was posted by an HTML form and
// expects to be redirected rather than answered with JSON.
func formCaller(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return false
	}
	switch mediaType(r) {
	case contentTypeForm, contentTypeMultipart:
		return true
	default:
		return false
	}
}

// done answers a successful mutation: JSON for API callers, a redirect with
// ?message= for form callers.
func (h *Handlers) done(w http.ResponseWriter, r *http.Request, status int, payload interface{}, message string) {
	if formCaller(r) {
		redirectBack(w, r, "message", message)
		return
	}
	writeJSON(w, status, payload)
}

// fail logs err and answers with its classified status.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error, args ...any) {
	h.reject(w, r, h.logFailure(r, op, err, args...))
}

func (h *Handlers) reject(w http.ResponseWriter, r *http.Request, f failure) {
	if formCaller(r) {
		redirectBack(w, r, "error", f.message)
		return
	}
	writeError(w, f.status, f.code, f.message)
}

func redirectBack(w http.ResponseWriter, r *http.Request, key, text string) {
	target, err := url.Parse(redirectTarget(r))
	if err != nil {
		target = &url.URL{Path: "/"}
	}
	query := target.Query()
	query.Del("message")
	query.Del("error")
	query.Set(key, text)
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}

// redirectTarget picks the redirect form field, then the referring page,
// then the site root. Only same-site paths are followed.
func redirectTarget(r *http.Request) string {
	_ = parseForm(r)
	if target := localPath(r.PostForm.Get("redirect")); target != "" {
		return target
	}
	if referer := r.Referer(); referer != "" {
		parsed, err := url.Parse(referer)
		if err == nil && (parsed.Host == "" || parsed.Host == r.Host) {
			if target := localPath(parsed.RequestURI()); target != "" {
				return target
			}
		}
	}
	return "/"
}

func localPath(value string) string {
	if !strings.HasPrefix(value, "/") || strings.HasPrefix(value, "//") || strings.HasPrefix(value, "/\\") {
		return ""
	}
	return value
}

func mediaType(r *http.Request) string {
	value := r.Header.Get("Content-Type")
	if value == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return parsed
}
