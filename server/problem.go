package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

const problemTypeBase = "https://smartedify.global/problems/"

// Problem is an RFC 7807 problem response. ErrorCode carries the OAuth2
// error code as an extension member so token-endpoint clients can branch on
// it without parsing the title.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	ErrorCode string `json:"error,omitempty"`
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	writeOAuthProblem(w, r, status, title, detail, "")
}

func writeOAuthProblem(w http.ResponseWriter, r *http.Request, status int, title, detail, errorCode string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:      problemType(errorCode, status),
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  r.Method + " " + r.URL.Path,
		ErrorCode: errorCode,
	})
}

// problemType returns the stable URI for the error category. OAuth errors
// are categorized by their error code; everything else falls back to the
// status text so the URI stays meaningful for non-OAuth endpoints.
func problemType(errorCode string, status int) string {
	category := errorCode
	if category == "" {
		category = strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "-")
	}
	return problemTypeBase + category
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
