package mask

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Marker replaces every value stored under a sensitive key.
const Marker = "***REDACTED***"

// ErrInvalidDocument reports a custom sensitive-fields document that does not
// match the expected shape. It is the only fatal condition in this package;
// every other failure is resolved by conservative redaction.
var ErrInvalidDocument = errors.New("invalid sensitive fields document")

// Document is the external sensitive-fields configuration shape:
//
//	{
//	  "version": "1",
//	  "description": "...",
//	  "categories": { "authentication": ["password"], "custom": ["apiToken"] },
//	  "fieldPatterns": ["secret"]
//	}
type Document struct {
	Version       string              `json:"version"`
	Description   string              `json:"description"`
	Categories    map[string][]string `json:"categories"`
	FieldPatterns []string            `json:"fieldPatterns"`
}

// Baseline compliance field set. The merge with a custom document is additive
// only: nothing may remove a baseline field.
var baselineCategories = map[string][]string{
	"authentication": {
		"password", "passwd", "secret", "token", "access_token", "refresh_token",
		"api_key", "apikey", "authorization", "client_secret", "session_token",
		"credential", "credentials", "otp", "backup_code", "jwt",
	},
	"pii": {
		"ssn", "social_security_number", "national_id", "passport_number",
		"drivers_license", "date_of_birth", "dob", "tax_id", "email", "phone",
		"phone_number", "home_address",
	},
	"financial": {
		"credit_card", "card_number", "cvv", "cvc", "iban", "account_number",
		"routing_number", "swift_code", "bank_account",
	},
	"security": {
		"private_key", "encryption_key", "signing_key", "mfa_secret",
		"totp_secret", "recovery_code", "security_answer", "password_hash",
		"salt",
	},
}

var baselinePatterns = []string{
	"password", "secret", "token", "api_key", "apikey", "credential",
	"private_key", "authorization",
}

// Registry answers a single predicate: is this field name sensitive. Field
// matching is case-insensitive exact match against the merged category sets,
// or case-insensitive substring match against the merged pattern list.
//
// Registry instances are immutable after construction and safe for
// concurrent use.
type Registry struct {
	fields     map[string]struct{}
	patterns   []string
	categories map[string][]string
}

// LoadRegistry builds a Registry from the baseline merged with the document
// at path. An empty path yields the baseline alone. An unreadable file or a
// malformed document is fatal and reported synchronously; this is the caller's
// one chance to catch misconfiguration at startup.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return NewRegistry(doc), nil
}

// ParseDocument decodes and shape-checks a custom sensitive-fields document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(doc.Categories) == 0 && len(doc.FieldPatterns) == 0 {
		return nil, fmt.Errorf("%w: no categories or field patterns", ErrInvalidDocument)
	}
	for name, fields := range doc.Categories {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: empty category name", ErrInvalidDocument)
		}
		for _, f := range fields {
			if strings.TrimSpace(f) == "" {
				return nil, fmt.Errorf("%w: empty field name in category %q", ErrInvalidDocument, name)
			}
		}
	}
	return &doc, nil
}

// NewRegistry merges custom into the baseline. For each category present in
// custom its field list is unioned into the corresponding baseline category,
// creating new categories if unseen; pattern lists are unioned. Duplicate
// field names collapse case-insensitively to one entry.
func NewRegistry(custom *Document) *Registry {
	categories := make(map[string][]string, len(baselineCategories)+4)
	for cat, names := range baselineCategories {
		categories[cat] = append([]string(nil), names...)
	}
	patterns := append([]string(nil), baselinePatterns...)

	if custom != nil {
		for cat, names := range custom.Categories {
			categories[cat] = append(categories[cat], names...)
		}
		patterns = append(patterns, custom.FieldPatterns...)
	}

	fields := make(map[string]struct{}, 96)
	for _, names := range categories {
		for _, name := range names {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" {
				fields[name] = struct{}{}
			}
		}
	}

	seen := make(map[string]struct{}, len(patterns))
	deduped := patterns[:0]
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		deduped = append(deduped, p)
	}

	return &Registry{
		fields:     fields,
		patterns:   deduped,
		categories: categories,
	}
}

// IsSensitive reports whether field names a sensitive value.
func (r *Registry) IsSensitive(field string) bool {
	if r == nil {
		return false
	}
	name := strings.ToLower(strings.TrimSpace(field))
	if name == "" {
		return false
	}
	if _, ok := r.fields[name]; ok {
		return true
	}
	for _, p := range r.patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Fields returns the merged sensitive field names, sorted. Intended for
// introspection and tests.
func (r *Registry) Fields() []string {
	out := make([]string, 0, len(r.fields))
	for name := range r.fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Categories returns a copy of the merged category view.
func (r *Registry) Categories() map[string][]string {
	out := make(map[string][]string, len(r.categories))
	for cat, names := range r.categories {
		out[cat] = append([]string(nil), names...)
	}
	return out
}
