// Package trxid generates the opaque correlation id carried by every response.
//
// Format: prefix + environment tag (PRD or DEV) + ddMMyyyyHHmmss + five uppercase hex characters.
package trxid

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPrefix = "TID"
	suffixLength  = 5
	dateLayout    = "02012006150405"
)

type contextKey struct{}

// Generator builds transaction ids for one environment
type Generator struct {
	env string
	now func() time.Time
}

// NewGenerator creates a Generator; env "production" yields the PRD tag, anything else DEV
func NewGenerator(env string) *Generator {
	return &Generator{env: env, now: time.Now}
}

// New returns a fresh id with the given prefix
func (g *Generator) New(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	mode := "DEV"
	if g.env == "production" {
		mode = "PRD"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + mode + g.now().Format(dateLayout) + strings.ToUpper(random[:suffixLength])
}

// NewContext returns a copy of ctx carrying id
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the id stored in ctx, or "" when absent
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
