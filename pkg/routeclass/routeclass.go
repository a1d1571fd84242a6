// Package routeclass decides, per inbound path, whether a caller may reach
// it without the internal gateway credential.
//
// The decision is a pure function of the path over a rule table. Rules are
// evaluated in a fixed order:
//
//  1. exact public paths
//  2. public prefixes followed by exactly one segment
//  3. bases whose trailing segment is always an external identifier
//  4. bases whose trailing segment is either a capability token or an
//     internal identifier; internal identifiers are protected
//
// Everything else is protected. Realtime upgrade requests are public only
// when listed in PublicRealtime.
//
// Paths are classified in their escaped form. Any percent-encoding is
// treated as malformed, so an encoded slash can never make a nested route
// read as a public one.
package routeclass

import (
	"path"
	"strings"

	"github.com/aussiebroadwan/quill/pkg/idx"
)

// Rules is the data behind a Classifier. Paths are absolute and carry no
// trailing slash, except PublicPrefixes which end in one.
type Rules struct {
	PublicExact       []string
	PublicPrefixes    []string
	AlwaysPublicBases []string
	TokenOrIDBases    []string
	PublicRealtime    []string
}

// Rule names reported by Classify.
const (
	RuleExact        = "exact"
	RulePrefix       = "prefix"
	RuleAlwaysPublic = "always_public"
	RuleToken        = "token"
	RuleIdentifier   = "identifier"
	RuleRealtime     = "realtime"
	RuleMalformed    = "malformed"
	RuleDefault      = "default"
)

// Decision is the outcome of classifying one path.
type Decision struct {
	Public bool
	Rule   string
}

type Classifier struct {
	exact        map[string]struct{}
	realtime     map[string]struct{}
	prefixes     []string
	alwaysPublic []string
	tokenOrID    []string

	// IsIdentifier reports whether a segment is a structured internal
	// identifier. Defaults to idx.IsStructured.
	IsIdentifier func(string) bool
}

func New(r Rules) *Classifier {
	c := &Classifier{
		exact:        toSet(r.PublicExact),
		realtime:     toSet(r.PublicRealtime),
		prefixes:     append([]string(nil), r.PublicPrefixes...),
		alwaysPublic: append([]string(nil), r.AlwaysPublicBases...),
		tokenOrID:    append([]string(nil), r.TokenOrIDBases...),
		IsIdentifier: idx.IsStructured,
	}
	return c
}

// IsPublic reports whether p may be served without the gateway credential.
func (c *Classifier) IsPublic(p string, isRealtimeUpgrade bool) bool {
	return c.Classify(p, isRealtimeUpgrade).Public
}

// Classify is IsPublic with the name of the deciding rule, for logs and metrics.
func (c *Classifier) Classify(p string, isRealtimeUpgrade bool) Decision {
	p = trimTrailingSlash(p)

	// Dot segments, doubled slashes, escapes and relative paths could route
	// differently from how they read here.
	if p == "" || p[0] != '/' || path.Clean(p) != p || strings.ContainsRune(p, '%') {
		return Decision{Public: false, Rule: RuleMalformed}
	}

	if isRealtimeUpgrade {
		_, ok := c.realtime[p]
		return Decision{Public: ok, Rule: RuleRealtime}
	}

	if _, ok := c.exact[p]; ok {
		return Decision{Public: true, Rule: RuleExact}
	}

	for _, prefix := range c.prefixes {
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			return Decision{Public: true, Rule: RulePrefix}
		}
	}

	for _, base := range c.alwaysPublic {
		if _, ok := singleSegment(p, base); ok {
			return Decision{Public: true, Rule: RuleAlwaysPublic}
		}
	}

	for _, base := range c.tokenOrID {
		seg, ok := firstSegment(p, base)
		if !ok {
			continue
		}
		if c.IsIdentifier(seg) {
			return Decision{Public: false, Rule: RuleIdentifier}
		}
		// Only the bare token form is public; anything nested under a
		// token is not a signer-facing route.
		if _, single := singleSegment(p, base); single {
			return Decision{Public: true, Rule: RuleToken}
		}
		return Decision{Public: false, Rule: RuleDefault}
	}

	return Decision{Public: false, Rule: RuleDefault}
}

// firstSegment returns the first path segment after base, if any.
func firstSegment(p, base string) (string, bool) {
	rest, ok := strings.CutPrefix(p, base+"/")
	if !ok || rest == "" {
		return "", false
	}
	seg, _, _ := strings.Cut(rest, "/")
	return seg, seg != ""
}

// singleSegment matches base/{seg} exactly.
func singleSegment(p, base string) (string, bool) {
	rest, ok := strings.CutPrefix(p, base+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func trimTrailingSlash(p string) string {
	if len(p) > 1 {
		return strings.TrimSuffix(p, "/")
	}
	return p
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}
