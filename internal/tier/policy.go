package tier

import "strings"

// Subscription tier names, lowest to highest.
const (
	Free    = "FREE"
	Basic   = "BASIC"
	Pro     = "PRO"
	Premium = "PREMIUM"
)

// Policy is the effective subscription policy applied to one request. The
// JSON tags match the payload cached in KV under tier:<apiKey>.
type Policy struct {
	Tier              string   `json:"tier"`
	RequestsPerMinute int      `json:"rateLimit"`
	CacheDuration     int      `json:"cacheDuration"` // seconds
	MaxReviews        int      `json:"maxReviews"`
	IsActive          bool     `json:"isActive"`
	AllowedDomains    []string `json:"allowedDomains"`
}

// DomainAllowed reports whether a referring domain may use this key. An
// entry of "*" allows everything; "*.example.com" matches any subdomain.
func (p Policy) DomainAllowed(domain string) bool {
	for _, allowed := range p.AllowedDomains {
		if allowed == "*" || allowed == domain {
			return true
		}
		if strings.HasPrefix(allowed, "*.") && strings.HasSuffix(domain, allowed[1:]) {
			return true
		}
	}
	return false
}

// Wildcard reports whether the policy places no domain restriction at all.
func (p Policy) Wildcard() bool {
	for _, allowed := range p.AllowedDomains {
		if allowed == "*" {
			return true
		}
	}
	return false
}

// TierFromKeyPrefix derives a tier from the shape of the credential itself.
// Issued keys embed their tier ("grw_pro_..."), which keeps widgets working
// when the database is unreachable.
func TierFromKeyPrefix(apiKey string) string {
	switch {
	case strings.HasPrefix(apiKey, "grw_premium_"):
		return Premium
	case strings.HasPrefix(apiKey, "grw_pro_"):
		return Pro
	case strings.HasPrefix(apiKey, "grw_basic_"):
		return Basic
	default:
		return Free
	}
}
