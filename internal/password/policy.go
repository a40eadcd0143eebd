// Package password implements the credential hashing and strength policy:
// argon2id hashes in PHC string format, constant-time verification with
// bcrypt support for legacy hashes, rehash detection on parameter drift,
// and configurable strength validation.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Params are the argon2id cost parameters recorded inside each hash, so
// NeedsRehash can detect when stored hashes fall behind current policy.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams matches the interactive-login cost profile.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Time:        1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Requirements are the configurable strength rules. MinLength always
// applies; the boolean toggles switch individual character classes on.
type Requirements struct {
	MinLength int
	Uppercase bool
	Lowercase bool
	Digit     bool
	Special   bool
}

// ValidationError carries the list of violated strength rules. It is the
// one expected-failure path that surfaces as an error, because a weak new
// password is caller-correctable input, not a security-sensitive outcome.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "password does not meet requirements: " + strings.Join(e.Violations, "; ")
}

// Policy hashes and verifies passwords and validates their strength.
type Policy struct {
	params Params
	reqs   Requirements

	dummyOnce sync.Once
	dummyHash string
}

// New creates a Policy with the given cost parameters and strength rules.
func New(params Params, reqs Requirements) *Policy {
	return &Policy{params: params, reqs: reqs}
}

// Default returns a Policy with DefaultParams and the default rules:
// minimum 8 characters, uppercase/lowercase/digit required.
func Default() *Policy {
	return New(DefaultParams, Requirements{
		MinLength: 8,
		Uppercase: true,
		Lowercase: true,
		Digit:     true,
	})
}

// Hash derives an argon2id hash of the password with a fresh random salt
// and returns it in PHC string format, e.g.
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// When the configured parameters are unusable (zero memory or key length),
// it falls back to bcrypt rather than refusing to hash.
func (p *Policy) Hash(password string) (string, error) {
	if p.params.Memory == 0 || p.params.KeyLength == 0 {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt fallback: %w", err)
		}
		return string(h), nil
	}

	salt := make([]byte, p.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt generation: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.params.Time, p.params.Memory, p.params.Parallelism, p.params.KeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.params.Memory, p.params.Time, p.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	return encoded, nil
}

// Verify reports whether password matches the stored hash. The comparison
// of derived keys is constant-time. Both argon2id (PHC format) and bcrypt
// ("$2...") hashes are accepted; anything else verifies false.
func (p *Policy) Verify(password, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		params, salt, key, err := decodeArgon2id(encoded)
		if err != nil {
			return false
		}
		candidate := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Parallelism, uint32(len(key)))
		return subtle.ConstantTimeCompare(candidate, key) == 1
	case strings.HasPrefix(encoded, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether the stored hash is stale relative to the
// current policy: a legacy bcrypt hash, an unparseable value, or an
// argon2id hash whose recorded parameters differ from the configured ones.
func (p *Policy) NeedsRehash(encoded string) bool {
	if !strings.HasPrefix(encoded, "$argon2id$") {
		return true
	}
	params, salt, key, err := decodeArgon2id(encoded)
	if err != nil {
		return true
	}
	return params.Memory != p.params.Memory ||
		params.Time != p.params.Time ||
		params.Parallelism != p.params.Parallelism ||
		uint32(len(salt)) != p.params.SaltLength ||
		uint32(len(key)) != p.params.KeyLength
}

// DummyHash returns a fixed placeholder hash used to equalize response
// timing when the username does not exist: the authenticator verifies the
// submitted password against this hash so both paths pay the same cost.
func (p *Policy) DummyHash() string {
	p.dummyOnce.Do(func() {
		h, err := p.Hash("placeholder-credential-for-timing")
		if err != nil {
			// crypto/rand failed; a static bcrypt hash keeps the cost real.
			h = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
		}
		p.dummyHash = h
	})
	return p.dummyHash
}

// ValidationErrors returns the list of strength rules the password
// violates. An empty list means the password is acceptable. Errors are
// returned as data, not raised, so callers choose severity.
func (p *Policy) ValidationErrors(password string) []string {
	var violations []string

	if len(password) < p.reqs.MinLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", p.reqs.MinLength))
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	if p.reqs.Uppercase && !upper {
		violations = append(violations, "must contain an uppercase letter")
	}
	if p.reqs.Lowercase && !lower {
		violations = append(violations, "must contain a lowercase letter")
	}
	if p.reqs.Digit && !digit {
		violations = append(violations, "must contain a digit")
	}
	if p.reqs.Special && !special {
		violations = append(violations, "must contain a special character")
	}

	return violations
}

// MeetsRequirements reports whether the password passes every rule.
func (p *Policy) MeetsRequirements(password string) bool {
	return len(p.ValidationErrors(password)) == 0
}

// Validate returns a *ValidationError listing the violated rules, or nil
// when the password is acceptable. Used at reset-consume time where a
// failure must surface the specific violations.
func (p *Policy) Validate(password string) error {
	violations := p.ValidationErrors(password)
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func decodeArgon2id(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, fmt.Errorf("malformed argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, fmt.Errorf("malformed version: %w", err)
	}
	if version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var params Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Parallelism); err != nil {
		return Params{}, nil, nil, fmt.Errorf("malformed parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("malformed salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("malformed key: %w", err)
	}

	return params, salt, key, nil
}
