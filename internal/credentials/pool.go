// Package credentials holds the ordered set of interchangeable provider credentials.
package credentials

import (
	"os"
	"sort"
	"strings"
)

// Credential is one account the extraction client can authenticate with.
// Exactly one of APIKey or CredentialsFile is normally set.
type Credential struct {
	Name            string
	APIKey          string
	CredentialsFile string
}

// Masked renders the credential for logs without exposing the secret.
func (c Credential) Masked() string {
	secret := c.APIKey
	if secret == "" {
		return c.Name + "(file)"
	}
	if len(secret) <= 4 {
		return c.Name + "(****)"
	}
	return c.Name + "(…" + secret[len(secret)-4:] + ")"
}

// Pool is an ordered, immutable list of credentials.
type Pool struct {
	creds []Credential
}

func New(creds ...Credential) *Pool {
	out := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if c.APIKey == "" && c.CredentialsFile == "" {
			continue
		}
		out = append(out, c)
	}
	return &Pool{creds: out}
}

// FromEnv collects every non-empty variable whose name starts with prefix, ordered by name.
// Variables named <prefix>..._FILE are treated as service-account credential files.
func FromEnv(prefix string) *Pool {
	return fromEnviron(os.Environ(), prefix)
}

func fromEnviron(environ []string, prefix string) *Pool {
	type kv struct{ k, v string }
	var found []kv
	for _, e := range environ {
		k, v, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(k, prefix) || strings.TrimSpace(v) == "" {
			continue
		}
		found = append(found, kv{k, strings.TrimSpace(v)})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].k < found[j].k })

	creds := make([]Credential, 0, len(found))
	for _, f := range found {
		if strings.HasSuffix(f.k, "_FILE") {
			creds = append(creds, Credential{Name: f.k, CredentialsFile: f.v})
			continue
		}
		creds = append(creds, Credential{Name: f.k, APIKey: f.v})
	}
	return New(creds...)
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.creds)
}

func (p *Pool) At(i int) Credential {
	return p.creds[i]
}

// Names lists the credential names in rotation order.
func (p *Pool) Names() []string {
	names := make([]string, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		names = append(names, p.creds[i].Name)
	}
	return names
}
