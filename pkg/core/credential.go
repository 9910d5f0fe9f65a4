package core

import (
	"fmt"
	"strings"
	"time"
)

// Scope is the audience a credential is minted for.
type Scope string

const (
	ScopePersonal Scope = "GIGACHAT_API_PERS"
	ScopeB2B      Scope = "GIGACHAT_API_B2B"
	ScopeCorp     Scope = "GIGACHAT_API_CORP"
)

// DefaultScope is used when no scope is configured.
const DefaultScope = ScopePersonal

// ParseScope accepts either the wire value or a short alias (pers, b2b, corp).
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "PERS", "PERSONAL", string(ScopePersonal):
		return ScopePersonal, nil
	case "B2B", string(ScopeB2B):
		return ScopeB2B, nil
	case "CORP", string(ScopeCorp):
		return ScopeCorp, nil
	}
	return "", fmt.Errorf("unknown token scope %q", s)
}

// Credential is a short-lived bearer credential.
// AccessToken is already in header form ("Bearer <token>").
type Credential struct {
	AccessToken string
	Scope       Scope
	ExpiresAt   time.Time
}

// Valid reports whether the credential can be used at now.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}
