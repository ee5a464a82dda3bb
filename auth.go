package main

import "strings"

type authMethod int

const (
	authUnknown authMethod = iota
	authBasic
	authToken
	authClientCertificate
)

func (a authMethod) String() string {
	switch a {
	case authBasic:
		return "basic"
	case authToken:
		return "token"
	case authClientCertificate:
		return "client-certificate"
	}
	return "unknown"
}

// resolveAuthMethod picks the single auth method used for a run.
// A certificate directory wins over user credentials, which win over a
// bearer token.
func resolveAuthMethod(certPath, user, token string) authMethod {
	switch {
	case certPath != "":
		return authClientCertificate
	case user != "":
		return authBasic
	case token != "":
		return authToken
	}
	return authUnknown
}

func validCredentials(user string) bool {
	name, _, found := strings.Cut(user, ":")
	return found && name != ""
}
