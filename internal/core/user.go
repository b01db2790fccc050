package core

import (
	"encoding/json"
	"strings"
)

// Roles carried by the session's user record.
const (
	RoleEmployee = "Employee"
	RoleAdmin    = "Admin"
)

// User is the current-user record serialized into the session under the
// "user" key. The session treats it as an opaque JSON blob; only the role
// and email matter to this application.
type User struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

// DecodeUser parses a serialized user record. An empty blob is not an error
// to callers that only need to know nobody is logged in, so they should
// check the boolean instead.
func DecodeUser(raw string) (User, bool) {
	if strings.TrimSpace(raw) == "" {
		return User{}, false
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, false
	}
	if u.Type == "" {
		return User{}, false
	}
	return u, true
}

// Encode serializes the user record for session storage. Marshaling a
// plain two-field struct cannot fail, so no error is returned.
func (u User) Encode() string {
	b, _ := json.Marshal(u)
	return string(b)
}
