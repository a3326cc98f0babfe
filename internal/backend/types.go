package backend

import (
	"bytes"
	"encoding/json"
	"strings"
)

// User is a directory entry returned by GET /users.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UnmarshalJSON accepts string or numeric ids, under "id" or "_id".
func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		OID   json.RawMessage `json:"_id"`
		Name  string          `json:"name"`
		Phone string          `json:"phone"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	u.ID = scalar(raw.ID)
	if u.ID == "" {
		u.ID = scalar(raw.OID)
	}
	u.Name = raw.Name
	u.Phone = raw.Phone
	return nil
}

// AuthResult is the outcome of a successful login or registration.
type AuthResult struct {
	Token string
	User  User
}

func (r *AuthResult) UnmarshalJSON(b []byte) error {
	var raw struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		User        *User  `json:"user"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Token = raw.Token
	if r.Token == "" {
		r.Token = raw.AccessToken
	}
	if raw.User != nil {
		r.User = *raw.User
		return nil
	}
	// Flat shape: {token, id, name, phone}.
	return json.Unmarshal(b, &r.User)
}

func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}
