// Structure of User Model in Wanna.

package entity

import "strings"

// Saved in DB as user:<auth>, with user-uid:<uid> pointing back to the auth token.
type User struct {
	UID             string `json:"uid" redis:"uid"`
	Names           string `json:"names" redis:"names"`
	Auth            string `json:"auth" redis:"auth"`
	ExpoPushToken   string `json:"expo_push_token,omitempty" redis:"expo_push_token"`
	DevicePushToken string `json:"device_push_token,omitempty" redis:"device_push_token"`
	Created         int64  `json:"createdAt,omitempty" redis:"created"`
}

// Fields returns the hash fields of u as stored in redis.
func (u User) Fields() map[string]interface{} {
	return map[string]interface{}{
		"uid":               u.UID,
		"names":             u.Names,
		"auth":              u.Auth,
		"expo_push_token":   u.ExpoPushToken,
		"device_push_token": u.DevicePushToken,
		"created":           u.Created,
	}
}

// Payload of an auth message, registration when Names is present.
type Credentials struct {
	UID             string `json:"uid" valid:"required~uid:User Id is required,identifier~uid:Invalid user id"`
	Names           string `json:"names" valid:"required~names:Names are required,notblank~names:Names are required"`
	Auth            string `json:"auth" valid:"required~auth:Auth token is required,nospace~auth:No spaces allowed in auth token"`
	ExpoPushToken   string `json:"expo_push_token" valid:"-"`
	DevicePushToken string `json:"device_push_token" valid:"-"`
}

// IsRegistration reports whether the auth message carries a display name.
func (c Credentials) IsRegistration() bool {
	return c.Names != ""
}

// Payload of PUT /api/user/me, nil fields are left untouched.
type UpdateUser struct {
	Names           *string `json:"names,omitempty"`
	ExpoPushToken   *string `json:"expo_push_token,omitempty"`
	DevicePushToken *string `json:"device_push_token,omitempty"`
}

// Validate returns the param:message pairs of every invalid field.
func (u UpdateUser) Validate() []error {
	var errs []error
	if u.Names != nil && strings.TrimSpace(*u.Names) == "" {
		errs = append(errs, fieldError("names", "Names cannot be empty"))
	}
	return errs
}

// Fields returns the hash fields to overwrite.
func (u UpdateUser) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if u.Names != nil {
		fields["names"] = strings.TrimSpace(*u.Names)
	}
	setIf(fields, "expo_push_token", u.ExpoPushToken)
	setIf(fields, "device_push_token", u.DevicePushToken)
	return fields
}

// Public part of a list member, auth tokens never leave the server inside snapshots.
type Member struct {
	UID   string `json:"uid"`
	Names string `json:"names"`
}
