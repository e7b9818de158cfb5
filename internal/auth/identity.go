package auth

import (
	"net/http"
	"strconv"
	"strings"

	"aimtrainer/backend/pkg/jwt"

	"github.com/rotisserie/eris"
)

// ErrInvalidToken is returned when a credential was supplied but did not verify.
// A missing credential is not an error: the connection becomes a guest.
var ErrInvalidToken = eris.New("invalid authentication token")

// Identity is who a socket connection acts as. It is attached before any
// party event is processed.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsGuest  bool   `json:"isGuest"`
	Level    int    `json:"level"`
}

// UserProfile is what a UserLookup returns for a verified token subject.
type UserProfile struct {
	Nickname string
	Level    int
}

// UserLookup loads the profile of a registered user. A nil lookup means the
// token claims are trusted as-is.
type UserLookup func(userID uint) (UserProfile, error)

// IdentityResolver turns an optional bearer token into an Identity.
type IdentityResolver struct {
	Secret string
	Lookup UserLookup
}

// Resolve verifies token for the connection connID. An empty token yields a
// guest identity; a token that fails verification yields ErrInvalidToken.
func (r IdentityResolver) Resolve(token, connID string) (Identity, error) {
	if token == "" {
		return GuestIdentity(connID), nil
	}

	claims, err := jwt.ParseToken(r.Secret, token)
	if err != nil {
		return Identity{}, eris.Wrap(ErrInvalidToken, err.Error())
	}

	id := Identity{
		UserID:   strconv.FormatUint(uint64(claims.UserID), 10),
		Username: claims.Name,
		Level:    1,
	}

	if r.Lookup != nil {
		profile, err := r.Lookup(claims.UserID)
		if err != nil {
			return Identity{}, eris.Wrapf(ErrInvalidToken, "unknown user %d", claims.UserID)
		}
		if profile.Nickname != "" {
			id.Username = profile.Nickname
		}
		if profile.Level > 0 {
			id.Level = profile.Level
		}
	}

	if id.Username == "" {
		id.Username = "Player_" + id.UserID
	}
	return id, nil
}

// GuestIdentity synthesizes the identity of an unauthenticated connection.
func GuestIdentity(connID string) Identity {
	short := connID
	if len(short) > 6 {
		short = short[:6]
	}
	return Identity{
		UserID:   "guest_" + connID,
		Username: "Guest_" + short,
		IsGuest:  true,
		Level:    1,
	}
}

// TokenFromRequest reads the credential of a websocket handshake, either from
// the token query parameter or from a Bearer Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
