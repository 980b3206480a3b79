package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/bookingsync/internal/internaltypes"
)

// ErrInvalidCredentials is returned for an unknown user or a bad password.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", internaltypes.ErrUnauthorized)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists admin users.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	UserByUsername(ctx context.Context, username string) (User, error)
}

const sessionTTL = 14 * 24 * time.Hour

type Store struct {
	sc     *securecookie.SecureCookie
	users  UserStore
	tokens *Tokens
}

func NewStore(users UserStore, hashKey, blockKey []byte) *Store {
	sc := securecookie.New(hashKey, blockKey)
	// keep cookie small and secure
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, users: users}
}

// WithTokens enables bearer-token authentication next to sessions.
func (s *Store) WithTokens(t *Tokens) *Store {
	s.tokens = t
	return s
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

// CreateUser hashes password and stores a new admin user.
func CreateUser(ctx context.Context, users UserStore, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, errors.New("username and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return users.CreateUser(ctx, username, hash)
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, internaltypes.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

type Session struct {
	UserID   int64
	Username string
}

const cookieName = "bookingsync_session"

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, u User) error {
	val := map[string]any{"uid": u.ID, "name": u.Username, "v": 1}
	encoded, err := s.sc.Encode(cookieName, val)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	val := map[string]any{}
	if err := s.sc.Decode(cookieName, c.Value, &val); err != nil {
		return Session{}, false
	}
	sess := Session{}
	sess.Username, _ = val["name"].(string)
	// gob keeps int64, a JSON encoder would give float64
	switch uid := val["uid"].(type) {
	case int64:
		sess.UserID = uid
	case float64:
		sess.UserID = int64(uid)
	}
	if sess.UserID <= 0 {
		return Session{}, false
	}
	return sess, true
}

// SecureEqual compares secrets in constant time.
func SecureEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
