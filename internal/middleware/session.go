package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"kiddeo/internal/logger"
)

const (
	sessionDeviceKey = "device_id"
	sessionUserKey   = "user_id"
	identityKey      = contextKey("identity")
)

// Identity is who a request belongs to. DeviceID is always set once the
// session middleware has run; UserID is empty for anonymous visitors.
type Identity struct {
	DeviceID string
	UserID   string
}

// SessionMiddleware provides session management functionality
type SessionMiddleware struct {
	store sessions.Store
	name  string
	log   logger.Logger
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(store sessions.Store, name string, log logger.Logger) *SessionMiddleware {
	return &SessionMiddleware{store: store, name: name, log: log}
}

// Identify loads the session, issues a device id on first visit and puts
// the resulting Identity into the request context.
func (sm *SessionMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := sm.store.Get(r, sm.name)
		if err != nil {
			// A cookie signed with an old secret decodes with an error but
			// still yields a fresh session.
			sm.log.Debug("discarding unreadable session", "error", err)
		}

		deviceID, _ := session.Values[sessionDeviceKey].(string)
		if deviceID == "" {
			deviceID = uuid.NewString()
			session.Values[sessionDeviceKey] = deviceID
			if err := session.Save(r, w); err != nil {
				sm.log.Error("failed to save session", "error", err)
				WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
				return
			}
		}
		userID, _ := session.Values[sessionUserKey].(string)

		ctx := WithIdentity(r.Context(), Identity{DeviceID: deviceID, UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetUser records userID in the session. Called by whatever signs the user in.
func (sm *SessionMiddleware) SetUser(w http.ResponseWriter, r *http.Request, userID string) error {
	return sm.setValue(w, r, sessionUserKey, userID)
}

// ClearUser signs the user out but keeps the device id.
func (sm *SessionMiddleware) ClearUser(w http.ResponseWriter, r *http.Request) error {
	return sm.setValue(w, r, sessionUserKey, nil)
}

func (sm *SessionMiddleware) setValue(w http.ResponseWriter, r *http.Request, key string, value any) error {
	session, _ := sm.store.Get(r, sm.name)
	if value == nil {
		delete(session.Values, key)
	} else {
		session.Values[key] = value
	}
	return session.Save(r, w)
}

// WithIdentity returns a copy of ctx carrying ident.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// GetIdentity retrieves the identity stored by Identify.
func GetIdentity(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}
