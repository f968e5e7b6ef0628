package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository/memory"
	"github.com/juicebox/backoffice/usecase/auth"
)

const testSecret = "test-signing-secret"

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *sessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (s *sessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

func (s *sessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *sessionStore) Extend(_ context.Context, id string, ttlSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	return nil
}

func newUseCase(t *testing.T) (*auth.UseCase, *memory.UserRepo, *sessionStore) {
	t.Helper()
	users := memory.NewUserRepo()
	sessions := newSessionStore()
	return auth.New(users, sessions, testSecret, "backoffice", nil), users, sessions
}

func TestLogin(t *testing.T) {
	t.Run("issues a verifiable token for staff", func(t *testing.T) {
		uc, users, _ := newUseCase(t)
		users.Seed(&domain.User{ID: "op-1", Role: domain.RoleEmployee, Email: "op@studio.dev"})

		result, err := uc.Login(context.Background(), "op-1", time.Hour)
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if result.Session == nil || result.Session.UserID != "op-1" {
			t.Fatalf("session = %+v, want one for op-1", result.Session)
		}

		token, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
			return []byte(testSecret), nil
		})
		if err != nil || !token.Valid {
			t.Fatalf("token did not verify: %v", err)
		}
		claims := token.Claims.(jwt.MapClaims)
		if claims["user_id"] != "op-1" || claims["role"] != domain.RoleEmployee {
			t.Fatalf("claims = %v, want user_id op-1 role employee", claims)
		}
	})

	t.Run("rejects client logins", func(t *testing.T) {
		uc, users, _ := newUseCase(t)
		users.Seed(&domain.User{ID: "client-1", Role: domain.RoleClient})

		if _, err := uc.Login(context.Background(), "client-1", time.Hour); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("rejects unknown users", func(t *testing.T) {
		uc, _, _ := newUseCase(t)
		if _, err := uc.Login(context.Background(), "nobody", time.Hour); err == nil {
			t.Fatal("expected error for unknown user")
		}
	})
}

func TestGetSession(t *testing.T) {
	t.Run("deletes expired sessions lazily", func(t *testing.T) {
		uc, _, sessions := newUseCase(t)
		_ = sessions.Save(context.Background(), &domain.Session{
			ID:        "stale",
			UserID:    "op-1",
			Role:      domain.RoleAdmin,
			ExpiresAt: time.Now().Add(-time.Minute),
		})

		if _, err := uc.GetSession(context.Background(), "stale"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("err = %v, want ErrSessionNotFound", err)
		}
		if _, err := sessions.Get(context.Background(), "stale"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatal("expired session should be deleted")
		}
	})
}

func TestRefreshSession(t *testing.T) {
	t.Run("extends and re-signs", func(t *testing.T) {
		uc, users, sessions := newUseCase(t)
		users.Seed(&domain.User{ID: "op-1", Role: domain.RoleAdmin})

		login, err := uc.Login(context.Background(), "op-1", time.Minute)
		if err != nil {
			t.Fatalf("Login: %v", err)
		}

		refreshed, err := uc.RefreshSession(context.Background(), login.Session.ID, 2*time.Hour)
		if err != nil {
			t.Fatalf("RefreshSession: %v", err)
		}
		if refreshed.Token == "" {
			t.Fatal("expected a re-signed token")
		}

		stored, err := sessions.Get(context.Background(), login.Session.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if stored.ExpiresAt.Before(time.Now().Add(time.Hour)) {
			t.Fatalf("expiry = %v, want extended past an hour", stored.ExpiresAt)
		}
	})

	t.Run("rejects unknown sessions", func(t *testing.T) {
		uc, _, _ := newUseCase(t)
		if _, err := uc.RefreshSession(context.Background(), "missing", time.Hour); err == nil {
			t.Fatal("expected error for unknown session")
		}
	})
}

func TestRevokeSession(t *testing.T) {
	uc, users, sessions := newUseCase(t)
	users.Seed(&domain.User{ID: "op-1", Role: domain.RoleAdmin})

	login, err := uc.Login(context.Background(), "op-1", time.Hour)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := uc.RevokeSession(context.Background(), login.Session.ID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, err := sessions.Get(context.Background(), login.Session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatal("session should be gone after revoke")
	}
}
