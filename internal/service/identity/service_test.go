package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"smartpos/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type memPrincipals struct {
	mu   sync.Mutex
	next int
	rows map[string]*domain.Principal
}

func newMemPrincipals() *memPrincipals {
	return &memPrincipals{rows: map[string]*domain.Principal{}}
}

func key(space domain.Space, username string) string {
	return string(space) + "/" + username
}

func (m *memPrincipals) Create(_ context.Context, p domain.Principal) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[key(p.Space, p.Username)]; ok {
		return nil, domain.ErrAlreadyExists
	}
	for _, row := range m.rows {
		if row.Space == p.Space && p.Email != "" && row.Email == p.Email {
			return nil, domain.ErrAlreadyExists
		}
	}
	m.next++
	p.ID = strconv.Itoa(m.next)
	p.RegisteredAt = time.Now()
	m.rows[key(p.Space, p.Username)] = &p
	out := p
	return &out, nil
}

func (m *memPrincipals) GetByUsername(_ context.Context, space domain.Space, username string) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[key(space, username)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *memPrincipals) CountByRole(_ context.Context, space domain.Space, role domain.Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.rows {
		if p.Space == space && p.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memPrincipals) Delete(_ context.Context, space domain.Space, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[key(space, username)]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, key(space, username))
	return nil
}

type memSessions struct {
	mu    sync.Mutex
	slots map[string]*domain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{slots: map[string]*domain.Session{}}
}

func (m *memSessions) Upsert(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Revoked = false
	s.Expired = false
	s.LastSeenAt = s.IssuedAt
	m.slots[s.PrincipalID] = &s
	return nil
}

func (m *memSessions) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.Token == token {
			out := *s
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessions) GetByPrincipal(_ context.Context, principalID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[principalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *memSessions) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.Token == token {
			s.Revoked = true
			s.Expired = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memSessions) Touch(_ context.Context, principalID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[principalID]; ok {
		s.LastSeenAt = at
	}
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T, space domain.Space, opts Options) (*Service, *memPrincipals, *memSessions, *fakeClock) {
	t.Helper()
	principals := newMemPrincipals()
	sessions := newMemSessions()
	svc := New(space, principals, sessions, "test-secret", nil, nil, opts)
	clock := newFakeClock()
	svc.now = clock.Now
	svc.signer.now = clock.Now
	return svc, principals, sessions, clock
}

func seedPrincipal(t *testing.T, principals *memPrincipals, space domain.Space, username, password string, role domain.Role) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := principals.Create(context.Background(), domain.Principal{
		Space:        space,
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, principals, _, _ := newTestService(t, domain.SpaceCustomer, Options{})
	seedPrincipal(t, principals, domain.SpaceCustomer, "alice", "Secret123", domain.RoleCustomer)

	if _, err := svc.Login(context.Background(), "nobody", "Secret123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginIssuesValidTokenPair(t *testing.T) {
	svc, principals, _, _ := newTestService(t, domain.SpaceCustomer, Options{})
	seedPrincipal(t, principals, domain.SpaceCustomer, "alice", "Secret123", domain.RoleCustomer)

	result, err := svc.Login(context.Background(), "alice", "Secret123")
	if err != nil {
		t.Fatal(err)
	}
	if result.Role != string(domain.RoleCustomer) {
		t.Errorf("role = %q, want CUSTOMER", result.Role)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if err := svc.Validate(context.Background(), result.AccessToken); err != nil {
		t.Fatalf("fresh access token rejected: %v", err)
	}
	subject, err := svc.ExtractSubject(result.AccessToken)
	if err != nil || subject != "alice" {
		t.Errorf("subject = %q, %v", subject, err)
	}
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	svc, principals, _, clock := newTestService(t, domain.SpaceCustomer, Options{})
	seedPrincipal(t, principals, domain.SpaceCustomer, "alice", "Secret123", domain.RoleCustomer)

	first, err := svc.Login(context.Background(), "alice", "Secret123")
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)
	second, err := svc.Login(context.Background(), "alice", "Secret123")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Validate(context.Background(), first.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("first token still valid after second login: %v", err)
	}
	if err := svc.Validate(context.Background(), second.AccessToken); err != nil {
		t.Fatalf("second token rejected: %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, principals, _, _ := newTestService(t, domain.SpaceCustomer, Options{})
	seedPrincipal(t, principals, domain.SpaceCustomer, "alice", "Secret123", domain.RoleCustomer)

	result, err := svc.Login(context.Background(), "alice", "Secret123")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(context.Background(), result.AccessToken); err != nil {
		t.Fatal(err)
	}
	if err := svc.Validate(context.Background(), result.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("token valid after logout: %v", err)
	}
	// Logging out the same token again converges on the same state.
	if err := svc.Logout(context.Background(), result.AccessToken); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}
}

func TestRefreshEchoesRefreshToken(t *testing.T) {
	svc, principals, _, clock := newTestService(t, domain.SpaceCustomer, Options{})
	seedPrincipal(t, principals, domain.SpaceCustomer, "alice", "Secret123", domain.RoleCustomer)

	login, err := svc.Login(context.Background(), "alice", "Secret123")
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.RefreshToken != login.RefreshToken {
		t.Error("refresh token was rotated, expected it echoed unchanged")
	}
	if refreshed.AccessToken == login.AccessToken {
		t.Error("access token was not re-issued")
	}
	if err := svc.Validate(context.Background(), refreshed.AccessToken); err != nil {
		t.Fatalf("re-issued access token rejected: %v", err)
	}
	// The old access slot was replaced by the refresh.
	if err := svc.Validate(context.Background(), login.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("stale access token still valid: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, principals, _, _ := newTestService(t, domain.SpaceCustomer, Options{})
	seedPrincipal(t, principals, domain.SpaceCustomer, "alice", "Secret123", domain.RoleCustomer)

	login, err := svc.Login(context.Background(), "alice", "Secret123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(context.Background(), login.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("access token accepted by refresh: %v", err)
	}
}

func TestValidateRejectsOtherSpace(t *testing.T) {
	userSvc, userPrincipals, _, _ := newTestService(t, domain.SpaceUser, Options{})
	seedPrincipal(t, userPrincipals, domain.SpaceUser, "CASH0001", "Secret123", domain.RoleCashier)

	login, err := userSvc.Login(context.Background(), "CASH0001", "Secret123")
	if err != nil {
		t.Fatal(err)
	}

	customerSvc, _, _, _ := newTestService(t, domain.SpaceCustomer, Options{})
	customerSvc.signer = userSvc.signer
	if err := customerSvc.Validate(context.Background(), login.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("staff token accepted by customer space: %v", err)
	}
}

func TestValidateInactivityWindow(t *testing.T) {
	svc, principals, _, clock := newTestService(t, domain.SpaceCustomer, Options{
		InactivityWindow: 10 * time.Minute,
	})
	seedPrincipal(t, principals, domain.SpaceCustomer, "alice", "Secret123", domain.RoleCustomer)

	login, err := svc.Login(context.Background(), "alice", "Secret123")
	if err != nil {
		t.Fatal(err)
	}

	// Each validation inside the window advances the clock it is judged by.
	clock.Advance(8 * time.Minute)
	if err := svc.Validate(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("active session rejected: %v", err)
	}
	clock.Advance(8 * time.Minute)
	if err := svc.Validate(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("touched session rejected: %v", err)
	}

	clock.Advance(11 * time.Minute)
	if err := svc.Validate(context.Background(), login.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("idle session accepted: %v", err)
	}
	// The timeout revoked the slot; backing the clock off does not revive it.
	if err := svc.Validate(context.Background(), login.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("revoked session accepted: %v", err)
	}
}

func TestStatelessValidateSkipsSessionSlot(t *testing.T) {
	svc, principals, sessions, _ := newTestService(t, domain.SpaceCustomer, Options{
		StatelessValidate: true,
	})
	seedPrincipal(t, principals, domain.SpaceCustomer, "alice", "Secret123", domain.RoleCustomer)

	login, err := svc.Login(context.Background(), "alice", "Secret123")
	if err != nil {
		t.Fatal(err)
	}
	if err := sessions.Revoke(context.Background(), login.AccessToken); err != nil {
		t.Fatal(err)
	}
	// Stateless mode never consults the slot, so the revoked token passes.
	if err := svc.Validate(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("stateless validate consulted the session slot: %v", err)
	}
}

func TestRegisterStaffAuthorizationRules(t *testing.T) {
	svc, principals, _, _ := newTestService(t, domain.SpaceUser, Options{})
	seedPrincipal(t, principals, domain.SpaceUser, "ADMIN01", "Secret123", domain.RoleAdmin)
	seedPrincipal(t, principals, domain.SpaceUser, "MGT0001", "Secret123", domain.RoleManager)
	seedPrincipal(t, principals, domain.SpaceUser, "CASH0001", "Secret123", domain.RoleCashier)

	ctx := context.Background()

	if _, err := svc.RegisterStaff(ctx, RegisterStaffInput{Role: domain.RoleManager}, "MGT0001"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("manager registered a manager: %v", err)
	}
	if _, err := svc.RegisterStaff(ctx, RegisterStaffInput{Role: domain.RoleCashier}, "CASH0001"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("cashier registered staff: %v", err)
	}

	result, err := svc.RegisterStaff(ctx, RegisterStaffInput{Role: domain.RoleManager}, "ADMIN01")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result.Username, "MGT") {
		t.Errorf("manager username = %q, want MGT prefix", result.Username)
	}
	if result.Password == "" {
		t.Error("expected a generated password")
	}

	// The bootstrap registrar acts with admin authority.
	if _, err := svc.RegisterStaff(ctx, RegisterStaffInput{Role: domain.RoleCashier}, ""); err != nil {
		t.Fatalf("bootstrap registration failed: %v", err)
	}
}

func TestRegisterStaffEnforcesRoleCap(t *testing.T) {
	svc, principals, _, _ := newTestService(t, domain.SpaceUser, Options{})
	seedPrincipal(t, principals, domain.SpaceUser, "ADMIN01", "Secret123", domain.RoleAdmin)

	// ADMIN is capped at one and the seed already holds the slot.
	if _, err := svc.RegisterStaff(context.Background(), RegisterStaffInput{Role: domain.RoleAdmin}, "ADMIN01"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("second admin allowed: %v", err)
	}
}

func TestRegisterStaffRejectsCustomerRole(t *testing.T) {
	svc, principals, _, _ := newTestService(t, domain.SpaceUser, Options{})
	seedPrincipal(t, principals, domain.SpaceUser, "ADMIN01", "Secret123", domain.RoleAdmin)

	if _, err := svc.RegisterStaff(context.Background(), RegisterStaffInput{Role: domain.RoleCustomer}, "ADMIN01"); err == nil {
		t.Fatal("customer role accepted in the staff space")
	}
}

func TestRegisterCustomerPasswordPolicy(t *testing.T) {
	svc, _, _, _ := newTestService(t, domain.SpaceCustomer, Options{})
	ctx := context.Background()

	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"too short", "Ab1", true},
		{"no uppercase", "abcdefg1", true},
		{"no digit", "Abcdefgh", true},
		{"valid", "Abcdefg1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RegisterCustomer(ctx, RegisterCustomerInput{
				Username: "user-" + tc.name,
				Password: tc.password,
				Email:    tc.name + "@example.com",
			})
			if tc.wantErr && err == nil {
				t.Fatalf("password %q accepted", tc.password)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("password %q rejected: %v", tc.password, err)
			}
		})
	}
}

func TestRegisterCustomerDuplicate(t *testing.T) {
	svc, _, _, _ := newTestService(t, domain.SpaceCustomer, Options{})
	ctx := context.Background()

	in := RegisterCustomerInput{Username: "alice", Password: "Abcdefg1", Email: "alice@example.com"}
	if _, err := svc.RegisterCustomer(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RegisterCustomer(ctx, in); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate signup: got %v, want ErrAlreadyExists", err)
	}
}
