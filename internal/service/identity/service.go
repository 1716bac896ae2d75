package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"smartpos/internal/domain"
	"smartpos/internal/events"
	principalrepo "smartpos/internal/repository/principal"
	sessionrepo "smartpos/internal/repository/session"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Options tune one identity space instance.
type Options struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	InactivityWindow time.Duration
	// StatelessValidate restores the signature/expiry-only validation fast
	// path: Validate then ignores the session slot entirely, so a token
	// revoked by logout or a later login stays valid until natural expiry.
	StatelessValidate bool
}

// Service issues, validates and revokes bearer credentials for one principal
// space. The user and customer spaces are two instances of this type.
type Service struct {
	space      domain.Space
	principals principalrepo.Repository
	sessions   sessionrepo.Repository
	signer     *tokenSigner
	publisher  events.Publisher
	logger     *zap.Logger
	opts       Options
	now        func() time.Time
}

// New creates a Service for one identity space.
func New(space domain.Space, principals principalrepo.Repository, sessions sessionrepo.Repository,
	jwtSecret string, publisher events.Publisher, logger *zap.Logger, opts Options) *Service {
	if opts.AccessTTL == 0 {
		opts.AccessTTL = 24 * time.Hour
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.InactivityWindow == 0 {
		opts.InactivityWindow = 10 * time.Minute
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now
	return &Service{
		space:      space,
		principals: principals,
		sessions:   sessions,
		signer:     newTokenSigner(jwtSecret, opts.AccessTTL, opts.RefreshTTL, now),
		publisher:  publisher,
		logger:     logger,
		opts:       opts,
		now:        now,
	}
}

// LoginResult carries the issued credential pair.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
	Message      string `json:"message"`
}

// Login verifies the secret and replaces the principal's session slot with a
// freshly issued access token. Replacing the slot revokes every token issued
// before it.
func (s *Service) Login(ctx context.Context, handle, secret string) (*LoginResult, error) {
	p, err := s.principals.GetByUsername(ctx, s.space, strings.TrimSpace(handle))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(secret)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	access, err := s.signer.sign(p, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signer.sign(p, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Upsert(ctx, domain.Session{
		PrincipalID: p.ID,
		Space:       s.space,
		Token:       access,
		IssuedAt:    s.now().UTC(),
	}); err != nil {
		return nil, err
	}

	s.logger.Info("login", zap.String("space", string(s.space)), zap.String("username", p.Username))
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         string(p.Role),
		Message:      "Login successful",
	}, nil
}

// Refresh re-issues the access token only; the refresh token is echoed back
// unchanged, it is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	c, err := s.signer.parse(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if c.Typ != tokenTypeRefresh || c.Space != string(s.space) {
		return nil, domain.ErrInvalidToken
	}
	p, err := s.principals.GetByUsername(ctx, s.space, c.Subject)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	access, err := s.signer.sign(p, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Upsert(ctx, domain.Session{
		PrincipalID: p.ID,
		Space:       s.space,
		Token:       access,
		IssuedAt:    s.now().UTC(),
	}); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
		Role:         string(p.Role),
		Message:      "Token refreshed",
	}, nil
}

// Validate checks the presented access token. The default mode also binds the
// token to the principal's current session slot and enforces the inactivity
// window; StatelessValidate keeps only the signature/expiry/subject checks.
func (s *Service) Validate(ctx context.Context, token string) error {
	c, err := s.signer.parse(token)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if c.Typ != tokenTypeAccess || c.Space != string(s.space) {
		return domain.ErrInvalidToken
	}
	p, err := s.principals.GetByUsername(ctx, s.space, c.Subject)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if s.opts.StatelessValidate {
		return nil
	}

	sess, err := s.sessions.GetByPrincipal(ctx, p.ID)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if sess.Token != token || sess.Revoked || sess.Expired {
		return domain.ErrInvalidToken
	}

	now := s.now().UTC()
	if now.Sub(sess.LastSeenAt) > s.opts.InactivityWindow {
		if err := s.sessions.Revoke(ctx, sess.Token); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("revoke inactive session", zap.Error(err))
		}
		return domain.ErrInvalidToken
	}
	if err := s.sessions.Touch(ctx, p.ID, now); err != nil {
		s.logger.Warn("advance session activity", zap.Error(err))
	}
	return nil
}

// Logout revokes the session holding the raw token value. A token with no
// session slot is a no-op, so repeated logouts converge on the same state.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.sessions.Revoke(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// ExtractRole reads the role claim embedded at issuance; no database round trip.
func (s *Service) ExtractRole(token string) (domain.Role, error) {
	c, err := s.signer.parse(token)
	if err != nil {
		return "", domain.ErrInvalidToken
	}
	return domain.Role(c.Role), nil
}

// ExtractSubject reads the subject (login handle) claim.
func (s *Service) ExtractSubject(token string) (string, error) {
	c, err := s.signer.parse(token)
	if err != nil {
		return "", domain.ErrInvalidToken
	}
	return c.Subject, nil
}

// Profile returns the principal bound to a valid token.
func (s *Service) Profile(ctx context.Context, token string) (*domain.Principal, error) {
	if err := s.Validate(ctx, token); err != nil {
		return nil, err
	}
	subject, err := s.ExtractSubject(token)
	if err != nil {
		return nil, err
	}
	return s.principals.GetByUsername(ctx, s.space, subject)
}

// roleLimits caps staff headcount per role; SUPPLIER is uncapped.
var roleLimits = map[domain.Role]int{
	domain.RoleAdmin:    1,
	domain.RoleManager:  2,
	domain.RoleCashier:  10,
	domain.RoleStaff:    15,
	domain.RoleSecurity: 8,
}

// RegisterStaffInput captures fields expected by the staff registration endpoint.
type RegisterStaffInput struct {
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	NIC         string      `json:"nic"`
	PhoneNumber string      `json:"phoneNumber"`
	Role        domain.Role `json:"role"`
}

// RegisterResult returns the generated credentials for a new staff account.
type RegisterResult struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterStaff creates a staff principal with generated credentials. Only
// ADMIN may register a MANAGER; every other role needs ADMIN or MANAGER.
func (s *Service) RegisterStaff(ctx context.Context, in RegisterStaffInput, registeredBy string) (*RegisterResult, error) {
	if !isStaffRole(in.Role) {
		return nil, fmt.Errorf("role %q not allowed in the %s space", in.Role, s.space)
	}

	registrarRole := domain.RoleAdmin
	if registeredBy == "" {
		registeredBy = "System"
	} else if registeredBy != "System" {
		registrar, err := s.principals.GetByUsername(ctx, s.space, registeredBy)
		if err != nil {
			return nil, fmt.Errorf("registering principal %q: %w", registeredBy, err)
		}
		registrarRole = registrar.Role
	}

	if in.Role == domain.RoleManager && registrarRole != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if in.Role != domain.RoleManager && in.Role != domain.RoleAdmin &&
		registrarRole != domain.RoleAdmin && registrarRole != domain.RoleManager {
		return nil, domain.ErrForbidden
	}

	if limit, capped := roleLimits[in.Role]; capped {
		count, err := s.principals.CountByRole(ctx, s.space, in.Role)
		if err != nil {
			return nil, err
		}
		if count >= limit {
			return nil, fmt.Errorf("maximum number of %s accounts reached: %w", in.Role, domain.ErrAlreadyExists)
		}
	}

	username, err := s.generateUsername(ctx, in.Role)
	if err != nil {
		return nil, err
	}
	password, err := generatePassword()
	if err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p, err := s.principals.Create(ctx, domain.Principal{
		Space:        s.space,
		Username:     username,
		PasswordHash: string(hashed),
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		NIC:          in.NIC,
		PhoneNumber:  in.PhoneNumber,
		Role:         in.Role,
		RegisteredBy: registeredBy,
	})
	if err != nil {
		return nil, err
	}

	events.PublishAsync(s.publisher, s.logger, p.Username, events.PrincipalRegistered{
		EventID:   events.NewEventID(),
		Space:     string(s.space),
		Username:  p.Username,
		Email:     p.Email,
		Role:      string(p.Role),
		Timestamp: s.now().UTC(),
	})

	return &RegisterResult{Username: username, Password: password}, nil
}

// RegisterCustomerInput captures the self-service signup payload.
type RegisterCustomerInput struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// RegisterCustomer signs up a shopper in the customer space.
func (s *Service) RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (*domain.Principal, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, errors.New("username required")
	}
	if err := validatePassword(in.Password, 8); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(in.Password)), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p, err := s.principals.Create(ctx, domain.Principal{
		Space:        s.space,
		Username:     username,
		PasswordHash: string(hashed),
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Role:         domain.RoleCustomer,
		RegisteredBy: username,
	})
	if err != nil {
		return nil, err
	}

	events.PublishAsync(s.publisher, s.logger, p.Username, events.PrincipalRegistered{
		EventID:   events.NewEventID(),
		Space:     string(s.space),
		Username:  p.Username,
		Email:     p.Email,
		Role:      string(p.Role),
		Timestamp: s.now().UTC(),
	})
	return p, nil
}

func isStaffRole(r domain.Role) bool {
	for _, role := range domain.StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

var usernamePrefixes = map[domain.Role]struct {
	prefix string
	digits int
}{
	domain.RoleAdmin:    {"ADMIN", 2},
	domain.RoleManager:  {"MGT", 4},
	domain.RoleCashier:  {"CASH", 4},
	domain.RoleStaff:    {"STA", 4},
	domain.RoleSecurity: {"SEC", 4},
	domain.RoleSupplier: {"SUP", 4},
}

func (s *Service) generateUsername(ctx context.Context, role domain.Role) (string, error) {
	spec, ok := usernamePrefixes[role]
	if !ok {
		spec = struct {
			prefix string
			digits int
		}{"USER", 5}
	}
	for attempt := 0; attempt < 10; attempt++ {
		var sb strings.Builder
		sb.WriteString(spec.prefix)
		for i := 0; i < spec.digits; i++ {
			n, err := rand.Int(rand.Reader, big.NewInt(10))
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "%d", n.Int64())
		}
		candidate := sb.String()
		if _, err := s.principals.GetByUsername(ctx, s.space, candidate); errors.Is(err, domain.ErrNotFound) {
			return candidate, nil
		}
	}
	return "", errors.New("username collision")
}

const (
	passwordUpper  = "ABCDEFGHJKMNOPQRSTUVWXYZ"
	passwordLower  = "abcdefghjkmnpqrstuvwxyz"
	passwordDigits = "23456789"
	passwordSymbol = "!@#$%&*"
)

func generatePassword() (string, error) {
	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}
	var out []byte
	for _, set := range []string{passwordUpper, passwordDigits, passwordDigits, passwordSymbol,
		passwordLower, passwordLower, passwordLower, passwordUpper, passwordDigits, passwordLower} {
		ch, err := pick(set)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}
	return string(out), nil
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
