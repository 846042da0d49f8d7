package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/dbx"
	"github.com/scsp-app/scsp-server/internal/server/identity"
	"github.com/scsp-app/scsp-server/internal/server/models"
	"github.com/scsp-app/scsp-server/internal/server/repositories/otps"
	"github.com/scsp-app/scsp-server/internal/server/repositories/refreshtokens"
	"github.com/scsp-app/scsp-server/internal/server/repositories/users"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeTransactor serialises units of work, standing in for row and advisory locks.
type fakeTransactor struct {
	mu sync.Mutex
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn dbx.TxFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx, nil)
}

type fakeOtpRepo struct {
	mu        sync.Mutex
	entries   []*models.OtpEntry
	nextID    int64
	locks     int
	createErr error
}

func (f *fakeOtpRepo) Lock(context.Context, string, models.OtpPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks++
	return nil
}

func (f *fakeOtpRepo) DeleteUnconsumed(_ context.Context, userID string, purpose models.OtpPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.UserID == userID && e.Purpose == purpose && e.ConsumedAt == nil {
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return nil
}

func (f *fakeOtpRepo) Create(_ context.Context, entry *models.OtpEntry) (*models.OtpEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	cp := *entry
	cp.ID = f.nextID
	f.entries = append(f.entries, &cp)
	out := cp
	return &out, nil
}

func (f *fakeOtpRepo) FindLatestUnconsumed(_ context.Context, userID string, purpose models.OtpPurpose) (*models.OtpEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.OtpEntry
	for _, e := range f.entries {
		if e.UserID != userID || e.Purpose != purpose || e.ConsumedAt != nil {
			continue
		}
		if latest == nil || e.ID > latest.ID {
			latest = e
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeOtpRepo) IncrementAttempts(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			e.Attempts++
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeOtpRepo) MarkConsumed(_ context.Context, id int64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id && e.ConsumedAt == nil {
			e.ConsumedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOtpRepo) unconsumed(userID string, purpose models.OtpPurpose) []*models.OtpEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.OtpEntry
	for _, e := range f.entries {
		if e.UserID == userID && e.Purpose == purpose && e.ConsumedAt == nil {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	rows   map[string]*models.RefreshToken
	nextID int64
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{rows: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[t.Token]; ok {
		return nil, common.ErrorConflict
	}
	f.nextID++
	cp := *t
	cp.ID = f.nextID
	f.rows[t.Token] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeRefreshRepo) MarkReplaced(_ context.Context, token, replacedBy string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	if !ok || row.RevokedAt != nil {
		return false, nil
	}
	row.RevokedAt = &at
	row.ReplacedByToken = &replacedBy
	return true, nil
}

func (f *fakeRefreshRepo) Revoke(_ context.Context, token, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	if ok && row.UserID == userID && row.RevokedAt == nil {
		row.RevokedAt = &at
	}
	return nil
}

func (f *fakeRefreshRepo) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) get(token string) *models.RefreshToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	if !ok {
		return nil
	}
	cp := *row
	return &cp
}

type fakeRepoManager struct {
	otps    *fakeOtpRepo
	refresh *fakeRefreshRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{otps: &fakeOtpRepo{}, refresh: newFakeRefreshRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return nil }
func (m *fakeRepoManager) Otps(dbx.DBTX) otps.Repository                   { return m.otps }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }

type sentEmail struct {
	To, Subject, HTML string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *recordingSender) Send(_ context.Context, to, subject, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject, HTML: html})
	return s.err
}

func (s *recordingSender) last(t *testing.T) sentEmail {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatalf("no email was sent")
	}
	return s.sent[len(s.sent)-1]
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

var codeRe = regexp.MustCompile(`letter-spacing:2px">(\d+)</div>`)

func codeFrom(t *testing.T, html string) string {
	t.Helper()
	m := codeRe.FindStringSubmatch(html)
	if m == nil {
		t.Fatalf("no code in email body")
	}
	return m[1]
}

// fakeIdentity keeps plaintext passwords in PasswordHash.
type fakeIdentity struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	roles map[string][]models.Role
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{byID: map[string]*models.User{}, roles: map[string][]models.Role{}}
}

func (f *fakeIdentity) Create(_ context.Context, email, fullName, password string) (*models.User, error) {
	if err := identity.CheckPassword(password); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return nil, fmt.Errorf("%w: email '%s' is already taken", common.ErrorConflict, email)
		}
	}
	u := &models.User{
		ID:            uuid.NewString(),
		Email:         email,
		UserName:      email,
		FullName:      fullName,
		PasswordHash:  password,
		SecurityStamp: uuid.NewString(),
		CreatedAt:     t0,
	}
	f.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeIdentity) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeIdentity) FindByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeIdentity) VerifyPassword(u *models.User, password string) bool {
	return u.PasswordHash == password
}

func (f *fakeIdentity) GetRoles(_ context.Context, id string) ([]models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]models.Role(nil), f.roles[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeIdentity) AddRole(_ context.Context, id string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !models.HasRole(f.roles[id], role) {
		f.roles[id] = append(f.roles[id], role)
	}
	return nil
}

func (f *fakeIdentity) MarkEmailConfirmed(_ context.Context, id string) error {
	return f.update(id, func(u *models.User) { u.EmailConfirmed = true })
}

func (f *fakeIdentity) TouchLastActivity(_ context.Context, id string) error {
	return f.update(id, func(u *models.User) {
		now := t0
		u.LastActivity = &now
	})
}

func (f *fakeIdentity) ChangePassword(_ context.Context, u *models.User, current, next string) error {
	if u.PasswordHash != current {
		return common.ErrInvalidCredentials
	}
	return f.setPassword(u.ID, next)
}

func (f *fakeIdentity) ResetPassword(_ context.Context, id, next string) error {
	return f.setPassword(id, next)
}

func (f *fakeIdentity) UpdateTaxIDs(_ context.Context, id, cpf, cnpj string) error {
	return f.update(id, func(u *models.User) { u.Cpf, u.Cnpj = cpf, cnpj })
}

func (f *fakeIdentity) setPassword(id, next string) error {
	if err := identity.CheckPassword(next); err != nil {
		return err
	}
	return f.update(id, func(u *models.User) {
		u.PasswordHash = next
		u.SecurityStamp = uuid.NewString()
	})
}

func (f *fakeIdentity) update(id string, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (f *fakeIdentity) ban(id, reason string) {
	_ = f.update(id, func(u *models.User) { u.IsBanned, u.BanReason = true, reason })
}

func requireFailure(t *testing.T, err error, code Code) *Failure {
	t.Helper()
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("expected *Failure with code %s, got %v", code, err)
	}
	if f.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, f.Code, f.Message)
	}
	return f
}

var errBoom = errors.New("boom")
