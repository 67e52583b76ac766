package verification

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"backend/internal/models"
	"backend/internal/session"
)

type fakeCodes struct {
	queue []string
	next  int
}

func (f *fakeCodes) Generate() string {
	if f.next >= len(f.queue) {
		return "000000"
	}
	code := f.queue[f.next]
	f.next++
	return code
}

type fakeMail struct {
	accept bool
	sent   []string
}

func (f *fakeMail) Send(email, code string) bool {
	f.sent = append(f.sent, email+":"+code)
	return f.accept
}

type fakeAccounts struct {
	users map[string]*models.User
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: make(map[string]*models.User)}
}

func (f *fakeAccounts) EmailExists(_ context.Context, email string) (bool, error) {
	_, ok := f.users[email]
	return ok, nil
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (f *fakeAccounts) Create(_ context.Context, user *models.User) error {
	f.users[user.Email] = user
	return nil
}

func (f *fakeAccounts) UpdatePasswordByEmail(_ context.Context, email, hash string) (bool, error) {
	user, ok := f.users[email]
	if !ok {
		return false, nil
	}
	user.PasswordHash = hash
	return true, nil
}

func validSignup() SignupInput {
	return SignupInput{
		FullName: "Ravi Kumar",
		Phone:    "9876543210",
		Email:    "ravi@example.com",
		Password: "supersecret",
	}
}

func newTestMachine(codes *fakeCodes, mail *fakeMail, accounts *fakeAccounts) *Machine {
	return NewMachine(codes, mail, accounts)
}

/* =========================
   SIGNUP
========================= */

func TestStartSignupIssuesSingleChallenge(t *testing.T) {
	codes := &fakeCodes{queue: []string{"111111", "222222"}}
	mail := &fakeMail{accept: true}
	m := newTestMachine(codes, mail, newFakeAccounts())
	sess := session.NewMemoryStore()

	res, err := m.StartSignup(context.Background(), sess, validSignup())
	if err != nil {
		t.Fatalf("StartSignup returned error: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}

	code, ok := sess.Get("signup.code")
	if !ok || code.(string) != "111111" {
		t.Fatalf("expected stored code 111111, got %v", code)
	}

	// a second attempt overwrites the prior challenge
	in := validSignup()
	in.Email = "other@example.com"
	if _, err := m.StartSignup(context.Background(), sess, in); err != nil {
		t.Fatalf("second StartSignup returned error: %v", err)
	}

	code, _ = sess.Get("signup.code")
	if code.(string) != "222222" {
		t.Fatalf("expected stored code 222222 after overwrite, got %v", code)
	}
	pending, _ := sess.Get("signup.pending")
	if pending.(PendingRegistration).Email != "other@example.com" {
		t.Fatal("expected pending challenge to be overwritten")
	}
}

func TestStartSignupValidationOrder(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SignupInput)
		message string
	}{
		{"short name", func(in *SignupInput) { in.FullName = "Al"; in.Email = "bad"; in.Password = "x" }, "Name must be at least 4 characters"},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email"; in.Password = "x" }, "Invalid email address"},
		{"short password", func(in *SignupInput) { in.Password = "short" }, "Password must be at least 8 characters"},
		{"missing phone", func(in *SignupInput) { in.Phone = "" }, "Phone number is required"},
		{"bad leading digit", func(in *SignupInput) { in.Phone = "5876543210" }, "Enter a valid 10-digit phone number"},
		{"too short phone", func(in *SignupInput) { in.Phone = "987654321" }, "Enter a valid 10-digit phone number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(&fakeCodes{}, &fakeMail{accept: true}, newFakeAccounts())
			in := validSignup()
			tt.mutate(&in)

			_, err := m.StartSignup(context.Background(), session.NewMemoryStore(), in)
			verr, ok := err.(*Error)
			if !ok || verr.Kind != KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Message != tt.message {
				t.Fatalf("expected %q, got %q", tt.message, verr.Message)
			}
		})
	}
}

func TestStartSignupAcceptsValidPhone(t *testing.T) {
	m := newTestMachine(&fakeCodes{}, &fakeMail{accept: true}, newFakeAccounts())
	in := validSignup()
	in.Phone = "9876543210"

	if _, err := m.StartSignup(context.Background(), session.NewMemoryStore(), in); err != nil {
		t.Fatalf("expected phone to pass validation, got %v", err)
	}
}

func TestStartSignupDuplicateEmail(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.users["ravi@example.com"] = &models.User{Email: "ravi@example.com"}
	m := newTestMachine(&fakeCodes{}, &fakeMail{accept: true}, accounts)

	_, err := m.StartSignup(context.Background(), session.NewMemoryStore(), validSignup())
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if verr.Message != "User already exists" {
		t.Fatalf("unexpected message %q", verr.Message)
	}
}

func TestStartSignupDeliveryFailureStillWritesChallenge(t *testing.T) {
	codes := &fakeCodes{queue: []string{"111111"}}
	m := newTestMachine(codes, &fakeMail{accept: false}, newFakeAccounts())
	sess := session.NewMemoryStore()

	res, err := m.StartSignup(context.Background(), sess, validSignup())
	if err != nil {
		t.Fatalf("expected soft failure, got error %v", err)
	}
	if res.Success {
		t.Fatal("expected success=false on delivery failure")
	}

	if _, ok := sess.Get("signup.pending"); !ok {
		t.Fatal("expected pending challenge to survive delivery failure")
	}
	if _, ok := sess.Get("signup.code"); !ok {
		t.Fatal("expected code to survive delivery failure")
	}
}

func TestVerifySignupCreatesAccount(t *testing.T) {
	codes := &fakeCodes{queue: []string{"424242"}}
	accounts := newFakeAccounts()
	m := newTestMachine(codes, &fakeMail{accept: true}, accounts)
	sess := session.NewMemoryStore()

	in := validSignup()
	if _, err := m.StartSignup(context.Background(), sess, in); err != nil {
		t.Fatalf("StartSignup returned error: %v", err)
	}

	res, err := m.VerifySignup(context.Background(), sess, "424242")
	if err != nil {
		t.Fatalf("VerifySignup returned error: %v", err)
	}
	if res.Redirect != "/login" {
		t.Fatalf("expected /login redirect, got %q", res.Redirect)
	}

	user := accounts.users["ravi@example.com"]
	if user == nil {
		t.Fatal("expected account to be persisted")
	}
	if user.FullName != in.FullName || user.Phone != in.Phone {
		t.Fatalf("persisted account fields do not match input: %+v", user)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		t.Fatal("stored hash does not verify against the original password")
	}

	if _, ok := sess.Get("signup.pending"); ok {
		t.Fatal("expected challenge to be consumed")
	}
}

func TestVerifySignupWrongCodePreservesChallenge(t *testing.T) {
	codes := &fakeCodes{queue: []string{"424242"}}
	accounts := newFakeAccounts()
	m := newTestMachine(codes, &fakeMail{accept: true}, accounts)
	sess := session.NewMemoryStore()

	if _, err := m.StartSignup(context.Background(), sess, validSignup()); err != nil {
		t.Fatalf("StartSignup returned error: %v", err)
	}

	_, err := m.VerifySignup(context.Background(), sess, "999999")
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindInvalidCode {
		t.Fatalf("expected invalid code error, got %v", err)
	}
	if len(accounts.users) != 0 {
		t.Fatal("no account may be created on mismatch")
	}
	if _, ok := sess.Get("signup.pending"); !ok {
		t.Fatal("challenge must survive a mismatch for retry")
	}

	// retry with the right code succeeds
	if _, err := m.VerifySignup(context.Background(), sess, "424242"); err != nil {
		t.Fatalf("retry with correct code failed: %v", err)
	}
}

func TestVerifySignupWithoutChallenge(t *testing.T) {
	m := newTestMachine(&fakeCodes{}, &fakeMail{accept: true}, newFakeAccounts())

	_, err := m.VerifySignup(context.Background(), session.NewMemoryStore(), "123456")
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindSessionExpired {
		t.Fatalf("expected session expired error, got %v", err)
	}
}

func TestResendSignupOverwritesCode(t *testing.T) {
	codes := &fakeCodes{queue: []string{"111111", "333333"}}
	mail := &fakeMail{accept: true}
	m := newTestMachine(codes, mail, newFakeAccounts())
	sess := session.NewMemoryStore()

	if _, err := m.StartSignup(context.Background(), sess, validSignup()); err != nil {
		t.Fatalf("StartSignup returned error: %v", err)
	}
	if _, err := m.ResendSignup(context.Background(), sess); err != nil {
		t.Fatalf("ResendSignup returned error: %v", err)
	}

	code, _ := sess.Get("signup.code")
	if code.(string) != "333333" {
		t.Fatalf("expected reissued code 333333, got %v", code)
	}
	if len(mail.sent) != 2 {
		t.Fatalf("expected two deliveries, got %d", len(mail.sent))
	}
}

func TestResendSignupWithoutChallenge(t *testing.T) {
	m := newTestMachine(&fakeCodes{}, &fakeMail{accept: true}, newFakeAccounts())

	_, err := m.ResendSignup(context.Background(), session.NewMemoryStore())
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindSessionExpired {
		t.Fatalf("expected session expired error, got %v", err)
	}
}

/* =========================
   PASSWORD RESET
========================= */

func resetFixture(t *testing.T, accept bool) (*Machine, session.Store, *fakeAccounts, *time.Time) {
	t.Helper()

	accounts := newFakeAccounts()
	accounts.users["ravi@example.com"] = &models.User{Email: "ravi@example.com"}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	m := newTestMachine(&fakeCodes{queue: []string{"555555", "666666"}}, &fakeMail{accept: accept}, accounts).
		WithClock(func() time.Time { return *clock })

	return m, session.NewMemoryStore(), accounts, clock
}

func TestStartResetUnknownEmail(t *testing.T) {
	m, sess, _, _ := resetFixture(t, true)

	_, err := m.StartReset(context.Background(), sess, "ghost@example.com")
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestStartResetDeliveryFailure(t *testing.T) {
	m, sess, _, _ := resetFixture(t, false)

	_, err := m.StartReset(context.Background(), sess, "ravi@example.com")
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindDelivery {
		t.Fatalf("expected delivery error, got %v", err)
	}
	// challenge is written before the delivery attempt
	if _, ok := sess.Get("reset.challenge"); !ok {
		t.Fatal("expected challenge to be stored despite delivery failure")
	}
}

func TestVerifyResetExpired(t *testing.T) {
	m, sess, _, clock := resetFixture(t, true)

	if _, err := m.StartReset(context.Background(), sess, "ravi@example.com"); err != nil {
		t.Fatalf("StartReset returned error: %v", err)
	}

	*clock = clock.Add(5*time.Minute + time.Second)

	// correct code, expired window
	_, err := m.VerifyReset(sess, "555555")
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindExpired {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestVerifyResetMismatchAndSuccess(t *testing.T) {
	m, sess, _, _ := resetFixture(t, true)

	if _, err := m.StartReset(context.Background(), sess, "ravi@example.com"); err != nil {
		t.Fatalf("StartReset returned error: %v", err)
	}

	_, err := m.VerifyReset(sess, "000000")
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindInvalidCode {
		t.Fatalf("expected invalid code error, got %v", err)
	}

	res, err := m.VerifyReset(sess, "555555")
	if err != nil {
		t.Fatalf("VerifyReset returned error: %v", err)
	}
	if res.Redirect != "/reset-password" {
		t.Fatalf("expected /reset-password redirect, got %q", res.Redirect)
	}
}

func TestVerifyResetLeavesChallengeReplayable(t *testing.T) {
	m, sess, _, _ := resetFixture(t, true)

	if _, err := m.StartReset(context.Background(), sess, "ravi@example.com"); err != nil {
		t.Fatalf("StartReset returned error: %v", err)
	}
	if _, err := m.VerifyReset(sess, "555555"); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}

	// the challenge is not consumed on success; a second submit of the
	// same code inside the window still passes
	if _, err := m.VerifyReset(sess, "555555"); err != nil {
		t.Fatalf("expected replay to pass within the window, got %v", err)
	}
}

func TestResendResetCooldown(t *testing.T) {
	m, sess, _, clock := resetFixture(t, true)

	if _, err := m.StartReset(context.Background(), sess, "ravi@example.com"); err != nil {
		t.Fatalf("StartReset returned error: %v", err)
	}

	// immediately after issue the full window remains
	_, err := m.ResendReset(context.Background(), sess)
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindRateLimited {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if !strings.Contains(verr.Message, "minute") {
		t.Fatalf("expected wait estimate in message, got %q", verr.Message)
	}

	stored, _ := sess.Get("reset.challenge")
	if stored.(PendingReset).Code != "555555" {
		t.Fatal("rate-limited resend must not change the stored code")
	}

	// cross into the last 30 seconds of the window
	*clock = clock.Add(4*time.Minute + 31*time.Second)

	oldExpiry := stored.(PendingReset).ExpiresAt
	if _, err := m.ResendReset(context.Background(), sess); err != nil {
		t.Fatalf("ResendReset after cooldown returned error: %v", err)
	}

	stored, _ = sess.Get("reset.challenge")
	reissued := stored.(PendingReset)
	if reissued.Code != "666666" {
		t.Fatalf("expected reissued code, got %q", reissued.Code)
	}
	if !reissued.ExpiresAt.After(oldExpiry) {
		t.Fatal("expected new expiry strictly later than the old one")
	}
}

func TestResendResetWithoutChallenge(t *testing.T) {
	m, sess, _, _ := resetFixture(t, true)

	_, err := m.ResendReset(context.Background(), sess)
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindSessionExpired {
		t.Fatalf("expected session expired error, got %v", err)
	}
}

func TestResetPasswordMismatch(t *testing.T) {
	m, sess, _, _ := resetFixture(t, true)

	_, err := m.ResetPassword(context.Background(), sess, "newpassword", "different")
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindMismatch {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestResetPasswordUpdatesHash(t *testing.T) {
	m, sess, accounts, _ := resetFixture(t, true)

	if _, err := m.StartReset(context.Background(), sess, "ravi@example.com"); err != nil {
		t.Fatalf("StartReset returned error: %v", err)
	}
	if _, err := m.VerifyReset(sess, "555555"); err != nil {
		t.Fatalf("VerifyReset returned error: %v", err)
	}

	res, err := m.ResetPassword(context.Background(), sess, "freshsecret", "freshsecret")
	if err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}

	hash := accounts.users["ravi@example.com"].PasswordHash
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("freshsecret")); err != nil {
		t.Fatal("updated hash does not verify against the new password")
	}
}

func TestResetPasswordAccountGone(t *testing.T) {
	m, sess, accounts, _ := resetFixture(t, true)

	if _, err := m.StartReset(context.Background(), sess, "ravi@example.com"); err != nil {
		t.Fatalf("StartReset returned error: %v", err)
	}
	delete(accounts.users, "ravi@example.com")

	_, err := m.ResetPassword(context.Background(), sess, "freshsecret", "freshsecret")
	verr, ok := err.(*Error)
	if !ok || verr.Kind != KindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
