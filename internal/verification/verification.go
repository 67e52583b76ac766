// Package verification drives the two OTP challenge/response flows:
// signup (email ownership proven before the account is persisted) and
// password reset (time-boxed code with a resend cooldown).
//
// Challenge state lives in the caller's session store as typed values under
// namespaced keys, so an OTP submission with no issued challenge is a typed
// lookup miss rather than a nil probe. Note the asymmetry: the reset
// challenge expires after five minutes, the signup challenge only dies by
// being overwritten or with the session.
package verification

import (
	"context"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"backend/internal/mailer"
	"backend/internal/models"
	"backend/internal/otp"
	"backend/internal/session"
)

const (
	keySignupPending = "signup.pending"
	keySignupCode    = "signup.code"
	keyResetPending  = "reset.challenge"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// PendingRegistration is the signup challenge held in the session between
// code issue and verification. The password is already hashed; the plaintext
// never outlives the submit request.
type PendingRegistration struct {
	FullName     string
	Phone        string
	Email        string
	PasswordHash string
}

// PendingReset is the password-reset challenge: code, target email and the
// absolute expiry of the five-minute window.
type PendingReset struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

// SignupInput carries the raw signup form fields.
type SignupInput struct {
	FullName string
	Phone    string
	Email    string
	Password string
}

// Result is the success shape every flow step returns.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// AccountStore is the persistence contract the flows need from the user
// collection.
type AccountStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// UpdatePasswordByEmail reports whether an account matched.
	UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) (bool, error)
}

// Machine wires the collaborators together. It holds no per-visitor state;
// everything transient lives in the session.Store passed to each step.
type Machine struct {
	codes        otp.CodeSource
	mail         mailer.Sender
	accounts     AccountStore
	resetTTL     time.Duration
	resendWindow time.Duration
	now          func() time.Time
}

func NewMachine(codes otp.CodeSource, mail mailer.Sender, accounts AccountStore) *Machine {
	return &Machine{
		codes:        codes,
		mail:         mail,
		accounts:     accounts,
		resetTTL:     5 * time.Minute,
		resendWindow: 30 * time.Second,
		now:          time.Now,
	}
}

// WithWindows overrides the reset expiry and resend cooldown.
func (m *Machine) WithWindows(resetTTL, resendWindow time.Duration) *Machine {
	m.resetTTL = resetTTL
	m.resendWindow = resendWindow
	return m
}

// WithClock overrides the time source, used by tests to cross the expiry
// and cooldown boundaries without sleeping.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

/* =========================
   SIGNUP FLOW
========================= */

// StartSignup validates the form, checks for a duplicate account and issues
// the signup challenge. A failed delivery is a soft failure: the challenge
// is still written so a resend can pick it up.
func (m *Machine) StartSignup(ctx context.Context, sess session.Store, in SignupInput) (Result, error) {
	if err := validateSignup(in); err != nil {
		return Result{}, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	exists, err := m.accounts.EmailExists(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("email lookup: %w", err)
	}
	if exists {
		return Result{}, failure(KindConflict, "User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("password hash: %w", err)
	}

	code := m.codes.Generate()
	accepted := m.mail.Send(email, code)

	// a new attempt overwrites any prior pending challenge
	sess.Set(keySignupPending, PendingRegistration{
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		Email:        email,
		PasswordHash: string(hash),
	})
	sess.Set(keySignupCode, code)

	// dev logging only, codes must not reach production logs
	log.Printf("[VERIFY] [DEBUG] signup code issued email=%s code=%s", email, code)

	if !accepted {
		return Result{Success: false, Message: "Failed to send verification email"}, nil
	}

	return Result{Success: true, Message: "OTP sent to your email", Redirect: "/verify-otp"}, nil
}

// VerifySignup compares the submitted code against the session's issued
// code and, on a match, converts the pending challenge into a persisted
// account. A mismatch preserves the challenge for a retry.
func (m *Machine) VerifySignup(ctx context.Context, sess session.Store, code string) (Result, error) {
	storedValue, ok := sess.Get(keySignupCode)
	stored, isString := storedValue.(string)
	if !ok || !isString {
		return Result{}, failure(KindSessionExpired, "Session expired, please sign up again")
	}

	submitted := strings.TrimSpace(code)
	log.Printf("[VERIFY] [DEBUG] signup compare submitted=%s stored=%s", submitted, stored)

	if submitted != stored {
		return Result{}, failure(KindInvalidCode, "Invalid OTP, please try again")
	}

	pendingValue, ok := sess.Get(keySignupPending)
	pending, isPending := pendingValue.(PendingRegistration)
	if !ok || !isPending {
		return Result{}, failure(KindSessionExpired, "Session expired, please sign up again")
	}

	now := m.now()
	user := &models.User{
		FullName:     pending.FullName,
		Email:        pending.Email,
		Phone:        pending.Phone,
		PasswordHash: pending.PasswordHash,
		Addresses:    []models.Address{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.accounts.Create(ctx, user); err != nil {
		return Result{}, fmt.Errorf("create account: %w", err)
	}

	sess.Delete(keySignupPending)
	sess.Delete(keySignupCode)

	log.Println("[VERIFY] [INFO] signup verified:", pending.Email)
	return Result{Success: true, Message: "Account verified", Redirect: "/login"}, nil
}

// ResendSignup reissues the signup code for an existing pending challenge.
func (m *Machine) ResendSignup(ctx context.Context, sess session.Store) (Result, error) {
	pendingValue, ok := sess.Get(keySignupPending)
	pending, isPending := pendingValue.(PendingRegistration)
	if !ok || !isPending {
		return Result{}, failure(KindSessionExpired, "Session expired, please sign up again")
	}

	code := m.codes.Generate()
	accepted := m.mail.Send(pending.Email, code)
	sess.Set(keySignupCode, code)

	log.Printf("[VERIFY] [DEBUG] signup code reissued email=%s code=%s", pending.Email, code)

	if !accepted {
		return Result{Success: false, Message: "Failed to send verification email"}, nil
	}

	return Result{Success: true, Message: "OTP resent to your email"}, nil
}

/* =========================
   PASSWORD RESET FLOW
========================= */

// StartReset issues a time-boxed reset challenge for a known account.
func (m *Machine) StartReset(ctx context.Context, sess session.Store, email string) (Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := m.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("email lookup: %w", err)
	}
	if user == nil {
		return Result{}, failure(KindNotFound, "User not found")
	}

	code := m.codes.Generate()
	sess.Set(keyResetPending, PendingReset{
		Email:     email,
		Code:      code,
		ExpiresAt: m.now().Add(m.resetTTL),
	})

	log.Printf("[VERIFY] [DEBUG] reset code issued email=%s code=%s", email, code)

	if !m.mail.Send(email, code) {
		return Result{}, failure(KindDelivery, "Failed to send OTP email")
	}

	return Result{Success: true, Message: "OTP sent to your email", Redirect: "/forgot-password/verify"}, nil
}

// VerifyReset checks expiry before the code itself. On success the challenge
// stays in the session: ResetPassword still reads the target email from it.
func (m *Machine) VerifyReset(sess session.Store, code string) (Result, error) {
	pendingValue, ok := sess.Get(keyResetPending)
	pending, isPending := pendingValue.(PendingReset)
	if !ok || !isPending {
		return Result{}, failure(KindSessionExpired, "Session expired, please try again")
	}

	if m.now().After(pending.ExpiresAt) {
		return Result{}, failure(KindExpired, "OTP has expired, please request a new one")
	}

	submitted := strings.TrimSpace(code)
	log.Printf("[VERIFY] [DEBUG] reset compare submitted=%s stored=%s", submitted, pending.Code)

	if submitted != pending.Code {
		return Result{}, failure(KindInvalidCode, "Invalid OTP, please try again")
	}

	return Result{Success: true, Message: "OTP verified", Redirect: "/reset-password"}, nil
}

// ResendReset reissues the reset code, but only once fewer than 30 seconds
// of the current window remain. A premature call reports the remaining wait
// in whole minutes.
func (m *Machine) ResendReset(ctx context.Context, sess session.Store) (Result, error) {
	pendingValue, ok := sess.Get(keyResetPending)
	pending, isPending := pendingValue.(PendingReset)
	if !ok || !isPending || pending.Email == "" {
		return Result{}, failure(KindSessionExpired, "Session expired, please try again")
	}

	remaining := pending.ExpiresAt.Sub(m.now())
	if remaining > m.resendWindow {
		wait := int(math.Ceil((remaining - m.resendWindow).Minutes()))
		if wait < 1 {
			wait = 1
		}
		return Result{}, failure(KindRateLimited,
			fmt.Sprintf("Please wait %d minute(s) before requesting a new OTP", wait))
	}

	code := m.codes.Generate()
	sess.Set(keyResetPending, PendingReset{
		Email:     pending.Email,
		Code:      code,
		ExpiresAt: m.now().Add(m.resetTTL),
	})

	log.Printf("[VERIFY] [DEBUG] reset code reissued email=%s code=%s", pending.Email, code)

	if !m.mail.Send(pending.Email, code) {
		return Result{}, failure(KindDelivery, "Failed to send OTP email")
	}

	return Result{Success: true, Message: "OTP resent to your email"}, nil
}

// ResetPassword persists a new password for the account named by the reset
// challenge still held in the session.
func (m *Machine) ResetPassword(ctx context.Context, sess session.Store, newPassword, confirmPassword string) (Result, error) {
	if newPassword != confirmPassword {
		return Result{}, failure(KindMismatch, "Passwords do not match")
	}

	pendingValue, ok := sess.Get(keyResetPending)
	pending, isPending := pendingValue.(PendingReset)
	if !ok || !isPending || pending.Email == "" {
		return Result{}, failure(KindSessionExpired, "Session expired, please try again")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("password hash: %w", err)
	}

	matched, err := m.accounts.UpdatePasswordByEmail(ctx, pending.Email, string(hash))
	if err != nil {
		return Result{}, fmt.Errorf("update password: %w", err)
	}
	if !matched {
		return Result{}, failure(KindNotFound, "User not found")
	}

	log.Println("[VERIFY] [INFO] password reset:", pending.Email)
	return Result{Success: true, Message: "Password updated", Redirect: "/login"}, nil
}

/* =========================
   VALIDATION
========================= */

// validateSignup reports the first violated rule, in form order.
func validateSignup(in SignupInput) *Error {
	if len(strings.TrimSpace(in.FullName)) < 4 {
		return failure(KindValidation, "Name must be at least 4 characters")
	}
	if !emailPattern.MatchString(strings.TrimSpace(in.Email)) {
		return failure(KindValidation, "Invalid email address")
	}
	if len(in.Password) < 8 {
		return failure(KindValidation, "Password must be at least 8 characters")
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return failure(KindValidation, "Phone number is required")
	}
	if !phonePattern.MatchString(phone) {
		return failure(KindValidation, "Enter a valid 10-digit phone number")
	}
	return nil
}
