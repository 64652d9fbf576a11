// Package auth implements the single-active-session authority for the admin
// identity: credential checks, session token issue and rotation, the rotating
// routing slug that masks the console URL namespace, and the perimeter gate.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skillbridge/console/internal/domain"
	"github.com/skillbridge/console/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// RevalidateInterval is how often an open console polls Revalidate.
const RevalidateInterval = 30 * time.Second

// VaultPrefix is the masked URL namespace; the first path segment after it is
// the routing slug.
const VaultPrefix = "/vault/"

// Authority owns the session and routing-slug lifecycle. The server-side
// session table is the single source of truth; the cookie and any client-held
// token are caches reconciled against it.
type Authority struct {
	db         repository.DBTX
	profiles   repository.ProfileRepository
	sessions   repository.SessionRepository
	audits     repository.AuditRepository
	cookies    *CookieSigner
	adminEmail string
	subdomain  string
	logger     *slog.Logger
}

// NewAuthority creates the session authority for the single authorized admin email.
func NewAuthority(
	db repository.DBTX,
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
	audits repository.AuditRepository,
	cookies *CookieSigner,
	adminEmail, subdomain string,
	logger *slog.Logger,
) *Authority {
	return &Authority{
		db:         db,
		profiles:   profiles,
		sessions:   sessions,
		audits:     audits,
		cookies:    cookies,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		subdomain:  subdomain,
		logger:     logger,
	}
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	SourceIP  string `json:"-"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	SessionToken string       `json:"session_token"`
	RoutingSlug  string       `json:"routing_slug"`
	RedirectTo   string       `json:"redirect_to"`
	SlugCookie   *http.Cookie `json:"-"`
}

// Login authenticates the admin and makes this device the single active
// session. Last writer wins: whichever login completes its deactivate-insert-
// rewrite sequence last becomes authoritative; other devices self-evict on
// their next revalidation poll.
func (a *Authority) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := domain.ValidateEmail(email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if email != a.adminEmail {
		return nil, domain.ErrUnauthorized("this email is not authorized")
	}

	if err := CheckLocked(ctx, a.db, email); err != nil {
		return nil, err
	}

	profile, err := a.profiles.FindByEmail(ctx, a.db, email)
	if err != nil {
		return nil, domain.ErrInternal("find profile", err)
	}
	if profile == nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(input.Password)); err != nil {
		RecordAttempt(ctx, a.db, email, input.SourceIP, false)
		a.appendAudit(ctx, domain.EventLoginFailed, &profile.ID, input, nil)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	token := NewSessionToken()
	slug, err := NewRoutingSlug()
	if err != nil {
		return nil, domain.ErrInternal("generate slug", err)
	}

	// Replace the active session, then rewrite the slug. Both are full
	// overwrites, so no read-modify-write transaction is needed.
	session := &domain.Session{
		ID:         uuid.New(),
		Token:      token,
		IdentityID: profile.ID,
		UserAgent:  input.UserAgent,
		Active:     true,
	}
	if err := a.sessions.Activate(ctx, a.db, session); err != nil {
		return nil, domain.ErrInternal("activate session", err)
	}
	if err := a.profiles.UpdateSlug(ctx, a.db, profile.ID, slug); err != nil {
		return nil, domain.ErrInternal("update slug", err)
	}

	RecordAttempt(ctx, a.db, email, input.SourceIP, true)
	a.appendAudit(ctx, domain.EventLoginSuccess, &profile.ID, input, map[string]interface{}{
		"session_slug": slug,
	})

	cookie, err := a.cookies.Issue(slug)
	if err != nil {
		return nil, domain.ErrInternal("issue cookie", err)
	}

	return &LoginResult{
		SessionToken: token,
		RoutingSlug:  slug,
		RedirectTo:   VaultPrefix + slug + "/dashboard",
		SlugCookie:   cookie,
	}, nil
}

// Revalidation is the outcome of a revalidation poll. PollAfter tells the
// console when to poll next, so the cadence is dictated server-side.
type Revalidation struct {
	State     domain.RevalidationState `json:"state"`
	Slug      string                   `json:"slug,omitempty"`
	PollAfter int                      `json:"poll_after_seconds"`
}

// Revalidate checks whether localToken is still the newest active session. A
// differing token is not an error but a takeover signal: the stale session is
// force-signed-out server-side and the caller clears local state and redirects.
func (a *Authority) Revalidate(ctx context.Context, localToken string) (Revalidation, error) {
	rv, err := a.revalidate(ctx, localToken)
	if err != nil {
		return rv, err
	}
	rv.PollAfter = int(RevalidateInterval / time.Second)
	return rv, nil
}

func (a *Authority) revalidate(ctx context.Context, localToken string) (Revalidation, error) {
	if localToken == "" {
		return Revalidation{State: domain.RevalidationUnauthenticated}, nil
	}

	profile, err := a.profiles.FindByEmail(ctx, a.db, a.adminEmail)
	if err != nil {
		return Revalidation{}, domain.ErrInternal("find profile", err)
	}
	if profile == nil {
		return Revalidation{State: domain.RevalidationUnauthenticated}, nil
	}

	newest, err := a.sessions.NewestActive(ctx, a.db, profile.ID)
	if err != nil {
		return Revalidation{}, domain.ErrInternal("find newest session", err)
	}
	if newest == nil {
		return Revalidation{State: domain.RevalidationUnauthenticated}, nil
	}

	if newest.Token != localToken {
		a.logger.Warn("session invalidated by another device")
		if err := a.sessions.DeactivateByToken(ctx, a.db, localToken); err != nil {
			a.logger.Error("deactivate stale session failed", "error", err)
		}
		return Revalidation{State: domain.RevalidationInvalidated}, nil
	}

	return Revalidation{State: domain.RevalidationValid, Slug: profile.CurrentSessionSlug}, nil
}

// PathDecision is the outcome of reconciling a navigation path against the
// profile slug.
type PathDecision struct {
	RedirectTo string // non-empty when the caller should be redirected
	Denied     bool   // true when no safe correction target exists
}

// CorrectPath reconciles the slug embedded in navPath with the authoritative
// profile slug. A mismatch redirects to the corrected path; an absent binding
// denies access outright since there is no safe correction target.
func CorrectPath(navPath, profileSlug string) PathDecision {
	if profileSlug == "" {
		return PathDecision{Denied: true}
	}

	if navPath == "/" || navPath == "/auth" {
		return PathDecision{RedirectTo: VaultPrefix + profileSlug + "/dashboard"}
	}

	if strings.HasPrefix(navPath, VaultPrefix) {
		rest := strings.TrimPrefix(navPath, VaultPrefix)
		parts := strings.SplitN(rest, "/", 2)
		urlSlug := parts[0]
		if urlSlug == "" {
			return PathDecision{RedirectTo: VaultPrefix + profileSlug + "/dashboard"}
		}
		if urlSlug != profileSlug {
			corrected := VaultPrefix + profileSlug
			if len(parts) == 2 {
				corrected += "/" + parts[1]
			}
			return PathDecision{RedirectTo: corrected}
		}
	}

	return PathDecision{}
}

// CheckPath loads the authoritative slug and reconciles navPath against it.
func (a *Authority) CheckPath(ctx context.Context, navPath string) (PathDecision, error) {
	profile, err := a.profiles.FindByEmail(ctx, a.db, a.adminEmail)
	if err != nil {
		return PathDecision{}, domain.ErrInternal("find profile", err)
	}
	var slug string
	if profile != nil {
		slug = profile.CurrentSessionSlug
	}
	return CorrectPath(navPath, slug), nil
}

// RotateSlug forces a new routing slug for the admin identity, used by the
// security console after an incident. fromSlug is the caller's verified cookie
// slug and lands in the audit trail so the rotation can be traced back to the
// namespace that issued it. Returns the new slug and its cookie.
func (a *Authority) RotateSlug(ctx context.Context, fromSlug string) (string, *http.Cookie, error) {
	profile, err := a.profiles.FindByEmail(ctx, a.db, a.adminEmail)
	if err != nil {
		return "", nil, domain.ErrInternal("find profile", err)
	}
	if profile == nil {
		return "", nil, domain.ErrNotFound("profile", a.adminEmail)
	}

	slug, err := NewRoutingSlug()
	if err != nil {
		return "", nil, domain.ErrInternal("generate slug", err)
	}
	if err := a.profiles.UpdateSlug(ctx, a.db, profile.ID, slug); err != nil {
		return "", nil, domain.ErrInternal("update slug", err)
	}

	meta := map[string]interface{}{"session_slug": slug}
	if fromSlug != "" {
		meta["rotated_from"] = fromSlug
	}
	a.appendAudit(ctx, domain.EventSlugRotated, &profile.ID, LoginInput{}, meta)

	cookie, err := a.cookies.Issue(slug)
	if err != nil {
		return "", nil, domain.ErrInternal("issue cookie", err)
	}
	return slug, cookie, nil
}

// SignOut deactivates the session for localToken and returns the clearing cookie.
func (a *Authority) SignOut(ctx context.Context, localToken string) (*http.Cookie, error) {
	if localToken != "" {
		if err := a.sessions.DeactivateByToken(ctx, a.db, localToken); err != nil {
			return nil, domain.ErrInternal("deactivate session", err)
		}
	}
	return a.cookies.Expire(), nil
}

// appendAudit writes a login-lifecycle audit event. Best-effort: audit write
// failure is logged, never propagated into the auth flow.
func (a *Authority) appendAudit(ctx context.Context, eventType domain.EventType, identityID *uuid.UUID, input LoginInput, meta map[string]interface{}) {
	event := &domain.AuditEvent{
		ID:               uuid.New(),
		Subdomain:        a.subdomain,
		EventType:        eventType,
		IdentityID:       identityID,
		IPAddress:        input.SourceIP,
		UserAgent:        input.UserAgent,
		Country:          "Unknown",
		Metadata:         repository.MarshalMetadata(meta),
		ResolutionStatus: domain.ResolutionOpen,
	}
	if err := a.audits.Insert(ctx, a.db, event); err != nil {
		a.logger.Error("audit insert failed", "event_type", eventType, "error", err)
	}
}
