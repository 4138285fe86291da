package praetor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	praetor "github.com/praetorhq/praetor"
	"github.com/praetorhq/praetor/acl"
	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/session"
	"github.com/praetorhq/praetor/store/memory"
	"github.com/praetorhq/praetor/token"
	"github.com/praetorhq/praetor/user"
)

func newTestGuard(t *testing.T) (*praetor.Guard, *memory.Store, *token.HS256) {
	t.Helper()
	st := memory.New()
	verifier := token.NewHS256([]byte("test-secret"), time.Hour)
	g, err := praetor.NewGuard(
		praetor.WithStore(st),
		praetor.WithVerifier(verifier),
	)
	if err != nil {
		t.Fatalf("NewGuard failed: %v", err)
	}
	return g, st, verifier
}

// seedActor creates an active user holding permissionCode through a role
// named roleName.
func seedActor(t *testing.T, st *memory.Store, roleName, permissionCode string) *praetor.AuthContext {
	t.Helper()
	ctx := context.Background()
	userID := id.NewUserID()
	roleID := id.NewRoleID()
	permID := id.NewPermissionID()

	if err := st.CreateUser(ctx, &user.User{ID: userID, Name: "Test User", Active: true}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := st.CreateRole(ctx, &role.Role{ID: roleID, Name: roleName}); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if err := st.CreatePermission(ctx, &permission.Permission{ID: permID, Code: permissionCode}); err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	if err := st.AssignRole(ctx, &role.Membership{UserID: userID, RoleID: roleID, Active: true}); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	if err := st.GrantPermission(ctx, roleID, permID); err != nil {
		t.Fatalf("GrantPermission failed: %v", err)
	}
	return &praetor.AuthContext{UserID: userID, SessionID: id.NewSessionID()}
}

func denyEntry(t *testing.T, st *memory.Store, actor *praetor.AuthContext, code string) *acl.Entry {
	t.Helper()
	p, err := st.GetPermissionByCode(context.Background(), code)
	if err != nil || p == nil {
		t.Fatalf("permission %q missing: %v", code, err)
	}
	e := &acl.Entry{
		ID:           id.NewACLEntryID(),
		UserID:       actor.UserID,
		PermissionID: p.ID,
		Effect:       acl.EffectDeny,
		Active:       true,
	}
	if err := st.CreateEntry(context.Background(), e); err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}
	return e
}

func TestAuthenticate(t *testing.T) {
	g, st, verifier := newTestGuard(t)
	ctx := context.Background()

	userID := id.NewUserID()
	st.CreateUser(ctx, &user.User{ID: userID, Name: "Alice", Email: "alice@example.com", Active: true})

	credential, err := verifier.Issue(userID.String(), "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	sessID := id.NewSessionID()
	st.CreateSession(ctx, &session.Session{
		ID: sessID, UserID: userID, Token: credential,
		Active: true, ExpiresAt: time.Now().Add(time.Hour),
	})

	ac, err := g.Authenticate(ctx, credential)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if ac.UserID.String() != userID.String() {
		t.Errorf("UserID = %s", ac.UserID)
	}
	if ac.Name != "Alice" || ac.Email != "alice@example.com" {
		t.Errorf("identity = %q %q", ac.Name, ac.Email)
	}
	if ac.SessionID.String() != sessID.String() {
		t.Errorf("SessionID = %s", ac.SessionID)
	}
	if ac.Impersonated() {
		t.Error("unexpected impersonation")
	}
}

func TestAuthenticateFailures(t *testing.T) {
	g, st, verifier := newTestGuard(t)
	ctx := context.Background()

	t.Run("no credential", func(t *testing.T) {
		_, err := g.Authenticate(ctx, "")
		if !errors.Is(err, praetor.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential, got %v", err)
		}
		if praetor.ErrorCode(err) != "NO_TOKEN" {
			t.Errorf("code = %s", praetor.ErrorCode(err))
		}
	})

	t.Run("garbage credential", func(t *testing.T) {
		_, err := g.Authenticate(ctx, "not-a-token")
		if !errors.Is(err, praetor.ErrInvalidCredential) {
			t.Errorf("expected ErrInvalidCredential, got %v", err)
		}
	})

	t.Run("expired credential", func(t *testing.T) {
		expiredIssuer := token.NewHS256([]byte("test-secret"), -time.Minute)
		credential, _ := expiredIssuer.Issue(id.NewUserID().String(), "", "")
		_, err := g.Authenticate(ctx, credential)
		if !errors.Is(err, praetor.ErrExpiredCredential) {
			t.Errorf("expected ErrExpiredCredential, got %v", err)
		}
		if praetor.ErrorCode(err) != "TOKEN_EXPIRED" {
			t.Errorf("code = %s", praetor.ErrorCode(err))
		}
	})

	t.Run("valid token without session", func(t *testing.T) {
		credential, _ := verifier.Issue(id.NewUserID().String(), "", "")
		_, err := g.Authenticate(ctx, credential)
		if !errors.Is(err, praetor.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("invalidated session", func(t *testing.T) {
		userID := id.NewUserID()
		st.CreateUser(ctx, &user.User{ID: userID, Active: true})
		credential, _ := verifier.Issue(userID.String(), "", "")
		sessID := id.NewSessionID()
		st.CreateSession(ctx, &session.Session{
			ID: sessID, UserID: userID, Token: credential,
			Active: true, ExpiresAt: time.Now().Add(time.Hour),
		})
		st.InvalidateSession(ctx, sessID)

		_, err := g.Authenticate(ctx, credential)
		if !errors.Is(err, praetor.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		userID := id.NewUserID()
		st.CreateUser(ctx, &user.User{ID: userID, Active: true})
		credential, _ := verifier.Issue(userID.String(), "", "")
		st.CreateSession(ctx, &session.Session{
			ID: id.NewSessionID(), UserID: userID, Token: credential,
			Active: true, ExpiresAt: time.Now().Add(time.Hour),
		})
		st.SetUserActive(ctx, userID, false)

		_, err := g.Authenticate(ctx, credential)
		if !errors.Is(err, praetor.ErrUserInactive) {
			t.Errorf("expected ErrUserInactive, got %v", err)
		}
		if praetor.ErrorCode(err) != "USER_INACTIVE" {
			t.Errorf("code = %s", praetor.ErrorCode(err))
		}
	})
}

func TestAuthorizeAllowedByRole(t *testing.T) {
	g, st, _ := newTestGuard(t)
	actor := seedActor(t, st, "Editor", "reports.read")

	d, err := g.Authorize(context.Background(), actor, "reports.read", nil, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Code != praetor.DecisionAllow {
		t.Fatalf("decision = %+v", d)
	}
	if d.Provenance != "Editor" {
		t.Errorf("Provenance = %q, want Editor", d.Provenance)
	}
}

func TestAuthorizeAllowedByACL(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()

	userID := id.NewUserID()
	permID := id.NewPermissionID()
	st.CreateUser(ctx, &user.User{ID: userID, Active: true})
	st.CreatePermission(ctx, &permission.Permission{ID: permID, Code: "reports.export"})
	st.CreateEntry(ctx, &acl.Entry{
		ID: id.NewACLEntryID(), UserID: userID, PermissionID: permID,
		Effect: acl.EffectAllow, Active: true,
	})
	actor := &praetor.AuthContext{UserID: userID}

	d, err := g.Authorize(ctx, actor, "reports.export", nil, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("decision = %+v", d)
	}
	if d.Provenance != permission.OriginACL {
		t.Errorf("Provenance = %q, want ACL", d.Provenance)
	}
}

func TestAuthorizePermissionDenied(t *testing.T) {
	g, st, _ := newTestGuard(t)
	actor := seedActor(t, st, "Editor", "reports.read")

	d, err := g.Authorize(context.Background(), actor, "users.delete", nil, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Code != praetor.DecisionPermissionDenied {
		t.Fatalf("decision = %+v", d)
	}
	if d.Code.WireCode() != "PERMISSION_DENIED" {
		t.Errorf("wire code = %s", d.Code.WireCode())
	}
}

func TestACLDenyOverridesEverything(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")

	// Role grants it, an allow policy would match, and yet the deny entry
	// wins.
	st.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "open-allow",
		Effect: policy.EffectAllow, Priority: 10, IsActive: true,
	})
	denyEntry(t, st, actor, "reports.read")

	d, err := g.Authorize(ctx, actor, "reports.read", map[string]any{"check": true}, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Code != praetor.DecisionACLDenied {
		t.Fatalf("decision = %+v", d)
	}
}

func TestACLDenyDeactivationRestoresAccess(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")
	entry := denyEntry(t, st, actor, "reports.read")

	d, _ := g.Authorize(ctx, actor, "reports.read", nil, praetor.RequestMeta{})
	if d.Allowed {
		t.Fatal("expected deny")
	}

	st.SetEntryActive(ctx, entry.ID, false)
	d, _ = g.Authorize(ctx, actor, "reports.read", nil, praetor.RequestMeta{})
	if !d.Allowed || d.Provenance != "Editor" {
		t.Fatalf("decision after deactivation = %+v", d)
	}
}

func TestPoliciesSkippedWithoutRules(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")

	// A catch-all deny policy exists but no rules were supplied, so it is
	// never consulted.
	st.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "deny-all",
		Effect: policy.EffectDeny, Priority: 1, IsActive: true,
	})

	d, err := g.Authorize(ctx, actor, "reports.read", nil, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("decision = %+v", d)
	}
}

func TestZeroPoliciesNeverBlock(t *testing.T) {
	g, st, _ := newTestGuard(t)
	actor := seedActor(t, st, "Editor", "reports.read")

	d, err := g.Authorize(context.Background(), actor, "reports.read",
		map[string]any{"anything": 1}, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("decision = %+v", d)
	}
}

func TestNoMatchingPolicyDenies(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")
	st.UpdateUserAttributes(ctx, actor.UserID, map[string]any{"departamento": "RH"})

	st.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "ti-only",
		Effect: policy.EffectAllow, Priority: 10, IsActive: true,
		Conditions: []policy.Condition{
			{Attribute: "departamento", Operator: policy.OpEquals, Value: "TI"},
		},
	})

	d, err := g.Authorize(ctx, actor, "reports.read", map[string]any{"check": true}, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Code != praetor.DecisionABACDenied {
		t.Fatalf("decision = %+v", d)
	}
}

func TestPolicyPriorityFirstMatchWins(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()

	// Priority 10 allows TI, priority 1 denies everyone else.
	seed := func(dept string) *praetor.AuthContext {
		actor := seedActor(t, st, "Analyst-"+dept, "reports.read")
		st.UpdateUserAttributes(ctx, actor.UserID, map[string]any{"departamento": dept})
		return actor
	}
	st.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "ti-allow",
		Effect: policy.EffectAllow, Priority: 10, IsActive: true,
		Conditions: []policy.Condition{
			{Attribute: "departamento", Operator: policy.OpEquals, Value: "TI"},
		},
	})
	st.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "catch-all-deny",
		Effect: policy.EffectDeny, Priority: 1, IsActive: true,
	})

	rules := map[string]any{"check": true}

	ti := seed("TI")
	d, err := g.Authorize(ctx, ti, "reports.read", rules, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Policy != "ti-allow" {
		t.Fatalf("TI decision = %+v", d)
	}

	rh := seed("RH")
	d, err = g.Authorize(ctx, rh, "reports.read", rules, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Code != praetor.DecisionABACDenied {
		t.Fatalf("RH decision = %+v", d)
	}
	if d.Policy != "catch-all-deny" {
		t.Errorf("Policy = %q", d.Policy)
	}
}

func TestCallerRulesShadowStoredAttributes(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")
	st.UpdateUserAttributes(ctx, actor.UserID, map[string]any{"departamento": "RH"})

	st.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "ti-only",
		Effect: policy.EffectAllow, Priority: 10, IsActive: true,
		Conditions: []policy.Condition{
			{Attribute: "departamento", Operator: policy.OpEquals, Value: "TI"},
		},
	})

	d, err := g.Authorize(ctx, actor, "reports.read",
		map[string]any{"departamento": "TI"}, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("decision = %+v", d)
	}
}

func TestMalformedRegexPolicySkipped(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")
	st.UpdateUserAttributes(ctx, actor.UserID, map[string]any{"departamento": "TI"})

	// Broken pattern at higher priority must not match and must not stop
	// the walk.
	st.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "broken-regex",
		Effect: policy.EffectDeny, Priority: 20, IsActive: true,
		Conditions: []policy.Condition{
			{Attribute: "departamento", Operator: policy.OpRegex, Value: "[unclosed"},
		},
	})
	st.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "ti-allow",
		Effect: policy.EffectAllow, Priority: 10, IsActive: true,
		Conditions: []policy.Condition{
			{Attribute: "departamento", Operator: policy.OpEquals, Value: "TI"},
		},
	})

	d, err := g.Authorize(ctx, actor, "reports.read", map[string]any{"check": true}, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Policy != "ti-allow" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestDenialsAreAudited(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")
	denyEntry(t, st, actor, "reports.read")

	meta := praetor.RequestMeta{IP: "10.0.0.1", Path: "/v1/reports", Method: "GET"}
	d, err := g.Authorize(ctx, actor, "reports.read", nil, meta)
	if err != nil || d.Allowed {
		t.Fatalf("expected deny, got (%+v, %v)", d, err)
	}

	entries, err := st.ListAuditEntries(ctx, audit.QueryFilter{UserID: &actor.UserID})
	if err != nil {
		t.Fatalf("ListAuditEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Outcome != audit.OutcomeDenied || e.Permission != "reports.read" {
		t.Errorf("entry = %+v", e)
	}
	if e.IP != "10.0.0.1" {
		t.Errorf("IP = %q", e.IP)
	}
	if e.Details["code"] != "ACL_DENIED" {
		t.Errorf("Details = %v", e.Details)
	}
}

func TestAllowedRequestsNotAuditedByAuthorize(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")

	if d, err := g.Authorize(ctx, actor, "reports.read", nil, praetor.RequestMeta{}); err != nil || !d.Allowed {
		t.Fatalf("expected allow, got (%+v, %v)", d, err)
	}

	count, _ := st.CountAuditEntries(ctx, audit.QueryFilter{UserID: &actor.UserID})
	if count != 0 {
		t.Errorf("expected no audit entries, got %d", count)
	}
}

type failingAuditStore struct {
	*memory.Store
}

func (s *failingAuditStore) CreateAuditEntry(context.Context, *audit.Entry) error {
	return errors.New("audit backend down")
}

func TestAuditFailureDoesNotAffectDecision(t *testing.T) {
	st := &failingAuditStore{Store: memory.New()}
	g, err := praetor.NewGuard(
		praetor.WithStore(st),
		praetor.WithVerifier(token.NewHS256([]byte("test-secret"), time.Hour)),
	)
	if err != nil {
		t.Fatalf("NewGuard failed: %v", err)
	}
	actor := seedActor(t, st.Store, "Editor", "reports.read")
	denyEntry(t, st.Store, actor, "reports.read")

	d, err := g.Authorize(context.Background(), actor, "reports.read", nil, praetor.RequestMeta{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Code != praetor.DecisionACLDenied {
		t.Fatalf("decision = %+v", d)
	}
}

func TestEnforce(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")

	if err := g.Enforce(ctx, actor, "reports.read", nil, praetor.RequestMeta{}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	err := g.Enforce(ctx, actor, "users.delete", nil, praetor.RequestMeta{})
	if !errors.Is(err, praetor.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

func TestHasRole(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")

	ok, err := g.HasRole(ctx, actor.UserID, "Editor")
	if err != nil || !ok {
		t.Errorf("HasRole(Editor) = (%v, %v)", ok, err)
	}
	ok, err = g.HasRole(ctx, actor.UserID, "Admin", "Editor")
	if err != nil || !ok {
		t.Errorf("HasRole(Admin, Editor) = (%v, %v)", ok, err)
	}
	ok, err = g.HasRole(ctx, actor.UserID, "Admin")
	if err != nil || ok {
		t.Errorf("HasRole(Admin) = (%v, %v)", ok, err)
	}
	ok, err = g.HasRole(ctx, actor.UserID)
	if err != nil || ok {
		t.Errorf("HasRole() = (%v, %v)", ok, err)
	}
}

func TestCanImpersonate(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()

	admin := seedActor(t, st, "Admin", "users.impersonate")
	plain := seedActor(t, st, "Viewer", "reports.read")

	ok, err := g.CanImpersonate(ctx, admin.UserID)
	if err != nil || !ok {
		t.Errorf("CanImpersonate(admin) = (%v, %v)", ok, err)
	}
	ok, err = g.CanImpersonate(ctx, plain.UserID)
	if err != nil || ok {
		t.Errorf("CanImpersonate(plain) = (%v, %v)", ok, err)
	}
}

func TestRecordAccess(t *testing.T) {
	g, st, _ := newTestGuard(t)
	ctx := context.Background()
	actor := seedActor(t, st, "Editor", "reports.read")

	g.RecordAccess(ctx, actor, "reports.view", "report:42",
		praetor.RequestMeta{IP: "10.0.0.1"}, map[string]any{"format": "pdf"})

	entries, err := st.ListAuditEntries(ctx, audit.QueryFilter{UserID: &actor.UserID})
	if err != nil {
		t.Fatalf("ListAuditEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Outcome != audit.OutcomeSuccess || e.Action != "reports.view" || e.Resource != "report:42" {
		t.Errorf("entry = %+v", e)
	}
}
