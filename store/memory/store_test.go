package memory

import (
	"context"
	"testing"
	"time"

	"github.com/praetorhq/praetor/acl"
	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/session"
	"github.com/praetorhq/praetor/user"
)

var testTime = time.Date(2024, 6, 10, 14, 30, 0, 0, time.UTC)

func newTestStore() *Store {
	return New()
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID := id.NewUserID()

	sess := &session.Session{
		ID:        id.NewSessionID(),
		UserID:    userID,
		Token:     "tok-1",
		Active:    true,
		CreatedAt: testTime,
		ExpiresAt: testTime.Add(time.Hour),
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := s.GetSessionByToken(ctx, "tok-1", testTime)
	if err != nil {
		t.Fatalf("GetSessionByToken failed: %v", err)
	}
	if got == nil || got.ID.String() != sess.ID.String() {
		t.Fatalf("unexpected session: %+v", got)
	}

	// Expired lookup misses.
	if got, _ := s.GetSessionByToken(ctx, "tok-1", testTime.Add(2*time.Hour)); got != nil {
		t.Error("expected nil for expired session")
	}

	if err := s.InvalidateSession(ctx, sess.ID); err != nil {
		t.Fatalf("InvalidateSession failed: %v", err)
	}
	if got, _ := s.GetSessionByToken(ctx, "tok-1", testTime); got != nil {
		t.Error("expected nil after invalidation")
	}
}

func TestInvalidateUserSessions(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID := id.NewUserID()

	for _, token := range []string{"a", "b", "c"} {
		s.CreateSession(ctx, &session.Session{
			ID:        id.NewSessionID(),
			UserID:    userID,
			Token:     token,
			Active:    true,
			ExpiresAt: testTime.Add(time.Hour),
		})
	}

	n, err := s.InvalidateUserSessions(ctx, userID)
	if err != nil {
		t.Fatalf("InvalidateUserSessions failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 invalidated, got %d", n)
	}
	for _, token := range []string{"a", "b", "c"} {
		if got, _ := s.GetSessionByToken(ctx, token, testTime); got != nil {
			t.Errorf("session %q still live", token)
		}
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.CreateSession(ctx, &session.Session{
		ID: id.NewSessionID(), UserID: id.NewUserID(),
		Token: "old", Active: true, ExpiresAt: testTime.Add(-time.Hour),
	})
	s.CreateSession(ctx, &session.Session{
		ID: id.NewSessionID(), UserID: id.NewUserID(),
		Token: "fresh", Active: true, ExpiresAt: testTime.Add(time.Hour),
	})

	n, err := s.DeleteExpiredSessions(ctx, testTime)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}
	if got, _ := s.GetSessionByToken(ctx, "fresh", testTime); got == nil {
		t.Error("fresh session should survive")
	}
}

// seedGrant creates a user with a role granting the permission code.
func seedGrant(t *testing.T, s *Store, roleName, code string) (id.UserID, id.PermissionID) {
	t.Helper()
	ctx := context.Background()
	userID := id.NewUserID()
	roleID := id.NewRoleID()
	permID := id.NewPermissionID()

	if err := s.CreateUser(ctx, &user.User{ID: userID, Name: "Test", Active: true}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := s.CreateRole(ctx, &role.Role{ID: roleID, Name: roleName}); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if err := s.CreatePermission(ctx, &permission.Permission{ID: permID, Code: code}); err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	if err := s.AssignRole(ctx, &role.Membership{UserID: userID, RoleID: roleID, Active: true}); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	if err := s.GrantPermission(ctx, roleID, permID); err != nil {
		t.Fatalf("GrantPermission failed: %v", err)
	}
	return userID, permID
}

func TestEffectiveGrantFromRole(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID, _ := seedGrant(t, s, "Editor", "reports.read")

	grant, err := s.GetEffectiveGrant(ctx, userID, "reports.read", testTime)
	if err != nil {
		t.Fatalf("GetEffectiveGrant failed: %v", err)
	}
	if grant == nil {
		t.Fatal("expected grant")
	}
	if grant.Origin != "Editor" {
		t.Errorf("Origin = %q, want Editor", grant.Origin)
	}
}

func TestEffectiveGrantFromACLAllow(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID := id.NewUserID()
	permID := id.NewPermissionID()

	s.CreateUser(ctx, &user.User{ID: userID, Active: true})
	s.CreatePermission(ctx, &permission.Permission{ID: permID, Code: "reports.export"})
	s.CreateEntry(ctx, &acl.Entry{
		ID: id.NewACLEntryID(), UserID: userID, PermissionID: permID,
		Effect: acl.EffectAllow, Active: true, CreatedAt: testTime,
	})

	grant, err := s.GetEffectiveGrant(ctx, userID, "reports.export", testTime)
	if err != nil {
		t.Fatalf("GetEffectiveGrant failed: %v", err)
	}
	if grant == nil {
		t.Fatal("expected grant")
	}
	if grant.Origin != permission.OriginACL {
		t.Errorf("Origin = %q, want %q", grant.Origin, permission.OriginACL)
	}
}

func TestEffectiveGrantRoleWinsOriginOverACL(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID, permID := seedGrant(t, s, "Editor", "reports.read")

	s.CreateEntry(ctx, &acl.Entry{
		ID: id.NewACLEntryID(), UserID: userID, PermissionID: permID,
		Effect: acl.EffectAllow, Active: true, CreatedAt: testTime,
	})

	grant, _ := s.GetEffectiveGrant(ctx, userID, "reports.read", testTime)
	if grant == nil || grant.Origin != "Editor" {
		t.Fatalf("expected role origin, got %+v", grant)
	}
}

func TestExpiredMembershipGrantsNothing(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID, permID := seedGrant(t, s, "Editor", "reports.read")
	_ = permID

	roleRec, _ := s.GetRoleByName(ctx, "Editor")
	past := testTime.Add(-time.Hour)
	s.AssignRole(ctx, &role.Membership{
		UserID: userID, RoleID: roleRec.ID, Active: true, EndsAt: &past,
	})

	grant, err := s.GetEffectiveGrant(ctx, userID, "reports.read", testTime)
	if err != nil {
		t.Fatalf("GetEffectiveGrant failed: %v", err)
	}
	if grant != nil {
		t.Errorf("expected no grant from lapsed membership, got %+v", grant)
	}
	names, _ := s.ListActiveRoleNames(ctx, userID, testTime)
	if len(names) != 0 {
		t.Errorf("expected no active roles, got %v", names)
	}
}

func TestHasActiveDeny(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID, permID := seedGrant(t, s, "Editor", "reports.read")

	entry := &acl.Entry{
		ID: id.NewACLEntryID(), UserID: userID, PermissionID: permID,
		Effect: acl.EffectDeny, Active: true, CreatedAt: testTime,
	}
	s.CreateEntry(ctx, entry)

	denied, err := s.HasActiveDeny(ctx, userID, "reports.read", testTime)
	if err != nil {
		t.Fatalf("HasActiveDeny failed: %v", err)
	}
	if !denied {
		t.Error("expected active deny")
	}

	// Deactivation lifts the block.
	s.SetEntryActive(ctx, entry.ID, false)
	if denied, _ := s.HasActiveDeny(ctx, userID, "reports.read", testTime); denied {
		t.Error("expected deny lifted after deactivation")
	}
}

func TestDenyEndDateIsDayGranular(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID, permID := seedGrant(t, s, "Editor", "reports.read")

	// Ends today at midnight: still in effect for the rest of the day.
	endToday := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	s.CreateEntry(ctx, &acl.Entry{
		ID: id.NewACLEntryID(), UserID: userID, PermissionID: permID,
		Effect: acl.EffectDeny, Active: true, EndsAt: &endToday,
	})

	if denied, _ := s.HasActiveDeny(ctx, userID, "reports.read", testTime); !denied {
		t.Error("deny ending today should still be in effect")
	}
	tomorrow := testTime.Add(24 * time.Hour)
	if denied, _ := s.HasActiveDeny(ctx, userID, "reports.read", tomorrow); denied {
		t.Error("deny should lapse the day after its end date")
	}
}

func TestListEffectiveGrants(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID, _ := seedGrant(t, s, "Editor", "reports.read")

	permID2 := id.NewPermissionID()
	s.CreatePermission(ctx, &permission.Permission{ID: permID2, Code: "exports.create"})
	s.CreateEntry(ctx, &acl.Entry{
		ID: id.NewACLEntryID(), UserID: userID, PermissionID: permID2,
		Effect: acl.EffectAllow, Active: true,
	})

	grants, err := s.ListEffectiveGrants(ctx, userID, testTime)
	if err != nil {
		t.Fatalf("ListEffectiveGrants failed: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	// Ordered by code.
	if grants[0].PermissionCode != "exports.create" || grants[0].Origin != permission.OriginACL {
		t.Errorf("grants[0] = %+v", grants[0])
	}
	if grants[1].PermissionCode != "reports.read" || grants[1].Origin != "Editor" {
		t.Errorf("grants[1] = %+v", grants[1])
	}
}

func TestAttributeProfile(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID, _ := seedGrant(t, s, "Editor", "reports.read")

	s.UpdateUserAttributes(ctx, userID, map[string]any{"departamento": "TI", "nivel": 4})

	groupID := id.NewGroupID()
	s.CreateGroup(ctx, &user.Group{ID: groupID, Name: "Engineering"})
	s.AddGroupMember(ctx, groupID, userID)

	profile, err := s.GetAttributeProfile(ctx, userID, testTime)
	if err != nil {
		t.Fatalf("GetAttributeProfile failed: %v", err)
	}
	if profile == nil {
		t.Fatal("expected profile")
	}
	if profile.Attributes["departamento"] != "TI" {
		t.Errorf("Attributes = %v", profile.Attributes)
	}
	if len(profile.Roles) != 1 || profile.Roles[0] != "Editor" {
		t.Errorf("Roles = %v", profile.Roles)
	}
	if len(profile.Groups) != 1 || profile.Groups[0] != "Engineering" {
		t.Errorf("Groups = %v", profile.Groups)
	}

	// Unknown user.
	profile, err = s.GetAttributeProfile(ctx, id.NewUserID(), testTime)
	if err != nil || profile != nil {
		t.Errorf("expected (nil, nil) for unknown user, got (%v, %v)", profile, err)
	}
}

func TestPolicyOrdering(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for _, p := range []*policy.Policy{
		{ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "catch-all", Effect: policy.EffectDeny, Priority: 1, IsActive: true},
		{ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "ti-allow", Effect: policy.EffectAllow, Priority: 10, IsActive: true},
		{ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "disabled", Effect: policy.EffectAllow, Priority: 99, IsActive: false},
		{ID: id.NewPolicyID(), PermissionCode: "other.code", Name: "unrelated", Effect: policy.EffectAllow, Priority: 50, IsActive: true},
	} {
		if err := s.CreatePolicy(ctx, p); err != nil {
			t.Fatalf("CreatePolicy failed: %v", err)
		}
	}

	got, err := s.ListActiveForPermission(ctx, "reports.read")
	if err != nil {
		t.Fatalf("ListActiveForPermission failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(got))
	}
	if got[0].Name != "ti-allow" || got[1].Name != "catch-all" {
		t.Errorf("order = [%s, %s]", got[0].Name, got[1].Name)
	}
}

func TestPolicyCRUD(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	p := &policy.Policy{
		ID: id.NewPolicyID(), PermissionCode: "reports.read", Name: "ti-allow",
		Effect: policy.EffectAllow, Priority: 10, IsActive: true,
		Conditions: []policy.Condition{{Attribute: "departamento", Operator: policy.OpEquals, Value: "TI"}},
	}
	s.CreatePolicy(ctx, p)

	got, _ := s.GetPolicy(ctx, p.ID)
	if got == nil || got.Name != "ti-allow" || len(got.Conditions) != 1 {
		t.Fatalf("unexpected policy: %+v", got)
	}

	got.Priority = 20
	s.UpdatePolicy(ctx, got)
	got2, _ := s.GetPolicy(ctx, p.ID)
	if got2.Priority != 20 {
		t.Errorf("Priority = %d after update", got2.Priority)
	}

	s.DeletePolicy(ctx, p.ID)
	if got3, _ := s.GetPolicy(ctx, p.ID); got3 != nil {
		t.Error("expected nil after delete")
	}
}

func TestAuditQueryAndPurge(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	userID := id.NewUserID()

	for i := 0; i < 3; i++ {
		s.CreateAuditEntry(ctx, &audit.Entry{
			ID: id.NewAuditID(), UserID: userID, Action: "authorize",
			Outcome: audit.OutcomeDenied, CreatedAt: testTime.Add(time.Duration(i) * time.Minute),
		})
	}
	s.CreateAuditEntry(ctx, &audit.Entry{
		ID: id.NewAuditID(), UserID: id.NewUserID(), Action: "access",
		Outcome: audit.OutcomeSuccess, CreatedAt: testTime,
	})

	entries, err := s.ListAuditEntries(ctx, audit.QueryFilter{UserID: &userID})
	if err != nil {
		t.Fatalf("ListAuditEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Newest first.
	if !entries[0].CreatedAt.After(entries[1].CreatedAt) {
		t.Error("expected newest-first ordering")
	}

	count, _ := s.CountAuditEntries(ctx, audit.QueryFilter{Outcome: audit.OutcomeDenied})
	if count != 3 {
		t.Errorf("denied count = %d", count)
	}

	n, err := s.PurgeAuditEntries(ctx, testTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeAuditEntries failed: %v", err)
	}
	if n != 2 {
		t.Errorf("purged = %d, want 2", n)
	}
}
