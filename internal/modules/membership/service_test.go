package membership

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/user"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/notify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type fixture struct {
	resolver Resolver
	audit    *audit.MemoryRepository
	notifier *recordingNotifier
	users    user.Service
	shopID   uuid.UUID
	ownerID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := user.NewService(user.NewMemoryRepository(), logging.Discard())
	auditRepo := audit.NewMemoryRepository()
	n := &recordingNotifier{}
	f := &fixture{
		resolver: NewResolver(NewMemoryRepository(), users, audit.NewBestEffort(auditRepo, logging.Discard()), n, logging.Discard()),
		audit:    auditRepo,
		notifier: n,
		users:    users,
		shopID:   uuid.New(),
	}
	f.ownerID = f.newUser(t)
	_, err := f.resolver.AddMember(context.Background(), AddMemberRequest{ShopID: f.shopID, UserID: f.ownerID, Role: RoleOwner, ActorID: f.ownerID})
	require.NoError(t, err)
	return f
}

func (f *fixture) newUser(t *testing.T) uuid.UUID {
	t.Helper()
	u, err := f.users.RegisterUser(context.Background(), uuid.NewString()+"@shop.test", "password1", "", "")
	require.NoError(t, err)
	return u.ID
}

func TestRoleOfRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.resolver.RoleOf(ctx, f.shopID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, role)

	_, err = f.resolver.RoleOf(ctx, f.shopID, uuid.New())
	assert.ErrorIs(t, err, ErrNotAMember)
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
}

func TestBranchRoleFallsBackToShopWide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	branch := uuid.New()

	role, err := f.resolver.RoleOfAt(ctx, f.shopID, &branch, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, role)

	// A branch-scoped assignment wins over the shop-wide one.
	_, err = f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, BranchID: &branch, UserID: f.ownerID, Role: RoleCashier, ActorID: f.ownerID})
	require.NoError(t, err)
	role, err = f.resolver.RoleOfAt(ctx, f.shopID, &branch, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, RoleCashier, role)
}

func TestBranchOnlyStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	branch := uuid.New()
	staff := f.newUser(t)

	_, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, BranchID: &branch, UserID: staff, Role: RoleStaff, ActorID: f.ownerID})
	require.NoError(t, err)

	ok, err := f.resolver.HasPermission(ctx, f.shopID, &branch, staff, PermOrderView)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.resolver.HasPermission(ctx, f.shopID, nil, staff, PermOrderView)
	assert.ErrorIs(t, err, ErrNotAMember)

	other := uuid.New()
	_, err = f.resolver.HasPermission(ctx, f.shopID, &other, staff, PermOrderView)
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestHasPermissionFalseIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cashier := f.newUser(t)
	_, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: cashier, Role: RoleCashier, ActorID: f.ownerID})
	require.NoError(t, err)

	ok, err := f.resolver.HasPermission(ctx, f.shopID, nil, cashier, PermMemberManage)
	require.NoError(t, err)
	assert.False(t, ok)

	err = f.resolver.Authorize(ctx, f.shopID, nil, cashier, PermMemberManage)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := f.newUser(t)
	_, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: manager, Role: RoleManager, ActorID: f.ownerID})
	require.NoError(t, err)

	assert.NoError(t, f.resolver.RequireRole(ctx, f.shopID, f.ownerID, RoleOwner))
	assert.ErrorIs(t, f.resolver.RequireRole(ctx, f.shopID, manager, RoleOwner, RoleAdmin), ErrForbidden)
	assert.ErrorIs(t, f.resolver.RequireRole(ctx, f.shopID, uuid.New(), RoleOwner), ErrNotAMember)
}

func TestAddMemberTwiceIsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.newUser(t)
	req := AddMemberRequest{ShopID: f.shopID, UserID: staff, Role: RoleStaff, ActorID: f.ownerID}

	_, err := f.resolver.AddMember(ctx, req)
	require.NoError(t, err)
	_, err = f.resolver.AddMember(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateMembership)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestConcurrentAddMemberCreatesOne(t *testing.T) {
	f := newFixture(t)
	staff := f.newUser(t)
	req := AddMemberRequest{ShopID: f.shopID, UserID: staff, Role: RoleStaff, ActorID: f.ownerID}

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.resolver.AddMember(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created, dup := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateMembership):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, dup)
}

func TestRemoveThenReAddReactivates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.newUser(t)

	first, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: staff, Role: RoleStaff, ActorID: f.ownerID})
	require.NoError(t, err)
	require.NoError(t, f.resolver.RemoveMember(ctx, f.shopID, staff, nil, f.ownerID))

	_, err = f.resolver.RoleOf(ctx, f.shopID, staff)
	assert.ErrorIs(t, err, ErrNotAMember)

	again, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: staff, Role: RoleManager, ActorID: f.ownerID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	role, err := f.resolver.RoleOf(ctx, f.shopID, staff)
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	branch := uuid.New()
	staff := f.newUser(t)

	err := f.resolver.RemoveMember(ctx, f.shopID, staff, nil, f.ownerID)
	assert.ErrorIs(t, err, ErrMembershipNotFound)

	for _, b := range []*uuid.UUID{nil, &branch} {
		_, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, BranchID: b, UserID: staff, Role: RoleStaff, ActorID: f.ownerID})
		require.NoError(t, err)
	}

	// Removing the shop-wide row leaves the branch row alone.
	require.NoError(t, f.resolver.RemoveMember(ctx, f.shopID, staff, nil, f.ownerID))
	role, err := f.resolver.RoleOfAt(ctx, f.shopID, &branch, staff)
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, role)

	assert.ErrorIs(t, f.resolver.RemoveMember(ctx, f.shopID, staff, nil, f.ownerID), ErrMembershipNotFound)
}

func TestAddMemberSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.newUser(t)
	f.notifier.err = errors.New("ses down")

	_, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: staff, Role: RoleCashier, ActorID: f.ownerID})
	require.NoError(t, err, "notification failures must not fail the add")
	require.NoError(t, f.resolver.RemoveMember(ctx, f.shopID, staff, nil, f.ownerID))

	assert.Equal(t, []string{"MEMBER_ADD", "MEMBER_ADD", "MEMBER_REMOVE"}, f.audit.Actions(f.shopID))
	// The owner's own membership does not send an invitation.
	assert.Len(t, f.notifier.sent, 1)
}

func TestAuditFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.audit.Fail = errors.New("audit store down")
	staff := f.newUser(t)

	_, err := f.resolver.AddMember(context.Background(), AddMemberRequest{ShopID: f.shopID, UserID: staff, Role: RoleStaff, ActorID: f.ownerID})
	require.NoError(t, err)
	role, err := f.resolver.RoleOf(context.Background(), f.shopID, staff)
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, role)
}

func TestAddMemberRejectsUnknownRoleAndUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: f.newUser(t), Role: "JANITOR", ActorID: f.ownerID})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: uuid.New(), Role: RoleStaff, ActorID: f.ownerID})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestRemovingOwnersNeedsAnOwnerAndKeepsOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.newUser(t)
	_, err := f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: admin, Role: RoleAdmin, ActorID: f.ownerID})
	require.NoError(t, err)

	assert.ErrorIs(t, f.resolver.RemoveMember(ctx, f.shopID, f.ownerID, nil, admin), ErrForbidden)
	assert.ErrorIs(t, f.resolver.RemoveMember(ctx, f.shopID, f.ownerID, nil, f.ownerID), ErrLastOwner)
	role, err := f.resolver.RoleOf(ctx, f.shopID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, role)

	coOwner := f.newUser(t)
	_, err = f.resolver.AddMember(ctx, AddMemberRequest{ShopID: f.shopID, UserID: coOwner, Role: RoleOwner, ActorID: f.ownerID})
	require.NoError(t, err)
	require.NoError(t, f.resolver.RemoveMember(ctx, f.shopID, f.ownerID, nil, coOwner))

	_, err = f.resolver.RoleOf(ctx, f.shopID, f.ownerID)
	assert.ErrorIs(t, err, ErrNotAMember)
	assert.ErrorIs(t, f.resolver.RemoveMember(ctx, f.shopID, coOwner, nil, coOwner), ErrLastOwner)

	// Admins still remove everyone else.
	require.NoError(t, f.resolver.RemoveMember(ctx, f.shopID, admin, nil, admin))
}
