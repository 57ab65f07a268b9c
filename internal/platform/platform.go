// Package platform defines the contract between the enrollment engine and
// the chat platform it provisions. The engine never holds live SDK handles,
// only opaque int64 identifiers and this interface; the concrete gateway
// implementation lives in the embedding application.
package platform

import (
	"context"
	"errors"
)

// Sentinel conditions a gateway implementation maps platform responses onto.
// Both are recoverable per-operation failures, never process-fatal.
var (
	ErrNotFound         = errors.New("platform: not found")
	ErrPermissionDenied = errors.New("platform: permission denied")
)

// Provisioner exposes idempotent ensure-semantics over the category /
// container / thread subtree plus the membership and permission primitives
// the enrollment engine needs.
//
// Every Ensure method finds an existing object by name before creating one,
// so repeated calls are safe. EnsurePrivateThread additionally searches
// archived threads (public listing, then private) and unarchives a match,
// which is what makes term-archived courses resurrectable.
//
// GrantContainerAccess and RevokeContainerAccess are advisory: callers may
// ignore their errors because thread membership, not container visibility,
// is what gates participation.
type Provisioner interface {
	EnsureCategory(ctx context.Context, name string) (int64, error)
	EnsureContainer(ctx context.Context, categoryID int64, name string) (int64, error)
	EnsurePrivateThread(ctx context.Context, containerID int64, name string) (int64, error)

	// ContainerByName finds a container channel by exact name, returning
	// ErrNotFound when absent.
	ContainerByName(ctx context.Context, name string) (int64, error)
	// ThreadByName finds a thread inside a container by exact name, checking
	// live threads first and archived listings second. ErrNotFound when absent.
	ThreadByName(ctx context.Context, containerID int64, name string) (int64, error)
	// ThreadExists re-validates a possibly stale thread identifier.
	ThreadExists(ctx context.Context, threadID int64) (bool, error)

	ThreadHasMember(ctx context.Context, threadID, userID int64) (bool, error)
	AddThreadMember(ctx context.Context, threadID, userID int64) error
	RemoveThreadMember(ctx context.Context, threadID, userID int64) error

	GrantContainerAccess(ctx context.Context, containerID, userID int64) error
	RevokeContainerAccess(ctx context.Context, containerID, userID int64) error
}

// RoleManager covers the community role primitives used by registration.
// GrantRole creates the role when it does not exist yet.
type RoleManager interface {
	GrantRole(ctx context.Context, userID int64, roleName string) error
	RevokeRole(ctx context.Context, userID int64, roleName string) error
	MemberHasRole(ctx context.Context, userID int64, roleName string) (bool, error)
}
