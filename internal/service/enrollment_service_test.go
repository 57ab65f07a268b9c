package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/coursespaces/internal/models"
	"github.com/campushub/coursespaces/internal/platform"
	"github.com/campushub/coursespaces/internal/repository"
)

// fakePlatform is an in-memory stand-in for the chat platform gateway.
type fakePlatform struct {
	nextID     int64
	categories map[string]int64
	containers map[string]int64
	live       map[int64]map[string]int64
	archived   map[int64]map[string]int64
	members    map[int64]map[int64]bool
	grants     map[int64]map[int64]bool

	createdThreads   int
	failEnsureThread bool
	failAddMember    bool
	failRemoveMember bool
	failGrant        bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:     100,
		categories: map[string]int64{},
		containers: map[string]int64{},
		live:       map[int64]map[string]int64{},
		archived:   map[int64]map[string]int64{},
		members:    map[int64]map[int64]bool{},
		grants:     map[int64]map[int64]bool{},
	}
}

func (f *fakePlatform) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakePlatform) EnsureCategory(_ context.Context, name string) (int64, error) {
	if id, ok := f.categories[name]; ok {
		return id, nil
	}
	id := f.id()
	f.categories[name] = id
	return id, nil
}

func (f *fakePlatform) EnsureContainer(_ context.Context, _ int64, name string) (int64, error) {
	if id, ok := f.containers[name]; ok {
		return id, nil
	}
	id := f.id()
	f.containers[name] = id
	f.live[id] = map[string]int64{}
	f.archived[id] = map[string]int64{}
	return id, nil
}

func (f *fakePlatform) EnsurePrivateThread(_ context.Context, containerID int64, name string) (int64, error) {
	if f.failEnsureThread {
		return 0, platform.ErrPermissionDenied
	}
	if id, ok := f.live[containerID][name]; ok {
		return id, nil
	}
	if id, ok := f.archived[containerID][name]; ok {
		delete(f.archived[containerID], name)
		f.live[containerID][name] = id
		return id, nil
	}
	id := f.id()
	f.live[containerID][name] = id
	f.members[id] = map[int64]bool{}
	f.createdThreads++
	return id, nil
}

func (f *fakePlatform) ContainerByName(_ context.Context, name string) (int64, error) {
	if id, ok := f.containers[name]; ok {
		return id, nil
	}
	return 0, platform.ErrNotFound
}

func (f *fakePlatform) ThreadByName(_ context.Context, containerID int64, name string) (int64, error) {
	if id, ok := f.live[containerID][name]; ok {
		return id, nil
	}
	if id, ok := f.archived[containerID][name]; ok {
		return id, nil
	}
	return 0, platform.ErrNotFound
}

func (f *fakePlatform) ThreadExists(_ context.Context, threadID int64) (bool, error) {
	for _, threads := range f.live {
		for _, id := range threads {
			if id == threadID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakePlatform) ThreadHasMember(_ context.Context, threadID, userID int64) (bool, error) {
	return f.members[threadID][userID], nil
}

func (f *fakePlatform) AddThreadMember(_ context.Context, threadID, userID int64) error {
	if f.failAddMember {
		return platform.ErrPermissionDenied
	}
	if f.members[threadID] == nil {
		f.members[threadID] = map[int64]bool{}
	}
	f.members[threadID][userID] = true
	return nil
}

func (f *fakePlatform) RemoveThreadMember(_ context.Context, threadID, userID int64) error {
	if f.failRemoveMember {
		return platform.ErrPermissionDenied
	}
	delete(f.members[threadID], userID)
	return nil
}

func (f *fakePlatform) GrantContainerAccess(_ context.Context, containerID, userID int64) error {
	if f.failGrant {
		return platform.ErrPermissionDenied
	}
	if f.grants[containerID] == nil {
		f.grants[containerID] = map[int64]bool{}
	}
	f.grants[containerID][userID] = true
	return nil
}

func (f *fakePlatform) RevokeContainerAccess(_ context.Context, containerID, userID int64) error {
	delete(f.grants[containerID], userID)
	return nil
}

// archive moves a live thread into the archived listing, as a term rollover
// would on the real platform.
func (f *fakePlatform) archive(containerName, threadName string) {
	containerID := f.containers[containerName]
	if id, ok := f.live[containerID][threadName]; ok {
		delete(f.live[containerID], threadName)
		f.archived[containerID][threadName] = id
	}
}

type enrollFixture struct {
	svc         *EnrollmentService
	index       *repository.CourseIndexRepository
	enrollments *repository.EnrollmentRepository
	fake        *fakePlatform
	terms       *TermService
}

func newEnrollFixture(t *testing.T, privateContainers bool) *enrollFixture {
	t.Helper()
	docs, err := repository.NewFileDocumentStore(t.TempDir())
	require.NoError(t, err)

	fake := newFakePlatform()
	index := repository.NewCourseIndexRepository(docs, zap.NewNop())
	enrollments := repository.NewEnrollmentRepository(docs, zap.NewNop())
	terms := NewTermService("fa25", zap.NewNop())

	svc := NewEnrollmentService(index, enrollments, fake, terms, nil, zap.NewNop(), privateContainers)
	return &enrollFixture{svc: svc, index: index, enrollments: enrollments, fake: fake, terms: terms}
}

const testUser int64 = 4242

func TestEnrollProvisionsAndRecords(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	res, err := fx.svc.Enroll(ctx, testUser, "CS", "61a")
	require.NoError(t, err)
	assert.Equal(t, "fa25-cs-61A", res.Slug)
	assert.Equal(t, models.EnrollStatusJoined, res.Status)

	ref, err := fx.index.Get(ctx, "fa25-cs-61A")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, res.ThreadID, ref.ThreadID)

	slugs, err := fx.enrollments.List(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"fa25-cs-61A"}, slugs)

	containerID := fx.fake.containers["cs-courses-fa25"]
	assert.True(t, fx.fake.grants[containerID][testUser])
	assert.True(t, fx.fake.members[res.ThreadID][testUser])
}

func TestEnrollIdempotent(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	first, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollStatusJoined, first.Status)

	second, err := fx.svc.Enroll(ctx, testUser, " cs ", " 61a ")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollStatusAlreadyJoined, second.Status)
	assert.Equal(t, first.Slug, second.Slug)
	assert.Equal(t, first.ThreadID, second.ThreadID)

	slugs, err := fx.enrollments.List(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"fa25-cs-61A"}, slugs)
	assert.Equal(t, 1, fx.fake.createdThreads)
}

func TestEnrollRejectsUnknownDepartment(t *testing.T) {
	fx := newEnrollFixture(t, true)

	_, err := fx.svc.Enroll(context.Background(), testUser, "BASKETWEAVING", "101")
	require.Error(t, err)

	slugs, listErr := fx.enrollments.List(context.Background(), testUser)
	require.NoError(t, listErr)
	assert.Empty(t, slugs)
}

func TestEnrollEnsureFailureLeavesNoState(t *testing.T) {
	fx := newEnrollFixture(t, true)
	fx.fake.failEnsureThread = true
	ctx := context.Background()

	_, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.Error(t, err)

	ref, err := fx.index.Get(ctx, "fa25-cs-61A")
	require.NoError(t, err)
	assert.Nil(t, ref)

	slugs, err := fx.enrollments.List(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, slugs)
}

func TestEnrollAddMemberFailureLeavesNoState(t *testing.T) {
	fx := newEnrollFixture(t, true)
	fx.fake.failAddMember = true
	ctx := context.Background()

	_, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.Error(t, err)
	assert.True(t, errors.Is(err, platform.ErrPermissionDenied))

	slugs, err := fx.enrollments.List(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, slugs)

	ref, err := fx.index.Get(ctx, "fa25-cs-61A")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestEnrollGrantFailureIsAdvisory(t *testing.T) {
	fx := newEnrollFixture(t, true)
	fx.fake.failGrant = true

	res, err := fx.svc.Enroll(context.Background(), testUser, "CS", "61A")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollStatusJoined, res.Status)
}

func TestDropRemovesEnrollmentAndRevokesContainerAccess(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	res, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)

	report := fx.svc.Drop(ctx, testUser, []string{res.Slug})
	assert.Equal(t, []string{res.Slug}, report.Dropped)
	assert.Empty(t, report.Failed)

	slugs, err := fx.enrollments.List(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, slugs)

	containerID := fx.fake.containers["cs-courses-fa25"]
	assert.False(t, fx.fake.grants[containerID][testUser])
	assert.False(t, fx.fake.members[res.ThreadID][testUser])

	// index entry intentionally survives the drop
	ref, err := fx.index.Get(ctx, res.Slug)
	require.NoError(t, err)
	assert.NotNil(t, ref)
}

func TestDropKeepsContainerAccessWhileDeptEnrollmentsRemain(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	first, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)
	_, err = fx.svc.Enroll(ctx, testUser, "CS", "70")
	require.NoError(t, err)

	report := fx.svc.Drop(ctx, testUser, []string{first.Slug})
	assert.Equal(t, []string{first.Slug}, report.Dropped)

	containerID := fx.fake.containers["cs-courses-fa25"]
	assert.True(t, fx.fake.grants[containerID][testUser])
}

func TestDropUnknownSlugReportsNotFound(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	res, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)

	report := fx.svc.Drop(ctx, testUser, []string{"fa25-math-53"})
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "fa25-math-53", report.Failed[0].Slug)
	assert.Equal(t, "not found", report.Failed[0].Reason)
	assert.Empty(t, report.Dropped)

	// other enrollments untouched
	slugs, err := fx.enrollments.List(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []string{res.Slug}, slugs)
}

func TestDropPlatformFailureKeepsEnrollment(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	res, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)

	fx.fake.failRemoveMember = true
	report := fx.svc.Drop(ctx, testUser, []string{res.Slug})
	require.Len(t, report.Failed, 1)
	assert.Empty(t, report.Dropped)

	slugs, err := fx.enrollments.List(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []string{res.Slug}, slugs)
	assert.True(t, fx.fake.members[res.ThreadID][testUser])
}

func TestDropPartialSuccess(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	res, err := fx.svc.Enroll(ctx, testUser, "MATH", "53")
	require.NoError(t, err)

	report := fx.svc.Drop(ctx, testUser, []string{res.Slug, "fa25-cs-61A"})
	assert.Equal(t, []string{res.Slug}, report.Dropped)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "fa25-cs-61A", report.Failed[0].Slug)
}

func TestDropResolvesThroughStaleIndex(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	res, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)

	// poison the index entry; drop must fall back to name-based discovery
	require.NoError(t, fx.index.Upsert(ctx, res.Slug, models.CourseRef{ContainerID: 1, ThreadID: 999999}))

	report := fx.svc.Drop(ctx, testUser, []string{res.Slug})
	assert.Equal(t, []string{res.Slug}, report.Dropped)
	assert.Empty(t, report.Failed)
	assert.False(t, fx.fake.members[res.ThreadID][testUser])
}

func TestReenrollRediscoversArchivedThread(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	first, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)
	report := fx.svc.Drop(ctx, testUser, []string{first.Slug})
	require.Empty(t, report.Failed)

	fx.fake.archive("cs-courses-fa25", first.Slug)

	second, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, second.ThreadID)
	assert.Equal(t, models.EnrollStatusJoined, second.Status)
	assert.Equal(t, 1, fx.fake.createdThreads)
}

func TestResolveThreadPrefersValidIndexEntry(t *testing.T) {
	fx := newEnrollFixture(t, true)
	ctx := context.Background()

	res, err := fx.svc.Enroll(ctx, testUser, "CS", "61A")
	require.NoError(t, err)

	threadID, found := fx.svc.ResolveThread(ctx, res.Slug)
	require.True(t, found)
	assert.Equal(t, res.ThreadID, threadID)

	_, found = fx.svc.ResolveThread(ctx, "fa25-math-53")
	assert.False(t, found)

	_, found = fx.svc.ResolveThread(ctx, "not-a-slug")
	assert.False(t, found)
}
