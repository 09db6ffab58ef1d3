package home

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

type fakeHomeRepo struct {
	residents map[string]*Resident
	homes     map[string]*Home
	members   map[string]*Member
	requests  map[string]*JoinRequest
}

func newFakeHomeRepo(usernames ...string) *fakeHomeRepo {
	repo := &fakeHomeRepo{
		residents: make(map[string]*Resident),
		homes:     make(map[string]*Home),
		members:   make(map[string]*Member),
		requests:  make(map[string]*JoinRequest),
	}
	for _, username := range usernames {
		repo.residents[username] = &Resident{Username: username, FullName: username, Email: username + "@x"}
	}
	return repo
}

func (r *fakeHomeRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	return fn(r)
}

func (r *fakeHomeRepo) GetResident(ctx context.Context, username string) (*Resident, error) {
	resident, ok := r.residents[username]
	if !ok {
		return nil, ErrNoSuchUser
	}
	copied := *resident
	return &copied, nil
}

func (r *fakeHomeRepo) LockResident(ctx context.Context, username string) (*Resident, error) {
	return r.GetResident(ctx, username)
}

func (r *fakeHomeRepo) SetResidentHome(ctx context.Context, username string, homeID *string) error {
	resident, ok := r.residents[username]
	if !ok {
		return ErrNoSuchUser
	}
	if homeID == nil {
		resident.HomeID = nil
		return nil
	}
	id := *homeID
	resident.HomeID = &id
	return nil
}

func (r *fakeHomeRepo) GetHome(ctx context.Context, homeID string) (*Home, error) {
	home, ok := r.homes[homeID]
	if !ok {
		return nil, ErrNoSuchHome
	}
	copied := *home
	return &copied, nil
}

func (r *fakeHomeRepo) LockHome(ctx context.Context, homeID string) (*Home, error) {
	return r.GetHome(ctx, homeID)
}

func (r *fakeHomeRepo) GetHomeByName(ctx context.Context, name string) (*Home, error) {
	for _, home := range r.homes {
		if home.Name == name {
			copied := *home
			return &copied, nil
		}
	}
	return nil, ErrNoSuchHome
}

func (r *fakeHomeRepo) IsNameTaken(ctx context.Context, name string) (bool, error) {
	_, err := r.GetHomeByName(ctx, name)
	return err == nil, nil
}

func (r *fakeHomeRepo) CreateHome(ctx context.Context, home *Home) error {
	copied := *home
	r.homes[home.ID] = &copied
	return nil
}

func (r *fakeHomeRepo) UpdateLeader(ctx context.Context, homeID, username string) error {
	home, ok := r.homes[homeID]
	if !ok {
		return ErrNoSuchHome
	}
	home.LeaderUsername = username
	return nil
}

func (r *fakeHomeRepo) DeleteHome(ctx context.Context, homeID string) error {
	delete(r.homes, homeID)
	return nil
}

func (r *fakeHomeRepo) AddMember(ctx context.Context, member *Member) error {
	copied := *member
	r.members[member.Username] = &copied
	return nil
}

func (r *fakeHomeRepo) GetMember(ctx context.Context, homeID, username string) (*Member, error) {
	member, ok := r.members[username]
	if !ok || member.HomeID != homeID {
		return nil, ErrMemberNotFound
	}
	copied := *member
	return &copied, nil
}

func (r *fakeHomeRepo) DeleteMember(ctx context.Context, homeID, username string) error {
	member, ok := r.members[username]
	if ok && member.HomeID == homeID {
		delete(r.members, username)
	}
	return nil
}

func (r *fakeHomeRepo) CountMembers(ctx context.Context, homeID string) (int64, error) {
	var count int64
	for _, member := range r.members {
		if member.HomeID == homeID {
			count++
		}
	}
	return count, nil
}

func (r *fakeHomeRepo) ListMembers(ctx context.Context, homeID string) ([]MemberProfile, error) {
	result := make([]MemberProfile, 0)
	for _, member := range r.members {
		if member.HomeID == homeID {
			resident := r.residents[member.Username]
			result = append(result, MemberProfile{
				Username: member.Username,
				FullName: resident.FullName,
				Email:    resident.Email,
				JoinedAt: member.JoinedAt,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (r *fakeHomeRepo) CreateJoinRequest(ctx context.Context, request *JoinRequest) error {
	copied := *request
	r.requests[request.ID] = &copied
	return nil
}

func (r *fakeHomeRepo) GetJoinRequest(ctx context.Context, id string) (*JoinRequest, error) {
	request, ok := r.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	copied := *request
	return &copied, nil
}

func (r *fakeHomeRepo) LockJoinRequest(ctx context.Context, id string) (*JoinRequest, error) {
	return r.GetJoinRequest(ctx, id)
}

func (r *fakeHomeRepo) HasPendingRequest(ctx context.Context, username, homeID string) (bool, error) {
	for _, request := range r.requests {
		if request.Username == username && request.HomeID == homeID && request.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeHomeRepo) SetJoinRequestStatus(ctx context.Context, id, status string, processedAt time.Time) error {
	request, ok := r.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	request.Status = status
	request.ProcessedAt = &processedAt
	return nil
}

func (r *fakeHomeRepo) RejectPendingByUser(ctx context.Context, username string, processedAt time.Time) error {
	for _, request := range r.requests {
		if request.Username == username && request.Status == StatusPending {
			request.Status = StatusRejected
			request.ProcessedAt = &processedAt
		}
	}
	return nil
}

func (r *fakeHomeRepo) RejectPendingByHome(ctx context.Context, homeID string, processedAt time.Time) error {
	for _, request := range r.requests {
		if request.HomeID == homeID && request.Status == StatusPending {
			request.Status = StatusRejected
			request.ProcessedAt = &processedAt
		}
	}
	return nil
}

func (r *fakeHomeRepo) ListPendingRequests(ctx context.Context, homeID string) ([]PendingRequest, error) {
	result := make([]PendingRequest, 0)
	for _, request := range r.requests {
		if request.HomeID == homeID && request.Status == StatusPending {
			resident := r.residents[request.Username]
			result = append(result, PendingRequest{JoinRequest: *request, FullName: resident.FullName, Email: resident.Email})
		}
	}
	return result, nil
}

func (r *fakeHomeRepo) GetPendingRequestByUser(ctx context.Context, username string) (*JoinRequest, error) {
	for _, request := range r.requests {
		if request.Username == username && request.Status == StatusPending {
			copied := *request
			return &copied, nil
		}
	}
	return nil, ErrRequestNotFound
}

// checkMembership asserts that a user has a home exactly when a membership row
// for that home exists, and that every home contains its leader.
func (r *fakeHomeRepo) checkMembership(t *testing.T) {
	t.Helper()
	for username, resident := range r.residents {
		member, ok := r.members[username]
		if resident.HomeID == nil {
			if ok {
				t.Fatalf("user %s has membership but no home", username)
			}
			continue
		}
		if !ok || member.HomeID != *resident.HomeID {
			t.Fatalf("user %s home does not match membership", username)
		}
	}
	for id, home := range r.homes {
		member, ok := r.members[home.LeaderUsername]
		if !ok || member.HomeID != id {
			t.Fatalf("leader %s is not a member of %s", home.LeaderUsername, home.Name)
		}
	}
	for _, request := range r.requests {
		if request.Status == StatusPending && r.residents[request.Username].HomeID != nil {
			t.Fatalf("pending request for %s who already has a home", request.Username)
		}
	}
}

func createMaple(t *testing.T, svc *Service) *Home {
	t.Helper()
	home, err := svc.CreateHome(context.Background(), CreateHomeInput{Name: " Maple ", Description: "our house", Founder: "alice"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return home
}

func TestCreateHome(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob")
	svc := NewService(repo)

	home := createMaple(t, svc)
	if home.Name != "Maple" {
		t.Fatalf("expected trimmed name, got %q", home.Name)
	}
	if home.LeaderUsername != "alice" {
		t.Fatalf("expected alice as leader, got %q", home.LeaderUsername)
	}
	if home.Description == nil || *home.Description != "our house" {
		t.Fatalf("expected description stored")
	}
	repo.checkMembership(t)

	if _, err := svc.CreateHome(context.Background(), CreateHomeInput{Name: "Other", Founder: "alice"}); !errors.Is(err, ErrAlreadyInHome) {
		t.Fatalf("expected ErrAlreadyInHome, got %v", err)
	}
	if _, err := svc.CreateHome(context.Background(), CreateHomeInput{Name: "Maple", Founder: "bob"}); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	if _, err := svc.CreateHome(context.Background(), CreateHomeInput{Name: "  ", Founder: "bob"}); !errors.Is(err, ErrInvalidHomeName) {
		t.Fatalf("expected ErrInvalidHomeName, got %v", err)
	}
}

func TestJoinRequestApprovalFlow(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob")
	svc := NewService(repo)
	ctx := context.Background()
	home := createMaple(t, svc)

	request, err := svc.RequestJoin(ctx, "bob", "Maple")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if request.Status != StatusPending || request.HomeName != "Maple" {
		t.Fatalf("unexpected request %+v", request)
	}
	if _, err := svc.RequestJoin(ctx, "bob", "Maple"); !errors.Is(err, ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}

	pending, err := svc.PendingRequests(ctx, home.ID, "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(pending) != 1 || pending[0].Username != "bob" {
		t.Fatalf("expected one pending request from bob, got %+v", pending)
	}
	if _, err := svc.PendingRequests(ctx, home.ID, "bob"); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("expected ErrNotLeader, got %v", err)
	}

	if _, err := svc.DecideRequest(ctx, request.ID, "bob", DecisionApprove); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("expected ErrNotLeader, got %v", err)
	}

	decided, err := svc.DecideRequest(ctx, request.ID, "alice", DecisionApprove)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decided.Status != StatusApproved || decided.ProcessedAt == nil {
		t.Fatalf("expected approved request with processed time, got %+v", decided)
	}
	if repo.residents["bob"].HomeID == nil || *repo.residents["bob"].HomeID != home.ID {
		t.Fatalf("expected bob in Maple")
	}
	repo.checkMembership(t)

	if _, err := svc.DecideRequest(ctx, request.ID, "alice", DecisionApprove); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if _, err := svc.DecideRequest(ctx, request.ID, "alice", DecisionReject); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided on reject, got %v", err)
	}
}

func TestRejectJoinRequest(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob")
	svc := NewService(repo)
	ctx := context.Background()
	createMaple(t, svc)

	request, _ := svc.RequestJoin(ctx, "bob", "Maple")
	if _, err := svc.DecideRequest(ctx, request.ID, "alice", "maybe"); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
	decided, err := svc.DecideRequest(ctx, request.ID, "alice", DecisionReject)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decided.Status != StatusRejected {
		t.Fatalf("expected rejected, got %q", decided.Status)
	}
	if repo.residents["bob"].HomeID != nil {
		t.Fatalf("expected bob to stay homeless")
	}

	if _, err := svc.RequestJoin(ctx, "bob", "Maple"); err != nil {
		t.Fatalf("expected a new request after rejection, got %v", err)
	}
}

func TestRequestJoinFailures(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob")
	svc := NewService(repo)
	ctx := context.Background()
	createMaple(t, svc)

	if _, err := svc.RequestJoin(ctx, "alice", "Maple"); !errors.Is(err, ErrAlreadyInHome) {
		t.Fatalf("expected ErrAlreadyInHome, got %v", err)
	}
	if _, err := svc.RequestJoin(ctx, "bob", "Oak"); !errors.Is(err, ErrNoSuchHome) {
		t.Fatalf("expected ErrNoSuchHome, got %v", err)
	}
	if _, err := svc.RequestJoin(ctx, "carol", "Maple"); !errors.Is(err, ErrNoSuchUser) {
		t.Fatalf("expected ErrNoSuchUser, got %v", err)
	}
}

func TestJoiningClosesOtherPendingRequests(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob", "carol")
	svc := NewService(repo)
	ctx := context.Background()
	maple := createMaple(t, svc)
	if _, err := svc.CreateHome(ctx, CreateHomeInput{Name: "Oak", Founder: "carol"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	toMaple, _ := svc.RequestJoin(ctx, "bob", "Maple")
	toOak, _ := svc.RequestJoin(ctx, "bob", "Oak")

	if err := svc.DirectAdd(ctx, maple.ID, "bob", "alice"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.requests[toMaple.ID].Status != StatusRejected || repo.requests[toOak.ID].Status != StatusRejected {
		t.Fatalf("expected pending requests closed once bob joined")
	}
	repo.checkMembership(t)
}

func TestDirectAdd(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob", "carol")
	svc := NewService(repo)
	ctx := context.Background()
	home := createMaple(t, svc)

	if err := svc.DirectAdd(ctx, home.ID, "bob", "carol"); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("expected ErrNotLeader, got %v", err)
	}
	if err := svc.DirectAdd(ctx, home.ID, "dave", "alice"); !errors.Is(err, ErrNoSuchUser) {
		t.Fatalf("expected ErrNoSuchUser, got %v", err)
	}
	if err := svc.DirectAdd(ctx, home.ID, "bob", "alice"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.DirectAdd(ctx, home.ID, "bob", "alice"); !errors.Is(err, ErrAlreadyInHome) {
		t.Fatalf("expected ErrAlreadyInHome, got %v", err)
	}
	repo.checkMembership(t)
}

func TestRemoveMember(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob", "carol")
	svc := NewService(repo)
	ctx := context.Background()
	home := createMaple(t, svc)
	_ = svc.DirectAdd(ctx, home.ID, "bob", "alice")

	if err := svc.Remove(ctx, home.ID, "bob", "bob"); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("expected ErrNotLeader, got %v", err)
	}
	if err := svc.Remove(ctx, home.ID, "alice", "alice"); !errors.Is(err, ErrCannotRemoveLeader) {
		t.Fatalf("expected ErrCannotRemoveLeader, got %v", err)
	}
	if err := svc.Remove(ctx, home.ID, "carol", "alice"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
	if err := svc.Remove(ctx, home.ID, "bob", "alice"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.residents["bob"].HomeID != nil {
		t.Fatalf("expected bob homeless")
	}
	repo.checkMembership(t)
}

func TestLeave(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob", "carol")
	svc := NewService(repo)
	ctx := context.Background()
	home := createMaple(t, svc)
	_ = svc.DirectAdd(ctx, home.ID, "bob", "alice")

	if err := svc.Leave(ctx, "carol"); !errors.Is(err, ErrNotInHome) {
		t.Fatalf("expected ErrNotInHome, got %v", err)
	}
	if err := svc.Leave(ctx, "alice"); !errors.Is(err, ErrLeaderMustTransfer) {
		t.Fatalf("expected ErrLeaderMustTransfer, got %v", err)
	}
	if err := svc.Leave(ctx, "bob"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := repo.homes[home.ID]; !ok {
		t.Fatalf("expected home to survive member leaving")
	}
	repo.checkMembership(t)
}

func TestSoleLeaderLeavingDissolvesHome(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob", "carol")
	svc := NewService(repo)
	ctx := context.Background()
	home := createMaple(t, svc)
	request, _ := svc.RequestJoin(ctx, "bob", "Maple")

	if err := svc.Leave(ctx, "alice"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := repo.homes[home.ID]; ok {
		t.Fatalf("expected home dissolved")
	}
	if repo.requests[request.ID].Status != StatusRejected {
		t.Fatalf("expected pending request closed on dissolution")
	}
	if _, err := svc.RequestJoin(ctx, "carol", "Maple"); !errors.Is(err, ErrNoSuchHome) {
		t.Fatalf("expected ErrNoSuchHome, got %v", err)
	}
	repo.checkMembership(t)
}

func TestPromoteLeader(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob", "carol")
	svc := NewService(repo)
	ctx := context.Background()
	home := createMaple(t, svc)
	_ = svc.DirectAdd(ctx, home.ID, "bob", "alice")

	if err := svc.PromoteLeader(ctx, home.ID, "alice", "bob"); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("expected ErrNotLeader, got %v", err)
	}
	if err := svc.PromoteLeader(ctx, home.ID, "carol", "alice"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
	if err := svc.PromoteLeader(ctx, home.ID, "bob", "alice"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.homes[home.ID].LeaderUsername != "bob" {
		t.Fatalf("expected bob as leader")
	}

	if err := svc.Leave(ctx, "alice"); err != nil {
		t.Fatalf("expected former leader to leave, got %v", err)
	}
	repo.checkMembership(t)
}

func TestHomeOfMarksLeader(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob")
	svc := NewService(repo)
	ctx := context.Background()
	home := createMaple(t, svc)
	_ = svc.DirectAdd(ctx, home.ID, "bob", "alice")

	details, err := svc.HomeOf(ctx, "bob")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(details.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(details.Members))
	}
	for _, member := range details.Members {
		if member.IsLeader != (member.Username == "alice") {
			t.Fatalf("unexpected leader flag for %s", member.Username)
		}
	}

	_ = svc.Leave(ctx, "bob")
	if _, err := svc.HomeOf(ctx, "bob"); !errors.Is(err, ErrNotInHome) {
		t.Fatalf("expected ErrNotInHome, got %v", err)
	}
}

func TestPendingRequestFor(t *testing.T) {
	repo := newFakeHomeRepo("alice", "bob")
	svc := NewService(repo)
	ctx := context.Background()
	createMaple(t, svc)

	if _, err := svc.PendingRequestFor(ctx, "bob"); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	request, _ := svc.RequestJoin(ctx, "bob", "Maple")
	got, err := svc.PendingRequestFor(ctx, "bob")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != request.ID {
		t.Fatalf("expected %s, got %s", request.ID, got.ID)
	}
}
