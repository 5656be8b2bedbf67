package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

// fakeParkingRepo is an in-memory ParkingRepository with the same bounds
// semantics as the conditional updates in the postgres implementation.
type fakeParkingRepo struct {
	parkings map[string]*domain.Parking
	staff    map[string]map[int]struct{}
}

func newFakeParkingRepo(parkings ...*domain.Parking) *fakeParkingRepo {
	repo := &fakeParkingRepo{
		parkings: make(map[string]*domain.Parking),
		staff:    make(map[string]map[int]struct{}),
	}
	for _, p := range parkings {
		cp := *p
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		if cp.ParkingCode == "" {
			cp.ParkingCode = domain.ShortCodeFromID(cp.ID)
		}
		repo.parkings[cp.ID] = &cp
	}
	return repo
}

func (r *fakeParkingRepo) Create(_ context.Context, parking *domain.Parking) (*domain.Parking, error) {
	cp := *parking
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.ParkingCode == "" {
		cp.ParkingCode = domain.ShortCodeFromID(cp.ID)
	}
	for _, existing := range r.parkings {
		if existing.ParkingCode == cp.ParkingCode {
			return nil, repository.ErrDuplicateEntry
		}
	}
	cp.IsActive = true
	r.parkings[cp.ID] = &cp
	result := cp
	return &result, nil
}

func (r *fakeParkingRepo) FindByRef(_ context.Context, ref string, filter repository.ParkingFilter) (*domain.Parking, error) {
	if p, ok := r.parkings[ref]; ok && r.matches(p, filter) {
		cp := *p
		return &cp, nil
	}
	for _, p := range r.parkings {
		if p.ParkingCode == ref && r.matches(p, filter) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeParkingRepo) matches(p *domain.Parking, filter repository.ParkingFilter) bool {
	if !p.IsActive {
		return false
	}
	if filter.ApprovedOnly && !p.IsApproved {
		return false
	}
	if filter.OwnerID != 0 && p.OwnerID != filter.OwnerID {
		return false
	}
	return true
}

func (r *fakeParkingRepo) FindAll(_ context.Context, filter repository.ParkingFilter) ([]domain.Parking, error) {
	var result []domain.Parking
	for _, p := range r.parkings {
		if r.matches(p, filter) {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeParkingRepo) FindNearby(ctx context.Context, _, _ float64, _ float64, filter repository.ParkingFilter) ([]domain.Parking, error) {
	return r.FindAll(ctx, filter)
}

func (r *fakeParkingRepo) Update(_ context.Context, parking *domain.Parking) (*domain.Parking, error) {
	stored, ok := r.parkings[parking.ID]
	if !ok || !stored.IsActive {
		return nil, repository.ErrNotFound
	}
	cp := *parking
	r.parkings[parking.ID] = &cp
	result := cp
	return &result, nil
}

func (r *fakeParkingRepo) Deactivate(_ context.Context, id string) error {
	p, ok := r.parkings[id]
	if !ok || !p.IsActive {
		return repository.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (r *fakeParkingRepo) Approve(_ context.Context, id string, adminID int, at time.Time) (*domain.Parking, error) {
	p, ok := r.parkings[id]
	if !ok || !p.IsActive {
		return nil, repository.ErrNotFound
	}
	p.IsApproved = true
	p.ApprovedBy.SetValid(int64(adminID))
	p.ApprovedAt.SetValid(at)
	cp := *p
	return &cp, nil
}

func (r *fakeParkingRepo) SetCount(_ context.Context, id string, vehicle domain.VehicleType, count int) (*domain.Parking, error) {
	p, ok := r.parkings[id]
	if !ok || !p.IsActive {
		return nil, repository.ErrNotFound
	}
	if count < 0 {
		return nil, domain.ErrInvalidCount
	}
	if count > p.Capacity.Get(vehicle) {
		return nil, domain.ErrCapacityExceeded
	}
	p.CurrentCount.Set(vehicle, count)
	p.LastUpdated = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (r *fakeParkingRepo) AddCount(ctx context.Context, id string, vehicle domain.VehicleType, delta int) (*domain.Parking, error) {
	p, ok := r.parkings[id]
	if !ok || !p.IsActive {
		return nil, repository.ErrNotFound
	}
	return r.SetCount(ctx, id, vehicle, p.CurrentCount.Get(vehicle)+delta)
}

func (r *fakeParkingRepo) SetAllCounts(_ context.Context, id string, counts domain.VehicleCounts, capacity *domain.VehicleCounts) (*domain.Parking, error) {
	p, ok := r.parkings[id]
	if !ok || !p.IsActive {
		return nil, repository.ErrNotFound
	}
	effective := p.Capacity
	if capacity != nil {
		effective = *capacity
	}
	for _, v := range domain.VehicleTypes {
		if counts.Get(v) > effective.Get(v) {
			return nil, domain.ErrCapacityExceeded
		}
	}
	p.Capacity = effective
	p.CurrentCount = counts
	p.LastUpdated = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (r *fakeParkingRepo) AssignStaff(_ context.Context, parkingID string, userID int) error {
	members, ok := r.staff[parkingID]
	if !ok {
		members = make(map[int]struct{})
		r.staff[parkingID] = members
	}
	if _, exists := members[userID]; exists {
		return repository.ErrDuplicateEntry
	}
	if len(members) >= domain.MaxStaffPerParking {
		return repository.ErrStaffLimitExceeded
	}
	members[userID] = struct{}{}
	return nil
}

func (r *fakeParkingRepo) RemoveStaff(_ context.Context, parkingID string, userID int) error {
	members := r.staff[parkingID]
	if _, ok := members[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(members, userID)
	return nil
}

func (r *fakeParkingRepo) ListStaff(_ context.Context, parkingID string) ([]int, error) {
	var ids []int
	for id := range r.staff[parkingID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeParkingRepo) IsStaff(_ context.Context, parkingID string, userID int) (bool, error) {
	_, ok := r.staff[parkingID][userID]
	return ok, nil
}

type fakeUserRepo struct {
	users  map[int]*domain.User
	nextID int
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int]*domain.User), nextID: 1}
	for _, u := range users {
		cp := *u
		if cp.ID == 0 {
			cp.ID = repo.nextID
		}
		repo.users[cp.ID] = &cp
		if cp.ID >= repo.nextID {
			repo.nextID = cp.ID + 1
		}
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, repository.ErrDuplicateEntry
		}
	}
	cp := *user
	cp.ID = r.nextID
	r.nextID++
	cp.IsActive = true
	r.users[cp.ID] = &cp
	result := cp
	return &result, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) AddCoins(_ context.Context, id int, delta int) (int, error) {
	u, ok := r.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if u.Coins+delta < 0 {
		return 0, repository.ErrInsufficientCoins
	}
	u.Coins += delta
	return u.Coins, nil
}

// fakePublisher records fan-out calls for assertions.
type fakePublisher struct {
	snapshots []domain.OccupancySnapshot
	notices   []domain.StaffOverrideNotice
}

func (p *fakePublisher) PublishSnapshot(snapshot domain.OccupancySnapshot) {
	p.snapshots = append(p.snapshots, snapshot)
}

func (p *fakePublisher) NotifyDetection(_ string, notice domain.StaffOverrideNotice) {
	p.notices = append(p.notices, notice)
}

type fakeVisitRepo struct {
	visits []domain.Visit
}

func (r *fakeVisitRepo) Create(_ context.Context, visit *domain.Visit) (*domain.Visit, error) {
	cp := *visit
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("visit-%d", len(r.visits)+1)
	}
	r.visits = append(r.visits, cp)
	result := cp
	return &result, nil
}

func (r *fakeVisitRepo) FindByID(_ context.Context, id string) (*domain.Visit, error) {
	for _, v := range r.visits {
		if v.ID == id {
			cp := v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeVisitRepo) FindByUser(_ context.Context, userID int) ([]domain.Visit, error) {
	var result []domain.Visit
	for _, v := range r.visits {
		if v.UserID == userID {
			result = append(result, v)
		}
	}
	return result, nil
}

func (r *fakeVisitRepo) Delete(_ context.Context, id string) error {
	for i, v := range r.visits {
		if v.ID == id {
			r.visits = append(r.visits[:i], r.visits[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeVisitRepo) CountVerifiedSince(_ context.Context, userID int, parkingID string, since time.Time) (int, error) {
	count := 0
	for _, v := range r.visits {
		if v.UserID == userID && v.ParkingID == parkingID && v.IsVerified && !v.VisitDate.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeRequestRepo struct {
	requests map[string]*domain.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]*domain.Request)}
}

func (r *fakeRequestRepo) Create(_ context.Context, request *domain.Request) (*domain.Request, error) {
	cp := *request
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.Status = domain.RequestPending
	r.requests[cp.ID] = &cp
	result := cp
	return &result, nil
}

func (r *fakeRequestRepo) FindByID(_ context.Context, id string) (*domain.Request, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) FindByUser(_ context.Context, userID int) ([]domain.Request, error) {
	var result []domain.Request
	for _, req := range r.requests {
		if req.UserID == userID {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (r *fakeRequestRepo) FindByStatus(_ context.Context, status domain.RequestStatus) ([]domain.Request, error) {
	var result []domain.Request
	for _, req := range r.requests {
		if req.Status == status {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (r *fakeRequestRepo) UpdateStatus(_ context.Context, id string, status domain.RequestStatus, reviewerID int, note string, coins int, at time.Time) (*domain.Request, error) {
	req, ok := r.requests[id]
	if !ok || req.Status != domain.RequestPending {
		return nil, repository.ErrNotFound
	}
	req.Status = status
	req.ReviewedBy.SetValid(int64(reviewerID))
	req.ReviewedAt.SetValid(at)
	req.ReviewNote = note
	req.CoinsEarned = coins
	cp := *req
	return &cp, nil
}
