package reminder

import (
	"context"
	"sync"

	"volbot/internal/domain"
	"volbot/internal/storage"
)

// fakeStore is an in-memory Store for tests. Mutations are tracked so tests
// can assert on call effects without a database.
type fakeStore struct {
	mu          sync.Mutex
	jobs        map[storage.JobKey]storage.JobRecord
	assignments map[int64]domain.Assignment
	tasks       map[int64]domain.Task
	volunteers  map[int64]domain.Volunteer

	upsertErr error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:        map[storage.JobKey]storage.JobRecord{},
		assignments: map[int64]domain.Assignment{},
		tasks:       map[int64]domain.Task{},
		volunteers:  map[int64]domain.Volunteer{},
	}
}

func (f *fakeStore) UpsertJob(ctx context.Context, j storage.JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.jobs[j.Key] = j
	return nil
}

func (f *fakeStore) DeleteJob(ctx context.Context, key storage.JobKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.jobs, key)
	return nil
}

func (f *fakeStore) GetJob(ctx context.Context, key storage.JobKey) (storage.JobRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[key]
	return j, ok, nil
}

func (f *fakeStore) ListJobs(ctx context.Context) ([]storage.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.JobRecord, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeStore) GetAssignment(ctx context.Context, id int64) (domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return domain.Assignment{}, storage.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) GetVolunteer(ctx context.Context, id int64) (domain.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.volunteers[id]
	if !ok {
		return domain.Volunteer{}, storage.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) MarkNotificationScheduled(ctx context.Context, id int64, scheduled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.NotificationScheduled = scheduled
	f.assignments[id] = a
	return nil
}

func (f *fakeStore) ListUnscheduledAssignments(ctx context.Context) ([]domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Assignment
	for _, a := range f.assignments {
		if a.Status == domain.AssignmentAssigned && !a.NotificationScheduled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func (f *fakeStore) job(key storage.JobKey) (storage.JobRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[key]
	return j, ok
}

func (f *fakeStore) assignment(id int64) domain.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assignments[id]
}

func (f *fakeStore) putAssignment(a domain.Assignment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[a.ID] = a
}

func (f *fakeStore) putTask(t domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
}

func (f *fakeStore) putVolunteer(v domain.Volunteer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volunteers[v.ID] = v
}

func (f *fakeStore) putJob(j storage.JobRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.Key] = j
}
