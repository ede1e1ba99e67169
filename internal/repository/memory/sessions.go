package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

type sessionRepo struct{ t *tx }

func (r sessionRepo) Create(_ context.Context, s *model.RegisterSession) error {
	if s.Active() {
		// Register first, so a clash on both reports the same constraint
		// every time.
		if r.find(func(o model.RegisterSession) bool { return o.Active() && o.RegisterNumber == s.RegisterNumber }) != nil {
			return unique(repository.ConstraintRegisterActive)
		}
		if r.find(func(o model.RegisterSession) bool { return o.Active() && o.DeviceID == s.DeviceID }) != nil {
			return unique(repository.ConstraintDeviceActive)
		}
	}
	r.t.st.sessions[s.ID] = *s
	r.t.st.remember(s.ID)
	return nil
}

func (r sessionRepo) FindByID(_ context.Context, id string) (*model.RegisterSession, error) {
	s, ok := r.t.st.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r sessionRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.RegisterSession, error) {
	return r.FindByID(ctx, id)
}

func (r sessionRepo) find(match func(model.RegisterSession) bool) *model.RegisterSession {
	for _, s := range r.t.st.sessions {
		if match(s) {
			found := s
			return &found
		}
	}
	return nil
}

func (r sessionRepo) FindActiveByRegisterForUpdate(_ context.Context, n int) (*model.RegisterSession, error) {
	return r.find(func(s model.RegisterSession) bool { return s.Active() && s.RegisterNumber == n }), nil
}

func (r sessionRepo) FindActiveByDeviceForUpdate(_ context.Context, deviceID string) (*model.RegisterSession, error) {
	return r.find(func(s model.RegisterSession) bool { return s.Active() && s.DeviceID == deviceID }), nil
}

func (r sessionRepo) FindLatestByRegister(_ context.Context, n int) (*model.RegisterSession, error) {
	var latest *model.RegisterSession
	for _, s := range r.t.st.sessions {
		if s.RegisterNumber != n {
			continue
		}
		if latest == nil || r.t.st.order[s.ID] > r.t.st.order[latest.ID] {
			found := s
			latest = &found
		}
	}
	return latest, nil
}

func (r sessionRepo) ListActive(_ context.Context) ([]model.RegisterSession, error) {
	var out []model.RegisterSession
	for _, s := range r.t.st.sessions {
		if s.Active() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisterNumber < out[j].RegisterNumber })
	return out, nil
}

func (r sessionRepo) UpdateHeartbeat(_ context.Context, id string, at time.Time) error {
	s, ok := r.t.st.sessions[id]
	if !ok || !s.Active() {
		return nil
	}
	s.LastHeartbeatAt = at
	r.t.st.sessions[id] = s
	return nil
}

func (r sessionRepo) Close(_ context.Context, id string, c repository.SessionClose) (*model.RegisterSession, error) {
	s, ok := r.t.st.sessions[id]
	if !ok || !s.Active() {
		return nil, nil
	}
	s.SignedOutAt = ptr(c.SignedOutAt)
	s.SignedOutReason = ptr(c.Reason)
	s.SignedOutByStaff = c.ByStaffID
	r.t.st.sessions[id] = s
	return &s, nil
}

func (r sessionRepo) LockExpired(_ context.Context, cutoff time.Time, limit int) ([]model.RegisterSession, error) {
	var out []model.RegisterSession
	for _, s := range r.t.st.sessions {
		if s.Active() && s.LastHeartbeatAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastHeartbeatAt.Before(out[j].LastHeartbeatAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
