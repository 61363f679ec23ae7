package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/tomashoffer/possible-cheaters/internal/db"
)

type MockBanRepository struct {
	Bans  []db.BanRecord
	Err   error
	Calls []time.Time
}

func NewMockBanRepository(bans ...db.BanRecord) *MockBanRepository {
	return &MockBanRepository{Bans: bans}
}

func (m *MockBanRepository) BannedBefore(ctx context.Context, date time.Time) (db.PlayerSet, error) {
	m.Calls = append(m.Calls, date)
	if m.Err != nil {
		return nil, fmt.Errorf("mock ban registry: %w: %w", db.ErrStoreUnavailable, m.Err)
	}

	cutoff := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	set := make(db.PlayerSet)
	for _, ban := range m.Bans {
		banDay := time.Date(ban.BanTime.Year(), ban.BanTime.Month(), ban.BanTime.Day(), 0, 0, 0, 0, time.UTC)
		if banDay.Before(cutoff) {
			set[ban.PlayerId] = struct{}{}
		}
	}
	return set, nil
}

type MockCheaterRepository struct {
	Records     []db.PossibleCheaterRecord
	AppendCalls int
	Err         error
}

func NewMockCheaterRepository() *MockCheaterRepository {
	return &MockCheaterRepository{
		Records: make([]db.PossibleCheaterRecord, 0),
	}
}

func (m *MockCheaterRepository) AppendRecords(ctx context.Context, records []db.PossibleCheaterRecord) (int, error) {
	m.AppendCalls++
	if m.Err != nil {
		return 0, fmt.Errorf("mock sink: %w: %w", db.ErrWriteFailure, m.Err)
	}
	m.Records = append(m.Records, records...)
	return len(records), nil
}

func (m *MockCheaterRepository) GetRecords(ctx context.Context) ([]db.PossibleCheaterRecord, error) {
	return m.Records, nil
}

func (m *MockCheaterRepository) GetRecordsCount(ctx context.Context) (int, error) {
	return len(m.Records), nil
}

var (
	_ db.BanRepository             = (*MockBanRepository)(nil)
	_ db.PossibleCheaterRepository = (*MockCheaterRepository)(nil)
)
