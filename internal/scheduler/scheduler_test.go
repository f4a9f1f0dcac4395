package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

type MockTarget struct {
	mock.Mock
}

func (m *MockTarget) AutoPassTurn(ctx context.Context, roomID string) (service.TurnResult, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(service.TurnResult), args.Error(1)
}

func (m *MockTarget) SweepIdleRooms(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// manualTickers hands out channels the test feeds by hand, keyed by period.
type manualTickers struct {
	mu      sync.Mutex
	chans   map[time.Duration]chan time.Time
	stopped int
}

func newManualTickers() *manualTickers {
	return &manualTickers{chans: make(map[time.Duration]chan time.Time)}
}

func (m *manualTickers) Create(d time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time)
	m.chans[d] = ch
	return ch, func() {
		m.mu.Lock()
		m.stopped++
		m.mu.Unlock()
	}
}

func (m *manualTickers) get(d time.Duration) chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chans[d]
}

func TestExpire_FiresDueRoomsInDeadlineOrder(t *testing.T) {
	t.Parallel()
	target := new(MockTarget)
	s := New(target, newManualTickers(), time.Second, time.Minute)

	s.Schedule("late", t0.Add(2*time.Second))
	s.Schedule("b", t0)
	s.Schedule("a", t0)
	s.Schedule("early", t0.Add(-time.Second))
	s.Schedule("future", t0.Add(time.Hour))

	var order []string
	target.On("AutoPassTurn", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, args.String(1)) }).
		Return(service.TurnResult{Status: models.StatusPlaying}, nil)

	s.Expire(context.Background(), t0)
	assert.Equal(t, []string{"early", "a", "b"}, order)
	assert.Equal(t, 2, s.Pending())

	s.Expire(context.Background(), t0.Add(2*time.Second))
	assert.Equal(t, []string{"early", "a", "b", "late"}, order)
	target.AssertNumberOfCalls(t, "AutoPassTurn", 4)
}

func TestExpire_Outcomes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		description string
		result      service.TurnResult
		err         error
		rearmed     bool
	}{
		{"advanced", service.TurnResult{Status: models.StatusPlaying, CurrentTurn: "s1"}, nil, false},
		{"went to voting", service.TurnResult{Status: models.StatusVoting}, nil, false},
		{"not ready yet", service.TurnResult{Skipped: true, Status: models.StatusPlaying}, nil, true},
		{"left playing", service.TurnResult{Skipped: true, Status: models.StatusResults}, nil, false},
		{"room gone", service.TurnResult{}, service.ErrRoomNotFound, false},
		{"store failure", service.TurnResult{}, errors.New("redis down"), true},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()
			target := new(MockTarget)
			target.On("AutoPassTurn", mock.Anything, "r1").Return(tc.result, tc.err).Once()
			s := New(target, newManualTickers(), time.Second, time.Minute)
			s.Schedule("r1", t0)

			s.Expire(context.Background(), t0)
			target.AssertExpectations(t)
			if tc.rearmed {
				assert.Equal(t, 1, s.Pending())
			} else {
				assert.Zero(t, s.Pending())
			}
		})
	}
}

func TestExpire_KeepsDeadlineSetDuringCall(t *testing.T) {
	t.Parallel()
	target := new(MockTarget)
	s := New(target, newManualTickers(), time.Second, time.Minute)
	target.On("AutoPassTurn", mock.Anything, "r1").
		Run(func(mock.Arguments) { s.Schedule("r1", t0.Add(30*time.Second)) }).
		Return(service.TurnResult{Skipped: true, Status: models.StatusPlaying}, nil)

	s.Schedule("r1", t0)
	s.Expire(context.Background(), t0)

	require.Equal(t, 1, s.Pending())
	s.Expire(context.Background(), t0.Add(time.Second))
	target.AssertNumberOfCalls(t, "AutoPassTurn", 1)
}

func TestCancel(t *testing.T) {
	t.Parallel()
	target := new(MockTarget)
	s := New(target, newManualTickers(), time.Second, time.Minute)
	s.Schedule("r1", t0)
	s.Cancel("r1")
	s.Cancel("unknown")

	s.Expire(context.Background(), t0.Add(time.Hour))
	target.AssertNotCalled(t, "AutoPassTurn", mock.Anything, mock.Anything)
}

func TestRun(t *testing.T) {
	t.Parallel()
	target := new(MockTarget)
	tickers := newManualTickers()
	s := New(target, tickers, time.Second, time.Minute)

	swept := make(chan struct{})
	passed := make(chan struct{})
	target.On("SweepIdleRooms", mock.Anything).Return(2, nil).Run(func(mock.Arguments) { close(swept) }).Once()
	target.On("AutoPassTurn", mock.Anything, "r1").
		Return(service.TurnResult{Status: models.StatusPlaying}, nil).
		Run(func(mock.Arguments) { close(passed) }).Once()
	s.Schedule("r1", t0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return tickers.get(time.Second) != nil && tickers.get(time.Minute) != nil
	}, time.Second, 5*time.Millisecond)

	tickers.get(time.Minute) <- t0
	<-swept
	tickers.get(time.Second) <- t0
	<-passed

	cancel()
	<-done
	target.AssertExpectations(t)
	tickers.mu.Lock()
	assert.Equal(t, 2, tickers.stopped)
	tickers.mu.Unlock()
}
