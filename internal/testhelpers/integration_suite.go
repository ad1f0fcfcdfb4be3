package testhelpers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dbehnke/pmr171-cps/pkg/database"
	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/metrics"
	"github.com/dbehnke/pmr171-cps/pkg/radio"
	"github.com/dbehnke/pmr171-cps/pkg/transport"
)

// IntegrationSuite provides infrastructure for integration tests: a
// simulated radio, a snapshot database in a temp dir and a metrics
// collector.
type IntegrationSuite struct {
	T         *testing.T
	Logger    *logger.Logger
	Ctx       context.Context
	Cancel    context.CancelFunc
	Radio     *MockRadio
	DB        *database.DB
	Collector *metrics.Collector
	sessions  []*radio.Session
}

// NewIntegrationSuite creates a new integration test suite
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	log := logger.New(logger.Config{
		Level:  "debug",
		Format: "text",
	})

	db, err := database.NewDB(database.Config{
		Path: filepath.Join(t.TempDir(), "snapshots.db"),
	}, log)
	if err != nil {
		cancel()
		t.Fatalf("failed to open test database: %v", err)
	}

	return &IntegrationSuite{
		T:         t,
		Logger:    log,
		Ctx:       ctx,
		Cancel:    cancel,
		Radio:     NewMockRadio(),
		DB:        db,
		Collector: metrics.NewCollector(),
	}
}

// Connect opens a session on the suite's radio. Extra options are applied
// after the suite's own.
func (s *IntegrationSuite) Connect(opts ...radio.Option) *radio.Session {
	opener := func(string, int) (transport.Port, error) {
		return s.Radio.Port, nil
	}
	opts = append([]radio.Option{
		radio.WithOpener(opener),
		radio.WithClock(s.Radio.Clock),
		radio.WithLogger(s.Logger),
		radio.WithMetrics(s.Collector),
	}, opts...)

	session, err := radio.Connect("/dev/mock", opts...)
	if err != nil {
		s.T.Fatalf("failed to connect to mock radio: %v", err)
	}
	s.sessions = append(s.sessions, session)
	return session
}

// Cleanup cleans up resources
func (s *IntegrationSuite) Cleanup() {
	for _, session := range s.sessions {
		_ = session.Close()
	}

	if s.DB != nil {
		_ = s.DB.Close()
	}

	// Cancel context
	s.Cancel()
}
