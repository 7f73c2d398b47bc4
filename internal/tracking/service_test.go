package tracking_test

import (
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"geotrack.dev/geotrack/internal/identity/mock"
	"geotrack.dev/geotrack/internal/store"
	"geotrack.dev/geotrack/internal/tracking"
)

// testClock hands out strictly increasing timestamps one second apart.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

type testEnv struct {
	service *tracking.Service
	store   *store.MemoryStore
	ident   *mock.MockProvider
	clock   *testClock
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store: store.NewMemoryStore(),
		ident: mock.NewMockProvider(),
		clock: newTestClock(),
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	service, err := tracking.New(&tracking.Config{
		Logger:   logger,
		Store:    env.store,
		Identity: env.ident,
		Now:      env.clock.Now,
	})
	Expect(err).NotTo(HaveOccurred())

	env.service = service
	return env
}

func ptr(v float64) *float64 { return &v }

var _ = Describe("New", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	})

	Context("with valid configuration", func() {
		It("should create a service", func() {
			service, err := tracking.New(&tracking.Config{
				Logger:   logger,
				Store:    store.NewMemoryStore(),
				Identity: mock.NewMockProvider(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(service).NotTo(BeNil())
		})
	})

	Context("with invalid configuration", func() {
		It("should return error when config is nil", func() {
			service, err := tracking.New(nil)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
			Expect(service).To(BeNil())
		})

		It("should return error when logger is nil", func() {
			service, err := tracking.New(&tracking.Config{
				Store:    store.NewMemoryStore(),
				Identity: mock.NewMockProvider(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger cannot be nil"))
			Expect(service).To(BeNil())
		})

		It("should return error when store is nil", func() {
			service, err := tracking.New(&tracking.Config{
				Logger:   logger,
				Identity: mock.NewMockProvider(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("store cannot be nil"))
			Expect(service).To(BeNil())
		})

		It("should return error when identity provider is nil", func() {
			service, err := tracking.New(&tracking.Config{
				Logger: logger,
				Store:  store.NewMemoryStore(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("identity provider cannot be nil"))
			Expect(service).To(BeNil())
		})
	})
})
