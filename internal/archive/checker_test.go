package archive_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/archive-gate/internal/archive"
	"github.com/angeloszaimis/archive-gate/internal/metrics"
)

// fakeArchive answers HEAD requests with fixed statuses for the metadata
// file and for everything else.
type fakeArchive struct {
	server        *httptest.Server
	metadataHits  atomic.Int64
	rootHits      atomic.Int64
	lastUserAgent atomic.Value
}

func newFakeArchive(metadataStatus, rootStatus int, delay time.Duration) *fakeArchive {
	fa := &fakeArchive{}
	fa.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fa.lastUserAgent.Store(r.UserAgent())

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if r.URL.Path == archive.MetadataPath {
			fa.metadataHits.Add(1)
			w.WriteHeader(metadataStatus)
			return
		}
		fa.rootHits.Add(1)
		w.WriteHeader(rootStatus)
	}))
	return fa
}

func (fa *fakeArchive) URL() string {
	return fa.server.URL
}

func (fa *fakeArchive) Close() {
	fa.server.Close()
}

type countingTransport struct {
	calls atomic.Int64
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("Checker", func() {
	var (
		checker *archive.Checker
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		checker, err = archive.NewChecker(archive.WithLogger(quietLogger()))
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	Describe("NewChecker", func() {
		It("should reject a non-positive default timeout", func() {
			c, err := archive.NewChecker(archive.WithTimeout(0))
			Expect(err).To(MatchError(archive.ErrInvalidTimeout))
			Expect(c).To(BeNil())

			_, err = archive.NewChecker(archive.WithTimeout(-time.Second))
			Expect(err).To(MatchError(archive.ErrInvalidTimeout))
		})

		It("should reject an empty user agent", func() {
			_, err := archive.NewChecker(archive.WithUserAgent(""))
			Expect(err).To(MatchError(archive.ErrEmptyUserAgent))
		})

		It("should reject a nil transport and a nil logger", func() {
			_, err := archive.NewChecker(archive.WithTransport(nil))
			Expect(err).To(HaveOccurred())

			_, err = archive.NewChecker(archive.WithLogger(nil))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CheckAll", func() {
		It("should mark an archive with metadata healthy without probing the root", func() {
			fa := newFakeArchive(http.StatusOK, http.StatusInternalServerError, 0)
			defer fa.Close()

			report, err := checker.CheckAll(ctx, []string{fa.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.AllHealthy()).To(BeTrue())
			Expect(report.AnyHealthy()).To(BeTrue())
			Expect(report.Healthy()).To(Equal([]string{fa.URL()}))
			Expect(report.Unhealthy()).To(BeEmpty())
			Expect(fa.metadataHits.Load()).To(Equal(int64(1)))
			Expect(fa.rootHits.Load()).To(Equal(int64(0)))
		})

		It("should fall back to the root when metadata is missing", func() {
			fa := newFakeArchive(http.StatusNotFound, http.StatusOK, 0)
			defer fa.Close()

			report, err := checker.CheckAll(ctx, []string{fa.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.AllHealthy()).To(BeTrue())
			Expect(report.HealthyCount()).To(Equal(1))
			Expect(report.UnhealthyCount()).To(Equal(0))
			Expect(fa.rootHits.Load()).To(Equal(int64(1)))
		})

		It("should report the HTTP status when both endpoints fail", func() {
			fa := newFakeArchive(http.StatusInternalServerError, http.StatusInternalServerError, 0)
			defer fa.Close()

			report, err := checker.CheckAll(ctx, []string{fa.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.AllHealthy()).To(BeFalse())
			Expect(report.AnyHealthy()).To(BeFalse())
			Expect(report.Unhealthy()).To(HaveLen(1))
			Expect(report.Unhealthy()[0].Archive).To(Equal(fa.URL()))
			Expect(report.Unhealthy()[0].Reason).To(Equal("Archive returned HTTP 500 Internal Server Error"))
		})

		It("should report a connection failure for an unreachable archive", func() {
			fa := newFakeArchive(http.StatusOK, http.StatusOK, 0)
			url := fa.URL()
			fa.Close()

			report, err := checker.CheckAll(ctx, []string{url}, 500*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.AnyHealthy()).To(BeFalse())
			Expect(report.Unhealthy()).To(HaveLen(1))
			Expect(report.Unhealthy()[0].Archive).To(Equal(url))
			Expect(report.Unhealthy()[0].Reason).To(HavePrefix("Connection failed: "))
			Expect(report.Unhealthy()[0].Reason).NotTo(ContainSubstring("Archive returned HTTP"))
		})

		It("should treat a malformed archive URL as a connection failure", func() {
			report, err := checker.CheckAll(ctx, []string{"://not a url"}, time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Unhealthy()).To(HaveLen(1))
			Expect(report.Unhealthy()[0].Reason).To(HavePrefix("Connection failed: "))
		})

		It("should respect the timeout", func() {
			fa := newFakeArchive(http.StatusOK, http.StatusOK, 2*time.Second)
			defer fa.Close()

			start := time.Now()
			report, err := checker.CheckAll(ctx, []string{fa.URL()}, 100*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(report.AllHealthy()).To(BeFalse())
			Expect(report.Unhealthy()).To(HaveLen(1))
			Expect(report.Unhealthy()[0].Reason).To(HavePrefix("Connection failed: "))
		})

		It("should succeed when the timeout is long enough", func() {
			fa := newFakeArchive(http.StatusOK, http.StatusOK, 100*time.Millisecond)
			defer fa.Close()

			report, err := checker.CheckAll(ctx, []string{fa.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.AllHealthy()).To(BeTrue())
		})

		It("should strip one trailing slash from the archive URL", func() {
			fa := newFakeArchive(http.StatusOK, http.StatusOK, 0)
			defer fa.Close()

			report, err := checker.CheckAll(ctx, []string{fa.URL() + "/"}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Healthy()).To(Equal([]string{fa.URL() + "/"}))
			Expect(fa.metadataHits.Load()).To(Equal(int64(1)))
		})

		It("should send the configured user agent", func() {
			fa := newFakeArchive(http.StatusOK, http.StatusOK, 0)
			defer fa.Close()

			c, err := archive.NewChecker(
				archive.WithLogger(quietLogger()),
				archive.WithUserAgent("archive-gate-test/1.0"),
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.CheckAll(ctx, []string{fa.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(fa.lastUserAgent.Load()).To(Equal("archive-gate-test/1.0"))
		})

		It("should classify mixed archives and keep input order", func() {
			healthy := newFakeArchive(http.StatusOK, http.StatusOK, 0)
			defer healthy.Close()
			broken := newFakeArchive(http.StatusInternalServerError, http.StatusInternalServerError, 0)
			defer broken.Close()
			fallback := newFakeArchive(http.StatusNotFound, http.StatusOK, 0)
			defer fallback.Close()

			targets := []string{broken.URL(), healthy.URL(), fallback.URL(), healthy.URL()}
			report, err := checker.CheckAll(ctx, targets, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.AllHealthy()).To(BeFalse())
			Expect(report.AnyHealthy()).To(BeTrue())
			Expect(report.Healthy()).To(Equal([]string{healthy.URL(), fallback.URL(), healthy.URL()}))
			Expect(report.Unhealthy()).To(HaveLen(1))
			Expect(report.Unhealthy()[0].Archive).To(Equal(broken.URL()))
			Expect(report.HealthyCount() + report.UnhealthyCount()).To(Equal(len(targets)))
			Expect(report.Summary()).To(Equal("3 healthy, 1 unhealthy archive(s)"))
		})

		It("should summarize one healthy and one unhealthy archive", func() {
			healthy := newFakeArchive(http.StatusOK, http.StatusOK, 0)
			defer healthy.Close()
			broken := newFakeArchive(http.StatusInternalServerError, http.StatusInternalServerError, 0)
			defer broken.Close()

			report, err := checker.CheckAll(ctx, []string{healthy.URL(), broken.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Summary()).To(Equal("1 healthy, 1 unhealthy archive(s)"))
		})

		It("should not let a slow archive delay the verdict of a fast one", func() {
			slow := newFakeArchive(http.StatusOK, http.StatusOK, 300*time.Millisecond)
			defer slow.Close()
			fast := newFakeArchive(http.StatusOK, http.StatusOK, 0)
			defer fast.Close()

			start := time.Now()
			report, err := checker.CheckAll(ctx, []string{slow.URL(), fast.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			// Sequential probing would take at least twice as long as the slow archive alone.
			Expect(time.Since(start)).To(BeNumerically("<", 600*time.Millisecond))
			Expect(report.AllHealthy()).To(BeTrue())
		})

		It("should format error details with the archive and status", func() {
			fa := newFakeArchive(http.StatusServiceUnavailable, http.StatusServiceUnavailable, 0)
			defer fa.Close()

			report, err := checker.CheckAll(ctx, []string{fa.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			details := report.ErrorDetails()
			Expect(details).To(ContainSubstring(fa.URL()))
			Expect(details).To(ContainSubstring("HTTP 503"))
		})

		It("should return the empty report without any network call", func() {
			transport := &countingTransport{}
			c, err := archive.NewChecker(
				archive.WithLogger(quietLogger()),
				archive.WithTransport(transport),
			)
			Expect(err).NotTo(HaveOccurred())

			report, err := c.CheckAll(ctx, []string{}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(transport.calls.Load()).To(Equal(int64(0)))
			Expect(report.Empty()).To(BeTrue())
			Expect(report.AllHealthy()).To(BeFalse())
			Expect(report.AnyHealthy()).To(BeFalse())
			Expect(report.Summary()).To(Equal("No archives configured"))
		})

		It("should reject a negative timeout before probing", func() {
			transport := &countingTransport{}
			c, err := archive.NewChecker(
				archive.WithLogger(quietLogger()),
				archive.WithTransport(transport),
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.CheckAll(ctx, []string{"http://archive.example"}, -time.Second)
			Expect(errors.Is(err, archive.ErrInvalidTimeout)).To(BeTrue())
			Expect(transport.calls.Load()).To(Equal(int64(0)))
		})

		It("should use the default timeout when given zero", func() {
			fa := newFakeArchive(http.StatusOK, http.StatusOK, 0)
			defer fa.Close()

			report, err := checker.CheckAll(ctx, []string{fa.URL()}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.AllHealthy()).To(BeTrue())
		})

		It("should emit one probe event per archive", func() {
			events := make(chan metrics.MetricEvent, 10)
			c, err := archive.NewChecker(
				archive.WithLogger(quietLogger()),
				archive.WithEvents(events),
			)
			Expect(err).NotTo(HaveOccurred())

			direct := newFakeArchive(http.StatusOK, http.StatusOK, 0)
			defer direct.Close()
			fallback := newFakeArchive(http.StatusNotFound, http.StatusOK, 0)
			defer fallback.Close()

			_, err = c.CheckAll(ctx, []string{direct.URL(), fallback.URL()}, 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			Expect(events).To(HaveLen(2))
			steps := map[string]string{}
			for i := 0; i < 2; i++ {
				ev := <-events
				Expect(ev.Type).To(Equal(metrics.EventProbeCompleted))
				Expect(ev.Healthy).To(BeTrue())
				steps[ev.Archive] = ev.Step
			}
			Expect(steps[direct.URL()]).To(Equal(metrics.StepMetadata))
			Expect(steps[fallback.URL()]).To(Equal(metrics.StepRoot))
		})
	})
})
