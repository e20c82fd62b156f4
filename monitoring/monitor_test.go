package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/anirbannag/usimm-pm/sim/timing"
)

type sampleComponent struct {
	name    string
	Counter int
	ticked  bool
}

func (c *sampleComponent) Name() string {
	return c.name
}

func (c *sampleComponent) TickLater() {
	c.ticked = true
}

type plainComponent struct {
	name string
}

func (c plainComponent) Name() string {
	return c.name
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		engine *timing.SerialEngine
		comp   *sampleComponent
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		m.Router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		comp = &sampleComponent{name: "DRAM", Counter: 3}

		m = NewMonitor()
		m.RegisterEngine(engine)
		m.RegisterComponent(comp, func() any {
			return map[string]int{"reads": comp.Counter}
		})
		m.RegisterComponent(plainComponent{name: "Driver"}, nil)
	})

	It("should report the engine time", func() {
		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"now":0}`))
	})

	It("should pause and continue the engine", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
	})

	It("should list components by name", func() {
		rec := get("/api/list_components")

		Expect(rec.Body.String()).To(MatchJSON(`["DRAM","Driver"]`))
	})

	It("should serve component statistics", func() {
		rec := get("/api/stats/DRAM")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"reads":3}`))
		Expect(get("/api/stats/Driver").Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize component fields", func() {
		rec := get("/api/component/DRAM")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Counter"))
	})

	It("should 404 on unknown components", func() {
		Expect(get("/api/component/Nope").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/tick/Nope").Code).To(Equal(http.StatusNotFound))
	})

	It("should tick ticking components only", func() {
		Expect(get("/api/tick/DRAM").Code).To(Equal(http.StatusOK))
		Expect(comp.ticked).To(BeTrue())

		Expect(get("/api/tick/Driver").Code).
			To(Equal(http.StatusMethodNotAllowed))
	})

	It("should list progress bars until they complete", func() {
		bar := m.CreateProgressBar("Cores", 4)
		bar.IncrementFinished(1)

		var bars []map[string]any
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("Cores"))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 1))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress").Body.String()).To(MatchJSON(`[]`))
	})

	It("should report resource usage", func() {
		rec := get("/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should serve the web page", func() {
		rec := get("/index.html")

		Expect(rec.Code).To(BeNumerically("<", 400))
	})
})

var _ = Describe("ProgressBar", func() {
	It("should move work from in progress to finished", func() {
		bar := &ProgressBar{Total: 10}
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)
		bar.SetFinished(5)

		v := bar.view()
		Expect(v.InProgress).To(Equal(uint64(1)))
		Expect(v.Finished).To(Equal(uint64(5)))
	})
})
