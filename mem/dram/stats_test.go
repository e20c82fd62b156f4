package dram

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Snapshot", func() {
	It("should weight vault latencies by completed requests", func() {
		s := Snapshot{Vaults: []VaultSnapshot{
			{ReadsCompleted: 3, AvgReadLatency: 100},
			{ReadsCompleted: 1, AvgReadLatency: 200},
			{WritesCompleted: 2, AvgWriteLatency: 50},
		}}

		summarize(&s)

		Expect(s.ReadsCompleted).To(Equal(uint64(4)))
		Expect(s.WritesCompleted).To(Equal(uint64(2)))
		Expect(s.AvgReadLatency).To(BeNumerically("~", 125, 1e-9))
		Expect(s.AvgWriteLatency).To(BeNumerically("~", 50, 1e-9))
	})

	It("should report zero without traffic", func() {
		s := Snapshot{Vaults: []VaultSnapshot{{}, {}}}

		summarize(&s)

		Expect(s.AvgReadLatency).To(BeZero())
	})

	It("should compute page hit rates", func() {
		Expect(pageHitRate(0, 0)).To(BeZero())
		Expect(pageHitRate(4, 1)).To(BeNumerically("==", 0.75))
	})
})
