package org

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ActivationWindow", func() {
	var w *ActivationWindow

	BeforeEach(func() {
		w = NewActivationWindow(10)
	})

	It("should count activations in the trailing window", func() {
		w.Record(0)
		w.Record(3)
		w.Record(9)

		Expect(w.Count(10)).To(Equal(3))
		Expect(w.Count(11)).To(Equal(2))
		Expect(w.Count(20)).To(Equal(0))
	})

	It("should refuse a fifth activation", func() {
		for _, c := range []int64{1, 2, 3, 4} {
			w.Record(c)
		}

		Expect(w.Allows(5)).To(BeFalse())
		Expect(w.Allows(11)).To(BeFalse())
		Expect(w.Allows(12)).To(BeTrue())
	})

	It("should not count stale slots", func() {
		w.Record(2)
		w.Flush(13)

		Expect(w.Count(12)).To(Equal(0))
	})

	It("should panic on two activations in a cycle", func() {
		w.Record(4)

		Expect(func() { w.Record(4) }).To(Panic())
	})
})
