package org

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RefreshDeadline", func() {
	var (
		t Timing
		d RefreshDeadline
	)

	BeforeEach(func() {
		t = ddr3Timing()
		d = NewRefreshDeadline(t)
	})

	It("should start with eight refreshes owed", func() {
		Expect(d.NextCompletion).To(Equal(int64(8 * 6240)))
		Expect(d.IssueDeadline).To(Equal(int64(8*6240 - 11 - 8*128)))
	})

	It("should move the issue deadline as refreshes are issued", func() {
		d.Issued = 3
		Expect(d.Advance(100, t)).To(BeFalse())
		Expect(d.IssueDeadline).To(Equal(int64(8*6240 - 11 - 5*128)))
	})

	It("should enter forced mode once at the deadline", func() {
		Expect(d.Advance(d.IssueDeadline-1, t)).To(BeFalse())
		Expect(d.Advance(d.IssueDeadline, t)).To(BeTrue())
		Expect(d.Forced).To(BeTrue())
		Expect(d.Advance(d.IssueDeadline+1, t)).To(BeFalse())
	})

	It("should enter forced mode when the deadline was skipped", func() {
		Expect(d.Advance(d.IssueDeadline+7, t)).To(BeTrue())
	})

	It("should not force when all refreshes are done", func() {
		d.Issued = RefreshesPerWindow
		d.Advance(100, t)

		Expect(d.Advance(d.IssueDeadline, t)).To(BeFalse())
	})

	It("should start a new window at the completion deadline", func() {
		d.Issued = 8
		d.Forced = true
		end := d.NextCompletion

		Expect(d.Advance(end, t)).To(BeFalse())
		Expect(d.Issued).To(Equal(0))
		Expect(d.Forced).To(BeFalse())
		Expect(d.LastCompletion).To(Equal(end))
		Expect(d.NextCompletion).To(Equal(end + 8*6240))
	})

	It("should block commands that would miss the deadline", func() {
		Expect(d.Allows(d.IssueDeadline-10, 10)).To(BeTrue())
		Expect(d.Allows(d.IssueDeadline-10, 11)).To(BeFalse())

		d.Forced = true
		Expect(d.Allows(0, 0)).To(BeFalse())
	})
})
