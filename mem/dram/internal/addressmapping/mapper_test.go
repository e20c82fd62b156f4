package addressmapping

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DefaultMapper", func() {
	dimm := Geometry{
		NumChannel: 2,
		NumVault:   1,
		NumRank:    2,
		NumBank:    8,
		NumRow:     1024,
		NumColumn:  128,
		LineSize:   64,
	}

	hmc := Geometry{
		NumChannel: 2,
		NumVault:   16,
		NumRank:    1,
		NumBank:    8,
		NumRow:     1024,
		NumColumn:  32,
		LineSize:   64,
	}

	Context("without near memory", func() {
		It("should decode row-major addresses", func() {
			m := MakeBuilder().
				WithFarSpace(dimm).
				WithMode(RowMajor).
				Build()

			// offset 6 | column 7 | channel 1 | bank 3 | rank 1 | row 10
			addr := uint64(5)<<6 |
				uint64(1)<<13 |
				uint64(6)<<14 |
				uint64(1)<<17 |
				uint64(77)<<18

			loc := m.Map(addr)

			Expect(loc).To(Equal(Location{
				Channel: 1, Vault: 0, Rank: 1, Bank: 6, Row: 77, Column: 5,
			}))
		})

		It("should decode bank-striped addresses", func() {
			m := MakeBuilder().
				WithFarSpace(dimm).
				WithMode(BankStriped).
				Build()

			// offset 6 | channel 1 | bank 3 | rank 1 | column 7 | row 10
			addr := uint64(1)<<6 |
				uint64(3)<<7 |
				uint64(1)<<10 |
				uint64(100)<<11 |
				uint64(9)<<18

			loc := m.Map(addr)

			Expect(loc).To(Equal(Location{
				Channel: 1, Vault: 0, Rank: 1, Bank: 3, Row: 9, Column: 100,
			}))
		})

		It("should treat every address as far", func() {
			m := MakeBuilder().WithFarSpace(dimm).Build()

			Expect(m.IsFar(0)).To(BeTrue())
		})

		It("should keep consecutive lines in one row in row-major mode", func() {
			m := MakeBuilder().WithFarSpace(dimm).WithMode(RowMajor).Build()

			a := m.Map(0x1000)
			b := m.Map(0x1040)

			Expect(a.Row).To(Equal(b.Row))
			Expect(a.Bank).To(Equal(b.Bank))
			Expect(b.Column).To(Equal(a.Column + 1))
		})
	})

	Context("with near memory", func() {
		var m *DefaultMapper

		BeforeEach(func() {
			m = MakeBuilder().
				WithNearSpace(hmc).
				WithFarSpace(dimm).
				WithMode(BankStriped).
				Build()
		})

		It("should decode near addresses", func() {
			// offset 6 | channel 1 | vault 4 | bank 3 | rank 0 | column 5 | row 10
			addr := uint64(1)<<6 |
				uint64(9)<<7 |
				uint64(2)<<11 |
				uint64(17)<<14 |
				uint64(33)<<19

			loc := m.Map(addr)

			Expect(m.IsFar(addr)).To(BeFalse())
			Expect(loc).To(Equal(Location{
				Channel: 1, Vault: 9, Rank: 0, Bank: 2, Row: 33, Column: 17,
			}))
		})

		It("should offset far channels past the near channels", func() {
			addr := uint64(1)<<36 | uint64(1)<<6

			loc := m.Map(addr)

			Expect(m.IsFar(addr)).To(BeTrue())
			Expect(loc.Channel).To(Equal(3))
			Expect(loc.Vault).To(Equal(0))
		})

		It("should be deterministic", func() {
			for addr := uint64(0); addr < 1<<20; addr += 4099 {
				Expect(m.Map(addr)).To(Equal(m.Map(addr)))
			}
		})
	})
})
