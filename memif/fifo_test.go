package memif_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/oocore/memif"
)

var _ = Describe("FIFO", func() {
	var fifo *memif.RequestFIFO

	BeforeEach(func() {
		fifo = memif.NewFIFO[memif.Request](2)
	})

	It("should start empty", func() {
		Expect(fifo.IsEmpty()).To(BeTrue())
		Expect(fifo.IsFull()).To(BeFalse())
		Expect(fifo.Len()).To(Equal(0))
	})

	It("should accept pushes up to depth", func() {
		Expect(fifo.Push(memif.Request{MsgID: 1})).To(BeTrue())
		Expect(fifo.Push(memif.Request{MsgID: 2})).To(BeTrue())
		Expect(fifo.IsFull()).To(BeTrue())
	})

	It("should reject a push once full", func() {
		fifo.Push(memif.Request{MsgID: 1})
		fifo.Push(memif.Request{MsgID: 2})
		Expect(fifo.Push(memif.Request{MsgID: 3})).To(BeFalse())
		Expect(fifo.Len()).To(Equal(2))
	})

	It("should pop in FIFO order", func() {
		fifo.Push(memif.Request{MsgID: 1})
		fifo.Push(memif.Request{MsgID: 2})

		first, ok := fifo.Pop()
		Expect(ok).To(BeTrue())
		Expect(first.MsgID).To(Equal(uint64(1)))

		second, ok := fifo.Pop()
		Expect(ok).To(BeTrue())
		Expect(second.MsgID).To(Equal(uint64(2)))

		Expect(fifo.IsEmpty()).To(BeTrue())
	})

	It("should report false from Pop when empty", func() {
		_, ok := fifo.Pop()
		Expect(ok).To(BeFalse())
	})

	It("should peek without removing", func() {
		fifo.Push(memif.Request{MsgID: 7})
		v, ok := fifo.Peek()
		Expect(ok).To(BeTrue())
		Expect(v.MsgID).To(Equal(uint64(7)))
		Expect(fifo.Len()).To(Equal(1))
	})

	It("should treat a non-positive depth as unbounded", func() {
		unbounded := memif.NewFIFO[memif.Request](0)
		for i := 0; i < 100; i++ {
			Expect(unbounded.Push(memif.Request{MsgID: uint64(i)})).To(BeTrue())
		}
		Expect(unbounded.IsFull()).To(BeFalse())
	})
})

var _ = Describe("Endpoint", func() {
	It("should expose independent TX and RX FIFOs", func() {
		ep := memif.NewEndpoint(4)
		Expect(ep.TX()).NotTo(BeNil())
		Expect(ep.RX()).NotTo(BeNil())

		ep.TX().Push(memif.Request{MsgID: 1, Kind: memif.Load, Addr: 0x100})
		Expect(ep.RX().IsEmpty()).To(BeTrue())

		ep.RX().Push(memif.Response{MsgID: 1, Addr: 0x100})
		req, _ := ep.TX().Pop()
		Expect(req.MsgID).To(Equal(uint64(1)))
	})
})
