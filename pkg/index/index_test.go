package index_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/curlens/pkg/chatstore"
	"github.com/papercomputeco/curlens/pkg/index"
)

func messages(seqs ...int64) []chatstore.Message {
	out := make([]chatstore.Message, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, chatstore.Message{Seq: s, Role: chatstore.RoleUser, Text: "message"})
	}
	return out
}

var _ = Describe("Diff", func() {
	It("treats every message as new without a watermark", func() {
		delta, err := index.Diff(messages(1, 2, 3), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta.New).To(HaveLen(3))
		Expect(delta.LastSeq).To(Equal(int64(3)))
	})

	It("returns only messages strictly past the watermark, in order", func() {
		delta, err := index.Diff(messages(1, 2, 5, 7), &index.Watermark{SessionID: "s", LastSeq: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(delta.New).To(Equal(messages(5, 7)))
		Expect(delta.LastSeq).To(Equal(int64(7)))
	})

	It("is empty and keeps its position when nothing is new", func() {
		delta, err := index.Diff(messages(1, 2), &index.Watermark{SessionID: "s", LastSeq: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(delta.Empty()).To(BeTrue())
		Expect(delta.LastSeq).To(Equal(int64(2)))
	})

	It("gives identical answers on repeated calls", func() {
		prior := &index.Watermark{SessionID: "s", LastSeq: 1}
		first, err := index.Diff(messages(1, 2, 3), prior)
		Expect(err).NotTo(HaveOccurred())
		second, err := index.Diff(messages(1, 2, 3), prior)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
		Expect(prior.LastSeq).To(Equal(int64(1)))
	})

	It("never moves the position backwards", func() {
		delta, err := index.Diff(messages(3, 4), &index.Watermark{SessionID: "s", LastSeq: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(delta.LastSeq).To(BeNumerically(">=", 3))
	})

	It("detects a watermark past the end of the log", func() {
		_, err := index.Diff(messages(1, 2), &index.Watermark{SessionID: "s", LastSeq: 9})
		Expect(err).To(MatchError(index.ErrCorruptWatermark))

		_, err = index.Diff(nil, &index.Watermark{SessionID: "s", LastSeq: 1})
		Expect(err).To(MatchError(index.ErrCorruptWatermark))
	})
})
