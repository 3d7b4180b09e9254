package dnssec

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("KeyCache", func() {
	var cache *KeyCache

	BeforeEach(func() {
		cache = NewKeyCache(context.Background(), 0)
	})

	Describe("Find", func() {
		It("returns nil when nothing is cached", func() {
			Expect(cache.Find("example.com.")).Should(BeNil())
		})

		It("finds an entry cached exactly at the queried zone", func() {
			cache.PutBad("example.com.")

			entry := cache.Find("example.com.")
			Expect(entry).ShouldNot(BeNil())
			Expect(entry.IsBad()).Should(BeTrue())
		})

		It("finds the closest cached ancestor for a descendant name", func() {
			cache.PutBad("example.com.")

			entry := cache.Find("www.example.com.")
			Expect(entry).ShouldNot(BeNil())
			Expect(entry.IsBad()).Should(BeTrue())
			Expect(entry.Zone.String()).Should(Equal("example.com."))
		})

		It("prefers the more specific of two cached ancestors", func() {
			cache.PutNull("com.", ValidationResultInsecure)
			cache.PutBad("example.com.")

			entry := cache.Find("www.example.com.")
			Expect(entry.Zone.String()).Should(Equal("example.com."))
			Expect(entry.IsBad()).Should(BeTrue())
		})
	})

	Describe("KeyEntry state predicates", func() {
		It("classifies a Null entry", func() {
			entry := &KeyEntry{Status: ValidationResultInsecure}
			Expect(entry.IsNull()).Should(BeTrue())
			Expect(entry.IsBad()).Should(BeFalse())
			Expect(entry.IsGood()).Should(BeFalse())
		})

		It("classifies a Bad entry", func() {
			entry := &KeyEntry{Status: ValidationResultBogus}
			Expect(entry.IsBad()).Should(BeTrue())
			Expect(entry.IsNull()).Should(BeFalse())
		})
	})
})
