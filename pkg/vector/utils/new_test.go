package vectorutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/vector/inmemory"
	"github.com/papercomputeco/ragline/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/ragline/pkg/vector/utils"
)

var _ = Describe("NewRetriever", func() {
	It("builds an in-memory store", func() {
		r, err := vectorutils.NewRetriever(context.Background(), &vectorutils.NewRetrieverOpts{
			ProviderType: "memory",
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&inmemory.Store{}))
	})

	It("builds a sqlite-vec store", func() {
		r, err := vectorutils.NewRetriever(context.Background(), &vectorutils.NewRetrieverOpts{
			ProviderType: "sqlite",
			Target:       ":memory:",
			Dimensions:   8,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeAssignableToTypeOf(&sqlitevec.SQLiteVecDriver{}))
		Expect(r.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewRetriever(context.Background(), &vectorutils.NewRetrieverOpts{ProviderType: "chroma"})
		Expect(err).To(MatchError(ContainSubstring("unsupported retrieval provider")))
	})
})
