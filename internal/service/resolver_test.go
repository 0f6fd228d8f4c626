package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func TestAlleleResolver_Resolve(t *testing.T) {
	resolver := NewAlleleResolver(testLogger())

	t.Run("annotated call keeps its allele", func(t *testing.T) {
		calls := []domain.VariantCall{{
			RSID:       "rs4244285",
			Alternate:  "A",
			Zygosity:   domain.ZygosityHeterozygous,
			Gene:       domain.GeneCYP2C19,
			StarAllele: "*2",
		}}

		resolved := resolver.Resolve(domain.GeneCYP2C19, calls)
		require.Len(t, resolved, 1)
		assert.Equal(t, domain.StarAllele("*2"), resolved[0].Allele)
		assert.Equal(t, 1, resolved[0].Copies)
	})

	t.Run("unannotated call resolves through the registry", func(t *testing.T) {
		calls := []domain.VariantCall{{
			RSID:      "rs4244285",
			Alternate: "A",
			Zygosity:  domain.ZygosityHomozygousAlt,
		}}

		resolved := resolver.Resolve(domain.GeneCYP2C19, calls)
		require.Len(t, resolved, 1)
		assert.Equal(t, domain.StarAllele("*2"), resolved[0].Allele)
		assert.Equal(t, 2, resolved[0].Copies)
	})

	t.Run("unexpected alternate tags unknown variant", func(t *testing.T) {
		calls := []domain.VariantCall{{
			RSID:      "rs4244285",
			Alternate: "T",
			Zygosity:  domain.ZygosityHeterozygous,
		}}

		resolved := resolver.Resolve(domain.GeneCYP2C19, calls)
		require.Len(t, resolved, 1)
		assert.Equal(t, domain.AlleleUnknown, resolved[0].Allele)
	})

	t.Run("rsID from another gene tags unknown variant", func(t *testing.T) {
		calls := []domain.VariantCall{{
			RSID:      "rs4244285",
			Alternate: "A",
			Zygosity:  domain.ZygosityHeterozygous,
		}}

		resolved := resolver.Resolve(domain.GeneCYP2D6, calls)
		require.Len(t, resolved, 1)
		assert.Equal(t, domain.AlleleUnknown, resolved[0].Allele)
	})

	t.Run("homozygous reference contributes nothing", func(t *testing.T) {
		calls := []domain.VariantCall{{
			RSID:     "rs4244285",
			Zygosity: domain.ZygosityHomozygousRef,
		}}

		resolved := resolver.Resolve(domain.GeneCYP2C19, calls)
		assert.Empty(t, resolved)
	})

	t.Run("missing zygosity counts one copy", func(t *testing.T) {
		calls := []domain.VariantCall{{
			RSID:       "rs3892097",
			Alternate:  "A",
			Zygosity:   domain.ZygosityMissing,
			StarAllele: "*4",
		}}

		resolved := resolver.Resolve(domain.GeneCYP2D6, calls)
		require.Len(t, resolved, 1)
		assert.Equal(t, 1, resolved[0].Copies)
	})
}
