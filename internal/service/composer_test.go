package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmaguard-server/internal/domain"
)

func resolvedAllele(allele domain.StarAllele, copies int) ResolvedAllele {
	return ResolvedAllele{Allele: allele, Copies: copies}
}

func TestDiplotypeComposer_Compose(t *testing.T) {
	composer := NewDiplotypeComposer(testLogger())

	tests := []struct {
		name         string
		resolved     []ResolvedAllele
		wantString   string
		wantCompound bool
	}{
		{
			name:       "no variant alleles yields reference",
			resolved:   nil,
			wantString: "*1/*1",
		},
		{
			name:       "single heterozygous pairs with reference",
			resolved:   []ResolvedAllele{resolvedAllele("*4", 1)},
			wantString: "*1/*4",
		},
		{
			name:       "homozygous fills both slots",
			resolved:   []ResolvedAllele{resolvedAllele("*4", 2)},
			wantString: "*4/*4",
		},
		{
			name:         "two distinct heterozygous variants are compound",
			resolved:     []ResolvedAllele{resolvedAllele("*41", 1), resolvedAllele("*4", 1)},
			wantString:   "*4/*41",
			wantCompound: true,
		},
		{
			name:       "homozygous first call wins both slots",
			resolved:   []ResolvedAllele{resolvedAllele("*4", 2), resolvedAllele("*41", 1)},
			wantString: "*4/*4",
		},
		{
			name:         "extra alleles beyond two are dropped",
			resolved:     []ResolvedAllele{resolvedAllele("*10", 1), resolvedAllele("*4", 1), resolvedAllele("*41", 1)},
			wantString:   "*10/*4",
			wantCompound: true,
		},
		{
			name:         "unknown variant pairs as compound",
			resolved:     []ResolvedAllele{resolvedAllele(domain.AlleleUnknown, 1), resolvedAllele("*4", 1)},
			wantString:   "*4/*?",
			wantCompound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diplotype := composer.Compose(domain.GeneCYP2D6, tt.resolved)
			assert.Equal(t, domain.GeneCYP2D6, diplotype.Gene)
			assert.Equal(t, tt.wantString, diplotype.String())
			assert.Equal(t, tt.wantCompound, diplotype.CompoundHeterozygote)
		})
	}
}

func TestDiplotypeComposer_ReferenceIsNotCompound(t *testing.T) {
	composer := NewDiplotypeComposer(testLogger())

	diplotype := composer.Compose(domain.GeneTPMT, nil)
	assert.True(t, diplotype.IsReference())
	assert.False(t, diplotype.CompoundHeterozygote)
}
