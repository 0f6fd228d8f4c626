// Package vcf extracts pharmacogene-relevant variant calls from VCF v4.2
// text. Parsing is best-effort: structurally invalid lines are recorded with
// line number and reason, never aborting the run.
package vcf

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/registry"
)

// DefaultSampleID is used when the header carries no sample column. Callers
// holding a better identifier (e.g. an upload filename) may substitute it.
const DefaultSampleID = "PATIENT_UNKNOWN"

// maxLineBytes bounds a single VCF line; annotation-heavy INFO columns can
// far exceed the bufio default.
const maxLineBytes = 1 << 20

var infoGenePattern = regexp.MustCompile(`(?:GENE|gene)=([^;]+)`)

// Parser implements the domain.VariantExtractor interface for VCF text.
type Parser struct{}

// NewParser creates a VCF parser.
func NewParser() *Parser {
	return &Parser{}
}

// Extract parses VCF text and returns the pharmacogene-filtered variant set.
// The only error is empty input; all per-line problems are recorded in the
// returned set's ParseErrors.
func (p *Parser) Extract(text string) (*domain.VariantSet, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("extracting variants: %w", domain.ErrEmptyInput)
	}

	set := &domain.VariantSet{
		SampleID:  DefaultSampleID,
		Calls:     make(map[domain.Gene][]domain.VariantCall),
		CreatedAt: time.Now().UTC(),
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	headerSeen := false
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		set.TotalLines++
		line := scanner.Text()

		if strings.HasPrefix(line, "##") {
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			p.parseHeader(line, set)
			headerSeen = true
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !headerSeen {
			set.ParseErrors = append(set.ParseErrors,
				fmt.Sprintf("line %d: data line before column header, skipped", lineNum))
			continue
		}

		p.parseDataLine(line, lineNum, set)
	}
	if err := scanner.Err(); err != nil {
		set.ParseErrors = append(set.ParseErrors, fmt.Sprintf("line %d: %v, remaining input skipped", lineNum+1, err))
	}

	return set, nil
}

// parseHeader reads the sample identifier from the tenth column of the
// #CHROM header line, when present.
func (p *Parser) parseHeader(line string, set *domain.VariantSet) {
	columns := strings.Split(strings.TrimPrefix(line, "#"), "\t")
	if len(columns) > 9 {
		if id := strings.TrimSpace(columns[9]); id != "" {
			set.SampleID = id
		}
	}
}

func (p *Parser) parseDataLine(line string, lineNum int, set *domain.VariantSet) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		set.ParseErrors = append(set.ParseErrors,
			fmt.Sprintf("line %d: expected at least 8 columns, got %d", lineNum, len(fields)))
		return
	}

	position, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		set.ParseErrors = append(set.ParseErrors,
			fmt.Sprintf("line %d: non-numeric position %q", lineNum, strings.TrimSpace(fields[1])))
		return
	}

	set.TotalVariants++

	chromosome := registry.NormalizeChromosome(fields[0])
	rsid := strings.TrimSpace(fields[2])
	if rsid == "." {
		rsid = ""
	}
	ref := strings.ToUpper(strings.TrimSpace(fields[3]))
	alt := strings.ToUpper(strings.TrimSpace(fields[4]))

	gene, star := p.resolveGene(rsid, alt, chromosome, position, fields[7])
	if gene == "" {
		return
	}

	genotype := parseGenotype(fields)
	zygosity := zygosityFromGenotype(genotype)
	if zygosity == domain.ZygosityHomozygousRef {
		return
	}

	set.Calls[gene] = append(set.Calls[gene], domain.VariantCall{
		Chromosome: chromosome,
		Position:   position,
		RSID:       rsid,
		Reference:  ref,
		Alternate:  alt,
		Quality:    strings.TrimSpace(fields[5]),
		Filter:     strings.TrimSpace(fields[6]),
		Genotype:   genotype,
		Zygosity:   zygosity,
		SampleID:   set.SampleID,
		Gene:       gene,
		StarAllele: star,
	})
}

// resolveGene maps a record onto a pharmacogene, trying the defining rsID
// table, then INFO gene annotations, then the positional fallback. Records
// that resolve by identifier also get their star allele here; everything
// else is tagged unknown for the quality metrics.
func (p *Parser) resolveGene(rsid, alt, chromosome string, position int64, info string) (domain.Gene, domain.StarAllele) {
	if def, ok := registry.Definition(rsid); ok {
		if def.MatchesAlt(alt) {
			return def.Gene, def.Allele
		}
		return def.Gene, domain.AlleleUnknown
	}

	if m := infoGenePattern.FindStringSubmatch(info); m != nil {
		candidate := strings.Split(m[1], ",")[0]
		if gene, ok := registry.IsPharmacogene(candidate); ok {
			return gene, domain.AlleleUnknown
		}
	}

	if gene, ok := registry.GeneForPosition(chromosome, position); ok {
		return gene, domain.AlleleUnknown
	}

	return "", domain.AlleleUnknown
}

// parseGenotype pulls the GT value out of the FORMAT/sample columns and
// normalizes phased separators. Empty when the columns or the GT key are
// absent.
func parseGenotype(fields []string) string {
	if len(fields) < 10 {
		return ""
	}
	keys := strings.Split(fields[8], ":")
	values := strings.Split(fields[9], ":")
	for i, key := range keys {
		if key == "GT" && i < len(values) {
			return strings.ReplaceAll(strings.TrimSpace(values[i]), "|", "/")
		}
	}
	return ""
}

func zygosityFromGenotype(genotype string) domain.Zygosity {
	alleles := strings.Split(genotype, "/")
	if genotype == "" || len(alleles) != 2 {
		return domain.ZygosityMissing
	}
	a1, a2 := alleles[0], alleles[1]
	switch {
	case a1 == "." || a2 == ".":
		return domain.ZygosityMissing
	case a1 == "0" && a2 == "0":
		return domain.ZygosityHomozygousRef
	case a1 == a2:
		return domain.ZygosityHomozygousAlt
	default:
		return domain.ZygosityHeterozygous
	}
}
