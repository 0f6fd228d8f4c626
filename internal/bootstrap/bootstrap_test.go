package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func freshManager(t *testing.T) *config.Manager {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	manager, err := config.NewManager()
	require.NoError(t, err)
	return manager
}

func sampleVCF() string {
	lines := []string{
		"##fileformat=VCFv4.2",
		strings.Join([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT", "PATIENT_001"}, "\t"),
		strings.Join([]string{"10", "94781859", "rs4244285", "G", "A", "99", "PASS", "GENE=CYP2C19", "GT", "1/1"}, "\t"),
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestBuild_MemoryBackend(t *testing.T) {
	manager := freshManager(t)
	ctx := context.Background()

	analysis, closeAll, err := Build(ctx, manager, testLogger())
	require.NoError(t, err)
	defer closeAll()

	batch, err := analysis.AnalyzeText(ctx, sampleVCF(), []string{"CLOPIDOGREL"}, "")
	require.NoError(t, err)
	require.Len(t, batch.Analyses, 1)
	assert.Equal(t, domain.RiskLabelIneffective, batch.Analyses[0].RiskAssessment.RiskLabel)
}

func TestBuild_SQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	t.Setenv("PHARMAGUARD_SESSION_BACKEND", "sqlite")
	t.Setenv("PHARMAGUARD_SESSION_SQLITE_PATH", path)
	manager := freshManager(t)
	ctx := context.Background()

	analysis, closeAll, err := Build(ctx, manager, testLogger())
	require.NoError(t, err)
	defer closeAll()

	sessionID, set, err := analysis.CreateSession(ctx, sampleVCF(), "")
	require.NoError(t, err)
	assert.Equal(t, "PATIENT_001", set.SampleID)

	got, err := analysis.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, set.SampleID, got.SampleID)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestBuild_BrokenRedisBackend(t *testing.T) {
	t.Setenv("PHARMAGUARD_SESSION_BACKEND", "redis")
	t.Setenv("PHARMAGUARD_SESSION_REDIS_URL", "not-a-url")
	manager := freshManager(t)

	_, _, err := Build(context.Background(), manager, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create session store")
}

func TestBuildExplainer_Disabled(t *testing.T) {
	explainer, closers, err := buildExplainer(context.Background(), domain.ExplainConfig{}, testLogger())
	require.NoError(t, err)
	assert.Nil(t, explainer)
	assert.Empty(t, closers)
}

func TestBuildExplainer_Enabled(t *testing.T) {
	cfg := domain.ExplainConfig{
		Enabled:       true,
		APIKey:        "test-key",
		CacheMaxItems: 16,
	}
	explainer, closers, err := buildExplainer(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, explainer)
	assert.Empty(t, closers)
}

func TestCacheRedisClient_InvalidURL(t *testing.T) {
	assert.Nil(t, cacheRedisClient(context.Background(), "not-a-url", testLogger()))
	assert.Nil(t, cacheRedisClient(context.Background(), "", testLogger()))
}
