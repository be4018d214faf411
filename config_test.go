package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"REDIS_HOST", "DATABASE_URL", "S3_BUCKET_NAME", "PORTAL_CONTRACT_FILE", "OUTPUT_PATH"} {
		t.Setenv(key, "")
	}
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, testFilter(), cfg.Filter)
	assert.Equal(t, defaultBaseURL, cfg.Contract.BaseURL)
	assert.Equal(t, "case_details.csv", cfg.Output.Path)
	assert.True(t, cfg.Output.IncludePDF)
	assert.Equal(t, 6, cfg.OCR.PSM)
	assert.Equal(t, 5*time.Second, cfg.Timing.Popup)
	assert.Equal(t, 1, cfg.Timing.MaxPageRetries)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STATE_CODE", "27")
	t.Setenv("CASE_YEAR", "2019")
	t.Setenv("DISPOSAL_STATUS", "pending")
	t.Setenv("POPUP_TIMEOUT", "750ms")
	t.Setenv("MAX_PAGES", "4")
	t.Setenv("INCLUDE_PDF_COLUMN", "false")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("ECOURTS_BASE_URL", "http://127.0.0.1:8080/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "27", cfg.Filter.StateCode)
	assert.Equal(t, "2019", cfg.Filter.Year)
	assert.Equal(t, Pending, cfg.Filter.DisposalStatus)
	assert.Equal(t, 750*time.Millisecond, cfg.Timing.Popup)
	assert.Equal(t, 4, cfg.Timing.MaxPages)
	assert.False(t, cfg.Output.IncludePDF)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "http://127.0.0.1:8080/", cfg.Contract.BaseURL)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("DISPOSAL_STATUS", "closed")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("DISPOSAL_STATUS", "disposed")
	t.Setenv("CASE_YEAR", "15")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CASE_YEAR")
}

func TestQueryFilterValidateListsEveryProblem(t *testing.T) {
	err := QueryFilter{Year: "20x5"}.Validate()
	require.Error(t, err)
	for _, want := range []string{"STATE_CODE", "DISTRICT_CODE", "COURT_COMPLEX_CODE", "CASE_TYPE_CODE", "CASE_YEAR", "DISPOSAL_STATUS"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadPortalContractOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://mirror.example/ecourts/
captcha_image:
  by: css
  query: "#captcha_image_v2"
next_control:
  by: xpath
  query: "//a[contains(text(), 'Next »')]"
`), 0o644))

	c, err := LoadPortalContract(path)
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example/ecourts/", c.BaseURL)
	assert.Equal(t, CSS("#captcha_image_v2"), c.CaptchaImage)
	assert.Equal(t, ByXPath, c.NextControl.By)
	assert.Equal(t, DefaultPortalContract().CaptchaInput, c.CaptchaInput)
	assert.NoError(t, c.Validate())
}

func TestPortalContractValidate(t *testing.T) {
	c := DefaultPortalContract()
	require.NoError(t, c.Validate())

	c.StateSelect = Selector{}
	assert.Error(t, c.Validate())

	_, err := LoadPortalContract(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
