package main

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaseDetailFullView(t *testing.T) {
	rec, err := ParseCaseDetail(caseHTML("MHPU010012342015", "Asha Patil", "S Kulkarni"), DefaultPortalContract(), testFilter())
	require.NoError(t, err)

	assert.Equal(t, "1", rec.StateCode)
	assert.Equal(t, "25", rec.DistrictCode)
	assert.Equal(t, "M.A.C.P. - Motor Accident Claim Petition", rec.CaseType)
	assert.Equal(t, "100/2015", rec.FilingNumber)
	assert.Equal(t, "05-01-2015", rec.FilingDate)
	assert.Equal(t, "200/2015", rec.RegistrationNumber)
	assert.Equal(t, "06-01-2015", rec.RegistrationDate)
	assert.Equal(t, "MHPU010012342015", rec.CNRNumber)
	assert.Equal(t, "10th January 2015", rec.FirstHearingDate)
	assert.Equal(t, "15th March 2019", rec.DecisionDate)
	assert.Equal(t, "Case disposed", rec.CaseStatus)
	assert.Equal(t, "Contested--Allowed", rec.NatureOfDisposal)
	assert.Equal(t, "5-District Judge", rec.CourtAndJudge)

	assert.Equal(t, []string{"Asha Patil"}, rec.Petitioners)
	assert.Equal(t, []string{"S Kulkarni"}, rec.PetitionerAdvocates)
	assert.Equal(t, []string{"Insurance Co Ltd", "Vehicle Owner"}, rec.Respondents)
	assert.Equal(t, []string{"R Rao", ""}, rec.RespondentAdvocates)
	assert.Equal(t, []string{"Motor Vehicles Act"}, rec.Acts)
	assert.Equal(t, []string{"166"}, rec.Sections)
	assert.True(t, rec.Aligned())
	assert.False(t, rec.PdfDownloaded)
}

func TestParseCaseDetailMissingTables(t *testing.T) {
	markup := `<div id="CScaseType">
<table class="table case_details_table table-bordered">
  <tr><td>CNR Number</td><td>MHPU010012342015</td></tr>
</table>
</div>`
	rec, err := ParseCaseDetail(markup, DefaultPortalContract(), testFilter())
	require.NoError(t, err)

	assert.Equal(t, "MHPU010012342015", rec.CNRNumber)
	assert.Equal(t, "", rec.DecisionDate)
	assert.NotNil(t, rec.Acts)
	assert.Empty(t, rec.Acts)
	assert.Empty(t, rec.Sections)
	assert.Empty(t, rec.Petitioners)
	assert.Empty(t, rec.RespondentAdvocates)
	assert.True(t, rec.Aligned())
}

func TestParseCaseDetailNormalizesLabels(t *testing.T) {
	markup := `<table class="case_status_table">
  <tr><td><label><strong>Decision&nbsp;Date</strong></label> :</td><td>  01-02-2020&nbsp;</td></tr>
  <tr><td>Case Stage</td><td>Evidence</td></tr>
</table>`
	rec, err := ParseCaseDetail(markup, DefaultPortalContract(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, "01-02-2020", rec.DecisionDate)
	assert.Equal(t, "Evidence", rec.CaseStatus)
}

func TestPartyTableWithoutAdvocates(t *testing.T) {
	markup := `<table class="Petitioner_Advocate_table"><tr><td>
1) Sunita   Jadhav<br>2) Raj Jadhav<br>Advocate- P. More<br>3) Minor child
</td></tr></table>`
	rec, err := ParseCaseDetail(markup, DefaultPortalContract(), testFilter())
	require.NoError(t, err)

	assert.Equal(t, []string{"Sunita Jadhav", "Raj Jadhav", "Minor child"}, rec.Petitioners)
	assert.Equal(t, []string{"", "P. More", ""}, rec.PetitionerAdvocates)
}

func TestActsTableSkipsHeaderAndShortRows(t *testing.T) {
	markup := `<table id="act_table">
  <tr><td>Under Act(s)</td><td>Under Section(s)</td></tr>
  <tr><td>Indian Penal Code</td><td>279, 304A</td></tr>
  <tr><td>orphan cell</td></tr>
  <tr><td>Motor Vehicles Act</td><td>166</td></tr>
</table>`
	rec, err := ParseCaseDetail(markup, DefaultPortalContract(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{"Indian Penal Code", "Motor Vehicles Act"}, rec.Acts)
	assert.Equal(t, []string{"279, 304A", "166"}, rec.Sections)
}

func TestExtractRequiresDetailContainer(t *testing.T) {
	cfg := testConfig(t)
	page := newFakePage()
	ex := NewCaseRecordExtractor(page, cfg.Contract, TimingConfig{Detail: 5 * time.Millisecond})

	_, err := ex.Extract(context.Background(), testFilter())
	var ne *NavigationError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "detail_view", ne.Step)
	assert.Equal(t, TimedOut, Classify(err))

	page.set(cfg.Contract.DetailContainer, &fakeElement{html: caseHTML("MHPU010012342015", "A", "B")})
	rec, err := ex.Extract(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, "MHPU010012342015", rec.CNRNumber)
}

func TestParseCaseDetailRepeatedLabelKeepsLast(t *testing.T) {
	markup := `<div id="CScaseType">
<table class="case_status_table">
  <tr><td>Decision Date</td><td>01st January 2018</td></tr>
  <tr><td>Case Status</td><td>Case pending</td></tr>
  <tr><td>Decision Date</td><td>15th March 2019</td></tr>
  <tr><td>Case Status</td><td>Case disposed</td></tr>
</table>
</div>`
	rec, err := ParseCaseDetail(markup, DefaultPortalContract(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, "15th March 2019", rec.DecisionDate)
	assert.Equal(t, "Case disposed", rec.CaseStatus)
}
